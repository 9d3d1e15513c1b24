package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikage/tweetrunner/internal/twitter"
	"github.com/mikage/tweetrunner/internal/watermark"
	"github.com/mikage/tweetrunner/pkg/models"
)

// fetchResult is one cached timeline fetch, keyed by target account id.
// Failures are cached too so the dispatch phase can tell "deferred" from
// "failed" without refetching.
type fetchResult struct {
	posts       []twitter.Post
	err         error
	rateLimited bool
	skipped     bool // account unusable (missing credentials), not an error
}

// RunReplyMonitor executes the reply flow in two phases: fetch each unique
// monitored target once (several reply rules may share a target), then walk
// the reply settings in configuration order dispatching replies from the
// cache.
func (r *Runner) RunReplyMonitor(ctx context.Context) Summary {
	var summary Summary

	if len(r.snap.ReplySettings) == 0 {
		r.logger.Info("no reply settings configured, skipping reply flow")
		return summary
	}

	r.logger.Info("starting reply-monitor flow", "reply_settings", len(r.snap.ReplySettings))
	r.logOverview()

	cache := r.preloadTargets(ctx)
	r.dispatchReplies(ctx, cache, &summary)

	r.logger.Info("reply-monitor flow completed",
		"published", summary.Published,
		"errors", summary.Errors,
		"skipped", summary.Skipped,
		"deferred", summary.Deferred)
	return summary
}

// logOverview logs each active rule as "reply bot -> targets" for debugging.
func (r *Runner) logOverview() {
	for i := range r.snap.ReplySettings {
		setting := &r.snap.ReplySettings[i]
		if !setting.IsActive {
			continue
		}
		ids, err := setting.ParseTargetIDs()
		if err != nil {
			r.logger.Debug("reply setting with unparsable targets", "index", i, "error", err)
			continue
		}
		names := make([]string, 0, len(ids))
		for _, id := range ids {
			names = append(names, r.snap.BotName(id))
		}
		r.logger.Debug("reply setting",
			"reply_bot", r.snap.BotName(setting.ReplyBotID),
			"targets", names)
	}
}

// preloadTargets fetches the timeline of every unique, active monitored
// target exactly once. The since id for each target is the most advanced
// watermark across all settings referencing it, so no setting re-surfaces
// tweets another setting already recorded.
func (r *Runner) preloadTargets(ctx context.Context) map[int]*fetchResult {
	cache := make(map[int]*fetchResult)

	// collect phase: unique active targets, first-seen order
	var order []int
	for i := range r.snap.ReplySettings {
		setting := &r.snap.ReplySettings[i]
		if !setting.IsActive {
			continue
		}
		ids, err := setting.ParseTargetIDs()
		if err != nil {
			continue // handled per-setting during dispatch
		}
		for _, id := range ids {
			if _, seen := cache[id]; seen {
				continue
			}
			target := r.snap.FindBot(id)
			if target == nil || !target.Account.Active() {
				continue
			}
			cache[id] = nil
			order = append(order, id)
		}
	}

	r.logger.Info("collected unique targets to fetch", "count", len(order))

	// fetch phase
	for _, targetID := range order {
		target := r.snap.FindBot(targetID)
		logger := r.logger.With("target", target.Account.AccountName)

		client, err := r.clients(target.Account)
		if err != nil {
			if errors.Is(err, twitter.ErrCredentialsMissing) {
				logger.Warn("skipping target with incomplete credentials")
				cache[targetID] = &fetchResult{skipped: true}
			} else {
				logger.Error("failed to create api client for target", "error", err)
				cache[targetID] = &fetchResult{err: err}
			}
			continue
		}

		sinceID := watermark.Latest(r.snap.ReplySettings, targetID)
		posts, err := client.FetchRecentPosts(ctx, target.Account.AccountName, sinceID)
		if err != nil {
			if twitter.IsRateLimited(err) {
				logger.Warn("rate limited while fetching, deferring target", "since_id", sinceID)
				cache[targetID] = &fetchResult{err: err, rateLimited: true}
			} else {
				logger.Error("failed to fetch tweets", "since_id", sinceID, "error", err)
				cache[targetID] = &fetchResult{err: err}
			}
		} else {
			logger.Info("cached tweets for target", "count", len(posts), "since_id", sinceID)
			cache[targetID] = &fetchResult{posts: posts}
		}

		r.sleep(r.cfg.FetchDelay)
	}

	return cache
}

// dispatchReplies walks the reply settings in configuration order and
// publishes one reply per new tweet, using only cached fetch results.
func (r *Runner) dispatchReplies(ctx context.Context, cache map[int]*fetchResult, summary *Summary) {
	for i := range r.snap.ReplySettings {
		setting := &r.snap.ReplySettings[i]
		logger := r.logger.With("reply_setting", i)

		if !setting.IsActive {
			logger.Debug("skipping inactive reply setting")
			summary.Skipped++
			continue
		}

		replyBot := r.snap.FindBot(setting.ReplyBotID)
		if replyBot == nil {
			// orphaned rule left behind by a deleted account; not an error
			logger.Warn("skipping orphaned reply setting", "reply_bot_id", setting.ReplyBotID)
			summary.Skipped++
			continue
		}
		if !replyBot.Account.Active() {
			logger.Debug("skipping reply setting with inactive reply bot", "reply_bot", replyBot.Account.AccountName)
			summary.Skipped++
			continue
		}

		targetIDs, err := setting.ParseTargetIDs()
		if err != nil {
			logger.Warn("skipping reply setting with invalid targets", "error", err)
			summary.Skipped++
			continue
		}

		client, err := r.clients(replyBot.Account)
		if err != nil {
			if errors.Is(err, twitter.ErrCredentialsMissing) {
				logger.Warn("skipping reply bot with incomplete credentials", "reply_bot", replyBot.Account.AccountName)
				summary.Skipped++
			} else {
				logger.Error("failed to create api client for reply bot", "error", err)
				summary.Errors++
			}
			continue
		}

		logger = logger.With("reply_bot", replyBot.Account.AccountName)

		for _, targetID := range targetIDs {
			r.replyToTarget(ctx, client, setting, replyBot, targetID, cache[targetID], summary)
			r.sleep(r.cfg.TargetDelay)
		}

		r.sleep(r.cfg.SettingDelay)
	}
}

func (r *Runner) replyToTarget(ctx context.Context, client API, setting *models.ReplySetting, replyBot *models.BotConfig, targetID int, cached *fetchResult, summary *Summary) {
	logger := r.logger.With("reply_bot", replyBot.Account.AccountName, "target", r.snap.BotName(targetID))

	switch {
	case cached == nil:
		// target unknown or inactive, never fetched
		logger.Debug("no cached tweets for target, skipping")
		summary.Skipped++
		return
	case cached.rateLimited:
		logger.Warn("target was rate limited this run, deferring")
		summary.Deferred++
		return
	case cached.skipped:
		summary.Skipped++
		return
	case cached.err != nil:
		logger.Error("cached fetch failure for target", "error", cached.err)
		summary.Errors++
		return
	case len(cached.posts) == 0:
		logger.Debug("no new tweets for target")
		return
	}

	latest := cached.posts[0]
	if latest.ID == "" {
		logger.Warn("newest cached tweet has no id, skipping target")
		return
	}

	// Advance the watermark to the newest fetched id up front, independent
	// of per-reply outcomes: reprocessing is bounded by "new since last
	// look", not "new since last success".
	watermark.Set(setting, targetID, latest.ID, logger)
	summary.Updated = true

	for _, post := range cached.posts {
		if post.ID == "" || post.Text == "" {
			logger.Warn("skipping malformed cached tweet")
			continue
		}

		replyID, err := client.PublishPost(ctx, setting.ReplyContent, post.ID)
		switch {
		case err == nil:
			summary.Published++
			logger.Info("reply posted", "tweet_id", post.ID, "reply_id", replyID)
			r.recordExecution(ctx, replyBot.Account.ID, models.LogTypeReply,
				fmt.Sprintf("reply posted to tweet %s", post.ID), replyID, setting.ReplyContent, models.LogStatusSuccess)

		case twitter.IsRateLimited(err):
			// stop working this target, the quota window is exhausted
			summary.Deferred++
			logger.Warn("rate limited while replying, deferring rest of target", "tweet_id", post.ID)
			return

		default:
			summary.Errors++
			logger.Error("failed to post reply", "tweet_id", post.ID, "error", err)
			r.recordExecution(ctx, replyBot.Account.ID, models.LogTypeError,
				fmt.Sprintf("reply to tweet %s failed: %v", post.ID, err), "", setting.ReplyContent, models.LogStatusError)
		}

		r.sleep(r.cfg.ReplyDelay)
	}
}
