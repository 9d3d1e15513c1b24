package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikage/tweetrunner/internal/rotation"
	"github.com/mikage/tweetrunner/internal/schedule"
	"github.com/mikage/tweetrunner/internal/twitter"
	"github.com/mikage/tweetrunner/pkg/models"
)

// RunScheduledPosts walks the bots in configuration order and publishes for
// every bot whose schedule matches the current hour.
//
// Cursor policy: a confirmed publish advances the rotation cursor, and so
// does a duplicate-content rejection (the content was already said, move
// on). Any other failure leaves the cursor alone so the item is retried on
// the next trigger instead of silently skipped.
func (r *Runner) RunScheduledPosts(ctx context.Context) Summary {
	var summary Summary
	session := r.session
	now := r.now().In(r.loc)

	r.logger.Info("starting scheduled-post flow", "bots", len(r.snap.Bots), "now", now.Format("15:04"), "timezone", r.loc.String())

	for i := range r.snap.Bots {
		bot := &r.snap.Bots[i]
		logger := r.logger.With("account", bot.Account.AccountName)

		if !bot.Account.Active() {
			logger.Debug("skipping inactive account")
			summary.Skipped++
			continue
		}

		if !schedule.ShouldPostNow(bot.ScheduleHours(), now) {
			logger.Debug("outside scheduled hours", "scheduled_times", bot.ScheduledTimes)
			summary.Skipped++
			continue
		}

		sel, err := rotation.Select(bot, session)
		if err != nil {
			logger.Warn("skipping bot with unusable content configuration", "error", err)
			summary.Skipped++
			continue
		}
		if sel == nil {
			logger.Debug("nothing configured to post")
			summary.Skipped++
			continue
		}

		client, err := r.clients(bot.Account)
		if err != nil {
			if errors.Is(err, twitter.ErrCredentialsMissing) {
				logger.Warn("skipping account with incomplete credentials")
				summary.Skipped++
				continue
			}
			logger.Error("failed to create api client", "error", err)
			summary.Errors++
			continue
		}

		if sel.FromList {
			logger.Info("posting from rotation", "index", sel.Index, "length", sel.Length)
		} else {
			logger.Info("posting fixed message")
		}

		tweetID, err := client.PublishPost(ctx, sel.Content, "")
		switch {
		case err == nil:
			rotation.Advance(bot, sel, session)
			summary.Published++
			if sel.FromList {
				summary.Updated = true
			}
			logger.Info("tweet posted", "tweet_id", tweetID, "next_index", bot.CurrentIndex)
			r.recordExecution(ctx, bot.Account.ID, models.LogTypeTweet,
				"scheduled tweet posted", tweetID, sel.Content, models.LogStatusSuccess)

		case twitter.IsDuplicateContent(err):
			// already said this; advance past it but count the rejection
			rotation.Advance(bot, sel, session)
			summary.Rejected++
			summary.Errors++
			if sel.FromList {
				summary.Updated = true
			}
			logger.Warn("duplicate content rejected, advancing rotation", "error", err, "next_index", bot.CurrentIndex)
			r.recordExecution(ctx, bot.Account.ID, models.LogTypeError,
				fmt.Sprintf("duplicate content rejected: %v", err), "", sel.Content, models.LogStatusError)

		case twitter.IsRateLimited(err):
			summary.Deferred++
			logger.Warn("rate limited, deferring to next run", "error", err)

		default:
			summary.Errors++
			logger.Error("failed to post tweet", "error", err)
			r.recordExecution(ctx, bot.Account.ID, models.LogTypeError,
				fmt.Sprintf("tweet failed: %v", err), "", sel.Content, models.LogStatusError)
		}

		// fixed inter-post delay, the upstream quota is per-window
		r.sleep(r.cfg.PostDelay)
	}

	r.logger.Info("scheduled-post flow completed",
		"published", summary.Published,
		"errors", summary.Errors,
		"skipped", summary.Skipped,
		"deferred", summary.Deferred)
	return summary
}
