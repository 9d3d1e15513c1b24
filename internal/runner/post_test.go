package runner

import (
	"context"
	"testing"

	"github.com/mikage/tweetrunner/internal/twitter"
	"github.com/mikage/tweetrunner/pkg/models"
)

func TestRunScheduledPosts_PublishesAndAdvancesCursor(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.ScheduledTimes = "09:00"
	bot.ScheduledContentList = contentList("hi", "bye")
	bot.CurrentIndex = 1

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	summary := r.RunScheduledPosts(context.Background())

	if len(api.publishes) != 1 || api.publishes[0].text != "bye" || api.publishes[0].replyTo != "" {
		t.Fatalf("expected one top-level publish of %q, got %+v", "bye", api.publishes)
	}
	if snap.Bots[0].CurrentIndex != 0 {
		t.Errorf("expected cursor wrapped to 0, got %d", snap.Bots[0].CurrentIndex)
	}
	want := Summary{Published: 1, Updated: true}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
}

func TestRunScheduledPosts_OutsideWindowSkips(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.ScheduledTimes = "21:00"
	bot.ScheduledContent = "evening"

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	summary := r.RunScheduledPosts(context.Background())

	if len(api.publishes) != 0 {
		t.Errorf("expected no remote calls, got %+v", api.publishes)
	}
	if summary.Skipped != 1 || summary.Errors != 0 || summary.Updated {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestRunScheduledPosts_InactiveAccountSkips(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.Account.Status = models.StatusInactive
	bot.ScheduledTimes = "09:00"
	bot.ScheduledContent = "hi"

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	summary := r.RunScheduledPosts(context.Background())

	if len(api.publishes) != 0 || summary.Skipped != 1 {
		t.Errorf("inactive account must not publish: %+v, summary %+v", api.publishes, summary)
	}
}

func TestRunScheduledPosts_DuplicateContentStillAdvances(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.ScheduledTimes = "09:00"
	bot.ScheduledContentList = contentList("a", "b", "c")
	bot.CurrentIndex = 1

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{publishFn: func(string, string) (string, error) {
		return "", apiErr(twitter.KindDuplicateContent)
	}}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	summary := r.RunScheduledPosts(context.Background())

	if snap.Bots[0].CurrentIndex != 2 {
		t.Errorf("duplicate rejection must advance exactly once, cursor = %d", snap.Bots[0].CurrentIndex)
	}
	if summary.Published != 0 || summary.Errors != 1 || summary.Rejected != 1 || !summary.Updated {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestRunScheduledPosts_GenericFailureDoesNotAdvance(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.ScheduledTimes = "09:00"
	bot.ScheduledContentList = contentList("a", "b")
	bot.CurrentIndex = 0

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{publishFn: func(string, string) (string, error) {
		return "", apiErr(twitter.KindTransient)
	}}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	summary := r.RunScheduledPosts(context.Background())

	if snap.Bots[0].CurrentIndex != 0 {
		t.Errorf("generic failure must not advance, cursor = %d", snap.Bots[0].CurrentIndex)
	}
	if summary.Errors != 1 || summary.Updated {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestRunScheduledPosts_RateLimitDefers(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.ScheduledTimes = "09:00"
	bot.ScheduledContent = "hi"

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{publishFn: func(string, string) (string, error) {
		return "", apiErr(twitter.KindRateLimited)
	}}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	summary := r.RunScheduledPosts(context.Background())

	if summary.Deferred != 1 || summary.Errors != 0 {
		t.Errorf("rate limit must defer without erroring: %+v", summary)
	}
}

func TestRunScheduledPosts_MissingCredentialsSkipsAccountOnly(t *testing.T) {
	broken := activeBot(1, "broken")
	broken.Account.Credentials = models.Credentials{}
	broken.ScheduledTimes = "09:00"
	broken.ScheduledContent = "hi"

	healthy := activeBot(2, "healthy")
	healthy.ScheduledTimes = "09:00"
	healthy.ScheduledContent = "hello"

	snap := &models.Snapshot{Bots: []models.BotConfig{broken, healthy}}
	api := &fakeAPI{}
	factory := func(account models.Account) (API, error) {
		if !account.Credentials.Complete() {
			return nil, twitter.ErrCredentialsMissing
		}
		return api, nil
	}
	r := testRunner(snap, factory)

	summary := r.RunScheduledPosts(context.Background())

	if summary.Skipped != 1 || summary.Published != 1 || summary.Errors != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(api.publishes) != 1 || api.publishes[0].text != "hello" {
		t.Errorf("expected only the healthy account to publish: %+v", api.publishes)
	}
}

func TestRunScheduledPosts_FixedContentDoesNotDirtySnapshot(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.ScheduledTimes = "09:00"
	bot.ScheduledContent = "always the same"

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	summary := r.RunScheduledPosts(context.Background())

	if summary.Published != 1 || summary.Updated {
		t.Errorf("fixed content must not require a snapshot write: %+v", summary)
	}
}

func TestRunScheduledPosts_MalformedContentListSkips(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.ScheduledTimes = "09:00"
	bot.ScheduledContentList = []byte(`{"oops":1}`)

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	summary := r.RunScheduledPosts(context.Background())

	if len(api.publishes) != 0 || summary.Skipped != 1 || summary.Errors != 0 {
		t.Errorf("malformed content must skip the bot only: %+v, summary %+v", api.publishes, summary)
	}
}

// Two flow invocations within one run share session cursors, so the second
// pass keeps advancing even though the first pass already moved the
// persisted index.
func TestRunScheduledPosts_SessionCursorSpansInvocations(t *testing.T) {
	bot := activeBot(1, "bot_a")
	bot.ScheduledTimes = "09:00"
	bot.ScheduledContentList = contentList("a", "b", "c")
	bot.CurrentIndex = 2

	snap := &models.Snapshot{Bots: []models.BotConfig{bot}}
	api := &fakeAPI{}
	r := testRunner(snap, factoryFor(map[int]*fakeAPI{1: api}))

	r.RunScheduledPosts(context.Background())
	r.RunScheduledPosts(context.Background())

	if len(api.publishes) != 2 || api.publishes[0].text != "c" || api.publishes[1].text != "a" {
		t.Errorf("expected rotation c then a, got %+v", api.publishes)
	}
	if snap.Bots[0].CurrentIndex != 1 {
		t.Errorf("expected persisted cursor 1 after two publishes, got %d", snap.Bots[0].CurrentIndex)
	}
}
