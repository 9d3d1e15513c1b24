// Package runner drives the two per-invocation flows: scheduled posting and
// reply monitoring. One Runner owns one loaded snapshot for one run; the
// caller persists the snapshot afterwards if the summary says it changed.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mikage/tweetrunner/internal/config"
	"github.com/mikage/tweetrunner/internal/rotation"
	"github.com/mikage/tweetrunner/internal/twitter"
	"github.com/mikage/tweetrunner/pkg/models"
)

// API is the injected social-API capability for one account.
type API interface {
	PublishPost(ctx context.Context, text, replyToID string) (string, error)
	FetchRecentPosts(ctx context.Context, handle, sinceID string) ([]twitter.Post, error)
}

// ClientFactory builds a credentialed API client for one account. It fails
// with twitter.ErrCredentialsMissing when the account cannot be used; the
// loops skip that account and continue.
type ClientFactory func(account models.Account) (API, error)

// ExecutionSink records publish outcomes for auditing.
type ExecutionSink interface {
	AddExecutionLog(ctx context.Context, entry *models.ExecutionLog) error
}

// Deps are the collaborators a Runner needs.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Snapshot *models.Snapshot
	Location *time.Location
	Clients  ClientFactory
	ExecLog  ExecutionSink // optional
}

// Runner executes the flows over one configuration snapshot.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	snap    *models.Snapshot
	loc     *time.Location
	clients ClientFactory
	execLog ExecutionSink
	runID   string

	// in-memory rotation cursors for this run; takes precedence over the
	// persisted current_index so repeated matches within one run keep
	// advancing instead of re-reading a stale value
	session rotation.SessionState

	// replaceable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a Runner with a fresh run id.
func New(deps Deps) *Runner {
	runID := uuid.NewString()
	return &Runner{
		cfg:     deps.Config,
		logger:  deps.Logger.With("run_id", runID),
		snap:    deps.Snapshot,
		loc:     deps.Location,
		clients: deps.Clients,
		execLog: deps.ExecLog,
		runID:   runID,
		session: rotation.SessionState{},
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Summary is the outcome of one flow.
type Summary struct {
	Published int  // successful publishes
	Rejected  int  // duplicate-content rejections; cursor advanced, counted in Errors too
	Errors    int  // real failures (and rejections); non-zero means exit 1
	Skipped   int  // inactive, out-of-window, no-content or orphaned items
	Deferred  int  // rate-limited items, retried on the next trigger
	Updated   bool // snapshot mutated, needs writeback
}

// ExitCode maps the summary onto the process exit policy: only real errors
// fail the run, deferred and skipped items do not.
func (s Summary) ExitCode() int {
	if s.Errors > 0 {
		return 1
	}
	return 0
}

// Combine merges the summaries of two flows run in one invocation.
func Combine(a, b Summary) Summary {
	return Summary{
		Published: a.Published + b.Published,
		Rejected:  a.Rejected + b.Rejected,
		Errors:    a.Errors + b.Errors,
		Skipped:   a.Skipped + b.Skipped,
		Deferred:  a.Deferred + b.Deferred,
		Updated:   a.Updated || b.Updated,
	}
}

func (r *Runner) recordExecution(ctx context.Context, accountID int, logType, message, tweetID, content, status string) {
	if r.execLog == nil {
		return
	}
	entry := &models.ExecutionLog{
		RunID:        r.runID,
		AccountID:    accountID,
		LogType:      logType,
		Message:      message,
		TweetID:      tweetID,
		TweetContent: content,
		Status:       status,
	}
	if err := r.execLog.AddExecutionLog(ctx, entry); err != nil {
		// auditing must never take the run down
		r.logger.Warn("failed to record execution log", "error", err)
	}
}
