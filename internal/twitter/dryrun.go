package twitter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikage/tweetrunner/pkg/models"
)

// DryRunClient simulates the API without any remote calls. Publishes return
// synthetic ids; fetches return one synthetic tweet on a first look (no
// watermark yet) and nothing afterwards, mirroring how a freshly configured
// target behaves.
type DryRunClient struct {
	account models.Account
	logger  *slog.Logger
	now     func() time.Time
}

// NewDryRunClient creates a simulated client for the account.
func NewDryRunClient(account models.Account, logger *slog.Logger) *DryRunClient {
	return &DryRunClient{
		account: account,
		logger:  logger.With("component", "twitter", "account", account.AccountName, "dry_run", true),
		now:     time.Now,
	}
}

// PublishPost logs the would-be tweet and returns a synthetic id.
func (c *DryRunClient) PublishPost(_ context.Context, text, replyToID string) (string, error) {
	id := fmt.Sprintf("dry_run_%d", c.now().UnixMilli())
	if replyToID != "" {
		c.logger.Info("[dry run] would post reply", "reply_to", replyToID, "text", text)
	} else {
		c.logger.Info("[dry run] would post tweet", "text", text)
	}
	return id, nil
}

// FetchRecentPosts simulates a timeline fetch.
func (c *DryRunClient) FetchRecentPosts(_ context.Context, handle, sinceID string) ([]Post, error) {
	c.logger.Info("[dry run] would fetch tweets", "handle", handle, "since_id", sinceID)
	if sinceID != "" {
		return []Post{}, nil
	}
	return []Post{{
		ID:        fmt.Sprintf("dry_run_tweet_%d", c.now().UnixMilli()),
		Text:      "This is a dry run tweet",
		CreatedAt: c.now().UTC().Format(time.RFC3339),
	}}, nil
}
