package models

import "time"

// Execution log entry types.
const (
	LogTypeTweet = "tweet"
	LogTypeReply = "reply"
	LogTypeError = "error"
)

// Execution log statuses.
const (
	LogStatusSuccess = "success"
	LogStatusError   = "error"
)

// ExecutionLog is one audit row recorded for every publish outcome.
type ExecutionLog struct {
	ID           int64     `db:"id"`
	RunID        string    `db:"run_id"`        // uuid shared by all rows of one run
	AccountID    int       `db:"account_id"`    // acting bot account
	LogType      string    `db:"log_type"`      // "tweet", "reply" or "error"
	Message      string    `db:"message"`       // human-readable outcome
	TweetID      string    `db:"tweet_id"`      // remote id on success
	TweetContent string    `db:"tweet_content"` // text that was (to be) published
	Status       string    `db:"status"`        // "success" or "error"
	CreatedAt    time.Time `db:"created_at"`
}
