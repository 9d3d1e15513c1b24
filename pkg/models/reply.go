package models

import (
	"encoding/json"
	"fmt"
)

// ReplySetting is one reply-monitoring rule: a single reply bot watching a
// list of target accounts.
//
// TargetBotIDs and LastCheckedTweetIDs are stored as JSON-encoded strings
// inside the snapshot, matching the shape the configuration UI writes.
type ReplySetting struct {
	ReplyBotID          int    `json:"reply_bot_id"`
	TargetBotIDs        string `json:"target_bot_ids"`
	ReplyContent        string `json:"reply_content"`
	IsActive            bool   `json:"is_active"`
	LastCheckedTweetIDs string `json:"last_checked_tweet_ids,omitempty"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}

// ParseTargetIDs decodes the JSON-encoded target account id list.
func (s *ReplySetting) ParseTargetIDs() ([]int, error) {
	var ids []int
	if err := json.Unmarshal([]byte(s.TargetBotIDs), &ids); err != nil {
		return nil, fmt.Errorf("invalid target_bot_ids %q: %w", s.TargetBotIDs, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("empty target_bot_ids")
	}
	return ids, nil
}
