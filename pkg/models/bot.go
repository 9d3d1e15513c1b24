package models

import (
	"encoding/json"
	"strings"
)

// AccountStatus values stored in the configuration file.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Credentials holds the per-account Twitter API keys.
type Credentials struct {
	APIKey            string `json:"api_key"`
	APIKeySecret      string `json:"api_key_secret"`
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`
}

// Complete reports whether every required credential field is present.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APIKeySecret != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Account identifies one bot account.
type Account struct {
	ID          int         `json:"id"`
	AccountName string      `json:"account_name"`
	Status      string      `json:"status"`
	Credentials Credentials `json:"credentials"`
}

// Active reports whether the account should be processed at all.
func (a Account) Active() bool {
	return a.Status == StatusActive
}

// BotConfig is one entry of the "bots" list in the configuration snapshot.
//
// Exactly one of ScheduledContent (fixed message) or ScheduledContentList
// (rotation) is expected. ScheduledContentList is kept raw because older
// snapshots store it either as a JSON list or as a JSON-string-encoded list.
type BotConfig struct {
	Account              Account         `json:"account"`
	ScheduledTimes       string          `json:"scheduled_times,omitempty"`
	ScheduledContent     string          `json:"scheduled_content,omitempty"`
	ScheduledContentList json.RawMessage `json:"scheduled_content_list,omitempty"`
	CurrentIndex         int             `json:"current_index,omitempty"`
}

// ScheduleHours splits the comma-separated "HH:MM" schedule into entries.
func (b *BotConfig) ScheduleHours() []string {
	if strings.TrimSpace(b.ScheduledTimes) == "" {
		return nil
	}
	parts := strings.Split(b.ScheduledTimes, ",")
	times := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			times = append(times, p)
		}
	}
	return times
}

// ContentList decodes ScheduledContentList, tolerating both the plain list
// form and the legacy JSON-string-encoded form. Returns nil when the field
// is absent.
func (b *BotConfig) ContentList() ([]string, error) {
	if len(b.ScheduledContentList) == 0 {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(b.ScheduledContentList, &list); err == nil {
		return list, nil
	}
	var encoded string
	if err := json.Unmarshal(b.ScheduledContentList, &encoded); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(encoded), &list); err != nil {
		return nil, err
	}
	return list, nil
}
