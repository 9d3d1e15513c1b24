package models

import "fmt"

// Snapshot is the full configuration file: every bot account plus every
// reply-monitoring rule. It is loaded once per run, mutated in memory and
// written back at most once.
type Snapshot struct {
	Bots          []BotConfig    `json:"bots"`
	ReplySettings []ReplySetting `json:"reply_settings"`
}

// FindBot returns a pointer into the Bots slice for the account with the
// given id, or nil when the id references no configured account.
func (s *Snapshot) FindBot(id int) *BotConfig {
	for i := range s.Bots {
		if s.Bots[i].Account.ID == id {
			return &s.Bots[i]
		}
	}
	return nil
}

// BotName resolves an account id to its name for log output.
func (s *Snapshot) BotName(id int) string {
	if bot := s.FindBot(id); bot != nil {
		return bot.Account.AccountName
	}
	return fmt.Sprintf("bot_%d", id)
}
