// Package rotation selects the next content item for a bot and advances the
// rotation cursor.
package rotation

import (
	"fmt"

	"github.com/mikage/tweetrunner/pkg/models"
)

// SessionState maps account id to the cursor already resolved for this run.
// It exists so that a bot matched twice within one run keeps advancing from
// the in-memory position instead of re-reading the stale persisted index.
// It is scoped to a single run and never persisted.
type SessionState map[int]int

// Selection is the content chosen for one publish attempt.
type Selection struct {
	Content  string
	FromList bool
	Index    int // position in the list, meaningful only when FromList
	Length   int // list length, meaningful only when FromList
}

// Select resolves the next content item for the bot.
//
// Rotation mode takes precedence: when scheduled_content_list is present the
// effective index is the session cursor if one was already resolved this run,
// otherwise the persisted current_index, normalized modulo the list length to
// tolerate cursors left out of range by later edits to the list. Without a
// list the fixed scheduled_content is used. A nil, nil return means the bot
// has nothing configured to post.
func Select(bot *models.BotConfig, session SessionState) (*Selection, error) {
	list, err := bot.ContentList()
	if err != nil {
		return nil, fmt.Errorf("unparsable scheduled_content_list for %s: %w", bot.Account.AccountName, err)
	}

	if list != nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("empty scheduled_content_list for %s", bot.Account.AccountName)
		}
		index, ok := session[bot.Account.ID]
		if !ok {
			index = bot.CurrentIndex
		}
		index = ((index % len(list)) + len(list)) % len(list)
		return &Selection{
			Content:  list[index],
			FromList: true,
			Index:    index,
			Length:   len(list),
		}, nil
	}

	if bot.ScheduledContent != "" {
		return &Selection{Content: bot.ScheduledContent}, nil
	}

	return nil, nil
}

// Advance moves the rotation cursor one step past the published selection,
// updating both the session cursor and the persisted current_index.
//
// Callers invoke this only after a confirmed publish success or after a
// duplicate-content rejection; generic failures leave the cursor untouched
// so the item is retried instead of silently skipped.
func Advance(bot *models.BotConfig, sel *Selection, session SessionState) {
	if sel == nil || !sel.FromList {
		return
	}
	next := (sel.Index + 1) % sel.Length
	session[bot.Account.ID] = next
	bot.CurrentIndex = next
}
