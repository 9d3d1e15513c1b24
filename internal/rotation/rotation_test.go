package rotation

import (
	"encoding/json"
	"testing"

	"github.com/mikage/tweetrunner/pkg/models"
)

func listBot(id, index int, items ...string) *models.BotConfig {
	raw, err := json.Marshal(items)
	if err != nil {
		panic(err)
	}
	return &models.BotConfig{
		Account:              models.Account{ID: id, AccountName: "bot"},
		ScheduledContentList: raw,
		CurrentIndex:         index,
	}
}

func TestSelect_FromPersistedIndex(t *testing.T) {
	bot := listBot(1, 1, "hi", "bye")

	sel, err := Select(bot, SessionState{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel.Content != "bye" || !sel.FromList || sel.Index != 1 || sel.Length != 2 {
		t.Errorf("unexpected selection: %+v", sel)
	}
}

func TestSelect_SessionCursorWinsOverPersisted(t *testing.T) {
	bot := listBot(1, 0, "a", "b", "c")
	session := SessionState{1: 2}

	sel, err := Select(bot, session)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel.Content != "c" {
		t.Errorf("expected session cursor to win, got %q", sel.Content)
	}
}

func TestSelect_NormalizesStaleCursor(t *testing.T) {
	// index left behind by an edit that shortened the list
	bot := listBot(1, 7, "a", "b", "c")

	sel, err := Select(bot, SessionState{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel.Index != 1 || sel.Content != "b" {
		t.Errorf("expected 7 mod 3 = 1, got index %d (%q)", sel.Index, sel.Content)
	}
}

func TestSelect_JSONStringEncodedList(t *testing.T) {
	encoded, _ := json.Marshal(`["x","y"]`)
	bot := &models.BotConfig{
		Account:              models.Account{ID: 1},
		ScheduledContentList: encoded,
	}

	sel, err := Select(bot, SessionState{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel.Content != "x" || sel.Length != 2 {
		t.Errorf("unexpected selection from encoded list: %+v", sel)
	}
}

func TestSelect_EmptyListFails(t *testing.T) {
	bot := listBot(1, 0)
	if _, err := Select(bot, SessionState{}); err == nil {
		t.Error("expected an error for an empty content list")
	}
}

func TestSelect_UnparsableListFails(t *testing.T) {
	bot := &models.BotConfig{
		Account:              models.Account{ID: 1},
		ScheduledContentList: json.RawMessage(`{"not":"a list"}`),
	}
	if _, err := Select(bot, SessionState{}); err == nil {
		t.Error("expected an error for an unparsable content list")
	}
}

func TestSelect_FixedContent(t *testing.T) {
	bot := &models.BotConfig{
		Account:          models.Account{ID: 1},
		ScheduledContent: "hello",
	}

	sel, err := Select(bot, SessionState{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel.Content != "hello" || sel.FromList {
		t.Errorf("unexpected selection: %+v", sel)
	}
}

func TestSelect_NothingConfigured(t *testing.T) {
	bot := &models.BotConfig{Account: models.Account{ID: 1}}

	sel, err := Select(bot, SessionState{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel != nil {
		t.Errorf("expected nil selection, got %+v", sel)
	}
}

func TestAdvance_WrapsAndUpdatesBothCursors(t *testing.T) {
	bot := listBot(1, 2, "a", "b", "c")
	session := SessionState{}

	sel, err := Select(bot, session)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	Advance(bot, sel, session)

	if bot.CurrentIndex != 0 {
		t.Errorf("expected persisted index 2+1 mod 3 = 0, got %d", bot.CurrentIndex)
	}
	if session[1] != 0 {
		t.Errorf("expected session cursor 0, got %d", session[1])
	}
}

func TestAdvance_SecondPublishInSameRunUsesSessionCursor(t *testing.T) {
	bot := listBot(1, 2, "a", "b", "c")
	session := SessionState{}

	first, _ := Select(bot, session)
	Advance(bot, first, session)

	// simulate a stale persisted value creeping back in
	bot.CurrentIndex = 2

	second, err := Select(bot, session)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if second.Content != "a" {
		t.Errorf("expected the session cursor to drive the second pick, got %q", second.Content)
	}
	Advance(bot, second, session)
	if session[1] != 1 {
		t.Errorf("expected session cursor 1 after two publishes, got %d", session[1])
	}
}

func TestAdvance_NoopForFixedContent(t *testing.T) {
	bot := &models.BotConfig{
		Account:          models.Account{ID: 1},
		ScheduledContent: "hello",
	}
	session := SessionState{}

	sel, _ := Select(bot, session)
	Advance(bot, sel, session)

	if bot.CurrentIndex != 0 {
		t.Errorf("fixed content must not move the cursor, got %d", bot.CurrentIndex)
	}
	if _, ok := session[1]; ok {
		t.Error("fixed content must not create a session cursor")
	}
}
