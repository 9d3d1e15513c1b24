// Package watermark tracks the newest already-seen tweet id per
// (reply setting, monitored account) pair.
//
// Watermarks are stored on the reply setting as a JSON array of
// "targetId:tweetId" tokens, the shape the configuration UI reads. The store
// itself does not enforce monotonicity: the fetcher always passes the newest
// id of the most recent fetch, which is what bounds reprocessing to "new
// since last look" rather than "new since last success".
package watermark

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mikage/tweetrunner/pkg/models"
)

// Get returns the stored tweet id for the target, or "" when the target has
// never been processed. Malformed stored data reads as empty.
func Get(setting *models.ReplySetting, targetID int) string {
	return parse(setting.LastCheckedTweetIDs, nil)[targetID]
}

// Set upserts the watermark for the target and stamps updated_at on the
// setting. Malformed existing data is logged and reset rather than treated
// as fatal.
func Set(setting *models.ReplySetting, targetID int, tweetID string, logger *slog.Logger) {
	marks := parse(setting.LastCheckedTweetIDs, logger)
	marks[targetID] = tweetID

	ids := make([]int, 0, len(marks))
	for id := range marks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		tokens = append(tokens, strconv.Itoa(id)+":"+marks[id])
	}

	encoded, err := json.Marshal(tokens)
	if err != nil {
		// marshalling a []string cannot fail; keep the old value on the
		// off chance it does
		return
	}
	setting.LastCheckedTweetIDs = string(encoded)
	setting.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

// Latest returns the most advanced watermark for the target across every
// active setting that references it. The reply loop fetches each target only
// once, so the since id must not be older than any setting's recorded
// position; the numerically largest id avoids re-surfacing tweets some
// settings already saw. Returns "" when no setting holds a watermark.
func Latest(settings []models.ReplySetting, targetID int) string {
	var latest string
	for i := range settings {
		setting := &settings[i]
		if !setting.IsActive {
			continue
		}
		ids, err := setting.ParseTargetIDs()
		if err != nil {
			continue
		}
		for _, id := range ids {
			if id != targetID {
				continue
			}
			if mark := Get(setting, targetID); mark != "" && CompareIDs(mark, latest) > 0 {
				latest = mark
			}
		}
	}
	return latest
}

// CompareIDs orders two tweet ids numerically. Tweet ids are decimal strings
// too large for int64, so compare by length first, then lexicographically.
// An empty id orders before everything.
func CompareIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func parse(raw string, logger *slog.Logger) map[int]string {
	marks := make(map[int]string)
	if raw == "" {
		return marks
	}

	var tokens []string
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		if logger != nil {
			logger.Warn("malformed last_checked_tweet_ids, resetting", "raw", raw, "error", err)
		}
		return marks
	}

	for _, token := range tokens {
		idPart, tweetID, ok := strings.Cut(token, ":")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(idPart)
		if err != nil {
			continue
		}
		marks[id] = tweetID
	}
	return marks
}
