package twitter

import (
	"encoding/json"
	"log/slog"
	"strconv"
)

// NormalizePosts flattens a timeline response payload into a plain list of
// posts, newest first as returned by the API.
//
// The upstream response shape is not trustworthy. The same call has been
// observed to return:
//
//   - the canonical envelope {"data": [...], "meta": {...}}
//   - the list nested one level deeper {"data": {"data": [...], ...}}
//   - a bare list of posts
//   - a single bare post object instead of a list
//   - the whole envelope appearing as an element of the list
//   - null / missing data
//
// Every shape collapses to the same flat list. Entries that look like an
// envelope themselves (carry a "data" field) are unwrapped recursively
// instead of being treated as posts. Entries lacking both an id and text are
// logged and dropped without failing the rest of the payload. The result is
// always non-nil so callers can use plain length checks.
func NormalizePosts(raw []byte, logger *slog.Logger) []Post {
	posts := make([]Post, 0)
	if len(raw) == 0 {
		return posts
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Warn("unparsable timeline payload dropped", "error", err)
		return posts
	}

	collectPosts(payload, &posts, logger)
	return posts
}

func collectPosts(value any, posts *[]Post, logger *slog.Logger) {
	switch v := value.(type) {
	case nil:
		return
	case []any:
		for _, item := range v {
			collectPosts(item, posts, logger)
		}
	case map[string]any:
		// An object carrying a "data" field is an envelope (possibly a
		// stray one inside the list), not a post: unwrap it.
		if inner, ok := v["data"]; ok {
			collectPosts(inner, posts, logger)
			return
		}
		// Meta-only envelope: no new tweets, nothing to unwrap.
		if _, ok := v["meta"]; ok {
			return
		}
		post := postFromMap(v)
		if post.ID == "" && post.Text == "" {
			logger.Warn("malformed timeline entry dropped", "entry", compactJSON(v))
			return
		}
		*posts = append(*posts, post)
	default:
		logger.Warn("unexpected timeline value dropped", "value", v)
	}
}

func postFromMap(m map[string]any) Post {
	return Post{
		ID:        stringField(m, "id"),
		Text:      stringField(m, "text"),
		CreatedAt: stringField(m, "created_at"),
	}
}

// stringField tolerates ids that arrive as JSON numbers.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "<unencodable>"
	}
	if len(data) > 200 {
		data = append(data[:200], []byte("...")...)
	}
	return string(data)
}
