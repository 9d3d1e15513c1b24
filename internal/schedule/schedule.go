// Package schedule decides whether a bot should post during the current
// invocation.
package schedule

import (
	"strconv"
	"strings"
	"time"
)

// ShouldPostNow reports whether now falls inside one of the scheduled hours.
//
// Matching is hour-granularity set membership: "09:00" fires for every
// invocation between 09:00 and 09:59, not only at 09:00 sharp. The caller is
// expected to pass now already converted to the configured timezone. Only
// the hour component of each "HH:MM" entry is significant; malformed entries
// are ignored. An empty schedule never matches.
func ShouldPostNow(scheduledTimes []string, now time.Time) bool {
	if len(scheduledTimes) == 0 {
		return false
	}

	currentHour := now.Hour()
	for _, entry := range scheduledTimes {
		hourPart, _, _ := strings.Cut(strings.TrimSpace(entry), ":")
		hour, err := strconv.Atoi(hourPart)
		if err != nil {
			continue
		}
		if hour == currentHour {
			return true
		}
	}
	return false
}
