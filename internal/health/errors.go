package health

import (
	"strings"
	"time"
)

// throttleMarkers are fragments of backend errors that mean "slow down", not "broken".
// The index reports its status code in the message ("index returned 429: ...").
var throttleMarkers = map[string]time.Duration{
	"returned 429":         time.Minute,
	"resource_exhausted":   time.Minute,
	"too many requests":    time.Minute,
	"rate limit":           time.Minute,
	"too many connections": 30 * time.Second,
	"quota exceeded":       15 * time.Minute,
	"daily limit":          24 * time.Hour,
}

// Throttled reports whether errMsg describes a backend rejecting load, and how long to back off.
// The longest matching cooldown wins.
func Throttled(errMsg string) (time.Duration, bool) {
	lower := strings.ToLower(errMsg)

	var cooldown time.Duration
	for marker, d := range throttleMarkers {
		if strings.Contains(lower, marker) && d > cooldown {
			cooldown = d
		}
	}
	return cooldown, cooldown > 0
}
