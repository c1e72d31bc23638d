// Package expiration parses the relative expiration phrases stored on
// client registrations, e.g. "10 minutes" or "2 hours".
package expiration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var units = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

// ParsePhrase turns a relative phrase like "10 minutes" into a
// duration. Singular and plural unit names are accepted, as is the Go
// duration syntax ("10m") as a fallback.
func ParsePhrase(phrase string) (time.Duration, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(phrase)))
	if len(fields) == 2 {
		n, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("expiration: invalid amount %q", fields[0])
		}
		unit := strings.TrimSuffix(fields[1], "s")
		d, ok := units[unit]
		if !ok {
			return 0, fmt.Errorf("expiration: unknown unit %q", fields[1])
		}
		return time.Duration(n) * d, nil
	}

	if len(fields) == 1 {
		if d, err := time.ParseDuration(fields[0]); err == nil {
			if d < 0 {
				return 0, fmt.Errorf("expiration: negative duration %q", phrase)
			}
			return d, nil
		}
	}

	return 0, fmt.Errorf("expiration: cannot parse phrase %q", phrase)
}
