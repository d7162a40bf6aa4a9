package deployment

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var relativeRe = regexp.MustCompile(`^(?:(\d+)h)?\s*(?:(\d+)m)?$`)

const absoluteLayout = "2006-01-02 15:04"

// ParseStartTime resolves the fixed start time grammar against now:
// a relative offset ("2h", "45m", "1h 30m") or an absolute UTC instant
// ("2025-03-01 18:30"). Anything else is a validation error.
func ParseStartTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return time.Time{}, fmt.Errorf("start time is required")
	}

	if m := relativeRe.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
		var d time.Duration

		if m[1] != "" {
			h, _ := time.ParseDuration(m[1] + "h")
			d += h
		}

		if m[2] != "" {
			mm, _ := time.ParseDuration(m[2] + "m")
			d += mm
		}

		return now.Add(d), nil
	}

	if t, err := time.ParseInLocation(absoluteLayout, s, time.UTC); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid start time %q, use a relative offset like \"1h30m\" or an absolute UTC time like \"2025-03-01 18:30\"", s)
}
