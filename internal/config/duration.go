package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults for the duration settings.
const (
	DefaultPollInterval = 60 * time.Second
	DefaultGracePeriod  = 200 * time.Millisecond
)

// ParseDurationField parses a Go duration string for the settings key at
// path. Empty means unset and yields 0; negative values are rejected.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// durationOr resolves an already validated duration, falling back to def when
// the value is unset, zero or unparsable.
func durationOr(raw string, def time.Duration) time.Duration {
	d, err := ParseDurationField("", raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
