package registration

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDeadline is returned when a deadline or timezone cannot be parsed.
var ErrInvalidDeadline = errors.New("invalid registration deadline")

// TimeRemaining is the time left before a registration deadline.
type TimeRemaining struct {
	Days      int    `json:"days"`
	Hours     int    `json:"hours"`
	Formatted string `json:"formatted"`
}

// Layouts without an offset are interpreted in the event's timezone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDeadline parses an RFC 3339 timestamp, or a naive timestamp or date
// interpreted in tz (an IANA name). An empty tz means UTC.
func ParseDeadline(deadline, tz string) (time.Time, error) {
	deadline = strings.TrimSpace(deadline)

	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidDeadline, tz)
		}
		loc = l
	}

	if t, err := time.Parse(time.RFC3339Nano, deadline); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, deadline, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDeadline, deadline)
}

// Remaining returns the time left from now until deadline, or nil once the
// deadline has passed. A deadline exactly at now yields "0h".
func Remaining(deadline, now time.Time) *TimeRemaining {
	diff := deadline.Sub(now)
	if diff < 0 {
		return nil
	}

	days := int(diff / (24 * time.Hour))
	hours := int((diff % (24 * time.Hour)) / time.Hour)

	tr := &TimeRemaining{Days: days, Hours: hours}
	switch {
	case days > 0:
		tr.Formatted = fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		tr.Formatted = fmt.Sprintf("%dh", hours)
	default:
		tr.Formatted = "0h"
	}
	return tr
}

// Compute parses deadline in tz and returns the time remaining at now.
// An empty deadline yields nil with no error.
func Compute(deadline, tz string, now time.Time) (*TimeRemaining, error) {
	if strings.TrimSpace(deadline) == "" {
		return nil, nil
	}
	t, err := ParseDeadline(deadline, tz)
	if err != nil {
		return nil, err
	}
	return Remaining(t, now), nil
}
