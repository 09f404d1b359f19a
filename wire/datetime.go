package wire

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateTime is returned for empty or malformed date-time strings.
var ErrInvalidDateTime = errors.New("invalid date-time")

// ParseDateTime parses an RFC 3339 timestamp, with or without fractional
// seconds, and returns it in UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrInvalidDateTime)
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
	}
	return t.UTC(), nil
}

// FormatDateTime renders t in UTC using RFC 3339 with the shortest exact
// fractional second.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
