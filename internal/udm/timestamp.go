package udm

import (
	"fmt"
	"time"
)

// TimeLayout is the wire format for all UDM date columns, in CSV files and
// in the local sync database alike.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp is a time.Time that marshals to the UDM date format instead of
// RFC 3339. A zero Timestamp marshals to the empty string.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to second precision, matching the column format.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.Truncate(time.Second)}
}

// ParseTimestamp parses a value in TimeLayout. Empty input yields a zero
// Timestamp, which is how nullable date columns round-trip through CSV.
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return Timestamp{t}, nil
}

// String returns the value in TimeLayout, or "" for the zero value.
func (ts Timestamp) String() string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format(TimeLayout)
}

// MarshalText implements encoding.TextMarshaler for csvutil.
func (ts Timestamp) MarshalText() ([]byte, error) {
	return []byte(ts.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for csvutil.
func (ts *Timestamp) UnmarshalText(text []byte) error {
	parsed, err := ParseTimestamp(string(text))
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
