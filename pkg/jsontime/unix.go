// Package jsontime provides JSON-serializable time types.
package jsontime

import (
	"encoding/json"
	"time"
)

// Unix is a time.Time that serializes to/from Unix seconds in JSON.
type Unix time.Time

// FromTime converts a time.Time to Unix.
func FromTime(t time.Time) Unix {
	return Unix(t)
}

// Time returns the underlying time.Time value.
func (ep Unix) Time() time.Time {
	return time.Time(ep)
}

// IsZero reports whether ep represents the zero time instant.
func (ep Unix) IsZero() bool {
	return time.Time(ep).IsZero()
}

// String returns the time formatted as a string.
func (ep Unix) String() string {
	return time.Time(ep).String()
}

// Sub returns the duration ep-t.
func (ep Unix) Sub(t Unix) time.Duration {
	return time.Time(ep).Sub(time.Time(t))
}

// UnmarshalJSON implements json.Unmarshaler.
func (ep *Unix) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var t int64
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	*ep = Unix(time.Unix(t, 0))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (ep Unix) MarshalJSON() ([]byte, error) {
	if time.Time(ep).IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(time.Time(ep).Unix())
}
