package store

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// legacyLayout is how earlier deployments wrote expiry dates.
const legacyLayout = "2006-01-02 15:04 UTC"

// Timestamp is a UTC instant encoded as RFC 3339. The zero value means unset
// and encodes as null. Decoding also accepts epoch seconds and the legacy
// "2006-01-02 15:04 UTC" form.
type Timestamp struct {
	time.Time
}

// At wraps t in UTC truncated to whole seconds, the precision of the JSON encoding.
func At(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{t.UTC().Truncate(time.Second)}
}

// Set reports whether the timestamp holds a value.
func (t Timestamp) Set() bool { return !t.IsZero() }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if data[0] != '"' {
		secs, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		*t = At(time.Unix(0, int64(secs*float64(time.Second))))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimestamp parses RFC 3339, the legacy layout or epoch seconds.
// The empty string is the zero Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, legacyLayout} {
		if v, err := time.Parse(layout, s); err == nil {
			return At(v), nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return At(time.Unix(secs, 0)), nil
	}
	return Timestamp{}, fmt.Errorf("timestamp: unsupported format %q", s)
}

// Value stores unset timestamps as NULL.
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.UTC(), nil
}

func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Timestamp{}
	case time.Time:
		*t = At(v)
	default:
		return fmt.Errorf("timestamp: cannot scan %T", src)
	}
	return nil
}
