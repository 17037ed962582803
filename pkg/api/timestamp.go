package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

// Timestamp decodes the backend's datetime strings, which come with or without
// a zone offset and with variable fractional seconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "timestamp")
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return errors.Wrapf(err, "parse timestamp %q", s)
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Ago renders a coarse relative age like "5m ago".
func (t Timestamp) Ago(now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t.Time)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return formatUnit(int(d/time.Minute), "m")
	case d < 48*time.Hour:
		return formatUnit(int(d/time.Hour), "h")
	default:
		return formatUnit(int(d/(24*time.Hour)), "d")
	}
}

func formatUnit(n int, unit string) string {
	return fmt.Sprintf("%d%s ago", n, unit)
}
