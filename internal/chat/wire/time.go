package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is RFC 3339 with millisecond precision, always UTC.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Time marshals as TimeLayout and unmarshals from either an RFC 3339
// string or epoch milliseconds.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`null`), nil
	}
	return json.Marshal(t.UTC().Format(TimeLayout))
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		t.Time = parsed.UTC()
	case float64:
		t.Time = time.UnixMilli(int64(value)).UTC()
	default:
		return fmt.Errorf("timestamp: unsupported value %s", string(b))
	}
	return nil
}
