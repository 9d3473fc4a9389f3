package dto

import (
	"encoding/json"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp serializes as UTC with a literal Z suffix.
type Timestamp time.Time

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(time.Time(t).UTC().Format(timestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}
