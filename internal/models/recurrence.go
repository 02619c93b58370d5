package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Frequency controls how a task repeats after its start date.
type Frequency string

const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// ParseFrequency validates a frequency string. The empty string means none.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case "":
		return FrequencyNone, nil
	case FrequencyNone, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unknown frequency: %s", s)
	}
}

// Recurrence is embedded in a task and stored as a JSON column.
type Recurrence struct {
	Frequency Frequency  `json:"frequency"`
	Interval  int        `json:"interval,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Repeats reports whether the recurrence produces occurrences after the start date.
func (r *Recurrence) Repeats() bool {
	return r != nil && r.Frequency != "" && r.Frequency != FrequencyNone
}

// Value implements driver.Valuer.
func (r Recurrence) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal recurrence: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *Recurrence) Scan(src any) error {
	*r = Recurrence{}
	return scanJSON(src, r)
}
