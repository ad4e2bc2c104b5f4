// Package forecast holds the record exchanged with the upstream forecast service
// and the field constraints every record must satisfy before it reaches a caller.
package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the wire format of Forecast.Date: local date-time with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000"

// Timestamp is a zone-less date-time serialized with millisecond precision.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Millisecond)}
}

func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("date %q does not match %s: %w", s, TimestampLayout, err)
	}
	return Timestamp{Time: t}, nil
}

func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Forecast is one day of the upstream forecast. Pointer fields distinguish
// "absent" from the zero value so that required checks stay meaningful.
type Forecast struct {
	Date                  *Timestamp `json:"date" validate:"required"`
	TemperatureCelsius    *int       `json:"temperatureCelsius" validate:"required,min=-20,max=55"`
	TemperatureFahrenheit *int       `json:"temperatureFahrenheit" validate:"required,min=-4,max=131"`
	Summary               *string    `json:"summary,omitempty" validate:"omitempty,min=3,max=15"`
}

// New builds a Forecast with every field present.
func New(date time.Time, celsius, fahrenheit int, summary string) Forecast {
	ts := NewTimestamp(date)
	f := Forecast{
		Date:                  &ts,
		TemperatureCelsius:    &celsius,
		TemperatureFahrenheit: &fahrenheit,
	}
	if summary != "" {
		f.Summary = &summary
	}
	return f
}
