package opendata

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StationboardResponse represents the response from the stationboard endpoint.
type StationboardResponse struct {
	Station      *Location   `json:"station"`
	Stationboard []StopEvent `json:"stationboard"`
}

// Location represents a station location.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StopEvent is one scheduled departure at the requested station.
type StopEvent struct {
	Category string `json:"category"`
	Number   Text   `json:"number"`
	To       string `json:"to"`
	Operator string `json:"operator"`
	Stop     Stop   `json:"stop"`
}

// Stop holds timing and realtime information for the requested station.
// Nullable feed fields are pointers so that absent and null can be told
// apart from zero values.
type Stop struct {
	Departure *string    `json:"departure"`
	Delay     *Int       `json:"delay"`
	Cancelled *bool      `json:"cancelled"`
	Platform  *string    `json:"platform"`
	Prognosis *Prognosis `json:"prognosis"`
}

// Prognosis is the realtime estimate for a stop.
type Prognosis struct {
	Departure *string `json:"departure"`
	Platform  *string `json:"platform"`
}

// Line returns the display line code, e.g. "T7".
func (e StopEvent) Line() string {
	return e.Category + string(e.Number)
}

// IsCancelled returns true if the feed explicitly flags the stop as cancelled.
func (s Stop) IsCancelled() bool {
	return s.Cancelled != nil && *s.Cancelled
}

// DelayMinutes returns the reported delay, 0 if absent.
func (s Stop) DelayMinutes() int {
	if s.Delay == nil {
		return 0
	}
	return int(*s.Delay)
}

// Int is a feed number that never fails a decode. Numeric strings are
// parsed, fractions truncated, and any other value reads as 0, so one odd
// record cannot spoil the rest of the board.
type Int int

func (n *Int) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = 0
	switch x := v.(type) {
	case float64:
		*n = Int(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			*n = Int(f)
		}
	}
	return nil
}

// Text is a feed string that also accepts a bare number, e.g. a line
// "number": 7. Other values read as empty.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = ""
	switch x := v.(type) {
	case string:
		*t = Text(x)
	case float64:
		*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
	}
	return nil
}
