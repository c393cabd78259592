package board

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimestamp is returned for feed timestamps that cannot be interpreted.
var ErrTimestamp = errors.New("invalid timestamp")

// timestampLayout is the feed shape, e.g. "2025-11-19T14:36:00+0100".
const timestampLayout = "YYYY-MM-DDTHH:MM:SS+HHMM"

// ParseTimestamp reads the wall clock of a feed timestamp and places it in loc.
// Seconds and the UTC offset suffix are ignored: the feed's local time is
// taken to be the same zone as loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if len(s) < 16 {
		return time.Time{}, fmt.Errorf("%w: %q too short", ErrTimestamp, s)
	}
	if s[4] != '-' || s[7] != '-' || s[10] != 'T' || s[13] != ':' {
		return time.Time{}, fmt.Errorf("%w: %q does not match %s", ErrTimestamp, s, timestampLayout)
	}

	year, ok := digits(s[0:4])
	if !ok {
		return time.Time{}, fmt.Errorf("%w: bad year in %q", ErrTimestamp, s)
	}
	month, ok := digits(s[5:7])
	if !ok || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: bad month in %q", ErrTimestamp, s)
	}
	day, ok := digits(s[8:10])
	if !ok || day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, fmt.Errorf("%w: bad day in %q", ErrTimestamp, s)
	}
	hour, ok := digits(s[11:13])
	if !ok || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: bad hour in %q", ErrTimestamp, s)
	}
	minute, ok := digits(s[14:16])
	if !ok || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: bad minute in %q", ErrTimestamp, s)
	}

	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), nil
}

func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
