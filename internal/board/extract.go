package board

import (
	"time"

	"github.com/danpilch/tramboard/internal/api/opendata"
)

// DefaultStaleness is how far in the past a prognosis may lie before the
// service is treated as cancelled.
const DefaultStaleness = 5 * time.Minute

// Departure is one upcoming departure ready for display.
type Departure struct {
	Line          string
	Label         string
	Scheduled     time.Time
	Delay         int
	EffectiveTime time.Time
	MinutesUntil  int
}

// SkipReason says why a stop event did not become a Departure.
type SkipReason int

const (
	Keep SkipReason = iota
	SkipCancelled
	SkipNoDeparture
	SkipPrognosisCancelled
	SkipStalePrognosis
	SkipBadTimestamp
)

func (r SkipReason) String() string {
	switch r {
	case Keep:
		return "keep"
	case SkipCancelled:
		return "cancelled"
	case SkipNoDeparture:
		return "no departure"
	case SkipPrognosisCancelled:
		return "prognosis departure null"
	case SkipStalePrognosis:
		return "stale prognosis"
	case SkipBadTimestamp:
		return "bad timestamp"
	default:
		return "unknown"
	}
}

// ExtractorOptions configures cancellation heuristics.
type ExtractorOptions struct {
	Location *time.Location
	// Staleness enables the stale-prognosis check when non-zero.
	Staleness time.Duration
}

// Extractor turns raw stop events into Departures.
type Extractor struct {
	formatter *Formatter
	loc       *time.Location
	staleness time.Duration
}

func NewExtractor(formatter *Formatter, opts ExtractorOptions) *Extractor {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{
		formatter: formatter,
		loc:       loc,
		staleness: opts.Staleness,
	}
}

// Extract returns the Departure for ev, or the reason it was skipped.
// Cancelled, incomplete or unparsable records never produce a Departure.
func (x *Extractor) Extract(ev opendata.StopEvent, now time.Time) (Departure, SkipReason) {
	stop := ev.Stop

	if stop.IsCancelled() {
		return Departure{}, SkipCancelled
	}
	if stop.Departure == nil {
		return Departure{}, SkipNoDeparture
	}
	if stop.Prognosis != nil && stop.Prognosis.Departure == nil {
		return Departure{}, SkipPrognosisCancelled
	}

	if x.staleness > 0 && stop.Prognosis != nil && *stop.Prognosis.Departure != "" {
		// An unparsable prognosis says nothing about cancellation; keep the record.
		if prog, err := ParseTimestamp(*stop.Prognosis.Departure, x.loc); err == nil {
			if now.Sub(prog) > x.staleness {
				return Departure{}, SkipStalePrognosis
			}
		}
	}

	scheduled, err := ParseTimestamp(*stop.Departure, x.loc)
	if err != nil {
		return Departure{}, SkipBadTimestamp
	}

	delay := stop.DelayMinutes()
	effective := scheduled.Add(time.Duration(delay) * time.Minute)

	return Departure{
		Line:          ev.Line(),
		Label:         x.formatter.Format(ev.To),
		Scheduled:     scheduled,
		Delay:         delay,
		EffectiveTime: effective,
		MinutesUntil:  minutesUntil(effective, now),
	}, Keep
}

// minutesUntil truncates toward zero, matching integer division of seconds.
func minutesUntil(t, now time.Time) int {
	secs := int64(t.Sub(now) / time.Second)
	return int(secs / 60)
}
