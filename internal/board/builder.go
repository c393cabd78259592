// Package board turns raw stationboard feeds into ranked departure boards.
package board

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/tramboard/internal/api/opendata"
)

const (
	// DefaultMaxIntake bounds how many departures are collected per station.
	DefaultMaxIntake = 10
	// DefaultDisplayRows is how many departures a column shows.
	DefaultDisplayRows = 5
)

// Status describes whether a board could be built from its feed.
type Status int

const (
	StatusOK Status = iota
	StatusUnreachable
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnreachable:
		return "unreachable"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// StationBoard is the ranked, capped list of departures for one station.
// It is rebuilt from scratch every refresh.
type StationBoard struct {
	Station    string
	Status     Status
	Detail     string
	HTTPStatus int
	Departures []Departure
}

// OK returns true if the board was built from a usable feed.
func (b StationBoard) OK() bool {
	return b.Status == StatusOK
}

// Builder assembles StationBoards from feed records.
type Builder struct {
	extractor   *Extractor
	maxIntake   int
	displayRows int
	logger      *logrus.Logger
}

func NewBuilder(extractor *Extractor, maxIntake, displayRows int, logger *logrus.Logger) *Builder {
	if maxIntake <= 0 {
		maxIntake = DefaultMaxIntake
	}
	if displayRows <= 0 {
		displayRows = DefaultDisplayRows
	}
	return &Builder{
		extractor:   extractor,
		maxIntake:   maxIntake,
		displayRows: displayRows,
		logger:      logger,
	}
}

// DisplayRows returns the configured number of rows per board.
func (b *Builder) DisplayRows() int {
	return b.displayRows
}

// Build extracts departures from events (in feed order), sorts them by
// effective time and keeps the first DisplayRows. Collection stops once
// maxIntake departures were kept; skipped records do not count.
func (b *Builder) Build(station string, events []opendata.StopEvent, now time.Time) StationBoard {
	departures := make([]Departure, 0, b.maxIntake)
	skipped := make(map[string]int)
	read := 0
	for _, ev := range events {
		if len(departures) == b.maxIntake {
			break
		}
		read++
		dep, reason := b.extractor.Extract(ev, now)
		if reason != Keep {
			skipped[reason.String()]++
			continue
		}
		departures = append(departures, dep)
	}

	sort.SliceStable(departures, func(i, j int) bool {
		return departures[i].EffectiveTime.Before(departures[j].EffectiveTime)
	})

	if len(departures) > b.displayRows {
		departures = departures[:b.displayRows]
	}

	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"station":    station,
			"records":    read,
			"departures": len(departures),
			"skipped":    skipped,
		}).Debug("station board built")
	}

	return StationBoard{
		Station:    station,
		Status:     StatusOK,
		Departures: departures,
	}
}

// Failed returns the empty board shown when a station's feed is unusable.
func Failed(station string, status Status, detail string) StationBoard {
	return StationBoard{
		Station: station,
		Status:  status,
		Detail:  detail,
	}
}
