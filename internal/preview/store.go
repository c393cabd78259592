// Package preview serves the latest rendered board over HTTP.
package preview

import (
	"image"
	"sync"
	"time"

	"github.com/danpilch/tramboard/internal/board"
	"github.com/danpilch/tramboard/internal/render"
)

type Departure struct {
	Line         string    `json:"line"`
	Destination  string    `json:"destination"`
	Scheduled    time.Time `json:"scheduled"`
	DelayMinutes int       `json:"delay_minutes"`
	MinutesUntil int       `json:"minutes_until"`
	Countdown    string    `json:"countdown"`
}

type Station struct {
	Station    string      `json:"station"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Departures []Departure `json:"departures"`
}

type Snapshot struct {
	Stations   []Station `json:"stations"`
	LastUpdate time.Time `json:"last_update"`
}

// Store holds what the board last showed. The control loop writes, HTTP
// handlers read.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	frame    image.Image
	ok       bool
}

func NewStore() *Store {
	return &Store{}
}

// Publish records the boards and the frame they were rendered into. frame is
// retained and must not be modified afterwards.
func (s *Store) Publish(boards []board.StationBoard, frame image.Image, at time.Time) {
	snap := Snapshot{
		Stations:   make([]Station, 0, len(boards)),
		LastUpdate: at,
	}
	for _, b := range boards {
		snap.Stations = append(snap.Stations, toStation(b))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	if frame != nil {
		s.frame = frame
	}
	s.ok = true
}

// Snapshot returns the last published boards, false before the first publish.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.ok
}

func (s *Store) Frame() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

func toStation(b board.StationBoard) Station {
	st := Station{
		Station:    b.Station,
		Status:     b.Status.String(),
		Error:      render.ErrorText(b),
		Departures: make([]Departure, 0, len(b.Departures)),
	}
	for _, d := range b.Departures {
		st.Departures = append(st.Departures, Departure{
			Line:         d.Line,
			Destination:  d.Label,
			Scheduled:    d.Scheduled,
			DelayMinutes: d.Delay,
			MinutesUntil: d.MinutesUntil,
			Countdown:    render.Countdown(d.MinutesUntil),
		})
	}
	return st
}
