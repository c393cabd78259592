package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/tramboard/internal/api/opendata"
	"github.com/danpilch/tramboard/internal/board"
	"github.com/danpilch/tramboard/internal/config"
)

// Fetcher returns the raw stationboard for a station query.
type Fetcher interface {
	Stationboard(ctx context.Context, station string) ([]opendata.StopEvent, error)
}

// Alerter is told when a station stops or resumes producing a board.
// *notify.Notifier satisfies it.
type Alerter interface {
	SendStationDegraded(station, reason string) error
	SendStationRecovered(station string, departures int) error
}

type StationMonitor struct {
	fetcher Fetcher
	builder *board.Builder
	alerter Alerter
	logger  *logrus.Logger
	now     func() time.Time

	mu       sync.Mutex
	degraded map[string]board.Status
}

// NewStationMonitor creates a monitor. alerter may be nil.
func NewStationMonitor(fetcher Fetcher, builder *board.Builder, alerter Alerter, logger *logrus.Logger) *StationMonitor {
	return &StationMonitor{
		fetcher:  fetcher,
		builder:  builder,
		alerter:  alerter,
		logger:   logger,
		now:      time.Now,
		degraded: make(map[string]board.Status),
	}
}

// SetClock replaces the clock used to compute countdowns.
func (m *StationMonitor) SetClock(now func() time.Time) {
	m.now = now
}

func (m *StationMonitor) ResetNotificationState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = make(map[string]board.Status)
}

// Check fetches one station and builds its board. Fetch failures never
// escape: they become a failed board carrying the status to display.
func (m *StationMonitor) Check(ctx context.Context, station config.StationConfig) board.StationBoard {
	m.logger.WithFields(logrus.Fields{
		"station": station.Name,
		"query":   station.Query,
	}).Debug("fetching stationboard")

	events, err := m.fetcher.Stationboard(ctx, station.Query)
	if err != nil {
		b := classify(station.Name, err)
		m.logger.WithFields(logrus.Fields{
			"station": station.Name,
			"status":  b.Status,
			"error":   err,
		}).Warn("stationboard unavailable")
		m.handleDegraded(b)
		return b
	}

	b := m.builder.Build(station.Name, events, m.now())
	m.logger.WithFields(logrus.Fields{
		"station":    station.Name,
		"departures": len(b.Departures),
	}).Info("stationboard refreshed")
	m.handleRecovered(b)
	return b
}

func classify(station string, err error) board.StationBoard {
	var statusErr *opendata.StatusError
	switch {
	case errors.As(err, &statusErr):
		b := board.Failed(station, board.StatusUnreachable, err.Error())
		b.HTTPStatus = statusErr.Code
		return b
	case errors.Is(err, opendata.ErrMalformed):
		return board.Failed(station, board.StatusMalformed, err.Error())
	default:
		return board.Failed(station, board.StatusUnreachable, err.Error())
	}
}

func (m *StationMonitor) handleDegraded(b board.StationBoard) {
	m.mu.Lock()
	_, alreadyNotified := m.degraded[b.Station]
	if !alreadyNotified {
		m.degraded[b.Station] = b.Status
	}
	m.mu.Unlock()

	if alreadyNotified || m.alerter == nil {
		return
	}

	if err := m.alerter.SendStationDegraded(b.Station, describe(b)); err != nil {
		m.logger.WithFields(logrus.Fields{
			"station": b.Station,
			"error":   err,
		}).Error("failed to send degraded alert")
	}
}

func (m *StationMonitor) handleRecovered(b board.StationBoard) {
	m.mu.Lock()
	_, wasDegraded := m.degraded[b.Station]
	delete(m.degraded, b.Station)
	m.mu.Unlock()

	if !wasDegraded || m.alerter == nil {
		return
	}

	m.logger.WithField("station", b.Station).Info("stationboard recovered")
	if err := m.alerter.SendStationRecovered(b.Station, len(b.Departures)); err != nil {
		m.logger.WithFields(logrus.Fields{
			"station": b.Station,
			"error":   err,
		}).Error("failed to send recovered alert")
	}
}

func describe(b board.StationBoard) string {
	switch b.Status {
	case board.StatusUnreachable:
		if b.HTTPStatus > 0 {
			return fmt.Sprintf("feed answered with HTTP %d", b.HTTPStatus)
		}
		return "feed unreachable: " + b.Detail
	case board.StatusMalformed:
		return "feed payload could not be parsed: " + b.Detail
	default:
		return b.Detail
	}
}
