package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/tramboard/internal/battery"
	"github.com/danpilch/tramboard/internal/board"
	"github.com/danpilch/tramboard/internal/config"
	"github.com/danpilch/tramboard/internal/input"
	"github.com/danpilch/tramboard/internal/lifecycle"
	"github.com/danpilch/tramboard/internal/network"
	"github.com/danpilch/tramboard/internal/panel"
	"github.com/danpilch/tramboard/internal/preview"
	"github.com/danpilch/tramboard/internal/render"
)

const (
	statusTextSize = 2
	idleTextSize   = 6
)

// Monitor builds one station's board per call.
type Monitor interface {
	Check(ctx context.Context, station config.StationConfig) board.StationBoard
}

type Connector interface {
	Connect(ctx context.Context) error
	OnProgress(fn network.ProgressFunc)
}

// Screen is the render coordinator.
type Screen interface {
	Render(left, right board.StationBoard, aux render.Aux) error
	RenderMessage(size int, lines ...string) error
}

// FrameSource exposes the last flushed frame for the preview server.
type FrameSource interface {
	Frame() *image.Gray
}

type Deps struct {
	Monitor   Monitor
	Connector Connector
	Screen    Screen
	Panel     panel.Panel
	Input     input.Device
	Battery   battery.Reader
	// Frames and Store are optional.
	Frames FrameSource
	Store  *preview.Store
	Now    func() time.Time
}

// Scheduler runs the control loop: boot, periodic refresh, idle sleep and
// wake. Everything that draws runs on its single goroutine.
type Scheduler struct {
	cfg    *config.Config
	deps   Deps
	lc     *lifecycle.Lifecycle
	logger *logrus.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewScheduler(cfg *config.Config, deps Deps, logger *logrus.Logger) *Scheduler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Battery == nil {
		deps.Battery = battery.None{}
	}
	if deps.Input == nil {
		deps.Input = input.None{}
	}

	s := &Scheduler{
		cfg:    cfg,
		deps:   deps,
		lc:     lifecycle.New(cfg.Lifecycle.RefreshInterval, cfg.Lifecycle.Idle()),
		logger: logger,
		stopCh: make(chan struct{}),
	}
	deps.Connector.OnProgress(s.showConnecting)
	return s
}

// Lifecycle exposes the display state for inspection.
func (s *Scheduler) Lifecycle() *lifecycle.Lifecycle {
	return s.lc
}

func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunOnce connects, renders a single board and returns. Connectivity
// failures are shown and returned instead of retried.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := s.deps.Connector.Connect(ctx); err != nil {
		s.showNetworkError(0)
		return fmt.Errorf("connecting: %w", err)
	}
	if err := s.syncClock(ctx); err != nil {
		return err
	}
	s.lc.Wake(s.deps.Now())
	s.refresh(ctx)
	return ctx.Err()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			s.logger.Info("scheduler stopped: stop signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if err := s.boot(ctx); err != nil {
			s.logExit(err)
			return
		}
		if err := s.loop(ctx); err != nil {
			s.logExit(err)
			return
		}
		s.logger.Info("woken by touch, rebooting")
	}
}

func (s *Scheduler) logExit(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Info("scheduler stopped: context cancelled")
		return
	}
	s.logger.WithField("error", err).Error("scheduler stopped")
}

// boot retries the connectivity handshake, waiting RestartDelay after each
// exhausted round, then syncs the clock and renders immediately.
func (s *Scheduler) boot(ctx context.Context) error {
	for {
		err := s.deps.Connector.Connect(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := s.cfg.Boot.RestartDelay
		s.logger.WithFields(logrus.Fields{
			"error":       err,
			"retry_after": delay,
		}).Error("network unavailable")
		s.showNetworkError(delay)

		if err := wait(ctx, delay); err != nil {
			return err
		}
	}

	if err := s.syncClock(ctx); err != nil {
		return err
	}

	now := s.deps.Now()
	s.lc.Wake(now)
	s.logger.WithField("time", now.Format(time.RFC3339)).Info("board active")
	s.refresh(ctx)
	return nil
}

func (s *Scheduler) syncClock(ctx context.Context) error {
	s.message(statusTextSize, "Connected! Syncing time...")
	if err := network.WaitForClock(ctx, s.deps.Now, s.cfg.Boot.ClockPoll); err != nil {
		return fmt.Errorf("syncing clock: %w", err)
	}
	return nil
}

// loop ticks until the board goes to sleep and is woken again (nil) or ctx
// ends.
func (s *Scheduler) loop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Lifecycle.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			touched, err := s.deps.Input.Touched()
			if err != nil {
				s.logger.WithField("error", err).Warn("polling input failed")
				touched = false
			}

			switch s.lc.Tick(s.deps.Now(), touched) {
			case lifecycle.ActionRefresh:
				s.refresh(ctx)
			case lifecycle.ActionSleep:
				return s.sleep(ctx)
			}
		}
	}
}

// refresh fetches both stations one after the other, renders them in a
// single flush and publishes the result. Boards fetched under a cancelled
// context are dropped.
func (s *Scheduler) refresh(ctx context.Context) {
	start := s.deps.Now()

	boards := make([]board.StationBoard, 0, len(s.cfg.Stations))
	for _, st := range s.cfg.Stations {
		boards = append(boards, s.deps.Monitor.Check(ctx, st))
	}
	if ctx.Err() != nil {
		s.logger.Debug("refresh abandoned: context cancelled")
		return
	}

	var aux render.Aux
	if pct, ok := s.deps.Battery.Percent(); ok {
		aux = render.Aux{Battery: pct, HasBattery: true}
	}

	if err := s.deps.Screen.Render(boards[0], boards[1], aux); err != nil {
		s.logger.WithField("error", err).Error("rendering board failed")
	}

	now := s.deps.Now()
	s.lc.MarkRefreshed(now)

	s.logger.WithFields(logrus.Fields{
		"left":        boards[0].Status,
		"right":       boards[1].Status,
		"duration_ms": now.Sub(start).Milliseconds(),
	}).Debug("board refreshed")

	if s.deps.Store != nil {
		var frame image.Image
		if s.deps.Frames != nil {
			if f := s.deps.Frames.Frame(); f != nil {
				frame = f
			}
		}
		s.deps.Store.Publish(boards, frame, now)
	}
}

// sleep shows the idle prompt, powers the panel down and blocks until the
// next touch.
func (s *Scheduler) sleep(ctx context.Context) error {
	s.logger.WithField("idle_timeout", s.lc.IdleTimeout()).Info("idle timeout reached, going to sleep")

	s.message(idleTextSize, "Touch Me")
	if err := wait(ctx, s.cfg.Lifecycle.IdlePromptHold); err != nil {
		return err
	}

	if err := s.deps.Input.Flush(); err != nil {
		s.logger.WithField("error", err).Warn("flushing input failed")
	}
	if err := s.deps.Panel.Sleep(); err != nil {
		s.logger.WithField("error", err).Warn("putting panel to sleep failed")
	}

	if err := s.deps.Input.WaitForWake(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.WithField("error", err).Error("waiting for touch failed, waking board")
	}

	if err := s.deps.Panel.Wake(); err != nil {
		s.logger.WithField("error", err).Warn("waking panel failed")
	}
	return nil
}

func (s *Scheduler) showConnecting(attempt, total int, lastErr error) {
	lines := []string{fmt.Sprintf("Connecting to WiFi... (attempt %d/%d)", attempt, total)}
	if lastErr != nil {
		lines = append(lines, fmt.Sprintf("Failed. Retrying in %s...", seconds(s.cfg.Boot.Backoff)))
	}
	s.message(statusTextSize, lines...)
}

func (s *Scheduler) showNetworkError(retryAfter time.Duration) {
	if retryAfter <= 0 {
		s.message(statusTextSize, "WiFi Error")
		return
	}
	s.message(statusTextSize, "WiFi Error", fmt.Sprintf("Retrying in %s...", seconds(retryAfter)))
}

func (s *Scheduler) message(size int, lines ...string) {
	if err := s.deps.Screen.RenderMessage(size, lines...); err != nil {
		s.logger.WithField("error", err).Error("rendering message failed")
	}
}

// seconds formats d as whole seconds, e.g. "60s".
func seconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Round(time.Second)/time.Second))
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
