// Package input reports user interaction and wakes the board from sleep.
package input

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Device is polled once per loop tick.
type Device interface {
	// Touched reports whether an interaction happened since the last poll.
	Touched() (bool, error)
	// Flush discards pending interactions so a stale touch cannot wake the
	// board right after it goes to sleep.
	Flush() error
	// WaitForWake blocks until the next interaction or ctx is done.
	WaitForWake(ctx context.Context) error
	Close() error
}

// Signal treats SIGUSR1 as a touch. It lets headless installs be woken with
// `kill -USR1`.
type Signal struct {
	ch   chan os.Signal
	stop func()
}

func NewSignal() *Signal {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, syscall.SIGUSR1)
	s := newSignal(ch)
	s.stop = func() { signal.Stop(ch) }
	return s
}

func newSignal(ch chan os.Signal) *Signal {
	return &Signal{ch: ch}
}

func (s *Signal) Touched() (bool, error) {
	touched := false
	for {
		select {
		case <-s.ch:
			touched = true
		default:
			return touched, nil
		}
	}
}

func (s *Signal) Flush() error {
	_, err := s.Touched()
	return err
}

func (s *Signal) WaitForWake(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ch:
		return nil
	}
}

func (s *Signal) Close() error {
	if s.stop != nil {
		s.stop()
	}
	return nil
}

// None never reports interaction; WaitForWake only returns when ctx ends.
type None struct{}

func (None) Touched() (bool, error) { return false, nil }
func (None) Flush() error           { return nil }
func (None) WaitForWake(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
func (None) Close() error { return nil }
