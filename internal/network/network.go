// Package network establishes connectivity and a plausible clock at boot.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

var (
	ErrConnectivity = errors.New("no connectivity")
	ErrClockSync    = errors.New("clock not synchronized")
)

// minPlausibleUnix is 2001-09-09; an RTC reading below it was never set.
const minPlausibleUnix = 1_000_000_000

// ProgressFunc is called before every connection attempt. lastErr is the
// failure of the previous attempt, nil on the first.
type ProgressFunc func(attempt, total int, lastErr error)

type ConnectorOptions struct {
	ProbeURL       string
	Attempts       int
	AttemptTimeout time.Duration
	Backoff        time.Duration
}

// Connector waits for the network by probing a known URL.
type Connector struct {
	httpClient *http.Client
	opts       ConnectorOptions
	logger     *logrus.Logger
	progress   ProgressFunc
}

func NewConnector(opts ConnectorOptions, logger *logrus.Logger) *Connector {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &Connector{
		httpClient: &http.Client{},
		opts:       opts,
		logger:     logger,
	}
}

// OnProgress registers a callback for attempt progress.
func (c *Connector) OnProgress(fn ProgressFunc) {
	c.progress = fn
}

// Connect probes until one attempt succeeds, waiting Backoff between
// attempts. After Attempts failures it returns an error wrapping
// ErrConnectivity.
func (c *Connector) Connect(ctx context.Context) error {
	attempt := 0
	var lastErr error

	backoff := retry.WithMaxRetries(uint64(c.opts.Attempts-1), retry.NewConstant(c.opts.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if c.progress != nil {
			c.progress(attempt, c.opts.Attempts, lastErr)
		}

		if err := c.probe(ctx); err != nil {
			lastErr = err
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"of":      c.opts.Attempts,
				"error":   err,
			}).Warn("connectivity probe failed")
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w after %d attempts: %w", ErrConnectivity, attempt, err)
	}

	c.logger.WithField("attempts", attempt).Info("network connected")
	return nil
}

func (c *Connector) probe(ctx context.Context) error {
	if c.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.AttemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.ProbeURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "tramboard/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	// Any HTTP answer proves the link works; feed health is judged per station.
	return nil
}

// ClockPlausible reports whether t looks like a synchronized wall clock.
func ClockPlausible(t time.Time) bool {
	return t.Unix() > minPlausibleUnix
}

// WaitForClock polls now until it reads a plausible time.
func WaitForClock(ctx context.Context, now func() time.Time, poll time.Duration) error {
	if ClockPlausible(now()) {
		return nil
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrClockSync, ctx.Err())
		case <-ticker.C:
			if ClockPlausible(now()) {
				return nil
			}
		}
	}
}
