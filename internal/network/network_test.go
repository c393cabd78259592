package network

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	return url
}

func TestConnect_FirstAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewConnector(ConnectorOptions{
		ProbeURL:       srv.URL,
		Attempts:       3,
		AttemptTimeout: time.Second,
		Backoff:        time.Millisecond,
	}, quietLogger())

	var progress []int
	c.OnProgress(func(attempt, total int, lastErr error) {
		assert.Equal(t, 3, total)
		assert.NoError(t, lastErr)
		progress = append(progress, attempt)
	})

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, []int{1}, progress)
	assert.Equal(t, int32(1), hits.Load())
}

func TestConnect_AnyStatusCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewConnector(ConnectorOptions{ProbeURL: srv.URL, Attempts: 3, Backoff: time.Millisecond}, quietLogger())
	require.NoError(t, c.Connect(context.Background()))
}

func TestConnect_Exhausted(t *testing.T) {
	c := NewConnector(ConnectorOptions{
		ProbeURL:       deadURL(t),
		Attempts:       3,
		AttemptTimeout: time.Second,
		Backoff:        time.Millisecond,
	}, quietLogger())

	var attempts []int
	var sawErr int
	c.OnProgress(func(attempt, total int, lastErr error) {
		attempts = append(attempts, attempt)
		if lastErr != nil {
			sawErr++
		}
	})

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectivity)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, 2, sawErr)
}

func TestConnect_RecoversOnRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewConnector(ConnectorOptions{
		ProbeURL:       srv.URL,
		Attempts:       3,
		AttemptTimeout: 50 * time.Millisecond,
		Backoff:        time.Millisecond,
	}, quietLogger())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, int32(2), hits.Load())
}

func TestConnect_ContextCancelled(t *testing.T) {
	c := NewConnector(ConnectorOptions{
		ProbeURL: deadURL(t),
		Attempts: 3,
		Backoff:  time.Hour,
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	c.OnProgress(func(attempt, total int, lastErr error) {
		if attempt == 1 {
			cancel()
		}
	})

	err := c.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrConnectivity)
}

func TestClockPlausible(t *testing.T) {
	assert.False(t, ClockPlausible(time.Unix(0, 0)))
	assert.False(t, ClockPlausible(time.Unix(minPlausibleUnix, 0)))
	assert.True(t, ClockPlausible(time.Unix(minPlausibleUnix+1, 0)))
}

func TestWaitForClock(t *testing.T) {
	var calls atomic.Int32
	now := func() time.Time {
		if calls.Add(1) < 3 {
			return time.Unix(0, 0)
		}
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}

	require.NoError(t, WaitForClock(context.Background(), now, time.Millisecond))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForClock_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := WaitForClock(ctx, func() time.Time { return time.Unix(0, 0) }, time.Millisecond)
	assert.ErrorIs(t, err, ErrClockSync)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
