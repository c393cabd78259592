package opendata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://transport.opendata.ch/v1"

var (
	// ErrUnreachable is returned when the feed could not be fetched.
	ErrUnreachable = errors.New("feed unreachable")
	// ErrMalformed is returned when the feed answered with an unusable document.
	ErrMalformed = errors.New("malformed payload")
)

// StatusError is returned for non-200 responses. It matches ErrUnreachable.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnreachable
}

// Client is a transport.opendata.ch stationboard client.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	transportation string
	limit          int
	timeout        time.Duration
}

// NewClient creates a new stationboard client. timeout bounds every fetch.
func NewClient(baseURL, transportation string, limit int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		transportation: transportation,
		limit:          limit,
		timeout:        timeout,
	}
}

// StationboardURL returns the request URL for a station.
func (c *Client) StationboardURL(station string) string {
	q := url.Values{}
	q.Set("station", station)
	q.Set("limit", strconv.Itoa(c.limit))
	if c.transportation != "" {
		q.Set("transportations[]", c.transportation)
	}
	return c.baseURL + "/stationboard?" + q.Encode()
}

// Stationboard fetches the upcoming stop events for a station, in feed order.
func (c *Client) Stationboard(ctx context.Context, station string) ([]StopEvent, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StationboardURL(station), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "tramboard/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var result StationboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("reading response: %w: %w", ErrUnreachable, err)
		}
		return nil, fmt.Errorf("decoding response: %w: %w", ErrMalformed, err)
	}

	if result.Stationboard == nil {
		return nil, fmt.Errorf("no stationboard in response: %w", ErrMalformed)
	}

	return result.Stationboard, nil
}
