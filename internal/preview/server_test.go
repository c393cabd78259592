package preview

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/tramboard/internal/board"
)

var cet = time.FixedZone("CET", 3600)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func serve(t *testing.T, store *Store, path string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewServer(":0", store, quietLogger()).Router()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleBoards() []board.StationBoard {
	left := board.StationBoard{
		Station: "T7 Roswiesen",
		Status:  board.StatusOK,
		Departures: []board.Departure{
			{Line: "T7", Label: "Wollishofe", Scheduled: time.Date(2025, 11, 19, 14, 36, 0, 0, cet), Delay: 1, MinutesUntil: 7},
			{Line: "T7", Label: "Stettbach", Scheduled: time.Date(2025, 11, 19, 14, 29, 0, 0, cet), MinutesUntil: -1},
		},
	}
	right := board.Failed("T9 Heerenwiesen", board.StatusUnreachable, "unexpected status code: 502")
	right.HTTPStatus = 502
	return []board.StationBoard{left, right}
}

func TestHealth(t *testing.T) {
	rec := serve(t, NewStore(), "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestDepartures_BeforePublish(t *testing.T) {
	rec := serve(t, NewStore(), "/api/departures")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDepartures_ServesSnapshot(t *testing.T) {
	store := NewStore()
	updated := time.Date(2025, 11, 19, 14, 30, 0, 0, time.UTC)
	store.Publish(sampleBoards(), nil, updated)

	rec := serve(t, store, "/api/departures")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.True(t, snap.LastUpdate.Equal(updated))
	require.Len(t, snap.Stations, 2)

	left := snap.Stations[0]
	assert.Equal(t, "T7 Roswiesen", left.Station)
	assert.Equal(t, "ok", left.Status)
	assert.Empty(t, left.Error)
	require.Len(t, left.Departures, 2)
	assert.Equal(t, "Wollishofe", left.Departures[0].Destination)
	assert.Equal(t, 1, left.Departures[0].DelayMinutes)
	assert.Equal(t, "7'", left.Departures[0].Countdown)
	assert.Equal(t, "--", left.Departures[1].Countdown)

	right := snap.Stations[1]
	assert.Equal(t, "unreachable", right.Status)
	assert.Equal(t, "HTTP error: 502", right.Error)
	assert.Empty(t, right.Departures)
}

func TestFrame(t *testing.T) {
	store := NewStore()

	rec := serve(t, store, "/frame.png")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	img := image.NewGray(image.Rect(0, 0, 4, 3))
	img.SetGray(1, 1, color.Gray{Y: 0})
	store.Publish(nil, img, time.Now())

	rec = serve(t, store, "/frame.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	decoded, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestPublish_KeepsFrameWhenNil(t *testing.T) {
	store := NewStore()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	store.Publish(nil, img, time.Now())
	store.Publish(sampleBoards(), nil, time.Now())

	assert.Same(t, img, store.Frame())
	snap, ok := store.Snapshot()
	require.True(t, ok)
	assert.Len(t, snap.Stations, 2)
}

func TestUnknownRoute(t *testing.T) {
	rec := serve(t, NewStore(), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
