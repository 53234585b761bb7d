package recorder

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/step_navigation/internal/events"
)

var at = time.UnixMilli(1767225600123)

func rows(t *testing.T, b []byte) [][]string {
	t.Helper()
	out, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return out
}

func TestHandleWritesRows(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := NewCSV(&buf)

	require.NoError(t, r.Handle(events.HeadingUpdate{Time: at, Raw: 12.5, Filtered: 11}))
	require.NoError(t, r.Handle(events.LocationUpdate{Time: at, Latitude: 40.5, Longitude: -74.25}))
	require.NoError(t, r.Handle(events.StepEvent{Time: at, Count: 1, Magnitude: 1.42}))

	assert.Equal(t, [][]string{
		{"timestamp_ms", "series", "value"},
		{"1767225600123", "raw_heading", "12.5"},
		{"1767225600123", "filtered_heading", "11"},
		{"1767225600123", "lat", "40.5"},
		{"1767225600123", "lon", "-74.25"},
		{"1767225600123", "step_magnitude", "1.42"},
	}, rows(t, buf.Bytes()))
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFailureIsReturned(t *testing.T) {
	t.Parallel()
	r := NewCSV(brokenWriter{})
	err := r.Handle(events.BearingUpdate{Time: at, Bearing: 317})
	assert.ErrorContains(t, err, "disk full")
}

func TestFailureDoesNotStopDispatch(t *testing.T) {
	t.Parallel()
	d := events.NewDispatcher()
	d.Register(events.Bearing, NewCSV(brokenWriter{}).Subscriber())

	delivered := false
	d.Register(events.Bearing, events.NewSubscriber("after", func(events.Event) error {
		delivered = true
		return nil
	}))
	d.Publish(events.BearingUpdate{Time: at, Bearing: 317})
	assert.True(t, delivered)
}

func TestCreateAndClose(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "headings.csv")
	r, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, r.Handle(events.CalibrationCompleted{Time: at, CorrectionFactor: 17}))
	require.NoError(t, r.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	got := rows(t, b)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"1767225600123", "correction_factor", "17"}, got[1])

	_, err = Create(filepath.Join(t.TempDir(), "missing", "x.csv"))
	assert.Error(t, err)
}
