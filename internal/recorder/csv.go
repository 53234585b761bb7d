// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package recorder writes navigation events as (timestamp, series, value)
// rows for offline analysis.
package recorder

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/relabs-tech/step_navigation/internal/events"
)

// Header is the first row of every file.
var Header = []string{"timestamp_ms", "series", "value"}

// CSV records rows to a writer. It is safe for concurrent use.
type CSV struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// NewCSV writes the header to w and returns a recorder.
func NewCSV(w io.Writer) *CSV {
	r := &CSV{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	_ = r.w.Write(Header) // surfaced by the first Record
	return r
}

// Create truncates path and records to it.
func Create(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording %s: %w", path, err)
	}
	return NewCSV(f), nil
}

// Record writes one row and flushes it.
func (r *CSV) Record(at time.Time, series string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := []string{
		strconv.FormatInt(at.UnixMilli(), 10),
		series,
		strconv.FormatFloat(value, 'f', -1, 64),
	}
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("record %s: %w", series, err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("record %s: %w", series, err)
	}
	return nil
}

// Handle records ev. It has the events.Handler signature.
func (r *CSV) Handle(ev events.Event) error {
	switch e := ev.(type) {
	case events.HeadingUpdate:
		if err := r.Record(e.Time, "raw_heading", e.Raw); err != nil {
			return err
		}
		return r.Record(e.Time, "filtered_heading", e.Filtered)
	case events.CalibratedHeadingUpdate:
		return r.Record(e.Time, "calibrated_heading", e.Heading)
	case events.BearingUpdate:
		return r.Record(e.Time, "gps_bearing", e.Bearing)
	case events.StepEvent:
		return r.Record(e.Time, "step_magnitude", e.Magnitude)
	case events.LocationUpdate:
		if err := r.Record(e.Time, "lat", e.Latitude); err != nil {
			return err
		}
		return r.Record(e.Time, "lon", e.Longitude)
	case events.CalibrationCompleted:
		return r.Record(e.Time, "correction_factor", e.CorrectionFactor)
	default:
		return fmt.Errorf("recorder: unsupported event %T", ev)
	}
}

// Subscriber wraps Handle for registration with a dispatcher.
func (r *CSV) Subscriber() *events.Subscriber {
	return events.NewSubscriber("csv-recorder", r.Handle)
}

// Close flushes and closes the underlying writer when it is a Closer.
func (r *CSV) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w.Flush()
	err := r.w.Error()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
