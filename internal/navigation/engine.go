// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package navigation owns the dead-reckoning state. Engine turns motion and
// location samples into events; Service binds an Engine to its sources.
package navigation

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/relabs-tech/step_navigation/internal/calibration"
	"github.com/relabs-tech/step_navigation/internal/events"
	"github.com/relabs-tech/step_navigation/internal/gps"
	"github.com/relabs-tech/step_navigation/internal/heading"
	"github.com/relabs-tech/step_navigation/internal/imu"
	"github.com/relabs-tech/step_navigation/internal/orientation"
	"github.com/relabs-tech/step_navigation/internal/reckoning"
	"github.com/relabs-tech/step_navigation/internal/step"
)

// maxTrack bounds the number of positions kept for Track.
const maxTrack = 10000

// Config gathers the tuning values of every stage.
type Config struct {
	HeadingAlpha float64
	Step         step.Config
	Calibration  calibration.Config
	Stepper      reckoning.Stepper
}

// DefaultConfig returns the defaults of every stage.
func DefaultConfig() Config {
	return Config{
		HeadingAlpha: heading.DefaultAlpha,
		Step:         step.DefaultConfig(),
		Calibration:  calibration.DefaultConfig(),
		Stepper:      reckoning.DefaultStepper(),
	}
}

// LocationSwitch suspends and resumes the location feed. Both calls must be
// idempotent and must not block or panic.
type LocationSwitch interface {
	On()
	Off()
}

type toggle int

const (
	keep toggle = iota
	switchOn
	switchOff
)

// batch is the output of one input: a location toggle and its events.
type batch struct {
	sw  toggle
	evs []events.Event
}

// Engine is the single owner of the heading filter, step detector,
// calibration engine and position estimate. Inputs may arrive from any
// goroutine, including subscribers during delivery.
//
// Each input mutates state under mu and queues its output. One caller at a
// time drains the queue outside mu, so outputs leave in the order the
// inputs were applied. An input made while another caller is draining
// returns at once; its events follow the ones already queued.
type Engine struct {
	dispatcher *events.Dispatcher
	location   LocationSwitch

	mu         sync.Mutex
	pending    []batch
	delivering bool
	filter     *heading.Filter
	detector   *step.Detector
	calib      *calibration.Engine
	stepper    reckoning.Stepper
	reading    heading.Reading
	hasHeading bool
	bearing    float64
	hasBearing bool
	position   orb.Point
	hasFix     bool
	track      orb.LineString
	walkedM    float64
	degenerate int
}

// NewEngine validates cfg and builds an engine publishing to d. location
// may be nil.
func NewEngine(cfg Config, d *events.Dispatcher, location LocationSwitch) (*Engine, error) {
	filter, err := heading.NewFilter(cfg.HeadingAlpha)
	if err != nil {
		return nil, err
	}
	detector, err := step.NewDetector(cfg.Step)
	if err != nil {
		return nil, err
	}
	calib, err := calibration.NewEngine(cfg.Calibration)
	if err != nil {
		return nil, err
	}
	if err := cfg.Stepper.Validate(); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("navigation: nil dispatcher")
	}
	return &Engine{
		dispatcher: d,
		location:   location,
		filter:     filter,
		detector:   detector,
		calib:      calib,
		stepper:    cfg.Stepper,
	}, nil
}

// HandleOrientation feeds one gravity+magnetic pair to the heading filter.
// Degenerate pairs are skipped and leave the filter untouched.
func (e *Engine) HandleOrientation(s imu.OrientationSample) {
	raw, err := orientation.RawAngle(s.Gravity, s.Magnetic)

	e.mu.Lock()
	if err != nil {
		e.degenerate++
		e.mu.Unlock()
		return
	}
	e.reading = e.filter.Update(raw)
	e.hasHeading = true
	evs := []events.Event{
		events.HeadingUpdate{Time: s.Time, Raw: e.reading.Raw, Filtered: e.reading.Filtered},
		e.calibratedHeadingLocked(s.Time),
	}
	e.publish(keep, evs)
}

// HandleAcceleration feeds one accelerometer sample to the step detector.
// On a step it samples the calibration offset while uncalibrated, and
// advances the position while calibrated.
func (e *Engine) HandleAcceleration(s step.Sample) {
	e.mu.Lock()
	st, ok := e.detector.Process(s)
	if !ok {
		e.mu.Unlock()
		return
	}

	evs := []events.Event{events.StepEvent{Time: st.Time, Count: st.Count, Magnitude: st.Magnitude}}
	sw := keep
	recomputed := false

	if e.calib.State() == calibration.Uncalibrated {
		switch {
		case !e.hasBearing:
			log.Printf("navigation: step %d excluded from calibration: no GPS bearing", st.Count)
		case !e.hasHeading:
			log.Printf("navigation: step %d excluded from calibration: no heading", st.Count)
		default:
			e.calib.AddSample(e.bearing, e.reading.Filtered)
			res, err := e.calib.Attempt()
			if err == nil && res.Calibrated {
				log.Printf("navigation: calibrated, correction %.1f° (σ %.2f° over %d samples)",
					res.Mean, res.StdDev, res.Samples)
				evs = append(evs, events.CalibrationCompleted{
					Time:             st.Time,
					CorrectionFactor: res.Mean,
					StdDev:           res.StdDev,
					Samples:          res.Samples,
				})
				sw = switchOff
				recomputed = true
			}
		}
	}

	if e.calib.State() == calibration.Calibrated && e.hasFix && e.hasHeading {
		next := e.stepper.Advance(e.position, e.calib.Correct(e.reading.Filtered))
		e.walkedM += e.stepper.StepLengthMeters
		e.moveLocked(next)
		evs = append(evs, e.locationLocked(st.Time, events.OriginDeadReckoning))
	}

	if recomputed {
		evs = append(evs, e.calibratedHeadingLocked(st.Time))
	}
	e.publish(sw, evs)
}

// HandleFix feeds one GPS fix. While uncalibrated a valid fix becomes the
// position estimate; once calibrated only its bearing is used. A fix
// without motion clears the bearing so stale courses are not sampled.
func (e *Engine) HandleFix(f gps.Fix) {
	at := f.Received
	if at.IsZero() {
		at = time.Now()
	}

	e.mu.Lock()
	var evs []events.Event
	if f.Valid() && e.calib.State() == calibration.Uncalibrated {
		e.moveLocked(orb.Point{f.Longitude, f.Latitude})
		evs = append(evs, e.locationLocked(at, events.OriginGPS))
	}

	e.hasBearing = f.HasBearing()
	if e.hasBearing {
		e.bearing = f.CourseDeg
		evs = append(evs, events.BearingUpdate{Time: at, Bearing: f.CourseDeg})
		if e.hasHeading {
			evs = append(evs, e.calibratedHeadingLocked(at))
		}
	}
	e.publish(keep, evs)
}

// ResetCalibration re-arms calibration: history cleared, correction back to
// zero, bearing forgotten and the location feed switched back on. The
// position estimate and heading filter are kept. Safe at any time.
func (e *Engine) ResetCalibration() {
	e.mu.Lock()
	was := e.calib.State()
	e.calib.Reset()
	e.hasBearing = false

	var evs []events.Event
	if e.hasHeading {
		evs = append(evs, e.calibratedHeadingLocked(time.Now()))
	}
	log.Printf("navigation: calibration reset (was %s)", was)
	e.publish(switchOn, evs)
}

// locationLocked builds a location event for the current position.
func (e *Engine) locationLocked(at time.Time, origin events.Origin) events.LocationUpdate {
	return events.LocationUpdate{
		Time:      at,
		Latitude:  e.position.Lat(),
		Longitude: e.position.Lon(),
		Origin:    origin,
	}
}

func (e *Engine) calibratedHeadingLocked(at time.Time) events.CalibratedHeadingUpdate {
	return events.CalibratedHeadingUpdate{
		Time:       at,
		Heading:    e.calib.Correct(e.reading.Filtered),
		Correction: e.calib.CorrectionFactor(),
	}
}

func (e *Engine) moveLocked(p orb.Point) {
	e.position = p
	e.hasFix = true
	if len(e.track) == maxTrack {
		copy(e.track, e.track[1:])
		e.track = e.track[:maxTrack-1]
	}
	e.track = append(e.track, p)
}

// publish must be called with mu held; it releases mu. If no other caller
// is delivering, it drains the queue, including anything queued by
// subscribers meanwhile.
func (e *Engine) publish(sw toggle, evs []events.Event) {
	if sw != keep || len(evs) > 0 {
		e.pending = append(e.pending, batch{sw: sw, evs: evs})
	}
	if e.delivering {
		e.mu.Unlock()
		return
	}
	e.delivering = true
	for len(e.pending) > 0 {
		b := e.pending[0]
		e.pending[0] = batch{}
		e.pending = e.pending[1:]
		e.mu.Unlock()
		e.deliver(b)
		e.mu.Lock()
	}
	e.delivering = false
	e.mu.Unlock()
}

func (e *Engine) deliver(b batch) {
	if e.location != nil {
		switch b.sw {
		case switchOff:
			e.location.Off()
		case switchOn:
			e.location.On()
		}
	}
	if len(b.evs) > 0 {
		e.dispatcher.Publish(b.evs...)
	}
}

// Position returns the current estimate, if any.
func (e *Engine) Position() (orb.Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position, e.hasFix
}

// Track returns a copy of the positions visited, oldest first.
func (e *Engine) Track() orb.LineString {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append(orb.LineString(nil), e.track...)
}

// CalibrationState returns the calibration state.
func (e *Engine) CalibrationState() calibration.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calib.State()
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	State             calibration.State `json:"state"`
	CorrectionFactor  float64           `json:"correction_deg"`
	HasHeading        bool              `json:"has_heading"`
	RawHeading        float64           `json:"raw_heading_deg"`
	FilteredHeading   float64           `json:"filtered_heading_deg"`
	CalibratedHeading float64           `json:"calibrated_heading_deg"`
	HasBearing        bool              `json:"has_bearing"`
	Bearing           float64           `json:"bearing_deg"`
	HasPosition       bool              `json:"has_position"`
	Latitude          float64           `json:"lat"`
	Longitude         float64           `json:"lon"`
	Steps             int               `json:"steps"`
	HistoryLen        int               `json:"history_len"`
	HistoryCap        int               `json:"history_cap"`
	DistanceMeters    float64           `json:"distance_m"`
	SkippedSamples    int               `json:"skipped_orientation_samples"`
	CalibrationStdDev float64           `json:"calibration_stddev_deg"`
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:             e.calib.State(),
		CorrectionFactor:  e.calib.CorrectionFactor(),
		HasHeading:        e.hasHeading,
		RawHeading:        e.reading.Raw,
		FilteredHeading:   e.reading.Filtered,
		CalibratedHeading: e.calib.Correct(e.reading.Filtered),
		HasBearing:        e.hasBearing,
		Bearing:           e.bearing,
		HasPosition:       e.hasFix,
		Latitude:          e.position.Lat(),
		Longitude:         e.position.Lon(),
		Steps:             e.detector.Count(),
		HistoryLen:        e.calib.HistoryLen(),
		HistoryCap:        e.calib.HistoryCap(),
		DistanceMeters:    e.walkedM,
		SkippedSamples:    e.degenerate,
		CalibrationStdDev: e.calib.Last().StdDev,
	}
}
