// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration learns the offset between the compass heading and the
// GPS bearing while the walker moves, and freezes it once the offset is
// stable.
package calibration

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/step_navigation/internal/anglemath"
)

// ErrInsufficientData is returned by Attempt until the history is full.
var ErrInsufficientData = errors.New("calibration: history not full")

// State of the calibration state machine.
type State int

const (
	Uncalibrated State = iota
	Calibrated
)

func (s State) String() string {
	switch s {
	case Uncalibrated:
		return "uncalibrated"
	case Calibrated:
		return "calibrated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText lets State appear as a string in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config tunes the engine.
type Config struct {
	HistoryCount int     // samples required before an attempt (N)
	ThresholdDeg float64 // maximum σ in degrees accepted as stable
}

// DefaultConfig returns the prototype values.
func DefaultConfig() Config {
	return Config{HistoryCount: 10, ThresholdDeg: 10}
}

// Result describes one calibration attempt.
type Result struct {
	Mean       float64 `json:"mean_deg"`
	StdDev     float64 `json:"stddev_deg"`
	Samples    int     `json:"samples"`
	Calibrated bool    `json:"calibrated"`
}

// Engine is the Uncalibrated -> Calibrated state machine. It is not safe for
// concurrent use; the navigation engine serializes access.
type Engine struct {
	cfg        Config
	history    *History
	state      State
	correction float64
	last       Result
}

// NewEngine validates cfg and returns an uncalibrated engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.HistoryCount < 2 {
		return nil, fmt.Errorf("calibration: history count must be at least 2, got %d", cfg.HistoryCount)
	}
	if !(cfg.ThresholdDeg >= 0) {
		return nil, fmt.Errorf("calibration: threshold must not be negative, got %v", cfg.ThresholdDeg)
	}
	return &Engine{cfg: cfg, history: NewHistory(cfg.HistoryCount)}, nil
}

// AddSample records the wrapped difference bearing - heading (degrees).
func (e *Engine) AddSample(bearing, heading float64) float64 {
	diff := anglemath.Difference(anglemath.Degrees, bearing, heading)
	e.history.Push(diff)
	return diff
}

// Attempt tries to freeze the correction factor. It fails with
// ErrInsufficientData until the history is full; a full history whose
// spread exceeds the threshold returns a Result with Calibrated false and
// leaves the engine uncalibrated. Once calibrated the frozen result is
// returned unchanged.
func (e *Engine) Attempt() (Result, error) {
	if e.state == Calibrated {
		return e.last, nil
	}
	if !e.history.Full() {
		return Result{Samples: e.history.Len()}, ErrInsufficientData
	}

	values := e.history.Values()
	mean, std, err := anglemath.CircularStdDev(anglemath.Degrees, values)
	if err != nil {
		return Result{}, fmt.Errorf("calibration: %w", err)
	}

	res := Result{Mean: mean, StdDev: std, Samples: len(values)}
	if std <= e.cfg.ThresholdDeg {
		res.Calibrated = true
		e.state = Calibrated
		e.correction = mean
	}
	e.last = res
	return res, nil
}

// Correct applies the correction factor to a filtered heading. While
// uncalibrated the factor is 0 and the heading passes through.
func (e *Engine) Correct(filtered float64) float64 {
	return anglemath.RangeHeading(anglemath.Degrees, filtered+e.CorrectionFactor())
}

// CorrectionFactor returns the frozen offset in degrees, or 0 while
// uncalibrated.
func (e *Engine) CorrectionFactor() float64 {
	if e.state != Calibrated {
		return 0
	}
	return e.correction
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// HistoryLen returns how many differences are stored.
func (e *Engine) HistoryLen() int { return e.history.Len() }

// HistoryCap returns the history capacity.
func (e *Engine) HistoryCap() int { return e.history.Cap() }

// Last returns the most recent attempt on a full history.
func (e *Engine) Last() Result { return e.last }

// Reset clears the history and re-arms the state machine.
func (e *Engine) Reset() {
	e.history.Clear()
	e.state = Uncalibrated
	e.correction = 0
	e.last = Result{}
}
