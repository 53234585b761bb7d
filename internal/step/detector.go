// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package step detects footfalls as acceleration-magnitude impulses.
//
// The raw magnitude is used as is: there is no smoothing and no orientation
// compensation, so non-gait vibration above the threshold is only filtered
// by the refractory window.
package step

import (
	"fmt"
	"math"
	"time"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

// Config tunes the detector.
type Config struct {
	ThresholdG float64       // magnitude in g that must be exceeded
	Refractory time.Duration // minimum time between two steps
	Gravity    float64       // m/s² used to normalize the magnitude
}

// DefaultConfig returns the values used on the walking prototype.
func DefaultConfig() Config {
	return Config{
		ThresholdG: 1.3,
		Refractory: 100 * time.Millisecond,
		Gravity:    StandardGravity,
	}
}

// Sample is one accelerometer reading in m/s².
type Sample struct {
	Time    time.Time
	X, Y, Z float64
}

// Event describes a detected step.
type Event struct {
	Time      time.Time `json:"time"`
	Magnitude float64   `json:"magnitude_g"`
	Count     int       `json:"count"`
}

// Detector is a threshold-and-debounce impulse detector. It is not safe for
// concurrent use.
type Detector struct {
	cfg       Config
	lastFired time.Time
	fired     bool
	count     int
}

// NewDetector validates cfg and returns a detector.
func NewDetector(cfg Config) (*Detector, error) {
	if !(cfg.ThresholdG > 0) {
		return nil, fmt.Errorf("step: threshold must be positive, got %v", cfg.ThresholdG)
	}
	if cfg.Refractory < 0 {
		return nil, fmt.Errorf("step: refractory window must not be negative, got %v", cfg.Refractory)
	}
	if !(cfg.Gravity > 0) {
		return nil, fmt.Errorf("step: gravity must be positive, got %v", cfg.Gravity)
	}
	return &Detector{cfg: cfg}, nil
}

// Magnitude returns |a| / g for a sample.
func (d *Detector) Magnitude(s Sample) float64 {
	return math.Sqrt(s.X*s.X+s.Y*s.Y+s.Z*s.Z) / d.cfg.Gravity
}

// Process feeds one sample and reports whether it fired a step.
func (d *Detector) Process(s Sample) (Event, bool) {
	mag := d.Magnitude(s)
	if !(mag > d.cfg.ThresholdG) {
		return Event{}, false
	}
	if d.fired && s.Time.Sub(d.lastFired) <= d.cfg.Refractory {
		return Event{}, false
	}

	d.lastFired = s.Time
	d.fired = true
	d.count++
	return Event{Time: s.Time, Magnitude: mag, Count: d.count}, true
}

// Count returns the number of steps fired since creation.
func (d *Detector) Count() int { return d.count }
