// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package events defines the navigation event payloads and a synchronous,
// typed publish/subscribe dispatcher.
package events

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// Type tags an event.
type Type string

const (
	Location          Type = "location"
	CalibratedHeading Type = "calibrated_heading"
	Heading           Type = "heading"
	Bearing           Type = "gps_bearing"
	Step              Type = "step"
	Calibration       Type = "calibration"
)

// AllTypes lists every tag, in the order used for topics and UIs.
var AllTypes = []Type{Location, CalibratedHeading, Heading, Bearing, Step, Calibration}

// ParseType maps a tag name back to its Type.
func ParseType(s string) (Type, error) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Event is implemented by every payload.
type Event interface {
	Type() Type
}

// Origin says where a location update came from.
type Origin string

const (
	OriginGPS           Origin = "gps"
	OriginDeadReckoning Origin = "dead_reckoning"
)

// LocationUpdate carries a new position estimate.
type LocationUpdate struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Origin    Origin    `json:"origin"`
}

func (LocationUpdate) Type() Type { return Location }

// Point returns the position as an orb point.
func (u LocationUpdate) Point() orb.Point { return orb.Point{u.Longitude, u.Latitude} }

// CalibratedHeadingUpdate carries the heading with the correction applied.
type CalibratedHeadingUpdate struct {
	Time       time.Time `json:"time"`
	Heading    float64   `json:"heading_deg"`
	Correction float64   `json:"correction_deg"`
}

func (CalibratedHeadingUpdate) Type() Type { return CalibratedHeading }

// HeadingUpdate carries the raw and filtered compass headings.
type HeadingUpdate struct {
	Time     time.Time `json:"time"`
	Raw      float64   `json:"raw_deg"`
	Filtered float64   `json:"filtered_deg"`
}

func (HeadingUpdate) Type() Type { return Heading }

// BearingUpdate carries a GPS bearing.
type BearingUpdate struct {
	Time    time.Time `json:"time"`
	Bearing float64   `json:"bearing_deg"`
}

func (BearingUpdate) Type() Type { return Bearing }

// StepEvent is emitted once per detected step.
type StepEvent struct {
	Time      time.Time `json:"time"`
	Count     int       `json:"count"`
	Magnitude float64   `json:"magnitude_g"`
}

func (StepEvent) Type() Type { return Step }

// CalibrationCompleted is emitted when the correction factor is frozen.
type CalibrationCompleted struct {
	Time             time.Time `json:"time"`
	CorrectionFactor float64   `json:"correction_deg"`
	StdDev           float64   `json:"stddev_deg"`
	Samples          int       `json:"samples"`
}

func (CalibrationCompleted) Type() Type { return Calibration }
