// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string    `json:"time"`        // e.g. "12:34:56"
	Date       string    `json:"date"`        // e.g. "06/12/25"
	Received   time.Time `json:"received"`    // local receive time
	Latitude   float64   `json:"lat"`         // decimal degrees
	Longitude  float64   `json:"lon"`         // decimal degrees
	SpeedKnots float64   `json:"speed_knots"` // speed over ground
	CourseDeg  float64   `json:"course_deg"`  // course over ground, used as bearing
	Validity   string    `json:"validity"`    // "A" (valid) / "V" (void), etc.
}

// Valid reports whether the receiver flagged the fix as usable.
func (f Fix) Valid() bool {
	return f.Validity == nmea.ValidRMC
}

// HasBearing reports whether CourseDeg carries a real direction of travel.
// Receivers report a course of 0 when stationary, so a bearing needs motion.
func (f Fix) HasBearing() bool {
	return f.Valid() && f.SpeedKnots > 0
}

// Handler receives fixes pushed by a location source.
type Handler func(Fix)
