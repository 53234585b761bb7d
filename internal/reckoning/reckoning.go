// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package reckoning advances a position along a great circle, one step at a
// time.
package reckoning

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/relabs-tech/step_navigation/internal/anglemath"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// Destination returns the point reached from `from` after travelling
// distanceKm along the initial bearing (degrees, clockwise from north) on a
// sphere of radius radiusKm. Points are orb lon/lat in degrees.
//
//	lat2 = asin(sin(lat1)·cos(d/R) + cos(lat1)·sin(d/R)·cos(brng))
//	lon2 = lon1 + atan2(sin(brng)·sin(d/R)·cos(lat1), cos(d/R) − sin(lat1)·sin(lat2))
func Destination(from orb.Point, bearingDeg, distanceKm, radiusKm float64) orb.Point {
	lat1 := anglemath.ToRadians(from.Lat())
	lon1 := anglemath.ToRadians(from.Lon())
	brng := anglemath.ToRadians(bearingDeg)
	delta := distanceKm / radiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) +
		math.Cos(lat1)*math.Sin(delta)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	lon := anglemath.ToDegrees(lon2)
	if lon < -180 || lon >= 180 {
		lon = anglemath.RangeHeading(anglemath.Degrees, lon+180) - 180
	}
	return orb.Point{lon, anglemath.ToDegrees(lat2)}
}

// Stepper advances a position by a fixed step length.
type Stepper struct {
	StepLengthMeters float64
	EarthRadiusKm    float64
}

// DefaultStepper uses a 0.8 m step on the mean Earth radius.
func DefaultStepper() Stepper {
	return Stepper{StepLengthMeters: 0.8, EarthRadiusKm: EarthRadiusKm}
}

// Validate checks that both lengths are positive.
func (s Stepper) Validate() error {
	if !(s.StepLengthMeters > 0) {
		return fmt.Errorf("reckoning: step length must be positive, got %v", s.StepLengthMeters)
	}
	if !(s.EarthRadiusKm > 0) {
		return fmt.Errorf("reckoning: earth radius must be positive, got %v", s.EarthRadiusKm)
	}
	return nil
}

// Advance moves p one step along headingDeg.
func (s Stepper) Advance(p orb.Point, headingDeg float64) orb.Point {
	return Destination(p, headingDeg, s.StepLengthMeters/1000, s.EarthRadiusKm)
}
