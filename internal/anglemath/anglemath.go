// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package anglemath provides wraparound-safe angle arithmetic and circular
// statistics. Every function takes the angle unit explicitly.
package anglemath

import (
	"errors"
	"math"
)

// Unit selects the angle unit a function operates in.
type Unit int

const (
	Radians Unit = iota + 1
	Degrees
)

func (u Unit) String() string {
	switch u {
	case Radians:
		return "rad"
	case Degrees:
		return "deg"
	default:
		return "unknown"
	}
}

// fullTurn returns the length of one revolution in the given unit.
func (u Unit) fullTurn() float64 {
	if u == Radians {
		return 2 * math.Pi
	}
	return 360
}

var (
	// ErrInsufficientData is returned by statistics over an empty or
	// under-filled sequence.
	ErrInsufficientData = errors.New("anglemath: insufficient data")
	// ErrInvalidWeights is returned when weights do not match the angles or
	// do not sum to a positive value.
	ErrInvalidWeights = errors.New("anglemath: invalid weights")
)

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 { return deg * math.Pi / 180.0 }

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// Difference returns the signed shortest angular path from b to a, wrapped to
// (-180, 180] degrees or (-π, π] radians.
//
//	Difference(Degrees, 10, 350) == 20
//	Difference(Degrees, 350, 10) == -20
func Difference(unit Unit, a, b float64) float64 {
	turn := unit.fullTurn()
	half := turn / 2

	d := math.Mod(a-b, turn)
	if d <= -half {
		d += turn
	} else if d > half {
		d -= turn
	}
	return d
}

// RangeHeading normalizes x to [0, 360) degrees or [0, 2π) radians.
func RangeHeading(unit Unit, x float64) float64 {
	turn := unit.fullTurn()
	r := math.Mod(x, turn)
	if r < 0 {
		r += turn
	}
	// math.Mod of a tiny negative value plus a full turn can round up to turn.
	if r >= turn {
		r = 0
	}
	return r
}

// CircularMean returns the mean direction of angles, computed from the sum of
// their unit vectors. The result lies in (-180, 180] or (-π, π].
func CircularMean(unit Unit, angles []float64) (float64, error) {
	if len(angles) == 0 {
		return 0, ErrInsufficientData
	}
	var sumX, sumY float64
	for _, a := range angles {
		r := toRad(unit, a)
		sumX += math.Cos(r)
		sumY += math.Sin(r)
	}
	n := float64(len(angles))
	return fromRad(unit, math.Atan2(sumY/n, sumX/n)), nil
}

// WeightedCircularMean is CircularMean with a per-angle weight.
func WeightedCircularMean(unit Unit, angles, weights []float64) (float64, error) {
	if len(angles) == 0 {
		return 0, ErrInsufficientData
	}
	if len(weights) != len(angles) {
		return 0, ErrInvalidWeights
	}
	var sumX, sumY, sumW float64
	for i, a := range angles {
		r := toRad(unit, a)
		sumX += math.Cos(r) * weights[i]
		sumY += math.Sin(r) * weights[i]
		sumW += weights[i]
	}
	if !(sumW > 0) {
		return 0, ErrInvalidWeights
	}
	return fromRad(unit, math.Atan2(sumY/sumW, sumX/sumW)), nil
}

// CircularStdDev returns the circular mean of angles and the sample standard
// deviation of each angle's wrapped difference from that mean:
//
//	σ = sqrt( Σ Difference(θi, μ)² / (N-1) )
//
// At least two angles are required.
func CircularStdDev(unit Unit, angles []float64) (mean, std float64, err error) {
	if len(angles) < 2 {
		return 0, 0, ErrInsufficientData
	}
	mean, err = CircularMean(unit, angles)
	if err != nil {
		return 0, 0, err
	}
	var sumSq float64
	for _, a := range angles {
		d := Difference(unit, a, mean)
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(angles)-1)), nil
}

func toRad(unit Unit, a float64) float64 {
	if unit == Degrees {
		return ToRadians(a)
	}
	return a
}

func fromRad(unit Unit, r float64) float64 {
	if unit == Degrees {
		return ToDegrees(r)
	}
	return r
}
