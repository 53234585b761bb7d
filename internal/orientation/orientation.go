// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"math"
)

// minHorizontalNorm is the smallest |magnetic × gravity| accepted. Below it
// the device is in free fall or the field is nearly vertical.
const minHorizontalNorm = 0.1

// ErrDegenerate is returned when gravity and magnetic readings cannot define
// a rotation.
var ErrDegenerate = errors.New("orientation: degenerate gravity/magnetic readings")

// Vec3 is a 3-axis sensor reading in device coordinates.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

func (v Vec3) scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// RemapUpright swaps the device axes for a phone held upright in front of
// the walker (screen facing the user): y takes z and z takes -y.
func RemapUpright(v Vec3) Vec3 {
	return Vec3{X: v.X, Y: v.Z, Z: -v.Y}
}

// Rotation is the world-from-device rotation matrix. Rows are east, north
// and up expressed in device coordinates.
type Rotation struct {
	East, North, Up Vec3
}

// NewRotation builds the rotation from a gravity vector (pointing up when the
// device rests) and the geomagnetic field vector. Units only need to be
// consistent across samples.
func NewRotation(gravity, magnetic Vec3) (Rotation, error) {
	h := magnetic.cross(gravity)
	normH := h.Norm()
	if math.IsNaN(normH) || normH < minHorizontalNorm {
		return Rotation{}, ErrDegenerate
	}
	normA := gravity.Norm()
	if normA == 0 || math.IsNaN(normA) {
		return Rotation{}, ErrDegenerate
	}

	h = h.scale(1 / normH)
	a := gravity.scale(1 / normA)
	m := a.cross(h)

	return Rotation{East: h, North: m, Up: a}, nil
}

// Azimuth is the compass heading of the device y axis in radians,
// clockwise from magnetic north, in (-π, π].
func (r Rotation) Azimuth() float64 {
	return math.Atan2(r.East.Y, r.North.Y)
}

// RawAngle is the yaw reported in the raw sensor convention: counterclockwise
// and measured from magnetic south. The compass heading is π - RawAngle.
func (r Rotation) RawAngle() float64 {
	return math.Atan2(r.East.Y, -r.North.Y)
}

// RawAngle computes the raw yaw directly from a gravity/magnetic pair.
func RawAngle(gravity, magnetic Vec3) (float64, error) {
	r, err := NewRotation(gravity, magnetic)
	if err != nil {
		return 0, err
	}
	return r.RawAngle(), nil
}
