// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/step_navigation/internal/orientation"
	"github.com/relabs-tech/step_navigation/internal/step"
)

// OrientationSample pairs a gravity and a magnetic reading taken together.
type OrientationSample struct {
	Time     time.Time
	Gravity  orientation.Vec3 // m/s²
	Magnetic orientation.Vec3 // µT
}

// Handler receives the motion stream. Implementations must not block.
type Handler interface {
	HandleAcceleration(step.Sample)
	HandleOrientation(OrientationSample)
}

// DefaultGravityAlpha weighs each new sample in the gravity estimate. At
// 50 Hz it settles in about a quarter of a second.
const DefaultGravityAlpha = 0.2

// Scale converts raw counts to physical units.
type Scale struct {
	AccelLSBPerG        float64 // counts per g, 16384 at ±2g
	MagLSBPerMicroTesla float64 // counts per µT, producers store µT×10
	Gravity             float64 // m/s² per g
	GravityAlpha        float64 // low-pass weight, 1 uses the raw accelerometer
	Upright             bool    // remap axes for a phone held upright
}

// DefaultScale matches an MPU9250 at ±2g with the producer's mag encoding.
func DefaultScale() Scale {
	return Scale{
		AccelLSBPerG:        16384,
		MagLSBPerMicroTesla: 10,
		Gravity:             step.StandardGravity,
		GravityAlpha:        DefaultGravityAlpha,
	}
}

// Validate checks the conversion factors.
func (s Scale) Validate() error {
	if !(s.AccelLSBPerG > 0) || !(s.MagLSBPerMicroTesla > 0) || !(s.Gravity > 0) {
		return fmt.Errorf("imu: scale factors must be positive: %+v", s)
	}
	if !(s.GravityAlpha > 0 && s.GravityAlpha <= 1) {
		return fmt.Errorf("imu: gravity alpha must be in (0, 1], got %v", s.GravityAlpha)
	}
	return nil
}

// Accel returns the acceleration in m/s², in the orientation frame.
func (s Scale) Accel(r IMURaw) orientation.Vec3 {
	k := s.Gravity / s.AccelLSBPerG
	return s.frame(orientation.Vec3{X: float64(r.Ax) * k, Y: float64(r.Ay) * k, Z: float64(r.Az) * k})
}

// Magnetic returns the field in µT, in the orientation frame.
func (s Scale) Magnetic(r IMURaw) orientation.Vec3 {
	k := 1 / s.MagLSBPerMicroTesla
	return s.frame(orientation.Vec3{X: float64(r.Mx) * k, Y: float64(r.My) * k, Z: float64(r.Mz) * k})
}

func (s Scale) frame(v orientation.Vec3) orientation.Vec3 {
	if s.Upright {
		return orientation.RemapUpright(v)
	}
	return v
}

// Converter feeds one raw stream to a Handler. Step detection gets the raw
// acceleration; orientation gets a low-pass gravity estimate so stride
// impulses do not tilt the computed heading.
type Converter struct {
	scale Scale

	mu      sync.Mutex
	gravity orientation.Vec3
	seeded  bool
}

// NewConverter returns a converter for s. The first sample seeds the
// gravity estimate.
func NewConverter(s Scale) *Converter {
	return &Converter{scale: s}
}

// Dispatch converts r and pushes it to h: always an acceleration sample,
// and an orientation sample when the magnetometer reported a field.
func (c *Converter) Dispatch(r IMURaw, at time.Time, h Handler) {
	if !r.Time.IsZero() {
		at = r.Time
	}
	a := c.scale.Accel(r)
	g := c.lowPass(a)
	h.HandleAcceleration(step.Sample{Time: at, X: a.X, Y: a.Y, Z: a.Z})

	// all-zero mag means the magnetometer was not ready
	if r.Mx == 0 && r.My == 0 && r.Mz == 0 {
		return
	}
	h.HandleOrientation(OrientationSample{Time: at, Gravity: g, Magnetic: c.scale.Magnetic(r)})
}

func (c *Converter) lowPass(a orientation.Vec3) orientation.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seeded {
		c.gravity = a
		c.seeded = true
		return a
	}
	k := c.scale.GravityAlpha
	c.gravity = orientation.Vec3{
		X: k*a.X + (1-k)*c.gravity.X,
		Y: k*a.Y + (1-k)*c.gravity.Y,
		Z: k*a.Z + (1-k)*c.gravity.Z,
	}
	return c.gravity
}
