// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"time"
)

// Walker synthesizes the IMU stream of a device lying flat in the hand of a
// person walking in a straight line. Each stride produces one vertical
// acceleration peak; the magnetometer sees a constant field rotated by the
// device heading.
type Walker struct {
	Source     string
	Start      time.Time
	Rate       float64 // samples per second
	Cadence    float64 // steps per second
	PeakG      float64 // vertical acceleration at the top of a stride
	HeadingDeg float64 // compass heading of the device y axis
	FieldUT    float64 // horizontal field strength
	VerticalUT float64 // vertical field component, negative in the northern hemisphere
	Scale      Scale

	n int
}

// NewWalker returns a 50 Hz walker at two steps per second.
func NewWalker(start time.Time, headingDeg float64) *Walker {
	return &Walker{
		Source:     "sim",
		Start:      start,
		Rate:       50,
		Cadence:    2,
		PeakG:      1.6,
		HeadingDeg: headingDeg,
		FieldUT:    20,
		VerticalUT: -40,
		Scale:      DefaultScale(),
	}
}

// Interval is the time between samples.
func (w *Walker) Interval() time.Duration {
	return time.Duration(float64(time.Second) / w.Rate)
}

// NextRaw returns the next sample. It never fails.
func (w *Walker) NextRaw() (IMURaw, error) {
	t := float64(w.n) / w.Rate
	w.n++

	pulse := math.Max(0, math.Sin(2*math.Pi*w.Cadence*t))
	zG := 1 + (w.PeakG-1)*math.Pow(pulse, 8)

	h := w.HeadingDeg * math.Pi / 180
	mx := -math.Sin(h) * w.FieldUT
	my := math.Cos(h) * w.FieldUT

	aK := w.Scale.AccelLSBPerG
	mK := w.Scale.MagLSBPerMicroTesla
	return IMURaw{
		Source: w.Source,
		Time:   w.Start.Add(time.Duration(t * float64(time.Second))),
		Az:     counts(zG * aK),
		Mx:     counts(mx * mK),
		My:     counts(my * mK),
		Mz:     counts(w.VerticalUT * mK),
	}, nil
}

func counts(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
