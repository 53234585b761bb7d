// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package heading smooths compass headings with an exponential moving
// average taken over unit vectors, so samples either side of north average
// to north instead of south.
package heading

import (
	"fmt"
	"math"

	"github.com/relabs-tech/step_navigation/internal/anglemath"
)

// DefaultAlpha is the smoothing factor used when none is configured.
const DefaultAlpha = 0.1

// Reading is the output of one filter update. Both values are compass
// headings in degrees, [0, 360), clockwise from north.
type Reading struct {
	Raw      float64 `json:"raw"`
	Filtered float64 `json:"filtered"`
}

// Filter holds the (x, y) unit-circle accumulator. It is not safe for
// concurrent use; the navigation engine owns it.
type Filter struct {
	alpha  float64
	x, y   float64
	seeded bool
}

// NewFilter returns a filter with smoothing factor alpha in (0, 1]. Alpha 1
// disables smoothing.
func NewFilter(alpha float64) (*Filter, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("heading: smoothing factor must be in (0, 1], got %v", alpha)
	}
	return &Filter{alpha: alpha}, nil
}

// Update folds a raw orientation angle (radians, sensor convention) into
// the average and returns the raw and filtered headings.
func (f *Filter) Update(angle float64) Reading {
	c, s := math.Cos(angle), math.Sin(angle)
	if !f.seeded {
		f.x, f.y = c, s
		f.seeded = true
	} else {
		f.x = f.alpha*c + (1-f.alpha)*f.x
		f.y = f.alpha*s + (1-f.alpha)*f.y
	}

	return Reading{
		Raw:      toCompass(angle),
		Filtered: toCompass(math.Atan2(f.y, f.x)),
	}
}

// toCompass maps a raw sensor angle to a compass heading in degrees.
func toCompass(angle float64) float64 {
	return anglemath.RangeHeading(anglemath.Degrees, anglemath.ToDegrees(-angle+math.Pi))
}
