package reckoning

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/step_navigation/internal/anglemath"
)

func TestAdvanceEastFromOrigin(t *testing.T) {
	t.Parallel()
	s := DefaultStepper()
	require.NoError(t, s.Validate())

	p := s.Advance(orb.Point{0, 0}, 90)

	wantLon := (0.8 / 1000 / 6371) * 180 / math.Pi
	assert.InDelta(t, 0.0, p.Lat(), 1e-6)
	assert.Greater(t, p.Lon(), 0.0)
	assert.InDelta(t, wantLon, p.Lon(), 1e-15)
}

func TestDestinationCardinalBearings(t *testing.T) {
	t.Parallel()
	start := orb.Point{-74.445318, 40.468138}

	north := Destination(start, 0, 1, EarthRadiusKm)
	assert.Greater(t, north.Lat(), start.Lat())
	assert.InDelta(t, start.Lon(), north.Lon(), 1e-12)

	south := Destination(start, 180, 1, EarthRadiusKm)
	assert.Less(t, south.Lat(), start.Lat())

	west := Destination(start, 270, 1, EarthRadiusKm)
	assert.Less(t, west.Lon(), start.Lon())

	// geo.Distance uses a slightly larger radius; allow a fraction of a percent
	assert.InDelta(t, 1000.0, geo.Distance(start, north), 5.0)
}

func TestDestinationWrapsAntimeridian(t *testing.T) {
	t.Parallel()
	p := Destination(orb.Point{179.99999, 0}, 90, 10, EarthRadiusKm)
	assert.Less(t, p.Lon(), -179.9)
	assert.GreaterOrEqual(t, p.Lon(), -180.0)
}

func TestHundredStepsNorth(t *testing.T) {
	t.Parallel()
	s := DefaultStepper()
	p := orb.Point{0, 0}
	for i := 0; i < 100; i++ {
		p = s.Advance(p, 0)
	}
	wantLat := (80.0 / 1000 / 6371) * 180 / math.Pi
	assert.InDelta(t, wantLat, p.Lat(), 1e-12)
}

func TestDestinationUsesGivenRadius(t *testing.T) {
	t.Parallel()
	// along a meridian the angle travelled is d/R, whatever R is
	for _, radius := range []float64{EarthRadiusKm, 6378.137, 1000} {
		p := Destination(orb.Point{0, 0}, 0, 1, radius)
		assert.InDelta(t, anglemath.ToDegrees(1/radius), p.Lat(), 1e-12, "radius %v", radius)
	}

	s := Stepper{StepLengthMeters: 0.8, EarthRadiusKm: 3000}
	p := s.Advance(orb.Point{0, 0}, 0)
	assert.InDelta(t, anglemath.ToDegrees(0.0008/3000), p.Lat(), 1e-15)
}

func TestStepperValidate(t *testing.T) {
	t.Parallel()
	assert.Error(t, Stepper{StepLengthMeters: 0, EarthRadiusKm: 6371}.Validate())
	assert.Error(t, Stepper{StepLengthMeters: 0.8, EarthRadiusKm: 0}.Validate())
}
