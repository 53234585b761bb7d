package anglemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifference(t *testing.T) {
	t.Parallel()

	t.Run("degrees shortest signed path", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 20.0, Difference(Degrees, 10, 350), 1e-9)
		assert.InDelta(t, -20.0, Difference(Degrees, 350, 10), 1e-9)
		assert.InDelta(t, 0.0, Difference(Degrees, 725, 5), 1e-9)
		assert.InDelta(t, -90.0, Difference(Degrees, 0, 90), 1e-9)
	})

	t.Run("half turn maps to positive end", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 180.0, Difference(Degrees, 0, 180), 1e-9)
		assert.InDelta(t, 180.0, Difference(Degrees, 180, 0), 1e-9)
		assert.InDelta(t, math.Pi, Difference(Radians, 0, math.Pi), 1e-12)
	})

	t.Run("radians", func(t *testing.T) {
		t.Parallel()
		got := Difference(Radians, ToRadians(10), ToRadians(350))
		assert.InDelta(t, ToRadians(20), got, 1e-12)
	})
}

func TestRangeHeading(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{-10, 350},
		{725, 5},
		{-725, 355},
		{359.5, 359.5},
	}
	for _, c := range cases {
		got := RangeHeading(Degrees, c.in)
		assert.InDelta(t, c.want, got, 1e-9, "RangeHeading(%v)", c.in)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, 360.0)
	}

	r := RangeHeading(Radians, -math.Pi/2)
	assert.InDelta(t, 3*math.Pi/2, r, 1e-12)
	assert.Less(t, RangeHeading(Degrees, -1e-15), 360.0)
}

func TestCircularMean(t *testing.T) {
	t.Parallel()

	t.Run("across the north boundary", func(t *testing.T) {
		t.Parallel()
		m, err := CircularMean(Degrees, []float64{350, 10})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, m, 1e-9)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		t.Parallel()
		in := []float64{90, 100}
		_, err := CircularMean(Degrees, in)
		require.NoError(t, err)
		assert.Equal(t, []float64{90, 100}, in)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		_, err := CircularMean(Degrees, nil)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("weighted", func(t *testing.T) {
		t.Parallel()
		m, err := WeightedCircularMean(Degrees, []float64{0, 90}, []float64{1, 1})
		require.NoError(t, err)
		assert.InDelta(t, 45.0, m, 1e-9)

		m, err = WeightedCircularMean(Degrees, []float64{0, 90}, []float64{1, 0})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, m, 1e-9)
	})

	t.Run("bad weights", func(t *testing.T) {
		t.Parallel()
		_, err := WeightedCircularMean(Degrees, []float64{0, 90}, []float64{1})
		assert.ErrorIs(t, err, ErrInvalidWeights)
		_, err = WeightedCircularMean(Degrees, []float64{0, 90}, []float64{0, 0})
		assert.ErrorIs(t, err, ErrInvalidWeights)
		_, err = WeightedCircularMean(Degrees, nil, nil)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestCircularStdDev(t *testing.T) {
	t.Parallel()

	t.Run("identical values", func(t *testing.T) {
		t.Parallel()
		angles := []float64{15, 15, 15, 15}
		mean, std, err := CircularStdDev(Degrees, angles)
		require.NoError(t, err)
		assert.InDelta(t, 15.0, mean, 1e-9)
		assert.InDelta(t, 0.0, std, 1e-9)
	})

	t.Run("wraps around north", func(t *testing.T) {
		t.Parallel()
		mean, std, err := CircularStdDev(Degrees, []float64{358, 2, 358, 2})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, Difference(Degrees, mean, 0), 1e-9)
		// four deviations of 2 deg: sqrt(16/3)
		assert.InDelta(t, math.Sqrt(16.0/3.0), std, 1e-9)
	})

	t.Run("needs two samples", func(t *testing.T) {
		t.Parallel()
		_, _, err := CircularStdDev(Degrees, []float64{1})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestUnitString(t *testing.T) {
	assert.Equal(t, "deg", Degrees.String())
	assert.Equal(t, "rad", Radians.String())
	assert.Equal(t, "unknown", Unit(0).String())
}
