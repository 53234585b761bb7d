package navigation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/step_navigation/internal/calibration"
	"github.com/relabs-tech/step_navigation/internal/events"
	"github.com/relabs-tech/step_navigation/internal/gps"
	"github.com/relabs-tech/step_navigation/internal/imu"
)

type fakeMotion struct {
	mu      sync.Mutex
	handler imu.Handler
	starts  int
	stops   int
	err     error
}

func (m *fakeMotion) Start(_ context.Context, h imu.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.handler = h
	m.starts++
	return nil
}

func (m *fakeMotion) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = nil
	m.stops++
}

func (m *fakeMotion) h() imu.Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler
}

func newTestService(t *testing.T) (*Service, *fakeMotion, *gps.FakeSource) {
	t.Helper()
	motion := &fakeMotion{}
	location := gps.NewFakeSource()
	location.Interval = 0
	s, err := NewService(testConfig(), motion, location)
	require.NoError(t, err)
	return s, motion, location
}

func TestServiceResumePauseIdempotent(t *testing.T) {
	t.Parallel()
	s, motion, location := newTestService(t)

	s.Pause() // before Resume
	require.NoError(t, s.Resume(context.Background()))
	require.NoError(t, s.Resume(context.Background()))
	assert.True(t, s.Running())
	assert.Equal(t, 1, motion.starts)
	assert.True(t, location.IsOn())

	s.Pause()
	s.Pause()
	assert.False(t, s.Running())
	assert.Equal(t, 1, motion.stops)
	assert.False(t, location.IsOn())
}

func TestServiceEndToEnd(t *testing.T) {
	t.Parallel()
	s, motion, location := newTestService(t)

	var mu sync.Mutex
	var got []events.Type
	sub := events.NewSubscriber("all", func(ev events.Event) error {
		mu.Lock()
		got = append(got, ev.Type())
		mu.Unlock()
		return nil
	})
	s.Register(events.Calibration, sub)
	s.Register(events.Location, sub)

	require.NoError(t, s.Resume(context.Background()))
	defer s.Pause()

	h := motion.h()
	require.NotNil(t, h)
	h.HandleOrientation(flat(t0, 300))
	require.True(t, location.Emit(t0))
	for i := 1; i <= 3; i++ {
		h.HandleAcceleration(stride(t0.Add(time.Duration(i) * 200 * time.Millisecond)))
	}

	assert.Equal(t, calibration.Calibrated, s.Engine().CalibrationState())
	assert.False(t, location.IsOn(), "location suspended after calibration")
	assert.False(t, location.Emit(t0))
	assert.Equal(t, []events.Type{events.Location, events.Calibration, events.Location}, got)

	s.Unregister(sub)
	s.ResetCalibration()
	assert.True(t, location.IsOn(), "reset re-arms the location feed")
	h.HandleAcceleration(stride(t0.Add(2 * time.Second)))
	assert.Len(t, got, 3)
}

func TestServiceKeepsLocationOffWhenResumedCalibrated(t *testing.T) {
	t.Parallel()
	s, motion, location := newTestService(t)
	require.NoError(t, s.Resume(context.Background()))

	h := motion.h()
	h.HandleOrientation(flat(t0, 300))
	location.Emit(t0)
	for i := 1; i <= 3; i++ {
		h.HandleAcceleration(stride(t0.Add(time.Duration(i) * 200 * time.Millisecond)))
	}
	s.Pause()

	require.NoError(t, s.Resume(context.Background()))
	defer s.Pause()
	assert.False(t, location.IsOn())
	assert.Equal(t, 2, motion.starts)
}

func TestServiceMotionStartFailure(t *testing.T) {
	t.Parallel()
	s, motion, location := newTestService(t)
	motion.err = errors.New("no sensor")

	err := s.Resume(context.Background())
	assert.ErrorContains(t, err, "no sensor")
	assert.False(t, s.Running())
	assert.False(t, location.IsOn())
}

func TestNewServiceRequiresSources(t *testing.T) {
	_, err := NewService(DefaultConfig(), nil, gps.NewFakeSource())
	assert.Error(t, err)
}
