package gps

import (
	"context"
	"sync"
	"time"
)

// FakeSource replays one fixed fix at a steady interval. It stands in for a
// receiver in simulations and tests.
type FakeSource struct {
	Interval time.Duration // 0 disables the ticker; use Emit
	Fix      Fix

	mu      sync.Mutex
	handler Handler
	on      bool
	stop    chan struct{}
	session int
}

// NewFakeSource returns the walking-test fixture: heading 317° at 40.468138,
// -74.445318, one fix per second.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		Interval: time.Second,
		Fix: Fix{
			Latitude:   40.468138,
			Longitude:  -74.445318,
			SpeedKnots: 2.7,
			CourseDeg:  317.0,
			Validity:   "A",
		},
	}
}

// Start attaches h and turns the source on.
func (s *FakeSource) Start(ctx context.Context, h Handler) error {
	s.mu.Lock()
	s.handler = h
	s.session++
	session := s.session
	s.mu.Unlock()
	s.On()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session == session {
			s.stopLocked()
		}
	}()
	return nil
}

// Stop turns the source off and detaches the handler.
func (s *FakeSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *FakeSource) stopLocked() {
	s.offLocked()
	s.handler = nil
	s.session++
}

// On resumes emission. No-op when already on.
func (s *FakeSource) On() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.on {
		return
	}
	s.on = true
	if s.Interval > 0 {
		s.stop = make(chan struct{})
		go s.run(s.Interval, s.stop)
	}
}

// Off pauses emission. No-op when already off.
func (s *FakeSource) Off() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offLocked()
}

func (s *FakeSource) offLocked() {
	if !s.on {
		return
	}
	s.on = false
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// IsOn reports whether the source is emitting.
func (s *FakeSource) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// Emit pushes the fix once, stamped with now, if the source is on.
func (s *FakeSource) Emit(now time.Time) bool {
	s.mu.Lock()
	h, on, fix := s.handler, s.on, s.Fix
	s.mu.Unlock()
	if !on || h == nil {
		return false
	}
	fix.Received = now
	fix.Time = now.UTC().Format("15:04:05")
	fix.Date = now.UTC().Format("02/01/06")
	h(fix)
	return true
}

func (s *FakeSource) run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case t := <-ticker.C:
			s.Emit(t)
		}
	}
}
