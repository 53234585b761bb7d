// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package navigation

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/step_navigation/internal/calibration"
	"github.com/relabs-tech/step_navigation/internal/events"
	"github.com/relabs-tech/step_navigation/internal/gps"
	"github.com/relabs-tech/step_navigation/internal/imu"
)

// MotionSource pushes accelerometer and orientation samples.
type MotionSource interface {
	Start(ctx context.Context, h imu.Handler) error
	Stop()
}

// LocationSource pushes GPS fixes and can be suspended while running.
type LocationSource interface {
	Start(ctx context.Context, h gps.Handler) error
	Stop()
	On()
	Off()
}

// Service runs an Engine between Resume and Pause.
type Service struct {
	engine     *Engine
	dispatcher *events.Dispatcher
	motion     MotionSource
	location   LocationSource

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewService builds the engine and wires the location source as its switch.
func NewService(cfg Config, motion MotionSource, location LocationSource) (*Service, error) {
	if motion == nil || location == nil {
		return nil, fmt.Errorf("navigation: motion and location sources are required")
	}
	d := events.NewDispatcher()
	engine, err := NewEngine(cfg, d, location)
	if err != nil {
		return nil, err
	}
	return &Service{engine: engine, dispatcher: d, motion: motion, location: location}, nil
}

// Engine returns the underlying engine.
func (s *Service) Engine() *Engine { return s.engine }

// Register subscribes sub to events of type t.
func (s *Service) Register(t events.Type, sub *events.Subscriber) {
	s.dispatcher.Register(t, sub)
}

// Unregister removes sub from every type.
func (s *Service) Unregister(sub *events.Subscriber) {
	s.dispatcher.Unregister(sub)
}

// SetErrorReporter forwards to the dispatcher.
func (s *Service) SetErrorReporter(r events.ErrorReporter) {
	s.dispatcher.SetErrorReporter(r)
}

// ResetCalibration re-arms calibration.
func (s *Service) ResetCalibration() { s.engine.ResetCalibration() }

// Running reports whether the sources are started.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Resume starts both sources. It is a no-op when already running. A
// calibrated engine keeps the location feed suspended.
func (s *Service) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := s.location.Start(ctx, s.engine.HandleFix); err != nil {
		cancel()
		return fmt.Errorf("start location source: %w", err)
	}
	if s.engine.CalibrationState() == calibration.Calibrated {
		s.location.Off()
	}
	if err := s.motion.Start(ctx, s.engine); err != nil {
		s.location.Stop()
		cancel()
		return fmt.Errorf("start motion source: %w", err)
	}

	s.running = true
	s.cancel = cancel
	log.Println("navigation: service resumed")
	return nil
}

// Pause stops both sources. It is a no-op when not running. Engine state is
// kept for the next Resume.
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.motion.Stop()
	s.location.Stop()
	s.cancel()
	s.running = false
	s.cancel = nil
	log.Println("navigation: service paused")
}
