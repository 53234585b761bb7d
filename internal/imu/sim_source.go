// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"context"
	"log"
	"sync"
	"time"
)

// SimSource plays any IMURawSource in real time, one sample per Interval.
// Samples are stamped with the tick time.
type SimSource struct {
	Raw      IMURawSource
	Interval time.Duration
	Scale    Scale

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// NewSimSource plays w at its own rate.
func NewSimSource(w *Walker) *SimSource {
	return &SimSource{Raw: w, Interval: w.Interval(), Scale: w.Scale}
}

// Start begins playback. Calling Start while running restarts playback with
// the new handler.
func (s *SimSource) Start(ctx context.Context, h Handler) error {
	if err := s.Scale.Validate(); err != nil {
		return err
	}
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.stop, s.done = cancel, done
	s.mu.Unlock()

	go s.run(ctx, NewConverter(s.Scale), h, done)
	return nil
}

// Stop halts playback and waits for the loop to exit.
func (s *SimSource) Stop() {
	s.mu.Lock()
	cancel, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *SimSource) run(ctx context.Context, conv *Converter, h Handler, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			raw, err := s.Raw.NextRaw()
			if err != nil {
				log.Printf("imu: simulated sample error: %v", err)
				continue
			}
			raw.Time = now
			conv.Dispatch(raw, now, h)
		}
	}
}
