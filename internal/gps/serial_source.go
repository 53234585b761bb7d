// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialSource reads NMEA from a GPS receiver on a serial port. While off
// the port is closed, which lets the receiver idle.
type SerialSource struct {
	opts serial.OpenOptions
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu      sync.Mutex
	handler Handler
	port    io.ReadWriteCloser
	started bool
	session int
}

// NewSerialSource prepares a source for portName at baud. Nothing is opened
// until Start.
func NewSerialSource(portName string, baud int) *SerialSource {
	return &SerialSource{
		opts: serial.OpenOptions{
			PortName:              portName,
			BaudRate:              uint(baud),
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		},
		open: serial.Open,
	}
}

// Start opens the port and begins pushing fixes to h. The source is stopped
// when ctx is cancelled.
func (s *SerialSource) Start(ctx context.Context, h Handler) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if err := s.openLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.handler = h
	s.started = true
	s.session++
	session := s.session
	s.mu.Unlock()

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

// Stop closes the port and detaches the handler.
func (s *SerialSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *SerialSource) stopLocked() {
	s.closeLocked()
	s.started = false
	s.handler = nil
	s.session++
}

// On reopens the port after Off. It is a no-op when already on or not
// started.
func (s *SerialSource) On() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.port != nil {
		return
	}
	if err := s.openLocked(); err != nil {
		log.Printf("gps: %v", err)
	}
}

// Off closes the port. It is a no-op when already off. Off does not wait
// for the reader, so it may be called from inside the handler.
func (s *SerialSource) Off() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// IsOn reports whether the port is open.
func (s *SerialSource) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *SerialSource) openLocked() error {
	port, err := s.open(s.opts)
	if err != nil {
		return fmt.Errorf("open GPS serial port %s: %w", s.opts.PortName, err)
	}
	s.port = port
	log.Printf("gps: serial port opened on %s at %d baud", s.opts.PortName, s.opts.BaudRate)
	go s.readLoop(port)
	return nil
}

func (s *SerialSource) closeLocked() {
	if s.port == nil {
		return
	}
	if err := s.port.Close(); err != nil {
		log.Printf("gps: close %s: %v", s.opts.PortName, err)
	}
	s.port = nil
	log.Printf("gps: serial port %s closed", s.opts.PortName)
}

// current returns the handler if port is still the active port.
func (s *SerialSource) current(port io.ReadWriteCloser) (Handler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != port || s.handler == nil {
		return nil, false
	}
	return s.handler, true
}

func (s *SerialSource) readLoop(port io.ReadWriteCloser) {
	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if _, active := s.current(port); active && !errors.Is(err, io.EOF) {
				log.Printf("gps: read error: %v", err)
			}
			return
		}

		fix, err := ParseSentence(line, time.Now())
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}

		h, active := s.current(port)
		if !active {
			return
		}
		h(fix)
	}
}
