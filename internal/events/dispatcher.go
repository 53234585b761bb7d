// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package events

import (
	"fmt"
	"log"
	"sync"
)

// Handler receives one event. A returned error is reported and does not stop
// delivery to other subscribers.
type Handler func(Event) error

// Subscriber is a registration handle. The same subscriber may be
// registered under several types; Unregister removes it from all of them.
type Subscriber struct {
	name string
	fn   Handler
}

// NewSubscriber wraps fn in a handle. The name is used in error reports.
func NewSubscriber(name string, fn Handler) *Subscriber {
	return &Subscriber{name: name, fn: fn}
}

func (s *Subscriber) String() string { return s.name }

// ErrorReporter is told about failed deliveries.
type ErrorReporter interface {
	ReportError(sub string, ev Event, err error)
}

// Dispatcher delivers events synchronously, in registration order, to the
// subscribers registered for the event's type.
type Dispatcher struct {
	mu       sync.RWMutex
	subs     map[Type][]*Subscriber
	reporter ErrorReporter
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[Type][]*Subscriber)}
}

// SetErrorReporter installs r; nil disables reporting beyond the log.
func (d *Dispatcher) SetErrorReporter(r ErrorReporter) {
	d.mu.Lock()
	d.reporter = r
	d.mu.Unlock()
}

// Register adds sub under t. Registering the same subscriber twice under one
// type is a no-op.
func (d *Dispatcher) Register(t Type, sub *Subscriber) {
	if sub == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.subs[t] {
		if s == sub {
			return
		}
	}
	d.subs[t] = append(d.subs[t], sub)
}

// Unregister removes sub from every type.
func (d *Dispatcher) Unregister(sub *Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for t, list := range d.subs {
		kept := list[:0:0]
		for _, s := range list {
			if s != sub {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(d.subs, t)
		} else {
			d.subs[t] = kept
		}
	}
}

// Publish delivers each event in order. Handlers run on the caller's
// goroutine; a handler that errors or panics is isolated from the others.
func (d *Dispatcher) Publish(evs ...Event) {
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		d.mu.RLock()
		list := append([]*Subscriber(nil), d.subs[ev.Type()]...)
		reporter := d.reporter
		d.mu.RUnlock()

		for _, sub := range list {
			if err := deliver(sub, ev); err != nil {
				log.Printf("events: %s subscriber %q failed: %v", ev.Type(), sub.name, err)
				if reporter != nil {
					reporter.ReportError(sub.name, ev, err)
				}
			}
		}
	}
}

func deliver(sub *Subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sub.fn(ev)
}
