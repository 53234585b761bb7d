// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/step_navigation/internal/bus"
)

// MQTTSource consumes IMURaw samples published by the producers and feeds
// them, converted with Scale, to a Handler.
type MQTTSource struct {
	client bus.Subscriber
	topic  string
	scale  Scale

	mu      sync.Mutex
	handler Handler
	conv    *Converter
	session int
}

// NewMQTTSource returns a source reading topic.
func NewMQTTSource(client bus.Subscriber, topic string, scale Scale) *MQTTSource {
	return &MQTTSource{client: client, topic: topic, scale: scale}
}

// Start subscribes and delivers samples to h until ctx is done or Stop.
func (s *MQTTSource) Start(ctx context.Context, h Handler) error {
	if err := s.scale.Validate(); err != nil {
		return err
	}
	token := s.client.Subscribe(s.topic, 0, s.onMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
	}
	s.mu.Lock()
	s.handler = h
	s.conv = NewConverter(s.scale)
	s.session++
	session := s.session
	s.mu.Unlock()
	log.Printf("imu: subscribed to MQTT topic %s", s.topic)

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

// Stop unsubscribes. Safe to call more than once.
func (s *MQTTSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *MQTTSource) stopLocked() {
	s.session++
	if s.handler == nil {
		return
	}
	s.handler = nil
	bus.Release("imu unsubscribe "+s.topic, s.client.Unsubscribe(s.topic))
}

func (s *MQTTSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw IMURaw
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("imu: sample unmarshal error: %v", err)
		return
	}

	s.mu.Lock()
	h, conv := s.handler, s.conv
	s.mu.Unlock()
	if h == nil {
		return
	}
	conv.Dispatch(raw, time.Now(), h)
}
