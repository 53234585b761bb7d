package gps

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

// MQTTSource consumes fixes published as JSON by gps_producer. Off
// unsubscribes from the topic; On subscribes again.
type MQTTSource struct {
	client bus.Subscriber
	topic  string

	mu         sync.Mutex
	handler    Handler
	subscribed bool
	session    int
}

// NewMQTTSource returns a source for topic.
func NewMQTTSource(client bus.Subscriber, topic string) *MQTTSource {
	return &MQTTSource{client: client, topic: topic}
}

// Start subscribes and pushes every decoded fix to h until ctx is done.
func (s *MQTTSource) Start(ctx context.Context, h Handler) error {
	token := s.client.Subscribe(s.topic, 0, s.onMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
	}
	s.mu.Lock()
	s.handler = h
	s.subscribed = true
	s.session++
	session := s.session
	s.mu.Unlock()
	log.Printf("gps: subscribed to MQTT topic %s", s.topic)

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

// Stop unsubscribes and detaches the handler.
func (s *MQTTSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *MQTTSource) stopLocked() {
	s.offLocked()
	s.handler = nil
	s.session++
}

// On resubscribes after Off. No-op when already subscribed or not started.
func (s *MQTTSource) On() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribed || s.handler == nil {
		return
	}
	s.subscribed = true
	bus.Release("gps subscribe "+s.topic, s.client.Subscribe(s.topic, 0, s.onMessage))
}

// Off unsubscribes. No-op when already off. It does not block, so it is
// safe inside an MQTT callback.
func (s *MQTTSource) Off() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offLocked()
}

func (s *MQTTSource) offLocked() {
	if !s.subscribed {
		return
	}
	s.subscribed = false
	bus.Release("gps unsubscribe "+s.topic, s.client.Unsubscribe(s.topic))
}

func (s *MQTTSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var f Fix
	if err := json.Unmarshal(msg.Payload(), &f); err != nil {
		log.Printf("gps: fix unmarshal error: %v", err)
		return
	}
	if f.Received.IsZero() {
		f.Received = time.Now()
	}

	s.mu.Lock()
	h, on := s.handler, s.subscribed
	s.mu.Unlock()
	if h != nil && on {
		h(f)
	}
}
