// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/step_navigation/internal/bus"
	"github.com/relabs-tech/step_navigation/internal/events"
)

// EventTopic returns the topic an event type is published on.
func EventTopic(prefix string, t events.Type) string {
	return prefix + "/" + string(t)
}

// MQTTSink publishes every navigation event as JSON on its own topic.
// Publishing does not wait for the broker, so a slow broker never stalls
// the engine.
type MQTTSink struct {
	client bus.Publisher
	prefix string
}

// NewMQTTSink returns a sink publishing under prefix.
func NewMQTTSink(client bus.Publisher, prefix string) *MQTTSink {
	return &MQTTSink{client: client, prefix: prefix}
}

// Handle publishes ev. Location and calibration state are retained so late
// subscribers see the latest value.
func (s *MQTTSink) Handle(ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type(), err)
	}
	topic := EventTopic(s.prefix, ev.Type())
	retained := ev.Type() == events.Location || ev.Type() == events.Calibration
	bus.Release("publish "+topic, s.client.Publish(topic, 0, retained, payload))
	return nil
}

// Subscriber wraps Handle for registration on every event type.
func (s *MQTTSink) Subscriber() *events.Subscriber {
	return events.NewSubscriber("mqtt-sink", s.Handle)
}

// Resetter re-arms calibration.
type Resetter interface {
	ResetCalibration()
}

// ListenReset resets calibration whenever a message arrives on topic.
func ListenReset(client bus.Subscriber, topic string, r Resetter) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		log.Printf("control: calibration reset requested on %s", msg.Topic())
		r.ResetCalibration()
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("control: listening for calibration resets on %s", topic)
	return nil
}
