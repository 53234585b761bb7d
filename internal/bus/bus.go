// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus holds the MQTT plumbing shared by producers, sources and
// sinks: connecting, JSON publishing and the narrow client interfaces used
// so tests can substitute fakes.
package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publishTimeout bounds how long PublishJSON waits for the broker.
const publishTimeout = 2 * time.Second

// Publisher is the part of mqtt.Client used to publish.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Subscriber is the part of mqtt.Client used to consume topics.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Connect opens a client to broker. Message handlers run concurrently
// (order does not matter), so handlers may subscribe or unsubscribe.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetOrderMatters(false).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("bus: %s connected to MQTT broker at %s", clientID, broker)
	return client, nil
}

// PublishJSON marshals v and publishes it, waiting for the broker.
func PublishJSON(p Publisher, topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	token := p.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Release waits for token in the background and logs a failure. It is used
// where blocking would stall an MQTT callback.
func Release(what string, token mqtt.Token) {
	go func() {
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			log.Printf("bus: %s: %v", what, token.Error())
		}
	}()
}
