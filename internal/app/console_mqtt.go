package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/step_navigation/internal/bus"
	"github.com/relabs-tech/step_navigation/internal/config"
	"github.com/relabs-tech/step_navigation/internal/events"
)

// RunConsoleMQTT prints every navigation event published under
// TOPIC_NAV_PREFIX until ctx is done.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()
	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeEvents(client, cfg.TopicNavPrefix, os.Stdout); err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

// subscribeEvents subscribes to every event topic under prefix and prints
// each decoded event to out.
func subscribeEvents(client bus.Subscriber, prefix string, out io.Writer) error {
	for _, t := range events.AllTypes {
		topic := EventTopic(prefix, t)
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			typ, err := events.ParseType(strings.TrimPrefix(msg.Topic(), prefix+"/"))
			if err != nil {
				log.Printf("console: %v", err)
				return
			}
			ev, err := decodeEvent(typ, msg.Payload())
			if err != nil {
				log.Printf("console: %v", err)
				return
			}
			fmt.Fprintln(out, describe(ev))
		})
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
		log.Printf("console: subscribed to %s", topic)
	}
	return nil
}
