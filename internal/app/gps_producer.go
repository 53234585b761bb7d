package app

import (
	"context"
	"log"

	"github.com/relabs-tech/step_navigation/internal/bus"
	"github.com/relabs-tech/step_navigation/internal/config"
	"github.com/relabs-tech/step_navigation/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes every RMC fix as JSON to TOPIC_GPS until ctx is done.
func RunGPSProducer(ctx context.Context) error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// ---- 2) Open GPS serial port ----
	src := gps.NewSerialSource(cfg.GPSSerialPort, cfg.GPSBaudRate)
	if err := src.Start(ctx, fixPublisher(client, cfg.TopicGPS)); err != nil {
		return err
	}
	defer src.Stop()

	<-ctx.Done()
	log.Println("GPS producer shutting down")
	return nil
}

// fixPublisher returns a handler publishing each fix, retained, on topic.
func fixPublisher(p bus.Publisher, topic string) gps.Handler {
	return func(f gps.Fix) {
		if err := bus.PublishJSON(p, topic, true, f); err != nil {
			log.Printf("GPS publish error: %v", err)
			return
		}
		log.Printf("published GPS fix: %+v", f)
	}
}
