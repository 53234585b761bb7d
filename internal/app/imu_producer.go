package app

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/step_navigation/internal/bus"
	"github.com/relabs-tech/step_navigation/internal/config"
	"github.com/relabs-tech/step_navigation/internal/imu"
)

// tickLogEvery is how many samples pass between producer log lines.
const tickLogEvery = 50

// magNorm computes the magnitude of the magnetic field vector.
func magNorm(mx, my, mz int16) float64 {
	x := float64(mx)
	y := float64(my)
	z := float64(mz)
	return math.Sqrt(x*x + y*y + z*z)
}

// RunIMUProducer publishes a simulated walker as IMURaw samples on
// TOPIC_IMU every IMU_SAMPLE_INTERVAL until ctx is done.
func RunIMUProducer(ctx context.Context) error {
	log.Println("starting step-navigation simulated IMU producer")

	cfg := config.Get()
	client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")
	interval := time.Duration(cfg.IMUSampleInterval) * time.Millisecond
	return publishIMU(ctx, NewWalker(cfg), client, cfg.TopicIMU, interval)
}

// publishIMU reads src once per interval and publishes each sample, stamped
// with the tick time.
func publishIMU(ctx context.Context, src imu.IMURawSource, p bus.Publisher, topic string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			raw, err := src.NextRaw()
			if err != nil {
				log.Printf("error reading IMU: %v", err)
				continue
			}
			raw.Time = t

			if err := bus.PublishJSON(p, topic, false, raw); err != nil {
				log.Printf("MQTT publish error (%s): %v", topic, err)
				continue
			}

			n++
			if n%tickLogEvery == 0 {
				log.Printf("%s tick: accel ax=%d ay=%d az=%d | mag mx=%d my=%d mz=%d | |B|=%.1f",
					t.Format(time.RFC3339),
					raw.Ax, raw.Ay, raw.Az,
					raw.Mx, raw.My, raw.Mz,
					magNorm(raw.Mx, raw.My, raw.Mz),
				)
			}
		}
	}
}
