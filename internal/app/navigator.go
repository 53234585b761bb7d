// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/step_navigation/internal/bus"
	"github.com/relabs-tech/step_navigation/internal/calibration"
	"github.com/relabs-tech/step_navigation/internal/config"
	"github.com/relabs-tech/step_navigation/internal/events"
	"github.com/relabs-tech/step_navigation/internal/gps"
	"github.com/relabs-tech/step_navigation/internal/imu"
	"github.com/relabs-tech/step_navigation/internal/navigation"
	"github.com/relabs-tech/step_navigation/internal/reckoning"
	"github.com/relabs-tech/step_navigation/internal/recorder"
	"github.com/relabs-tech/step_navigation/internal/step"
)

// NavigationConfig maps the configuration file onto the engine tuning.
func NavigationConfig(cfg *config.Config) navigation.Config {
	return navigation.Config{
		HeadingAlpha: cfg.HeadingAlpha,
		Step: step.Config{
			ThresholdG: cfg.StepThresholdG,
			Refractory: time.Duration(cfg.StepRefractoryMS) * time.Millisecond,
			Gravity:    cfg.GravityMS2,
		},
		Calibration: calibration.Config{
			HistoryCount: cfg.HistoryCount,
			ThresholdDeg: cfg.CalibrationThresholdDeg,
		},
		Stepper: reckoning.Stepper{
			StepLengthMeters: cfg.StepLengthM,
			EarthRadiusKm:    cfg.EarthRadiusKm,
		},
	}
}

// IMUScale maps the configuration file onto the raw sample conversion.
func IMUScale(cfg *config.Config) imu.Scale {
	return imu.Scale{
		AccelLSBPerG:        cfg.AccelLSBPerG(),
		MagLSBPerMicroTesla: cfg.IMUMagLSBPerUT,
		Gravity:             cfg.GravityMS2,
		GravityAlpha:        cfg.IMUGravityAlpha,
		Upright:             cfg.IMUUpright,
	}
}

// NewWalker returns the simulated walker described by cfg.
func NewWalker(cfg *config.Config) *imu.Walker {
	w := imu.NewWalker(time.Now(), cfg.SimHeadingDeg)
	w.Rate = 1000 / float64(cfg.IMUSampleInterval)
	w.Scale = IMUScale(cfg)
	w.Scale.Upright = false // the walker holds the device flat
	return w
}

// NavigatorOptions selects how a Navigator is wired.
type NavigatorOptions struct {
	Simulate  bool   // simulated walker and fake GPS, no broker
	WebAddr   string // defaults to :WEB_SERVER_PORT
	StaticDir string // static UI files, empty disables
}

// Navigator is the navigation service with its outputs: MQTT sink, web
// view, websocket hub and CSV recording.
type Navigator struct {
	Service *navigation.Service
	Hub     *Hub

	webAddr   string
	staticDir string
	client    mqtt.Client
	rec       *recorder.CSV
}

// NewNavigator builds a navigator from cfg. Nothing runs until Run.
func NewNavigator(cfg *config.Config, opts NavigatorOptions) (*Navigator, error) {
	n := &Navigator{webAddr: opts.WebAddr, staticDir: opts.StaticDir}
	if n.webAddr == "" {
		n.webAddr = fmt.Sprintf(":%d", cfg.WebServerPort)
	}

	var (
		motion   navigation.MotionSource
		location navigation.LocationSource
	)
	if opts.Simulate {
		log.Printf("navigator: simulated walker at compass heading %.1f° with fake GPS", cfg.SimHeadingDeg)
		motion = imu.NewSimSource(NewWalker(cfg))
		location = gps.NewFakeSource()
	} else {
		client, err := bus.Connect(cfg.MQTTBroker, cfg.MQTTClientIDNavigator)
		if err != nil {
			return nil, err
		}
		n.client = client
		motion = imu.NewMQTTSource(client, cfg.TopicIMU, IMUScale(cfg))
		location, err = newLocationSource(cfg, client)
		if err != nil {
			n.Close()
			return nil, err
		}
	}

	svc, err := navigation.NewService(NavigationConfig(cfg), motion, location)
	if err != nil {
		n.Close()
		return nil, err
	}
	n.Service = svc
	n.Hub = NewHub(svc)
	registerAll(svc, n.Hub.Subscriber())

	if n.client != nil {
		registerAll(svc, NewMQTTSink(n.client, cfg.TopicNavPrefix).Subscriber())
		if cfg.TopicNavReset != "" {
			if err := ListenReset(n.client, cfg.TopicNavReset, svc); err != nil {
				n.Close()
				return nil, err
			}
		}
	}

	if cfg.CSVPath != "" {
		rec, err := recorder.Create(cfg.CSVPath)
		if err != nil {
			n.Close()
			return nil, err
		}
		n.rec = rec
		registerAll(svc, rec.Subscriber())
		log.Printf("navigator: recording events to %s", cfg.CSVPath)
	}
	return n, nil
}

func newLocationSource(cfg *config.Config, client bus.Subscriber) (navigation.LocationSource, error) {
	switch cfg.GPSSource {
	case config.GPSSourceSerial:
		return gps.NewSerialSource(cfg.GPSSerialPort, cfg.GPSBaudRate), nil
	case config.GPSSourceMQTT:
		return gps.NewMQTTSource(client, cfg.TopicGPS), nil
	case config.GPSSourceFake:
		return gps.NewFakeSource(), nil
	default:
		return nil, fmt.Errorf("unknown GPS source %q", cfg.GPSSource)
	}
}

func registerAll(svc *navigation.Service, sub *events.Subscriber) {
	for _, t := range events.AllTypes {
		svc.Register(t, sub)
	}
}

// Run resumes the service and serves the web view until ctx is done.
// SIGHUP resets calibration.
func (n *Navigator) Run(ctx context.Context) error {
	if err := n.Service.Resume(ctx); err != nil {
		return err
	}
	defer n.Service.Pause()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	handler := NewWebHandler(n.Service.Engine(), n.Hub, n.staticDir)
	webErr := make(chan error, 1)
	go func() { webErr <- ServeWeb(ctx, n.webAddr, handler) }()

	for {
		select {
		case <-hup:
			log.Println("navigator: SIGHUP, resetting calibration")
			n.Service.ResetCalibration()
		case err := <-webErr:
			if err != nil {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		case <-ctx.Done():
			log.Println("navigator: shutting down")
			if err := <-webErr; err != nil {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		}
	}
}

// Close releases the broker connection and the recording.
func (n *Navigator) Close() error {
	var err error
	if n.rec != nil {
		err = n.rec.Close()
	}
	if n.client != nil {
		n.client.Disconnect(250)
	}
	return err
}

// RunNavigator builds and runs a navigator from the global configuration.
func RunNavigator(ctx context.Context, opts NavigatorOptions) error {
	n, err := NewNavigator(config.Get(), opts)
	if err != nil {
		return err
	}
	defer n.Close()
	return n.Run(ctx)
}
