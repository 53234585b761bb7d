// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/relabs-tech/step_navigation/internal/bus"
	"github.com/relabs-tech/step_navigation/internal/config"
	"github.com/relabs-tech/step_navigation/internal/events"
	"github.com/relabs-tech/step_navigation/internal/gps"
	"github.com/relabs-tech/step_navigation/internal/imu"
	"github.com/relabs-tech/step_navigation/internal/navigation"
)

// RunMockConsole runs the whole pipeline in process: the simulated walker
// is published through an in-memory broker, consumed like a real IMU
// stream, and every event except raw headings is printed. A status line
// follows every CONSOLE_LOG_INTERVAL.
func RunMockConsole(ctx context.Context) error {
	cfg := config.Get()
	return runMockConsole(ctx, cfg, os.Stdout)
}

func runMockConsole(ctx context.Context, cfg *config.Config, out io.Writer) error {
	broker := bus.NewLoopback()
	motion := imu.NewMQTTSource(broker, cfg.TopicIMU, IMUScale(cfg))
	location := gps.NewFakeSource()

	svc, err := navigation.NewService(NavigationConfig(cfg), motion, location)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	printer := events.NewSubscriber("console", func(ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintln(out, describe(ev))
		return err
	})
	for _, t := range events.AllTypes {
		if t != events.Heading {
			svc.Register(t, printer)
		}
	}

	if err := svc.Resume(ctx); err != nil {
		return err
	}
	defer svc.Pause()

	interval := time.Duration(cfg.IMUSampleInterval) * time.Millisecond
	go func() {
		if err := publishIMU(ctx, NewWalker(cfg), broker, cfg.TopicIMU, interval); err != nil {
			log.Printf("console: simulated producer: %v", err)
		}
	}()

	ticker := time.NewTicker(time.Duration(cfg.ConsoleLogInterval) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st := svc.Engine().Status()
			mu.Lock()
			fmt.Fprintf(out,
				"[STAT]  %s  heading=%6.1f°  steps=%d  history=%d/%d  walked=%.1fm\n",
				st.State, st.CalibratedHeading, st.Steps, st.HistoryLen, st.HistoryCap, st.DistanceMeters,
			)
			mu.Unlock()
		}
	}
}
