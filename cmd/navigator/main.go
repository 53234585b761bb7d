// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// navigator fuses step impulses, compass heading and GPS bearing into a
// dead-reckoned position, publishing every update over MQTT and a local web
// view.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/step_navigation/internal/app"
	"github.com/relabs-tech/step_navigation/internal/config"
)

var version = "dev"

func main() {
	var (
		configPath string
		opts       app.NavigatorOptions
	)

	cmd := &cobra.Command{
		Use:   "navigator",
		Short: "Pedestrian dead-reckoning service",
		Long: `navigator consumes IMU samples and GPS fixes, calibrates the compass
against the GPS bearing while walking, then dead-reckons the position one
step at a time with the GPS switched off.

Send SIGHUP to reset calibration.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.InitGlobal(configPath); err != nil {
				return err
			}
			log.Println("starting step-navigation navigator")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunNavigator(ctx, opts)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "KEY=VALUE configuration file (defaults when empty)")
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "use a simulated walker and fake GPS instead of MQTT")
	cmd.Flags().StringVar(&opts.StaticDir, "web-dir", "web", "directory with the static web UI, empty to disable")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}
