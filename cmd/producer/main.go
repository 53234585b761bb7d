package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/step_navigation/internal/app"
	"github.com/relabs-tech/step_navigation/internal/config"
)

func main() {
	configPath := flag.String("config", "", "configuration file")
	flag.Parse()

	log.Println("starting step-navigation MQTT producer (simulated walker)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunIMUProducer(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
