package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hbomb79/Hermes/internal"
	"github.com/hbomb79/Hermes/internal/metrics"
	"github.com/hbomb79/Hermes/pkg/logger"
)

var log = logger.Get("Bootstrap")

// main is the entry point to Hermes: configuration is loaded from the
// file given by -config (and the environment), logging is configured and
// then Hermes runs until it receives SIGINT or SIGTERM.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	config, err := internal.LoadConfig(configPath)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger.SetMinLoggingLevel(logger.ParseStatus(config.Logging.Level).Level())
	if config.Logging.File != "" {
		closeSink := logger.EnableFileSink(config.Logging.FileSink())
		defer closeSink()
	}

	metrics.Init()

	hermes, err := internal.New(config)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to initialise Hermes: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := hermes.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Hermes stopped unexpectedly: %v\n", err)
		return 1
	}

	log.Emit(logger.STOP, "Hermes shutdown complete\n")
	return 0
}
