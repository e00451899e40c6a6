package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/common/config"
	"restaurant-foh/internal/common/logger"
	"restaurant-foh/internal/display"
	"restaurant-foh/internal/server"
	"restaurant-foh/internal/spooler"
)

func main() {
	mode := flag.String("mode", "", "api-server | print-spooler | kitchen-display")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	port := flag.Int("port", 0, "api-server: override HTTP port")
	table := flag.String("table", "", "kitchen-display: start filtered to one table")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTPPort = *port
	}
	if *table != "" {
		cfg.Display.TableFilter = *table
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var run func(context.Context, *config.Config) error
	switch *mode {
	case "api-server":
		run = server.Run
	case "print-spooler":
		run = spooler.Run
	case "kitchen-display":
		run = display.Run
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: api-server | print-spooler | kitchen-display")
		os.Exit(2)
	}

	logger.Setup(*mode, cfg.Debug, cfg.Pretty)
	log.Info().Str("mode", *mode).Msg("starting")
	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
	log.Info().Msg("stopped")
}
