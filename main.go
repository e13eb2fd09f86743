package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	if os.Getenv("UNIVOX_DEBUG") == "" {
		log = log.Level(zerolog.InfoLevel)
	}

	app := NewApp(os.Stdout, log)
	app.startup()

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("failed to start session")
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	app.Stop()
}
