package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/api"
	"github.com/travigo/corridor/pkg/dataaggregator/global"
	"github.com/travigo/corridor/pkg/poller"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("CORRIDOR_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("CORRIDOR_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "corridor",
		Description: "Reconciles scheduled, realtime and freight movements through a two station rail corridor",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			global.RegisterCLI(),
			poller.RegisterCLI(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := app.RunContext(ctx, os.Args)
	if err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Send()
	}
}
