package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/probata/caseflow/pkg/cmd"
	"github.com/probata/caseflow/pkg/log"
	"github.com/probata/caseflow/pkg/otelhelper"
	"github.com/probata/caseflow/pkg/signals"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort          = 9091
	defaultSignalTimeout = 5 * time.Second
)

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start api",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for cross-instance case locking (in-process locking when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "signals-path",
				Usage:   "Path to a JSON signal fixture file used in place of live integrations",
				Sources: cli.EnvVars("SIGNALS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			port := command.Int("port")
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.Info("Initializing Caseflow API")

			tracerProvider, err := otelhelper.InitTracer(ctx, "caseflow-api")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return fmt.Errorf("failed to create persistence: %w", err)
			}
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			locker, err := cmd.NewLocker(command.String("redis-url"))
			if err != nil {
				return fmt.Errorf("failed to create case locker: %w", err)
			}

			source, err := signals.NewConfigSource(command.String("signals-path"))
			if err != nil {
				return fmt.Errorf("failed to load signal fixtures: %w", err)
			}

			fetcher := signals.NewFetcher(source, source, source, source, defaultSignalTimeout, logger)

			api := NewAPI(
				logger,
				persistence,
				fetcher,
				eventBus,
				locker,
			)

			if err := api.Start(port); err != nil {
				logger.Error("Failed to start API server", "error", err)
			}

			return nil
		},
	}
}
