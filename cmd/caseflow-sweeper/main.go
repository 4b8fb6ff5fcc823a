package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/probata/caseflow/pkg/audit"
	"github.com/probata/caseflow/pkg/cmd"
	"github.com/probata/caseflow/pkg/log"
	"github.com/probata/caseflow/pkg/otelhelper"
	"github.com/probata/caseflow/pkg/services"
	"github.com/probata/caseflow/pkg/signals"
	cli "github.com/urfave/cli/v3"
)

const defaultSignalTimeout = 5 * time.Second

func main() {
	cmd := &cli.Command{
		Name:                  "caseflow-sweeper",
		Usage:                 "Periodically recalculate readiness for cases with due steps",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
				Name:    "schedule",
				Usage:   "Cron expression controlling how often the sweep runs",
				Value:   "*/15 * * * *",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("sweeper")

			logger.Info("Initializing Caseflow Sweeper")

			tracerProvider, err := otelhelper.InitTracer(ctx, "caseflow-sweeper")
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

			planService := services.NewPlan(
				persistence,
				fetcher,
				audit.NewEventSink(eventBus),
				eventBus,
				locker,
				logger,
			)

			return NewSweeper(
				planService,
				persistence,
				command.String("schedule"),
				logger,
			).Start(ctx)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
