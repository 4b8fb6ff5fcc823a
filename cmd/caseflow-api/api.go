// Package main provides the Caseflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/probata/caseflow/pkg/audit"
	"github.com/probata/caseflow/pkg/eventbus"
	"github.com/probata/caseflow/pkg/locks"
	"github.com/probata/caseflow/pkg/persistence"
	"github.com/probata/caseflow/pkg/services"
	"github.com/probata/caseflow/pkg/signals"
	"github.com/probata/caseflow/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	fetcher     *signals.Fetcher
	eventBus    eventbus.EventBus
	locker      locks.Locker
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	fetcher *signals.Fetcher,
	eventBus eventbus.EventBus,
	locker locks.Locker,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		fetcher:     fetcher,
		eventBus:    eventBus,
		locker:      locker,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	planService := services.NewPlan(
		a.persistence,
		a.fetcher,
		audit.NewEventSink(a.eventBus),
		a.eventBus,
		a.locker,
		a.logger,
	)

	handlers := web.NewAPIHandlers(planService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Caseflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
