package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/probata/caseflow/pkg/persistence"
	"github.com/probata/caseflow/pkg/services"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically recalculates readiness for every case holding a due
// or overdue step, so deadline rollovers surface without waiting for the next
// user action on the case.
type Sweeper struct {
	planService *services.Plan
	persistence persistence.Persistence
	cronExpr    string
	cron        *cron.Cron
	logger      *slog.Logger
}

func NewSweeper(
	planService *services.Plan,
	persistence persistence.Persistence,
	cronExpr string,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		planService: planService,
		persistence: persistence,
		cronExpr:    cronExpr,
		logger:      logger.With("module", "sweeper"),
	}
}

// Start schedules the sweep and blocks until a termination signal or context
// cancellation.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(s.cronExpr, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Starting sweeper", "cron", s.cronExpr)
	s.cron.Start()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		s.logger.Info("Received signal, shutting down", "signal", sig)
	case <-ctx.Done():
		s.logger.Info("Context cancelled, shutting down")
	}

	<-s.cron.Stop().Done()

	return nil
}

// sweep recalculates every case with a step due at or before now. Per-case
// failures are logged and the sweep moves on.
func (s *Sweeper) sweep(ctx context.Context) {
	started := time.Now().UTC()

	refs, err := s.persistence.PlanRepository().CasesWithDueSteps(ctx, started)
	if err != nil {
		s.logger.Error("Failed to list cases with due steps", "error", err)

		return
	}

	s.logger.Info("Sweep started", "cases", len(refs))

	var failed int

	for _, ref := range refs {
		_, err := s.planService.RecalculateReadiness(ctx, ref.TenantID, ref.CaseID)
		if err != nil {
			failed++

			s.logger.Error("Failed to recalculate case",
				"tenant_id", ref.TenantID,
				"case_id", ref.CaseID,
				"error", err,
			)
		}
	}

	s.logger.Info("Sweep finished",
		"cases", len(refs),
		"failed", failed,
		"duration", time.Since(started),
	)
}
