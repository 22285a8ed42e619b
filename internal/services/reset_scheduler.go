package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ResetScheduler clears the answered-question registry on a cron cadence,
// so the survey recurs (daily by default). The registry itself never
// expires entries; this scheduler is the one place reset policy lives.
type ResetScheduler struct {
	cron    *cron.Cron
	service PromptService
	logger  *slog.Logger
	spec    string
}

// NewResetScheduler builds a scheduler for the given cron spec. An empty
// spec disables scheduled resets entirely.
func NewResetScheduler(service PromptService, spec string, logger *slog.Logger) *ResetScheduler {
	return &ResetScheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger,
		spec:    spec,
	}
}

// Start registers the reset job and begins the schedule.
func (rs *ResetScheduler) Start() error {
	if rs.spec == "" {
		rs.logger.Info("registry reset schedule disabled")
		return nil
	}

	_, err := rs.cron.AddFunc(rs.spec, rs.runReset)
	if err != nil {
		return fmt.Errorf("invalid registry reset schedule %q: %w", rs.spec, err)
	}

	rs.cron.Start()
	rs.logger.Info("registry reset schedule started", "spec", rs.spec)
	return nil
}

// Stop halts the schedule, waiting for a running reset to finish.
func (rs *ResetScheduler) Stop() {
	ctx := rs.cron.Stop()
	<-ctx.Done()
}

func (rs *ResetScheduler) runReset() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := rs.service.ResetAllSurveys(ctx); err != nil {
		rs.logger.Error("scheduled registry reset failed", "error", err)
		return
	}
	rs.logger.Info("scheduled registry reset completed")
}
