// Package jobs hosts the background maintenance schedule. The only job today
// is the expired verification code sweeper.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/keygate/keygate/pkg/observability"
	"github.com/keygate/keygate/pkg/users"
)

var tracer = observability.Tracer("keygate/jobs")

// CodeSweeper periodically clears expired verification codes so stale slots
// do not linger in storage. Expiry is already enforced at read time; the
// sweep is hygiene, not correctness.
type CodeSweeper struct {
	store  users.Store
	logger *logrus.Logger
	cron   *cron.Cron
}

// NewCodeSweeper creates a sweeper over the given user store.
func NewCodeSweeper(store users.Store, logger *logrus.Logger) *CodeSweeper {
	if logger == nil {
		logger = logrus.New()
	}
	return &CodeSweeper{
		store:  store,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules the sweep with the given cron expression and begins
// running. Standard 5-field cron syntax, e.g. "*/10 * * * *".
func (s *CodeSweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", schedule).Info("code sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *CodeSweeper) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CodeSweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.WithError(err).Error("code sweep failed")
	}
}

// Sweep clears all expired codes once and returns how many were cleared.
func (s *CodeSweeper) Sweep(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "jobs.code_sweep")
	defer span.End()

	cleared, err := s.store.ClearExpiredCodes(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("codes.cleared", cleared))
	if cleared > 0 {
		s.logger.WithField("cleared", cleared).Info("expired verification codes cleared")
	}
	return cleared, nil
}
