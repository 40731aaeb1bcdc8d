package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/service/reporting"
	"github.com/mamadbah2/farmbilling/pkg/clients/whatsapp"
)

const batchTimeout = 30 * time.Minute

// BatchRunner generates and delivers invoices for every owner.
type BatchRunner interface {
	CurrentPeriod() models.Period
	GenerateForAllOwners(ctx context.Context, actor models.Actor, period *models.Period) ([]models.GeneratedInvoiceSummary, error)
}

// Options configures the scheduled batch.
type Options struct {
	// Schedule is a standard five-field cron expression.
	Schedule string
	Location *time.Location
	// ManagerID receives the batch summary; empty or a nil notifier disables it.
	ManagerID string
}

// Scheduler triggers the monthly invoice batch on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	runner   BatchRunner
	notifier whatsapp.Client
	opts     Options
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. notifier may be nil.
func NewScheduler(opts Options, runner BatchRunner, notifier whatsapp.Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	// The default parser is standard cron (5 fields: min, hour, dom, month, dow).
	c := cron.New(cron.WithLocation(opts.Location))

	return &Scheduler{
		cron:     c,
		runner:   runner,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// Start registers the batch job and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.Schedule, s.runBatch); err != nil {
		return fmt.Errorf("schedule invoice batch %q: %w", s.opts.Schedule, err)
	}
	s.logger.Info("starting scheduler", zap.String("schedule", s.opts.Schedule))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running batch to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runBatch() {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled invoice batch failed", zap.Error(err))
	}
}

// RunOnce generates the current month's invoices as an administrator and
// notifies the farm manager.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	period := s.runner.CurrentPeriod()
	s.logger.Info("running scheduled invoice batch", zap.Stringer("period", period))

	summaries, err := s.runner.GenerateForAllOwners(ctx, models.Actor{Role: models.RoleAdmin}, &period)
	if err != nil {
		s.notify(ctx, fmt.Sprintf("Invoices %s: batch did not run: %v", period, err))
		return fmt.Errorf("generate invoices for %s: %w", period, err)
	}

	s.notify(ctx, reporting.FormatBatchSummary(period, summaries))
	return nil
}

func (s *Scheduler) notify(ctx context.Context, message string) {
	if s.notifier == nil || s.opts.ManagerID == "" {
		return
	}
	if _, err := s.notifier.SendText(ctx, s.opts.ManagerID, message); err != nil {
		s.logger.Error("failed to send batch summary", zap.Error(err))
		return
	}
	s.logger.Info("batch summary sent")
}
