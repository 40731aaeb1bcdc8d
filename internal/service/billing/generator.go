package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/metrics"
	"github.com/mamadbah2/farmbilling/internal/repository"
)

// GenerateForAllOwners makes sure every owner has an invoice for the period
// (the current month when period is nil) and tries to email each one that
// has not been delivered yet. Failures are reported per owner and never stop
// the rest of the batch.
func (s *Service) GenerateForAllOwners(ctx context.Context, actor models.Actor, period *models.Period) ([]models.GeneratedInvoiceSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	target, err := s.resolvePeriod(period)
	if err != nil {
		return nil, err
	}

	// A rate table that cannot be priced with fails the whole run up front.
	if _, err := s.currentRates(ctx); err != nil {
		return nil, err
	}

	owners, err := s.owners.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}

	start := s.now()
	summaries := make([]models.GeneratedInvoiceSummary, len(owners))

	var (
		mu      sync.Mutex
		created []models.OwnerInvoice
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, owner := range owners {
		g.Go(func() error {
			invoice, wasCreated, err := s.processOwner(ctx, owner, target)
			if errors.Is(err, ErrRateConfiguration) {
				return err
			}
			if err != nil {
				s.logger.Error("owner invoice generation failed",
					zap.String("owner_id", owner.ID),
					zap.Stringer("period", target),
					zap.Error(err))
				summaries[i] = failedSummary(owner, target, err)
				return nil
			}
			summaries[i] = toSummary(*invoice, wasCreated)
			if wasCreated {
				mu.Lock()
				created = append(created, *invoice)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mirrorCreated(ctx, created)
	metrics.ObserveBatch(time.Since(start))

	var failed, undelivered int
	for _, summary := range summaries {
		switch {
		case summary.Error != "":
			failed++
		case !summary.EmailSent:
			undelivered++
		}
	}
	s.logger.Info("invoice batch completed",
		zap.Stringer("period", target),
		zap.Int("owners", len(owners)),
		zap.Int("created", len(created)),
		zap.Int("failed", failed),
		zap.Int("undelivered", undelivered),
		zap.Duration("duration", time.Since(start)))

	return summaries, nil
}

// GenerateForOwner runs generation and delivery for a single owner. It is
// the manual re-run path for one owner.
func (s *Service) GenerateForOwner(ctx context.Context, actor models.Actor, ownerID string, period *models.Period) (models.GeneratedInvoiceSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return models.GeneratedInvoiceSummary{}, err
	}
	target, err := s.resolvePeriod(period)
	if err != nil {
		return models.GeneratedInvoiceSummary{}, err
	}
	owner, err := s.getOwner(ctx, ownerID)
	if err != nil {
		return models.GeneratedInvoiceSummary{}, err
	}
	invoice, created, err := s.processOwner(ctx, *owner, target)
	if err != nil {
		return models.GeneratedInvoiceSummary{}, err
	}
	if created {
		s.mirrorCreated(ctx, []models.OwnerInvoice{*invoice})
	}
	return toSummary(*invoice, created), nil
}

func (s *Service) resolvePeriod(period *models.Period) (models.Period, error) {
	if period == nil {
		return s.CurrentPeriod(), nil
	}
	return models.NewPeriod(period.Year, period.Month)
}

// processOwner serialises work on one (owner, period) behind the distributed
// lock and runs lookup, insert and the delivery bookkeeping in one transaction.
func (s *Service) processOwner(ctx context.Context, owner models.Owner, period models.Period) (*models.OwnerInvoice, bool, error) {
	release, err := s.locker.Acquire(ctx, periodLockKey(owner.ID, period))
	if err != nil {
		return nil, false, fmt.Errorf("lock %s/%s: %w", owner.ID, period, err)
	}
	defer release()

	invoice, created, err := s.generateAndDeliver(ctx, owner, period)
	if errors.Is(err, repository.ErrDuplicateInvoice) {
		// Another writer got past the lock; the next attempt finds its row.
		s.logger.Warn("duplicate invoice insert, retrying",
			zap.String("owner_id", owner.ID),
			zap.Stringer("period", period))
		invoice, created, err = s.generateAndDeliver(ctx, owner, period)
	}
	if err != nil {
		return nil, false, err
	}
	metrics.RecordInvoice(created)
	return invoice, created, nil
}

func (s *Service) generateAndDeliver(ctx context.Context, owner models.Owner, period models.Period) (*models.OwnerInvoice, bool, error) {
	var (
		invoice *models.OwnerInvoice
		created bool
	)
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		invoice, created, err = s.generateOrGet(txCtx, owner, period)
		if err != nil {
			return err
		}
		if invoice.EmailSent {
			return nil
		}
		return s.attemptDelivery(txCtx, owner, invoice)
	})
	if err != nil {
		return nil, false, err
	}
	return invoice, created, nil
}

// generateOrGet returns the stored invoice for the period untouched or, when
// none exists, prices the live herd and persists a new one.
func (s *Service) generateOrGet(ctx context.Context, owner models.Owner, period models.Period) (*models.OwnerInvoice, bool, error) {
	existing, err := s.invoices.FindByPeriod(ctx, owner.ID, period)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("find invoice: %w", err)
	}

	params, err := s.currentRates(ctx)
	if err != nil {
		return nil, false, err
	}
	counts, err := s.countLive(ctx, owner.ID)
	if err != nil {
		return nil, false, err
	}
	carried, err := s.carriedBalance(ctx, owner.ID, period)
	if err != nil {
		return nil, false, err
	}

	charge := CalculateCharge(counts, params)
	invoice := &models.OwnerInvoice{
		ID:                    uuid.NewString(),
		OwnerID:               owner.ID,
		OwnerFirstName:        owner.FirstName,
		OwnerEmail:            owner.Email,
		Period:                period,
		Counts:                counts,
		CurrentCharge:         charge,
		PreviousUnpaidBalance: carried,
		TotalDue:              charge.Add(carried),
		CreatedAt:             s.now().UTC(),
	}
	if err := s.invoices.Insert(ctx, invoice); err != nil {
		return nil, false, fmt.Errorf("insert invoice: %w", err)
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.String("owner_id", owner.ID),
		zap.Stringer("period", period),
		zap.Stringer("total_due", invoice.TotalDue))
	return invoice, true, nil
}

// carriedBalance is the total due of the single most recent unpaid invoice
// before the period, or zero. Older unpaid invoices are not summed: they only
// reach the new invoice through the totals of the invoices that followed them.
func (s *Service) carriedBalance(ctx context.Context, ownerID string, period models.Period) (decimal.Decimal, error) {
	previous, err := s.invoices.LatestUnpaidBefore(ctx, ownerID, period)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("find unpaid balance: %w", err)
	}
	return previous.TotalDue, nil
}

func (s *Service) mirrorCreated(ctx context.Context, invoices []models.OwnerInvoice) {
	if s.mirror == nil || len(invoices) == 0 {
		return
	}
	if err := s.mirror.AppendInvoices(ctx, invoices); err != nil {
		s.logger.Warn("ledger mirror append failed", zap.Int("invoices", len(invoices)), zap.Error(err))
	}
}

func periodLockKey(ownerID string, period models.Period) string {
	return fmt.Sprintf("invoice:%s:%s", ownerID, period)
}

func toSummary(invoice models.OwnerInvoice, created bool) models.GeneratedInvoiceSummary {
	current := invoice.CurrentCharge
	previous := invoice.PreviousUnpaidBalance
	total := invoice.TotalDue
	return models.GeneratedInvoiceSummary{
		InvoiceID:             invoice.ID,
		OwnerID:               invoice.OwnerID,
		OwnerFirstName:        invoice.OwnerFirstName,
		OwnerEmail:            invoice.OwnerEmail,
		Period:                invoice.Period,
		CurrentCharge:         &current,
		PreviousUnpaidBalance: &previous,
		TotalDue:              &total,
		Paid:                  invoice.Paid,
		EmailSent:             invoice.EmailSent,
		EmailError:            invoice.EmailError,
		Created:               created,
	}
}

func failedSummary(owner models.Owner, period models.Period, err error) models.GeneratedInvoiceSummary {
	return models.GeneratedInvoiceSummary{
		OwnerID:        owner.ID,
		OwnerFirstName: owner.FirstName,
		OwnerEmail:     owner.Email,
		Period:         period,
		Error:          err.Error(),
	}
}
