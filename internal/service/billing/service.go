package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/lock"
	"github.com/mamadbah2/farmbilling/internal/repository"
)

const (
	defaultDeliveryTimeout  = 20 * time.Second
	defaultBatchConcurrency = 4
)

// Config tunes the billing engine.
type Config struct {
	// DeliveryTimeout bounds a single render-and-send attempt.
	DeliveryTimeout time.Duration
	// BatchConcurrency caps how many owners are processed in parallel.
	BatchConcurrency int
	// Location decides which calendar month is "current".
	Location *time.Location
}

// Dependencies groups the collaborators of the billing engine. Mirror is optional.
type Dependencies struct {
	Invoices  InvoiceStore
	Rates     RateStore
	Owners    OwnerDirectory
	Inventory InventoryCounter
	Tx        Transactor
	Locker    lock.Locker
	Renderer  Renderer
	Mailer    EmailTransport
	Mirror    LedgerMirror
}

// Service is the monthly billing engine: previews, idempotent invoice
// generation with carry-forward, email delivery, history and export.
type Service struct {
	invoices  InvoiceStore
	rates     RateStore
	owners    OwnerDirectory
	inventory InventoryCounter
	tx        Transactor
	locker    lock.Locker
	renderer  Renderer
	mailer    EmailTransport
	mirror    LedgerMirror
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a billing service instance.
func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		invoices:  deps.Invoices,
		rates:     deps.Rates,
		owners:    deps.Owners,
		inventory: deps.Inventory,
		tx:        deps.Tx,
		locker:    deps.Locker,
		renderer:  deps.Renderer,
		mailer:    deps.Mailer,
		mirror:    deps.Mirror,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// CurrentPeriod returns the billing month containing now.
func (s *Service) CurrentPeriod() models.Period {
	return models.PeriodOf(s.now().In(s.cfg.Location))
}

// MarkPaid flags an invoice as paid. Repeating the call is a no-op and no
// other invoice is recomputed.
func (s *Service) MarkPaid(ctx context.Context, actor models.Actor, invoiceID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.invoices.MarkPaid(ctx, invoiceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: invoice %s", ErrNotFound, invoiceID)
		}
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	s.logger.Info("invoice marked paid", zap.String("invoice_id", invoiceID))
	return nil
}

func (s *Service) getOwner(ctx context.Context, ownerID string) (*models.Owner, error) {
	owner, err := s.owners.GetOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: owner %s", ErrNotFound, ownerID)
		}
		return nil, fmt.Errorf("load owner %s: %w", ownerID, err)
	}
	return owner, nil
}

// currentRates reads the rate table. Anything that cannot be priced with is a
// configuration fault, not a request error.
func (s *Service) currentRates(ctx context.Context) (models.BillingParameters, error) {
	params, err := s.rates.Current(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrMalformedRecord) {
			s.logger.Error("rate table cannot be decoded", zap.Error(err))
			return models.BillingParameters{}, fmt.Errorf("%w: %v", ErrRateConfiguration, err)
		}
		return models.BillingParameters{}, fmt.Errorf("load billing parameters: %w", err)
	}
	if err := params.Validate(); err != nil {
		s.logger.Error("rate table holds invalid values", zap.Error(err))
		return models.BillingParameters{}, fmt.Errorf("%w: %v", ErrRateConfiguration, err)
	}
	return params, nil
}

func (s *Service) countLive(ctx context.Context, ownerID string) (models.HeadCounts, error) {
	var counts models.HeadCounts
	for _, t := range models.AnimalTypes {
		n, err := s.inventory.CountLiveByOwnerAndType(ctx, ownerID, t)
		if err != nil {
			return models.HeadCounts{}, fmt.Errorf("count %s for owner %s: %w", t, ownerID, err)
		}
		counts.Set(t, n)
	}
	return counts, nil
}
