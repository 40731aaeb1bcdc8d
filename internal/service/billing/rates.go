package billing

import (
	"context"
	"fmt"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// GetRates returns the live rate table, creating the zero table on first use.
func (s *Service) GetRates(ctx context.Context, actor models.Actor) (models.BillingParameters, error) {
	if err := requireAdmin(actor); err != nil {
		return models.BillingParameters{}, err
	}
	return s.currentRates(ctx)
}

// UpdateRates overwrites the rate table in place. Invoices that already exist
// keep the amounts they were created with.
func (s *Service) UpdateRates(ctx context.Context, actor models.Actor, params models.BillingParameters) (models.BillingParameters, error) {
	if err := requireAdmin(actor); err != nil {
		return models.BillingParameters{}, err
	}
	if err := params.Validate(); err != nil {
		return models.BillingParameters{}, fmt.Errorf("%w: %v", ErrInvalidRates, err)
	}

	var saved models.BillingParameters
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.rates.Save(txCtx, params)
		return err
	})
	if err != nil {
		return models.BillingParameters{}, fmt.Errorf("save billing parameters: %w", err)
	}
	s.logger.Info("billing parameters updated")
	return saved, nil
}
