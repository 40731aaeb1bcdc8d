package billing

import (
	"context"
	"fmt"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// PreviewOwner prices the owner's live herd against the current rate table
// without persisting anything.
func (s *Service) PreviewOwner(ctx context.Context, actor models.Actor, ownerID string) (models.ChargePreview, error) {
	if _, err := EffectiveOwnerFilter(actor, ownerID); err != nil {
		return models.ChargePreview{}, err
	}
	owner, err := s.getOwner(ctx, ownerID)
	if err != nil {
		return models.ChargePreview{}, err
	}
	params, err := s.currentRates(ctx)
	if err != nil {
		return models.ChargePreview{}, err
	}
	return s.preview(ctx, *owner, params)
}

// PreviewAll prices every owner's live herd. Administrators only.
func (s *Service) PreviewAll(ctx context.Context, actor models.Actor) ([]models.ChargePreview, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	params, err := s.currentRates(ctx)
	if err != nil {
		return nil, err
	}
	owners, err := s.owners.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}

	previews := make([]models.ChargePreview, 0, len(owners))
	for _, owner := range owners {
		p, err := s.preview(ctx, owner, params)
		if err != nil {
			return nil, err
		}
		previews = append(previews, p)
	}
	return previews, nil
}

func (s *Service) preview(ctx context.Context, owner models.Owner, params models.BillingParameters) (models.ChargePreview, error) {
	counts, err := s.countLive(ctx, owner.ID)
	if err != nil {
		return models.ChargePreview{}, err
	}
	return models.ChargePreview{
		OwnerID:   owner.ID,
		FirstName: owner.FirstName,
		Counts:    counts,
		Total:     CalculateCharge(counts, params),
	}, nil
}
