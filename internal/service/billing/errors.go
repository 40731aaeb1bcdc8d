package billing

import (
	"errors"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

var (
	// ErrNotFound indicates an unknown owner or invoice id.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates a role or ownership mismatch. No state was changed.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidPeriod is returned for malformed year/month filters or periods.
	ErrInvalidPeriod = models.ErrInvalidPeriod
	// ErrInvalidRates is returned when a rate table update carries negative values.
	ErrInvalidRates = errors.New("invalid billing parameters")
	// ErrRateConfiguration marks a stored rate table that cannot be used for billing.
	ErrRateConfiguration = errors.New("billing rate configuration is unusable")
)
