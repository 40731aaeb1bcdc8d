package billing

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// CalculateCharge prices one month of the given herd:
// the sum over categories of count × (feed + medication).
func CalculateCharge(counts models.HeadCounts, params models.BillingParameters) decimal.Decimal {
	total := decimal.Zero
	for _, t := range models.AnimalTypes {
		n := counts.Of(t)
		if n <= 0 {
			continue
		}
		total = total.Add(params.RateFor(t).PerHead().Mul(decimal.NewFromInt(n)))
	}
	return total
}
