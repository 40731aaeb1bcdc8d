package reporting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

func amount(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestFormatBatchSummary(t *testing.T) {
	period := models.Period{Year: 2024, Month: 2}
	summaries := []models.GeneratedInvoiceSummary{
		{OwnerID: "o1", Created: true, EmailSent: true, TotalDue: amount("45")},
		{OwnerID: "o2", Created: false, EmailSent: false, TotalDue: amount("90.5")},
		{OwnerID: "o3", Error: "owner lookup failed"},
	}

	got := FormatBatchSummary(period, summaries)
	assert.Equal(t, "Invoices 2024-02: 3 owners, 1 new, 1 emailed, 1 not emailed, 1 failed. Total billed 135.50. Failed owners: o3.", got)
}

func TestFormatBatchSummary_TruncatesFailures(t *testing.T) {
	var summaries []models.GeneratedInvoiceSummary
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		summaries = append(summaries, models.GeneratedInvoiceSummary{OwnerID: id, Error: "boom"})
	}
	got := FormatBatchSummary(models.Period{Year: 2024, Month: 1}, summaries)
	assert.Contains(t, got, "Failed owners: a, b, c, d, e and 2 more.")
}

func TestFormatBatchSummary_NoOwners(t *testing.T) {
	assert.Equal(t, "Invoices 2024-01: no owners to bill.", FormatBatchSummary(models.Period{Year: 2024, Month: 1}, nil))
}
