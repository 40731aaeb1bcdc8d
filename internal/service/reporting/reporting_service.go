package reporting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// maxListedFailures caps how many failing owners are named in a summary so
// the message stays short enough for a chat notification.
const maxListedFailures = 5

// BatchTotals aggregates the per-owner outcomes of one generation run.
type BatchTotals struct {
	Owners      int
	Created     int
	Emailed     int
	Undelivered int
	Failed      int
	Billed      decimal.Decimal
	FailedIDs   []string
}

// SummarizeBatch aggregates batch outcomes. Billed sums TotalDue over every
// invoice that exists after the run.
func SummarizeBatch(summaries []models.GeneratedInvoiceSummary) BatchTotals {
	totals := BatchTotals{Owners: len(summaries), Billed: decimal.Zero}
	for _, s := range summaries {
		if s.Error != "" {
			totals.Failed++
			totals.FailedIDs = append(totals.FailedIDs, s.OwnerID)
			continue
		}
		if s.Created {
			totals.Created++
		}
		if s.EmailSent {
			totals.Emailed++
		} else {
			totals.Undelivered++
		}
		if s.TotalDue != nil {
			totals.Billed = totals.Billed.Add(*s.TotalDue)
		}
	}
	return totals
}

// FormatBatchSummary renders a one-message report of a batch run.
func FormatBatchSummary(period models.Period, summaries []models.GeneratedInvoiceSummary) string {
	totals := SummarizeBatch(summaries)
	if totals.Owners == 0 {
		return fmt.Sprintf("Invoices %s: no owners to bill.", period)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Invoices %s: %d owners, %d new, %d emailed, %d not emailed, %d failed. Total billed %s.",
		period, totals.Owners, totals.Created, totals.Emailed, totals.Undelivered, totals.Failed, totals.Billed.StringFixed(2))

	if totals.Failed > 0 {
		listed := totals.FailedIDs
		if len(listed) > maxListedFailures {
			listed = listed[:maxListedFailures]
		}
		fmt.Fprintf(&b, " Failed owners: %s", strings.Join(listed, ", "))
		if extra := totals.Failed - len(listed); extra > 0 {
			fmt.Fprintf(&b, " and %d more", extra)
		}
		b.WriteString(".")
	}
	return b.String()
}
