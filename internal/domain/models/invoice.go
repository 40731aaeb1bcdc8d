package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OwnerInvoice is the immutable monthly bill of one owner. Only Paid and the
// delivery fields change after creation.
type OwnerInvoice struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	// Owner contact details as of generation.
	OwnerFirstName string `json:"ownerFirstName"`
	OwnerEmail     string `json:"ownerEmail"`

	Period Period     `json:"period"`
	Counts HeadCounts `json:"counts"`

	CurrentCharge         decimal.Decimal `json:"currentCharge"`
	PreviousUnpaidBalance decimal.Decimal `json:"previousUnpaidBalance"`
	TotalDue              decimal.Decimal `json:"totalDue"`

	Paid       bool       `json:"paid"`
	EmailSent  bool       `json:"emailSent"`
	EmailError *string    `json:"emailError"`
	CreatedAt  time.Time  `json:"createdAt"`
	SentAt     *time.Time `json:"sentAt"`
}

// InvoiceFilter narrows history queries. Empty fields match everything.
type InvoiceFilter struct {
	OwnerID string
	Period  *Period
}

// ChargePreview is a read-only projection of the current month's charge.
type ChargePreview struct {
	OwnerID   string          `json:"ownerId"`
	FirstName string          `json:"ownerFirstName"`
	Counts    HeadCounts      `json:"counts"`
	Total     decimal.Decimal `json:"total"`
}

// GeneratedInvoiceSummary reports the outcome of one owner in a batch run.
// Error is set when the owner could not be processed at all.
type GeneratedInvoiceSummary struct {
	InvoiceID             string           `json:"invoiceId,omitempty"`
	OwnerID               string           `json:"ownerId"`
	OwnerFirstName        string           `json:"ownerFirstName,omitempty"`
	OwnerEmail            string           `json:"ownerEmail,omitempty"`
	Period                Period           `json:"period"`
	CurrentCharge         *decimal.Decimal `json:"currentCharge,omitempty"`
	PreviousUnpaidBalance *decimal.Decimal `json:"previousUnpaidBalance,omitempty"`
	TotalDue              *decimal.Decimal `json:"totalDue,omitempty"`
	Paid                  bool             `json:"paid"`
	EmailSent             bool             `json:"emailSent"`
	EmailError            *string          `json:"emailError"`
	Created               bool             `json:"created"`
	Error                 string           `json:"error,omitempty"`
}
