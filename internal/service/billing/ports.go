package billing

import (
	"context"
	"time"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/pkg/clients/mailer"
)

// InvoiceStore persists owner invoices. Lookups return repository.ErrNotFound
// when nothing matches.
type InvoiceStore interface {
	FindByID(ctx context.Context, id string) (*models.OwnerInvoice, error)
	FindByPeriod(ctx context.Context, ownerID string, period models.Period) (*models.OwnerInvoice, error)
	// LatestUnpaidBefore returns the unpaid invoice with the greatest period
	// strictly before the given one.
	LatestUnpaidBefore(ctx context.Context, ownerID string, period models.Period) (*models.OwnerInvoice, error)
	Insert(ctx context.Context, invoice *models.OwnerInvoice) error
	RecordDeliverySuccess(ctx context.Context, id string, sentAt time.Time) error
	RecordDeliveryFailure(ctx context.Context, id string, reason string) error
	MarkPaid(ctx context.Context, id string) error
	// List returns matching invoices ordered by creation time, newest first.
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.OwnerInvoice, error)
}

// RateStore holds the singleton rate table. Current creates the zero row on first read.
type RateStore interface {
	Current(ctx context.Context) (models.BillingParameters, error)
	Save(ctx context.Context, params models.BillingParameters) (models.BillingParameters, error)
}

// OwnerDirectory resolves owners. GetOwner returns repository.ErrNotFound for unknown ids.
type OwnerDirectory interface {
	GetOwner(ctx context.Context, id string) (*models.Owner, error)
	ListOwners(ctx context.Context) ([]models.Owner, error)
}

// InventoryCounter counts an owner's animals that have not been sold.
type InventoryCounter interface {
	CountLiveByOwnerAndType(ctx context.Context, ownerID string, animalType models.AnimalType) (int64, error)
}

// Renderer turns an invoice into a printable document.
type Renderer interface {
	RenderInvoice(invoice models.OwnerInvoice) ([]byte, error)
}

// EmailTransport delivers a message with a single attachment.
type EmailTransport interface {
	Send(ctx context.Context, to, subject, body string, attachment mailer.Attachment) error
}

// Transactor runs fn inside one store transaction. The context handed to fn
// must be used for every store call that belongs to the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerMirror copies newly created invoices to an external bookkeeping sheet.
type LedgerMirror interface {
	AppendInvoices(ctx context.Context, invoices []models.OwnerInvoice) error
}
