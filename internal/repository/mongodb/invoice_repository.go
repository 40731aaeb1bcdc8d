package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/repository"
)

type invoiceDocument struct {
	ID             string `bson:"_id"`
	OwnerID        string `bson:"owner_id"`
	OwnerFirstName string `bson:"owner_first_name"`
	OwnerEmail     string `bson:"owner_email"`
	PeriodYear     int    `bson:"period_year"`
	PeriodMonth    int    `bson:"period_month"`

	CattleCount int64 `bson:"cattle_count"`
	GoatCount   int64 `bson:"goat_count"`
	RamCount    int64 `bson:"ram_count"`
	PigCount    int64 `bson:"pig_count"`

	CurrentCharge         primitive.Decimal128 `bson:"current_charge"`
	PreviousUnpaidBalance primitive.Decimal128 `bson:"previous_unpaid_balance"`
	TotalDue              primitive.Decimal128 `bson:"total_due"`

	Paid       bool       `bson:"paid"`
	EmailSent  bool       `bson:"email_sent"`
	EmailError *string    `bson:"email_error"`
	CreatedAt  time.Time  `bson:"created_at"`
	SentAt     *time.Time `bson:"sent_at"`
}

func newInvoiceDocument(inv *models.OwnerInvoice) (invoiceDocument, error) {
	current, err := toDecimal128(inv.CurrentCharge)
	if err != nil {
		return invoiceDocument{}, err
	}
	previous, err := toDecimal128(inv.PreviousUnpaidBalance)
	if err != nil {
		return invoiceDocument{}, err
	}
	total, err := toDecimal128(inv.TotalDue)
	if err != nil {
		return invoiceDocument{}, err
	}
	return invoiceDocument{
		ID:                    inv.ID,
		OwnerID:               inv.OwnerID,
		OwnerFirstName:        inv.OwnerFirstName,
		OwnerEmail:            inv.OwnerEmail,
		PeriodYear:            inv.Period.Year,
		PeriodMonth:           inv.Period.Month,
		CattleCount:           inv.Counts.Cattle,
		GoatCount:             inv.Counts.Goat,
		RamCount:              inv.Counts.Ram,
		PigCount:              inv.Counts.Pig,
		CurrentCharge:         current,
		PreviousUnpaidBalance: previous,
		TotalDue:              total,
		Paid:                  inv.Paid,
		EmailSent:             inv.EmailSent,
		EmailError:            inv.EmailError,
		CreatedAt:             inv.CreatedAt,
		SentAt:                inv.SentAt,
	}, nil
}

func (d invoiceDocument) toModel() (models.OwnerInvoice, error) {
	current, err := fromDecimal128(d.CurrentCharge)
	if err != nil {
		return models.OwnerInvoice{}, err
	}
	previous, err := fromDecimal128(d.PreviousUnpaidBalance)
	if err != nil {
		return models.OwnerInvoice{}, err
	}
	total, err := fromDecimal128(d.TotalDue)
	if err != nil {
		return models.OwnerInvoice{}, err
	}
	return models.OwnerInvoice{
		ID:             d.ID,
		OwnerID:        d.OwnerID,
		OwnerFirstName: d.OwnerFirstName,
		OwnerEmail:     d.OwnerEmail,
		Period:         models.Period{Year: d.PeriodYear, Month: d.PeriodMonth},
		Counts: models.HeadCounts{
			Cattle: d.CattleCount,
			Goat:   d.GoatCount,
			Ram:    d.RamCount,
			Pig:    d.PigCount,
		},
		CurrentCharge:         current,
		PreviousUnpaidBalance: previous,
		TotalDue:              total,
		Paid:                  d.Paid,
		EmailSent:             d.EmailSent,
		EmailError:            d.EmailError,
		CreatedAt:             d.CreatedAt,
		SentAt:                d.SentAt,
	}, nil
}

// InvoiceRepository stores owner invoices in the owner_invoices collection.
type InvoiceRepository struct {
	coll *mongo.Collection
}

// NewInvoiceRepository returns the invoice store backed by s.
func NewInvoiceRepository(s *Store) *InvoiceRepository {
	return &InvoiceRepository{coll: s.db.Collection(invoicesCollection)}
}

// FindByID loads one invoice.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.OwnerInvoice, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByPeriod loads the invoice of an owner for one month.
func (r *InvoiceRepository) FindByPeriod(ctx context.Context, ownerID string, period models.Period) (*models.OwnerInvoice, error) {
	return r.findOne(ctx, bson.M{
		"owner_id":     ownerID,
		"period_year":  period.Year,
		"period_month": period.Month,
	})
}

// LatestUnpaidBefore returns the unpaid invoice with the greatest period
// strictly before period.
func (r *InvoiceRepository) LatestUnpaidBefore(ctx context.Context, ownerID string, period models.Period) (*models.OwnerInvoice, error) {
	filter := bson.M{
		"owner_id": ownerID,
		"paid":     false,
		"$or": bson.A{
			bson.M{"period_year": bson.M{"$lt": period.Year}},
			bson.M{"period_year": period.Year, "period_month": bson.M{"$lt": period.Month}},
		},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "period_year", Value: -1}, {Key: "period_month", Value: -1}})
	return r.findOne(ctx, filter, opts)
}

// Insert stores a new invoice. A second invoice for the same owner and
// period yields repository.ErrDuplicateInvoice.
func (r *InvoiceRepository) Insert(ctx context.Context, invoice *models.OwnerInvoice) error {
	doc, err := newInvoiceDocument(invoice)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: owner %s %s", repository.ErrDuplicateInvoice, invoice.OwnerID, invoice.Period)
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// RecordDeliverySuccess marks the invoice as emailed and clears the last error.
func (r *InvoiceRepository) RecordDeliverySuccess(ctx context.Context, id string, sentAt time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{
		"email_sent":  true,
		"email_error": nil,
		"sent_at":     sentAt,
	}})
}

// RecordDeliveryFailure stores why the last attempt failed. email_sent is left untouched.
func (r *InvoiceRepository) RecordDeliveryFailure(ctx context.Context, id string, reason string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"email_error": reason}})
}

// MarkPaid sets paid to true. Marking a paid invoice again is a no-op.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id string) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"paid": true}})
}

// List returns the invoices matching filter, newest first.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.OwnerInvoice, error) {
	query := bson.M{}
	if filter.OwnerID != "" {
		query["owner_id"] = filter.OwnerID
	}
	if filter.Period != nil {
		query["period_year"] = filter.Period.Year
		query["period_month"] = filter.Period.Month
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var invoices []models.OwnerInvoice
	for cursor.Next(ctx) {
		var doc invoiceDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: invoice: %v", repository.ErrMalformedRecord, err)
		}
		invoice, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	return invoices, nil
}

func (r *InvoiceRepository) findOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*models.OwnerInvoice, error) {
	var doc invoiceDocument
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	invoice, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
