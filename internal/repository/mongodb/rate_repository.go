package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/repository"
)

// currentParametersID is the _id of the single live rate table.
const currentParametersID = "current"

type parametersDocument struct {
	ID               string               `bson:"_id"`
	CattleFeed       primitive.Decimal128 `bson:"cattle_monthly_feed"`
	CattleMedication primitive.Decimal128 `bson:"cattle_monthly_medication"`
	GoatFeed         primitive.Decimal128 `bson:"goat_monthly_feed"`
	GoatMedication   primitive.Decimal128 `bson:"goat_monthly_medication"`
	RamFeed          primitive.Decimal128 `bson:"ram_monthly_feed"`
	RamMedication    primitive.Decimal128 `bson:"ram_monthly_medication"`
	PigFeed          primitive.Decimal128 `bson:"pig_monthly_feed"`
	PigMedication    primitive.Decimal128 `bson:"pig_monthly_medication"`
	UpdatedAt        *time.Time           `bson:"updated_at,omitempty"`
}

// RateRepository keeps the rate table as one document in billing_parameters.
type RateRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewRateRepository returns the rate store backed by s.
func NewRateRepository(s *Store) *RateRepository {
	return &RateRepository{coll: s.db.Collection(parametersCollection), now: time.Now}
}

// Current returns the live rate table, inserting an all-zero table when none exists yet.
func (r *RateRepository) Current(ctx context.Context) (models.BillingParameters, error) {
	zero, err := primitive.ParseDecimal128("0")
	if err != nil {
		return models.BillingParameters{}, err
	}
	defaults := bson.M{}
	for _, field := range rateFields {
		defaults[field] = zero
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	raw, err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": currentParametersID},
		bson.M{"$setOnInsert": defaults},
		opts,
	).Raw()
	if err != nil {
		return models.BillingParameters{}, fmt.Errorf("failed to load billing parameters: %w", err)
	}

	var doc parametersDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return models.BillingParameters{}, fmt.Errorf("%w: billing parameters: %v", repository.ErrMalformedRecord, err)
	}
	return doc.toModel()
}

// Save overwrites the live rate table and stamps updated_at.
func (r *RateRepository) Save(ctx context.Context, params models.BillingParameters) (models.BillingParameters, error) {
	updatedAt := r.now().UTC()
	params.UpdatedAt = &updatedAt

	doc, err := newParametersDocument(params)
	if err != nil {
		return models.BillingParameters{}, err
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": currentParametersID}, doc, opts); err != nil {
		return models.BillingParameters{}, fmt.Errorf("failed to save billing parameters: %w", err)
	}
	return params, nil
}

var rateFields = []string{
	"cattle_monthly_feed", "cattle_monthly_medication",
	"goat_monthly_feed", "goat_monthly_medication",
	"ram_monthly_feed", "ram_monthly_medication",
	"pig_monthly_feed", "pig_monthly_medication",
}

func newParametersDocument(p models.BillingParameters) (parametersDocument, error) {
	amounts := []decimal.Decimal{
		p.Cattle.Feed, p.Cattle.Medication,
		p.Goat.Feed, p.Goat.Medication,
		p.Ram.Feed, p.Ram.Medication,
		p.Pig.Feed, p.Pig.Medication,
	}
	encoded := make([]primitive.Decimal128, len(amounts))
	for i, amount := range amounts {
		value, err := toDecimal128(amount)
		if err != nil {
			return parametersDocument{}, err
		}
		encoded[i] = value
	}
	return parametersDocument{
		ID:               currentParametersID,
		CattleFeed:       encoded[0],
		CattleMedication: encoded[1],
		GoatFeed:         encoded[2],
		GoatMedication:   encoded[3],
		RamFeed:          encoded[4],
		RamMedication:    encoded[5],
		PigFeed:          encoded[6],
		PigMedication:    encoded[7],
		UpdatedAt:        p.UpdatedAt,
	}, nil
}

func (d parametersDocument) toModel() (models.BillingParameters, error) {
	stored := []primitive.Decimal128{
		d.CattleFeed, d.CattleMedication,
		d.GoatFeed, d.GoatMedication,
		d.RamFeed, d.RamMedication,
		d.PigFeed, d.PigMedication,
	}
	amounts := make([]decimal.Decimal, len(stored))
	for i, value := range stored {
		amount, err := fromDecimal128(value)
		if err != nil {
			return models.BillingParameters{}, err
		}
		amounts[i] = amount
	}
	return models.BillingParameters{
		Cattle:    models.MonthlyRate{Feed: amounts[0], Medication: amounts[1]},
		Goat:      models.MonthlyRate{Feed: amounts[2], Medication: amounts[3]},
		Ram:       models.MonthlyRate{Feed: amounts[4], Medication: amounts[5]},
		Pig:       models.MonthlyRate{Feed: amounts[6], Medication: amounts[7]},
		UpdatedAt: d.UpdatedAt,
	}, nil
}
