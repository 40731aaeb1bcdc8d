package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AnimalType enumerates the livestock categories billed every month.
type AnimalType string

const (
	AnimalCattle AnimalType = "CATTLE"
	AnimalGoat   AnimalType = "GOAT"
	AnimalRam    AnimalType = "RAM"
	AnimalPig    AnimalType = "PIG"
)

// AnimalTypes lists the billed categories in the order they appear on invoices.
var AnimalTypes = []AnimalType{AnimalCattle, AnimalGoat, AnimalRam, AnimalPig}

// Owner is the subset of the owner directory record that billing relies on.
type Owner struct {
	ID          string `bson:"_id" json:"id"`
	FirstName   string `bson:"first_name" json:"firstName"`
	LastName    string `bson:"last_name" json:"lastName"`
	Email       string `bson:"email" json:"email"`
	PhoneNumber string `bson:"phone_number" json:"phoneNumber"`
	Address     string `bson:"address" json:"address"`
}

// HeadCounts holds the number of live (not sold) animals per category.
type HeadCounts struct {
	Cattle int64 `json:"cattle"`
	Goat   int64 `json:"goat"`
	Ram    int64 `json:"ram"`
	Pig    int64 `json:"pig"`
}

// Of returns the count recorded for the given category.
func (c HeadCounts) Of(t AnimalType) int64 {
	switch t {
	case AnimalCattle:
		return c.Cattle
	case AnimalGoat:
		return c.Goat
	case AnimalRam:
		return c.Ram
	case AnimalPig:
		return c.Pig
	}
	return 0
}

// Set records n animals for the category. Unknown categories are ignored.
func (c *HeadCounts) Set(t AnimalType, n int64) {
	if n < 0 {
		n = 0
	}
	switch t {
	case AnimalCattle:
		c.Cattle = n
	case AnimalGoat:
		c.Goat = n
	case AnimalRam:
		c.Ram = n
	case AnimalPig:
		c.Pig = n
	}
}

// MonthlyRate is the per-head monthly fee of a category, split into feed and medication.
type MonthlyRate struct {
	Feed       decimal.Decimal `json:"feed"`
	Medication decimal.Decimal `json:"medication"`
}

// PerHead is the combined monthly fee for one animal.
func (r MonthlyRate) PerHead() decimal.Decimal {
	return r.Feed.Add(r.Medication)
}

// BillingParameters is the farm-wide rate table. Exactly one live row exists.
type BillingParameters struct {
	Cattle    MonthlyRate `json:"cattle"`
	Goat      MonthlyRate `json:"goat"`
	Ram       MonthlyRate `json:"ram"`
	Pig       MonthlyRate `json:"pig"`
	UpdatedAt *time.Time  `json:"updatedAt,omitempty"`
}

// RateFor returns the monthly rate of the category.
func (p BillingParameters) RateFor(t AnimalType) MonthlyRate {
	switch t {
	case AnimalCattle:
		return p.Cattle
	case AnimalGoat:
		return p.Goat
	case AnimalRam:
		return p.Ram
	case AnimalPig:
		return p.Pig
	}
	return MonthlyRate{Feed: decimal.Zero, Medication: decimal.Zero}
}

// Validate rejects negative rates.
func (p BillingParameters) Validate() error {
	for _, t := range AnimalTypes {
		rate := p.RateFor(t)
		if rate.Feed.IsNegative() {
			return fmt.Errorf("%s feed rate must not be negative", t)
		}
		if rate.Medication.IsNegative() {
			return fmt.Errorf("%s medication rate must not be negative", t)
		}
	}
	return nil
}
