package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned for months outside 1..12 or implausible years.
var ErrInvalidPeriod = errors.New("invalid billing period")

const (
	minPeriodYear = 2000
	maxPeriodYear = 9999
)

// Period identifies a billing month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPeriod validates and builds a Period.
func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if !p.Valid() {
		return Period{}, fmt.Errorf("%w: %d-%02d", ErrInvalidPeriod, year, month)
	}
	return p, nil
}

// PeriodOf returns the calendar month containing t in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Valid reports whether the period is a usable billing month.
func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year >= minPeriodYear && p.Year <= maxPeriodYear
}

// Before orders periods by year, then month.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
