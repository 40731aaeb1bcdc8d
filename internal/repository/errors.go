package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateInvoice signals a second invoice for an (owner, year, month) triple.
	ErrDuplicateInvoice = errors.New("invoice already exists for owner and period")
	// ErrMalformedRecord is returned when a stored record cannot be decoded into the domain model.
	ErrMalformedRecord = errors.New("malformed stored record")
)
