package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/farmbilling/internal/config"
	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// InvoiceLedgerRange is where new invoices are appended, one row each.
const InvoiceLedgerRange = "Invoices!A:K"

// RowAppender appends rows to a spreadsheet range.
type RowAppender interface {
	AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// GoogleSheetRepository implements RowAppender using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendRows appends rows below the last filled row of sheetRange in one call.
func (r *GoogleSheetRepository) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}
	if len(rows) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: rows}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// InvoiceLedger mirrors newly created invoices to the accounting spreadsheet.
type InvoiceLedger struct {
	sheet RowAppender
}

// NewInvoiceLedger returns a ledger mirror writing through sheet.
func NewInvoiceLedger(sheet RowAppender) *InvoiceLedger {
	return &InvoiceLedger{sheet: sheet}
}

// AppendInvoices writes one row per invoice.
func (l *InvoiceLedger) AppendInvoices(ctx context.Context, invoices []models.OwnerInvoice) error {
	rows := make([][]interface{}, 0, len(invoices))
	for _, invoice := range invoices {
		rows = append(rows, InvoiceRow(invoice))
	}
	return l.sheet.AppendRows(ctx, InvoiceLedgerRange, rows)
}

// InvoiceRow lays out an invoice as: id, owner id, first name, email,
// period, current charge, carried balance, total due, paid, emailed, created at.
func InvoiceRow(invoice models.OwnerInvoice) []interface{} {
	return []interface{}{
		invoice.ID,
		invoice.OwnerID,
		invoice.OwnerFirstName,
		invoice.OwnerEmail,
		invoice.Period.String(),
		invoice.CurrentCharge.StringFixed(2),
		invoice.PreviousUnpaidBalance.StringFixed(2),
		invoice.TotalDue.StringFixed(2),
		invoice.Paid,
		invoice.EmailSent,
		invoice.CreatedAt.UTC().Format(time.RFC3339),
	}
}
