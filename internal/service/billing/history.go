package billing

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/repository"
)

// History lists invoices visible to the actor, newest first. Owners only
// ever see their own invoices.
func (s *Service) History(ctx context.Context, actor models.Actor, ownerID string, period *models.Period) ([]models.OwnerInvoice, error) {
	filter, err := s.scopedFilter(actor, ownerID, period)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// InvoiceDocument renders one invoice for download.
func (s *Service) InvoiceDocument(ctx context.Context, actor models.Actor, invoiceID string) ([]byte, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: invoice %s", ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	if _, err := EffectiveOwnerFilter(actor, invoice.OwnerID); err != nil {
		return nil, err
	}
	document, err := s.renderer.RenderInvoice(*invoice)
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", invoiceID, err)
	}
	return document, nil
}

// ExportArchive bundles the rendered documents of the selected invoices into
// one zip archive.
func (s *Service) ExportArchive(ctx context.Context, actor models.Actor, ownerID string, period *models.Period) ([]byte, error) {
	invoices, err := s.History(ctx, actor, ownerID, period)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	archive := zip.NewWriter(&buf)
	for _, invoice := range invoices {
		document, err := s.renderer.RenderInvoice(invoice)
		if err != nil {
			return nil, fmt.Errorf("render invoice %s: %w", invoice.ID, err)
		}
		entry, err := archive.CreateHeader(&zip.FileHeader{
			Name:     ArchiveEntryName(invoice),
			Method:   zip.Deflate,
			Modified: invoice.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("add archive entry: %w", err)
		}
		if _, err := entry.Write(document); err != nil {
			return nil, fmt.Errorf("write archive entry: %w", err)
		}
	}
	if err := archive.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveEntryName is the file name of an invoice inside an export archive.
func ArchiveEntryName(invoice models.OwnerInvoice) string {
	return fmt.Sprintf("invoice-%s-owner-%s-%04d-%02d.pdf", invoice.ID, invoice.OwnerID, invoice.Period.Year, invoice.Period.Month)
}

func (s *Service) scopedFilter(actor models.Actor, ownerID string, period *models.Period) (models.InvoiceFilter, error) {
	effectiveOwner, err := EffectiveOwnerFilter(actor, ownerID)
	if err != nil {
		return models.InvoiceFilter{}, err
	}
	filter := models.InvoiceFilter{OwnerID: effectiveOwner}
	if period != nil {
		p, err := models.NewPeriod(period.Year, period.Month)
		if err != nil {
			return models.InvoiceFilter{}, err
		}
		filter.Period = &p
	}
	return filter, nil
}
