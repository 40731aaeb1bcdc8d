package billing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/metrics"
	"github.com/mamadbah2/farmbilling/pkg/clients/mailer"
)

const maxEmailErrorLength = 1000

// attemptDelivery emails the invoice once and records the outcome on it.
// A failed send is stored on the invoice and is not an error for the caller;
// only failing to record the outcome is.
func (s *Service) attemptDelivery(ctx context.Context, owner models.Owner, invoice *models.OwnerInvoice) error {
	sendErr := s.deliver(ctx, owner, invoice)
	if sendErr == nil {
		sentAt := s.now().UTC()
		if err := s.invoices.RecordDeliverySuccess(ctx, invoice.ID, sentAt); err != nil {
			return fmt.Errorf("record delivery success: %w", err)
		}
		invoice.EmailSent = true
		invoice.EmailError = nil
		invoice.SentAt = &sentAt
		metrics.RecordDelivery(true)
		s.logger.Info("invoice emailed", zap.String("invoice_id", invoice.ID), zap.String("to", owner.Email))
		return nil
	}

	reason := truncate(sendErr.Error(), maxEmailErrorLength)
	if err := s.invoices.RecordDeliveryFailure(ctx, invoice.ID, reason); err != nil {
		return fmt.Errorf("record delivery failure: %w", err)
	}
	invoice.EmailError = &reason
	metrics.RecordDelivery(false)
	s.logger.Warn("invoice email failed",
		zap.String("invoice_id", invoice.ID),
		zap.String("owner_id", owner.ID),
		zap.Error(sendErr))
	return nil
}

// deliver renders and sends within DeliveryTimeout. The transport runs on its
// own goroutine so a transport that ignores ctx still cannot hold the caller.
func (s *Service) deliver(ctx context.Context, owner models.Owner, invoice *models.OwnerInvoice) error {
	if owner.Email == "" {
		return errors.New("owner has no email address")
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()

	document, err := s.renderer.RenderInvoice(*invoice)
	if err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}

	subject, body := composeInvoiceEmail(owner, *invoice)
	attachment := mailer.Attachment{
		Filename:    fmt.Sprintf("invoice-%s-%s.pdf", invoice.OwnerID, invoice.Period),
		ContentType: "application/pdf",
		Content:     document,
	}

	done := make(chan error, 1)
	go func() {
		done <- s.mailer.Send(sendCtx, owner.Email, subject, body, attachment)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("send invoice email: timed out after %s: %w", s.cfg.DeliveryTimeout, err)
		}
		if err != nil {
			return fmt.Errorf("send invoice email: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send invoice email: timed out after %s", s.cfg.DeliveryTimeout)
	}
}

func composeInvoiceEmail(owner models.Owner, invoice models.OwnerInvoice) (string, string) {
	subject := fmt.Sprintf("Monthly Farm Invoice - %s", invoice.Period)
	body := fmt.Sprintf("Dear %s,\n\nAttached is your monthly farm invoice for %s.\nTotal due: %s\n\nRegards,\nAnimal Farm Admin",
		owner.FirstName, invoice.Period, invoice.TotalDue.StringFixed(2))
	return subject, body
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
