package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
	"github.com/mamadbah2/farmbilling/internal/server/middleware"
	"github.com/mamadbah2/farmbilling/internal/service/billing"
)

// BillingService is the billing engine as seen by the HTTP layer.
type BillingService interface {
	PreviewOwner(ctx context.Context, actor models.Actor, ownerID string) (models.ChargePreview, error)
	PreviewAll(ctx context.Context, actor models.Actor) ([]models.ChargePreview, error)
	GenerateForAllOwners(ctx context.Context, actor models.Actor, period *models.Period) ([]models.GeneratedInvoiceSummary, error)
	GenerateForOwner(ctx context.Context, actor models.Actor, ownerID string, period *models.Period) (models.GeneratedInvoiceSummary, error)
	MarkPaid(ctx context.Context, actor models.Actor, invoiceID string) error
	History(ctx context.Context, actor models.Actor, ownerID string, period *models.Period) ([]models.OwnerInvoice, error)
	ExportArchive(ctx context.Context, actor models.Actor, ownerID string, period *models.Period) ([]byte, error)
	InvoiceDocument(ctx context.Context, actor models.Actor, invoiceID string) ([]byte, error)
	GetRates(ctx context.Context, actor models.Actor) (models.BillingParameters, error)
	UpdateRates(ctx context.Context, actor models.Actor, params models.BillingParameters) (models.BillingParameters, error)
}

var _ BillingService = (*billing.Service)(nil)

// InvoiceHandler exposes invoice preview, generation, history and export.
type InvoiceHandler struct {
	svc    BillingService
	logger *zap.Logger
}

// NewInvoiceHandler constructs the HTTP handler adapter.
func NewInvoiceHandler(svc BillingService, logger *zap.Logger) *InvoiceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceHandler{svc: svc, logger: logger}
}

type generateRequest struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
}

// PreviewOwner returns the current month's charge for one owner.
func (h *InvoiceHandler) PreviewOwner(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	preview, err := h.svc.PreviewOwner(c.Request.Context(), actor, c.Param("ownerId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// PreviewAll returns the current month's charge for every owner.
func (h *InvoiceHandler) PreviewAll(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	previews, err := h.svc.PreviewAll(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, previews)
}

// GenerateAll generates and emails invoices for every owner.
func (h *InvoiceHandler) GenerateAll(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	period, ok := h.bodyPeriod(c)
	if !ok {
		return
	}
	summaries, err := h.svc.GenerateForAllOwners(c.Request.Context(), actor, period)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// GenerateOwner generates and emails the invoice of one owner.
func (h *InvoiceHandler) GenerateOwner(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	period, ok := h.bodyPeriod(c)
	if !ok {
		return
	}
	summary, err := h.svc.GenerateForOwner(c.Request.Context(), actor, c.Param("ownerId"), period)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// MarkPaid flags an invoice as paid.
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.svc.MarkPaid(c.Request.Context(), actor, c.Param("invoiceId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// History lists invoices visible to the caller, newest first.
func (h *InvoiceHandler) History(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	period, err := queryPeriod(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	invoices, err := h.svc.History(c.Request.Context(), actor, c.Query("ownerId"), period)
	if err != nil {
		h.fail(c, err)
		return
	}
	if invoices == nil {
		invoices = []models.OwnerInvoice{}
	}
	c.JSON(http.StatusOK, invoices)
}

// ExportArchive streams the selected invoices as a zip of PDFs.
func (h *InvoiceHandler) ExportArchive(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	period, err := queryPeriod(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	archive, err := h.svc.ExportArchive(c.Request.Context(), actor, c.Query("ownerId"), period)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="invoices.zip"`)
	c.Data(http.StatusOK, "application/zip", archive)
}

// Document serves one invoice as a PDF.
func (h *InvoiceHandler) Document(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	invoiceID := c.Param("invoiceId")
	document, err := h.svc.InvoiceDocument(c.Request.Context(), actor, invoiceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, invoiceID))
	c.Data(http.StatusOK, "application/pdf", document)
}

func (h *InvoiceHandler) actor(c *gin.Context) (models.Actor, bool) {
	return requireActor(c)
}

func (h *InvoiceHandler) fail(c *gin.Context, err error) {
	respondError(c, h.logger, err)
}

// bodyPeriod reads the optional {year, month} body. An empty body selects
// the current month.
func (h *InvoiceHandler) bodyPeriod(c *gin.Context) (*models.Period, bool) {
	var req generateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid generate payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return nil, false
		}
	}
	if req.Year == nil && req.Month == nil {
		return nil, true
	}
	if req.Year == nil || req.Month == nil {
		h.fail(c, fmt.Errorf("%w: year and month must be given together", billing.ErrInvalidPeriod))
		return nil, false
	}
	period, err := models.NewPeriod(*req.Year, *req.Month)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return &period, true
}

// queryPeriod reads the optional year and month query parameters, which must
// be supplied together.
func queryPeriod(c *gin.Context) (*models.Period, error) {
	yearRaw, hasYear := c.GetQuery("year")
	monthRaw, hasMonth := c.GetQuery("month")
	if !hasYear && !hasMonth {
		return nil, nil
	}
	if !hasYear || !hasMonth {
		return nil, fmt.Errorf("%w: year and month must be given together", billing.ErrInvalidPeriod)
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: year %q", billing.ErrInvalidPeriod, yearRaw)
	}
	month, err := strconv.Atoi(monthRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: month %q", billing.ErrInvalidPeriod, monthRaw)
	}
	period, err := models.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return models.Actor{}, false
	}
	return actor, true
}
