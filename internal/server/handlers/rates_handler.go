package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/domain/models"
)

// RatesHandler exposes the farm-wide rate table.
type RatesHandler struct {
	svc    BillingService
	logger *zap.Logger
}

// NewRatesHandler constructs the rate table handler.
func NewRatesHandler(svc BillingService, logger *zap.Logger) *RatesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatesHandler{svc: svc, logger: logger}
}

// Get returns the live rate table.
func (h *RatesHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	params, err := h.svc.GetRates(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, params)
}

// Update replaces the live rate table.
func (h *RatesHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var params models.BillingParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		h.logger.Warn("invalid rates payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	saved, err := h.svc.UpdateRates(c.Request.Context(), actor, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
