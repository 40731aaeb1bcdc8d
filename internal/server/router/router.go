package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/metrics"
	"github.com/mamadbah2/farmbilling/internal/server/handlers"
	"github.com/mamadbah2/farmbilling/internal/server/middleware"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Invoices *handlers.InvoiceHandler
	Rates    *handlers.RatesHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, jwtSecret string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api", middleware.Auth(jwtSecret, logger))

	invoices := api.Group("/invoices")
	invoices.GET("/monthly/owner/:ownerId", h.Invoices.PreviewOwner)
	invoices.GET("/monthly/owners", h.Invoices.PreviewAll)
	invoices.POST("/monthly/generate-and-email", h.Invoices.GenerateAll)
	invoices.POST("/monthly/owner/:ownerId/generate-and-email", h.Invoices.GenerateOwner)
	invoices.GET("/history", h.Invoices.History)
	invoices.GET("/history/zip", h.Invoices.ExportArchive)
	invoices.POST("/:invoiceId/mark-paid", h.Invoices.MarkPaid)
	invoices.GET("/:invoiceId/pdf", h.Invoices.Document)

	api.GET("/invoice-parameters", h.Rates.Get)
	api.PUT("/invoice-parameters", h.Rates.Update)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status())

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
