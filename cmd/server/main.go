package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/config"
	"github.com/mamadbah2/farmbilling/internal/lock"
	"github.com/mamadbah2/farmbilling/internal/repository/mongodb"
	"github.com/mamadbah2/farmbilling/internal/repository/sheets"
	"github.com/mamadbah2/farmbilling/internal/scheduler"
	"github.com/mamadbah2/farmbilling/internal/server/handlers"
	"github.com/mamadbah2/farmbilling/internal/server/router"
	"github.com/mamadbah2/farmbilling/internal/service/billing"
	"github.com/mamadbah2/farmbilling/internal/service/render"
	"github.com/mamadbah2/farmbilling/pkg/clients/mailer"
	whatsappclient "github.com/mamadbah2/farmbilling/pkg/clients/whatsapp"
	"github.com/mamadbah2/farmbilling/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	store, err := mongodb.Connect(startupCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongo"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()
	if err := store.EnsureIndexes(startupCtx); err != nil {
		baseLogger.Fatal("failed to create mongodb indexes", zap.Error(err))
	}

	var locker lock.Locker
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(startupCtx).Err(); err != nil {
			baseLogger.Fatal("failed to reach redis", zap.Error(err))
		}
		locker = lock.NewRedisLocker(redisClient, cfg.Billing.LockTTL, baseLogger.Named("lock.redis"))
		baseLogger.Info("redis invoice locks enabled")
	} else {
		locker = mongodb.NewLeaseLocker(store, cfg.Billing.LockTTL, baseLogger.Named("lock.mongo"))
	}

	var mailTransport billing.EmailTransport
	if cfg.Mail.Enabled() {
		mailTransport = mailer.NewClient(cfg.Mail)
		baseLogger.Info("mail api delivery enabled")
	} else {
		mailTransport = mailer.NewLogTransport(cfg.Mail.FromAddress, baseLogger.Named("mail.log"))
		baseLogger.Warn("mail api base url missing, invoice emails are only logged")
	}

	var mirror billing.LedgerMirror
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(startupCtx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		mirror = sheets.NewInvoiceLedger(sheetsRepo)
		baseLogger.Info("invoice ledger mirror enabled")
	}

	billingSvc := billing.NewService(billing.Dependencies{
		Invoices:  mongodb.NewInvoiceRepository(store),
		Rates:     mongodb.NewRateRepository(store),
		Owners:    mongodb.NewOwnerRepository(store),
		Inventory: mongodb.NewInventoryRepository(store),
		Tx:        store,
		Locker:    locker,
		Renderer:  render.NewPDFRenderer(""),
		Mailer:    mailTransport,
		Mirror:    mirror,
	}, billing.Config{
		DeliveryTimeout:  cfg.Billing.DeliveryTimeout,
		BatchConcurrency: cfg.Billing.BatchConcurrency,
		Location:         cfg.Billing.Location(),
	}, baseLogger.Named("svc.billing"))

	engine := router.New(router.Handlers{
		Invoices: handlers.NewInvoiceHandler(billingSvc, baseLogger.Named("handlers.invoices")),
		Rates:    handlers.NewRatesHandler(billingSvc, baseLogger.Named("handlers.rates")),
	}, cfg.Auth.JWTSecret, baseLogger.Named("router"))

	if cfg.Billing.CronSchedule != "" {
		var notifier whatsappclient.Client
		if cfg.WhatsApp.Enabled() {
			notifier = whatsappclient.NewClient(cfg.WhatsApp)
		}
		sched := scheduler.NewScheduler(scheduler.Options{
			Schedule:  cfg.Billing.CronSchedule,
			Location:  cfg.Billing.Location(),
			ManagerID: cfg.WhatsApp.ManagerID,
		}, billingSvc, notifier, baseLogger.Named("scheduler"))
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
