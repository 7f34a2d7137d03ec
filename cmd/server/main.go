package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventapp "github.com/erp/ledgersync/internal/application/event"
	financeapp "github.com/erp/ledgersync/internal/application/finance"
	integrationapp "github.com/erp/ledgersync/internal/application/integration"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/accounting"
	"github.com/erp/ledgersync/internal/infrastructure/cache"
	"github.com/erp/ledgersync/internal/infrastructure/config"
	"github.com/erp/ledgersync/internal/infrastructure/event"
	"github.com/erp/ledgersync/internal/infrastructure/logger"
	"github.com/erp/ledgersync/internal/infrastructure/persistence"
	"github.com/erp/ledgersync/internal/infrastructure/scheduler"
	"github.com/erp/ledgersync/internal/infrastructure/telemetry"
	"github.com/erp/ledgersync/internal/interfaces/http/handler"
	"github.com/erp/ledgersync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		_ = providers.Shutdown(context.Background())
	}()
	log = providers.BridgeLogger(log, logger.ParseLevel(cfg.Log.Level))

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", providers.Enabled()),
	)

	db, err := persistence.NewDatabase(&cfg.Database, persistence.DatabaseOptions{
		Logger:   log,
		LogLevel: logger.MapGormLogLevel(cfg.Log.Level),
		Tracing: telemetry.DBTracingConfig{
			Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL: cfg.Telemetry.DBLogFullSQL,
			DBName:     cfg.Database.DBName,
		},
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	metrics, err := telemetry.NewLedgerMetrics(otel.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	orderRepo := persistence.NewGormProductionOrderRepository(db.DB)
	projectRepo := persistence.NewGormProjectRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	credentialRepo := persistence.NewGormCredentialRepository(db.DB)
	mappingRepo := persistence.NewGormEntityMappingRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Events are written to the outbox inside the ledger transaction and
	// delivered to the bus after commit
	serializer := event.NewLedgerEventSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithOutboxMaxRetries(cfg.Event.MaxRetries))
	eventBus := event.NewInMemoryEventBus(log)

	ledgerService := financeapp.NewLedgerService(
		persistence.NewGormTransactionScope(db.DB, outboxPublisher),
		invoiceRepo,
		paymentRepo,
		financeapp.WithLedgerLogger(log),
		financeapp.WithLedgerMetrics(metrics),
	)

	// Accounting ledger
	acctConfig := accounting.Config{
		APIBaseURL:   cfg.Accounting.APIBaseURL,
		MinorVersion: cfg.Accounting.MinorVersion,
		ClientID:     cfg.Accounting.ClientID,
		ClientSecret: cfg.Accounting.ClientSecret,
		TokenURL:     cfg.Accounting.TokenURL,
		AuthURL:      cfg.Accounting.AuthURL,
		RedirectURL:  cfg.Accounting.RedirectURL,
		RefreshSkew:  cfg.Accounting.RefreshSkew,
	}
	var (
		accountingHandler *handler.AccountingHandler
		backlog           scheduler.BacklogSyncer
	)
	if err := acctConfig.Validate(); err != nil {
		log.Warn("Accounting ledger not configured, sync endpoints disabled", zap.Error(err))
	} else {
		credentials := accounting.NewOAuthCredentialProvider(acctConfig, credentialRepo, log)
		adapter, err := accounting.NewQuickBooksAdapter(acctConfig, nil, log)
		if err != nil {
			log.Fatal("Failed to create accounting adapter", zap.Error(err))
		}

		syncService, err := integrationapp.NewAccountingSyncService(integrationapp.SyncDependencies{
			Credentials: credentials,
			Accounting:  adapter,
			Mappings:    mappingRepo,
			SyncLogs:    syncLogRepo,
			Invoices:    invoiceRepo,
			Payments:    paymentRepo,
			Orders:      orderRepo,
			Projects:    projectRepo,
			Customers:   customerRepo,
			Backlog:     mappingRepo,
		}, integrationapp.SyncConfig{
			DefaultItemRef: cfg.Accounting.DefaultItemRef,
			CallTimeout:    cfg.Accounting.CallTimeout,
		},
			integrationapp.WithSyncLogger(log),
			integrationapp.WithSyncMetrics(metrics),
		)
		if err != nil {
			log.Fatal("Failed to create accounting sync service", zap.Error(err))
		}
		accountingHandler = handler.NewAccountingHandler(syncService, credentials)
		backlog = syncService

		if cfg.Accounting.SyncEnabled {
			store, err := cache.OpenIdempotencyStore(ctx, cfg.Redis, log)
			if err != nil {
				log.Fatal("Failed to create idempotency store", zap.Error(err))
			}
			eventBus.Subscribe(event.NewIdempotentHandler(
				integrationapp.NewPaymentSyncHandler(syncService, log),
				store,
				log,
				event.WithIdempotencyConfig(shared.IdempotencyConfig{
					Enabled: true,
					TTL:     cfg.Event.IdempotencyTTL,
					Scope:   "payment-sync",
				}),
				event.WithDeliveryRecorder(metrics),
			))
			log.Info("Post-commit payment sync enabled")
		}
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var processor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			processorConfig.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			processorConfig.PollInterval = cfg.Event.PollInterval
		}
		processorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			processorConfig.CleanupRetention = cfg.Event.CleanupRetention
		}

		processor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorConfig, log)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	var (
		jobScheduler *scheduler.Scheduler
		trigger      *scheduler.CronTrigger
	)
	if cfg.Scheduler.Enabled {
		jobScheduler, trigger, err = startScheduler(ctx, cfg.Scheduler, ledgerService, backlog, log)
		if err != nil {
			log.Fatal("Failed to start ledger scheduler", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	opts := []router.RouterOption{}
	if providers.Enabled() {
		opts = append(opts, router.WithTracing(cfg.Telemetry.ServiceName))
	}
	r := router.NewRouter(log, opts...)
	if err := r.Engine().SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	r.RegisterRoot(handler.NewHealthHandler(db)).
		Register(handler.NewLedgerHandler(ledgerService)).
		Register(handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log)))
	if accountingHandler != nil {
		r.Register(accountingHandler)
	}
	if jobScheduler != nil {
		r.Register(handler.NewSchedulerHandler(jobScheduler))
	}
	engine := r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if trigger != nil {
		_ = trigger.Stop(shutdownCtx)
	}
	if jobScheduler != nil {
		if err := jobScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Ledger scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if processor != nil {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Outbox processor did not stop cleanly", zap.Error(err))
		}
	}
	_ = eventBus.Stop(shutdownCtx)

	log.Info("Server exited gracefully")
}

// startScheduler runs the overdue sweep daily and, when the accounting ledger
// is configured, the payment backlog pass on its interval
func startScheduler(
	ctx context.Context,
	cfg config.SchedulerConfig,
	overdue scheduler.OverdueMarker,
	backlog scheduler.BacklogSyncer,
	log *zap.Logger,
) (*scheduler.Scheduler, *scheduler.CronTrigger, error) {
	hour, minute, err := scheduler.ParseDailySchedule(cfg.OverdueSweepCron)
	if err != nil {
		return nil, nil, err
	}

	executor := scheduler.NewLedgerJobExecutor(scheduler.LedgerExecutorConfig{
		OverdueBatchSize: cfg.OverdueBatchSize,
		BacklogBatchSize: cfg.BacklogBatchSize,
		BacklogLookback:  cfg.BacklogLookback,
	}, overdue, backlog, log)

	schedulerConfig := scheduler.DefaultSchedulerConfig()
	schedulerConfig.MaxConcurrentJobs = cfg.Workers
	schedulerConfig.JobTimeout = cfg.JobTimeout
	schedulerConfig.RetryAttempts = cfg.RetryAttempts
	schedulerConfig.RetryDelay = cfg.RetryDelay
	s, err := scheduler.NewScheduler(schedulerConfig, executor, log)
	if err != nil {
		return nil, nil, err
	}

	triggerConfig := scheduler.DefaultCronTriggerConfig()
	triggerConfig.OverdueSweepHour = hour
	triggerConfig.OverdueSweepMinute = minute
	triggerConfig.BacklogInterval = 0
	if executor.Supports(scheduler.JobTypePaymentBacklog) {
		triggerConfig.BacklogInterval = cfg.BacklogInterval
	}
	trigger := scheduler.NewCronTrigger(triggerConfig, s, log)

	if err := s.Start(ctx); err != nil {
		return nil, nil, err
	}
	if err := trigger.Start(ctx); err != nil {
		return nil, nil, err
	}
	return s, trigger, nil
}
