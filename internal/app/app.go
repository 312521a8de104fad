package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/actions"
	"github.com/ternarybob/bulkops/internal/bulk"
	"github.com/ternarybob/bulkops/internal/common"
	"github.com/ternarybob/bulkops/internal/handlers"
	"github.com/ternarybob/bulkops/internal/services/audit"
	"github.com/ternarybob/bulkops/internal/services/events"
	"github.com/ternarybob/bulkops/internal/services/notifications"
	"github.com/ternarybob/bulkops/internal/services/reports"
	"github.com/ternarybob/bulkops/internal/storage"
	"github.com/ternarybob/bulkops/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager *badger.Manager

	// Supporting services
	EventService        *events.Service
	AuditService        *audit.Service
	NotificationService *notifications.Service
	ReportService       *reports.Service

	// Bulk action engine
	Handlers    *bulk.HandlerRegistry
	BulkService *bulk.Service
	Sweeper     *bulk.Sweeper

	// HTTP handlers
	APIHandler          *handlers.APIHandler
	BulkHandler         *handlers.BulkHandler
	AuditHandler        *handlers.AuditHandler
	NotificationHandler *handlers.NotificationHandler
	WSHandler           *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// Start the engine after every subscriber is registered so no lifecycle event is missed
	app.BulkService.Start()
	if cfg.Bulk.CleanupSchedule != "" {
		if err := app.Sweeper.Start(cfg.Bulk.CleanupSchedule); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to start cleanup sweeper: %w", err)
		}
	}

	logger.Info().
		Int("max_concurrent_jobs", cfg.Bulk.MaxConcurrentJobs).
		Int("queue_size", cfg.Bulk.QueueSize).
		Int("action_types", len(app.Handlers.ActionTypes())).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(context.Background(), a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Bool("in_memory", a.Config.Storage.Badger.InMemory).
		Msg("Storage layer initialized")

	return nil
}

func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)
	a.AuditService = audit.NewService(a.StorageManager.AuditStorage(), a.Logger)
	a.NotificationService = notifications.NewService(
		a.StorageManager.NotificationStorage(),
		notifications.Config{
			RatePerSecond: a.Config.Notifications.RatePerSecond,
			Burst:         a.Config.Notifications.Burst,
		},
		a.Logger,
	)
	a.ReportService = reports.NewService(a.Logger)

	a.Handlers = bulk.NewHandlerRegistry()
	err := actions.RegisterDefaults(a.Handlers, actions.Dependencies{
		Guests:    a.StorageManager.GuestStorage(),
		Payments:  a.StorageManager.PaymentStorage(),
		Inventory: a.StorageManager.InventoryStorage(),
		Notifier:  a.NotificationService,
		Reports:   a.ReportService,
		Logger:    a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to register action handlers: %w", err)
	}

	a.BulkService = bulk.NewService(
		bulk.Config{
			MaxConcurrentJobs: a.Config.Bulk.MaxConcurrentJobs,
			QueueSize:         a.Config.Bulk.QueueSize,
			DefaultListLimit:  a.Config.Bulk.DefaultListLimit,
		},
		a.Handlers,
		a.Logger,
		bulk.WithAuditSink(a.AuditService),
		bulk.WithNotificationSink(a.NotificationService),
		bulk.WithEventService(a.EventService),
	)
	a.Sweeper = bulk.NewSweeper(a.BulkService, a.Config.Bulk.RetentionDuration(), a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.BulkHandler = handlers.NewBulkHandler(a.BulkService, a.Config.Bulk.RetentionDuration(), a.Logger)
	a.AuditHandler = handlers.NewAuditHandler(a.AuditService, a.Logger)
	a.NotificationHandler = handlers.NewNotificationHandler(a.NotificationService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Config.WebSocket.ProgressThrottleDuration(), a.Logger)
}

// Close stops the engine and releases resources. Running jobs get the configured shutdown timeout.
func (a *App) Close() error {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}

	if a.BulkService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Bulk.ShutdownTimeoutDuration())
		if err := a.BulkService.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Bulk service did not stop cleanly")
		} else {
			a.Logger.Info().Msg("Bulk service stopped")
		}
		cancel()
	}

	// Close event service after the engine so final events are delivered
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
