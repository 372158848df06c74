package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/steward/internal/common"
	"github.com/ternarybob/steward/internal/handlers"
	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/queue"
	"github.com/ternarybob/steward/internal/services/auth"
	"github.com/ternarybob/steward/internal/services/classifier"
	"github.com/ternarybob/steward/internal/services/events"
	"github.com/ternarybob/steward/internal/services/mailer"
	"github.com/ternarybob/steward/internal/services/scheduler"
	"github.com/ternarybob/steward/internal/services/submission"
	badgerstorage "github.com/ternarybob/steward/internal/storage/badger"
	"github.com/ternarybob/steward/internal/workers"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService interfaces.EventService

	// Classification pipeline
	QueueManager      *queue.Manager
	WorkerPool        *queue.WorkerPool
	ClassifierService interfaces.Classifier
	SubmissionService interfaces.SubmissionService

	// Collaborator services
	AuthService      *auth.Service
	MailerService    interfaces.MailerService
	CleanupScheduler *scheduler.CleanupScheduler

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	RequestHandler *handlers.RequestHandler
	StatsHandler   *handlers.StatsHandler
	WSHandler      *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Storage
	storageManager, err := badgerstorage.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	// Queue shares the badgerhold-managed database
	store, ok := storageManager.DB().(*badgerhold.Store)
	if !ok {
		storageManager.Close()
		return nil, fmt.Errorf("unexpected storage backend type")
	}

	queueConfig := queue.ConfigFromCommon(&cfg.Queue)
	queueManager, err := queue.NewManager(store.Badger(), queueConfig.QueueName, queueConfig.VisibilityTimeout, queueConfig.MaxReceive)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	app.QueueManager = queueManager

	// Events and websocket broadcasting
	app.EventService = events.NewService(logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger)

	// Classifier: remote provider plus deterministic fallback. A
	// missing or misconfigured provider degrades to fallback-only.
	remote, err := classifier.NewRemoteClassifier(&cfg.Classifier, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Remote classifier unavailable, using keyword fallback only")
		remote = nil
	}
	app.ClassifierService = classifier.NewService(remote, logger)

	// Mailer is nil when disabled
	app.MailerService = mailer.NewService(&cfg.Mailer, logger)

	// Submission service
	app.SubmissionService = submission.NewService(
		app.StorageManager,
		app.QueueManager,
		app.ClassifierService,
		app.EventService,
		app.MailerService,
		logger,
	)

	// Auth
	app.AuthService = auth.NewService(app.StorageManager.TokenStorage(), logger)

	// Classification worker pool
	classifyWorker := workers.NewClassifyWorker(app.StorageManager, app.ClassifierService, app.EventService, logger)
	queueManager.OnDrop(classifyWorker.HandleDrop)
	app.WorkerPool = queue.NewWorkerPool(queueManager, queueConfig, classifyWorker.Handle, logger)

	// Scheduled cleanup
	app.CleanupScheduler = scheduler.NewCleanupScheduler(&cfg.Cleanup, app.StorageManager, logger)

	// HTTP handlers
	app.APIHandler = handlers.NewAPIHandler()
	app.RequestHandler = handlers.NewRequestHandler(app.SubmissionService, app.StorageManager, logger)
	app.StatsHandler = handlers.NewStatsHandler(app.StorageManager, logger)

	logger.Info().Msg("Application initialized")

	return app, nil
}

// Start starts the background components
func (a *App) Start() error {
	if err := a.WorkerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	if err := a.CleanupScheduler.Start(); err != nil {
		return fmt.Errorf("failed to start cleanup scheduler: %w", err)
	}
	return nil
}

// Close stops background components and releases resources
func (a *App) Close() {
	if a.WorkerPool != nil {
		if err := a.WorkerPool.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Worker pool stop failed")
		}
	}
	if a.CleanupScheduler != nil {
		a.CleanupScheduler.Stop()
	}
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Event service close failed")
		}
	}
	if a.QueueManager != nil {
		if err := a.QueueManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Queue close failed")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}

	a.Logger.Info().Msg("Application stopped")
}
