package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/jiralike-api/internal/api"
	"github.com/phrazzld/jiralike-api/internal/api/middleware"
	"github.com/phrazzld/jiralike-api/internal/config"
	"github.com/phrazzld/jiralike-api/internal/events"
	"github.com/phrazzld/jiralike-api/internal/jobs"
	"github.com/phrazzld/jiralike-api/internal/notify"
	"github.com/phrazzld/jiralike-api/internal/platform/filestore"
	"github.com/phrazzld/jiralike-api/internal/platform/mailer"
	"github.com/phrazzld/jiralike-api/internal/platform/postgres"
	"github.com/phrazzld/jiralike-api/internal/redact"
	"github.com/phrazzld/jiralike-api/internal/service"
	"github.com/phrazzld/jiralike-api/internal/service/auth"
	"github.com/phrazzld/jiralike-api/internal/store"
	"github.com/spf13/afero"
)

// dispatchTimeout bounds a single notification batch.
const dispatchTimeout = time.Minute

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userService service.UserService
	taskService service.TaskService
	emitter     *events.InMemoryEventEmitter

	queue *jobs.Queue
	pool  *jobs.WorkerPool

	router http.Handler
}

// newApplication wires stores, services, the notification pipeline and the
// router. The worker pool is started; cleanup stops it.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	fsys afero.Fs,
	transport mailer.Transport,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	storage, err := filestore.New(fsys, cfg.Storage.FilesDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	txManager := store.NewSQLTxManager(db)
	userStore := postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)
	commentStore := postgres.NewPostgresCommentStore(db, logger)
	fileStore := postgres.NewPostgresTaskFileStore(db, logger)
	subscriptionStore := postgres.NewPostgresSubscriptionStore(db, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)

	app.userService = service.NewUserService(userStore, auth.NewBcryptVerifier(), txManager, logger)
	app.taskService, err = service.NewTaskService(
		txManager,
		taskStore,
		commentStore,
		fileStore,
		subscriptionStore,
		storage,
		app.emitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	// Notifications: emitter -> queue -> worker pool -> dispatcher -> transport.
	dispatcher := notify.NewDispatcher(app.taskService, storage, transport, cfg.Mail.From, logger)
	app.queue = jobs.NewQueue(cfg.Notify.QueueSize, logger)
	app.emitter.RegisterHandler(notify.NewQueueingHandler(app.queue, dispatcher, logger))

	app.pool = jobs.NewWorkerPool(app.queue, jobs.WorkerPoolConfig{
		WorkerCount: cfg.Notify.WorkerCount,
		JobTimeout:  dispatchTimeout,
	}, logger)
	app.pool.SetErrorHandler(func(job jobs.Job, err error) {
		logger.Error("notification dispatch failed",
			slog.String("job_id", job.ID().String()),
			slog.String("job_type", job.Type()),
			redact.Attr(err))
	})
	app.pool.Start()

	app.router = api.NewRouter(api.RouterDeps{
		Auth:           api.NewAuthHandler(app.userService, jwtService, logger),
		Tasks:          api.NewTaskHandler(app.taskService, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(jwtService, app.userService),
		Logger:         logger,
	})

	logger.Info("application initialized",
		"queue_size", cfg.Notify.QueueSize,
		"worker_count", cfg.Notify.WorkerCount)
	return app, nil
}

// Run serves HTTP until ctx is canceled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops accepting notifications, lets queued ones drain within ctx
// and closes the database.
func (app *application) cleanup(ctx context.Context) {
	if app.queue != nil {
		app.queue.Close()
	}
	if app.pool != nil {
		if err := app.pool.Stop(ctx); err != nil {
			app.logger.Warn("notification workers did not drain", redact.Attr(err))
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", redact.Attr(err))
		}
	}

	app.logger.Info("application shutdown completed")
}
