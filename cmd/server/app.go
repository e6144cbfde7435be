package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/vidgen-api/internal/config"
	"github.com/phrazzld/vidgen-api/internal/events"
	"github.com/phrazzld/vidgen-api/internal/generation"
	"github.com/phrazzld/vidgen-api/internal/platform/dashscope"
	"github.com/phrazzld/vidgen-api/internal/platform/gemini"
	"github.com/phrazzld/vidgen-api/internal/platform/objectstore"
	"github.com/phrazzld/vidgen-api/internal/platform/postgres"
	"github.com/phrazzld/vidgen-api/internal/platform/ratelimit"
	"github.com/phrazzld/vidgen-api/internal/quota"
	"github.com/phrazzld/vidgen-api/internal/service"
	"github.com/phrazzld/vidgen-api/internal/service/auth"
	"github.com/phrazzld/vidgen-api/internal/store"
	"github.com/phrazzld/vidgen-api/internal/task"
	"github.com/redis/go-redis/v9"
)

// rateLimitWindow is the window RateLimitPerMinute applies to.
const rateLimitWindow = time.Minute

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *redis.Client

	userStore     store.UserStore
	templateStore store.TemplateStore
	taskStore     store.VideoTaskStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	quotaGate        *quota.Gate
	provider         generation.VideoProvider
	archiver         generation.VideoArchiver
	scriptWriter     generation.ScriptWriter
	limiter          ratelimit.Limiter

	userService     service.UserService
	videoService    service.VideoService
	templateService service.TemplateService
	scriptService   service.ScriptService

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication wires every component. The task runner is created but not
// started; Run starts it.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	app.templateStore = postgres.NewPostgresTemplateStore(db, logger)
	app.taskStore = postgres.NewPostgresVideoTaskStore(db, logger)

	app.quotaGate, err = quota.NewGate(app.userStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create quota gate: %w", err)
	}

	if err := app.setupProvider(ctx); err != nil {
		app.cleanup()
		return nil, err
	}
	if err := app.setupScriptWriter(ctx); err != nil {
		app.cleanup()
		return nil, err
	}
	if err := app.setupLimiter(ctx); err != nil {
		app.cleanup()
		return nil, err
	}
	if err := app.setupTasks(); err != nil {
		app.cleanup()
		return nil, err
	}
	if err := app.setupServices(); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("application initialized",
		"provider", app.provider.Name(),
		"archive_enabled", app.archiver != nil,
		"script_enabled", app.scriptWriter != nil,
		"rate_limit_per_minute", cfg.Server.RateLimitPerMinute)
	return app, nil
}

// setupProvider selects the live DashScope client or the simulator, and
// builds the S3 archiver when a bucket is configured in live mode.
func (app *application) setupProvider(ctx context.Context) error {
	pc := app.config.Provider
	if pc.Mode == config.ProviderModeSimulate {
		app.provider = dashscope.NewSimulator()
		if app.config.Storage.Bucket != "" {
			app.logger.Warn("archiving is disabled in simulate mode")
		}
		return nil
	}

	client, err := dashscope.NewClient(dashscope.Config{
		APIKey:         pc.APIKey,
		BaseURL:        pc.BaseURL,
		Model:          pc.Model,
		RequestTimeout: pc.RequestTimeout(),
		MaxRetries:     pc.SubmitMaxRetries,
		RateLimit:      pc.RateLimitPerSecond,
		PromptExtend:   pc.PromptExtend,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create provider client: %w", err)
	}
	app.provider = client

	sc := app.config.Storage
	if sc.Bucket == "" {
		return nil
	}
	archiver, err := objectstore.NewS3Archiver(ctx, objectstore.Config{
		Bucket:    sc.Bucket,
		Region:    sc.Region,
		Prefix:    sc.Prefix,
		AccessKey: sc.AccessKey,
		SecretKey: sc.SecretKey,
	}, client, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create archiver: %w", err)
	}
	app.archiver = archiver
	return nil
}

func (app *application) setupScriptWriter(ctx context.Context) error {
	lc := app.config.LLM
	if lc.GeminiAPIKey == "" {
		app.logger.Info("script generation disabled: no Gemini API key")
		return nil
	}
	writer, err := gemini.NewScriptWriter(ctx, gemini.Config{
		APIKey:     lc.GeminiAPIKey,
		Model:      lc.ModelName,
		MaxRetries: 2,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create script writer: %w", err)
	}
	app.scriptWriter = writer
	return nil
}

// setupLimiter prefers the shared Redis limiter and falls back to an
// in-process one. A zero limit disables limiting.
func (app *application) setupLimiter(ctx context.Context) error {
	limit := app.config.Server.RateLimitPerMinute
	if limit <= 0 {
		return nil
	}
	rc := app.config.Redis
	if rc.Addr == "" {
		app.limiter = ratelimit.NewMemoryLimiter(limit, rateLimitWindow)
		return nil
	}
	rdb, err := ratelimit.NewRedisClient(ctx, rc.Addr, rc.Password, rc.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redis = rdb
	app.limiter = ratelimit.NewRedisLimiter(rdb, limit, rateLimitWindow, app.logger)
	return nil
}

func (app *application) setupTasks() error {
	tc := app.config.Task
	factory, err := task.NewVideoGenerationTaskFactory(app.taskStore, app.provider, app.archiver,
		task.VideoGenerationConfig{
			PollInterval:   tc.PollInterval(),
			MaxWait:        tc.MaxWait(),
			ArchiveTimeout: tc.ArchiveTimeout(),
			Watermark:      app.config.Provider.Watermark,
			NegativePrompt: app.config.Provider.NegativePrompt,
		}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create task factory: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: tc.WorkerCount,
		QueueSize:   tc.QueueSize,
	}, factory, app.logger)
	app.taskRunner.SetErrorHandler(func(t task.Task, err error) {
		app.logger.Error("task failed", "task_id", t.ID(), "task_type", t.Type(), "error", err)
	})

	app.eventEmitter = events.NewInMemoryEventEmitter(app.logger)
	app.eventEmitter.RegisterHandler(task.NewTaskFactoryEventHandler(factory, app.taskRunner, app.logger))
	return nil
}

func (app *application) setupServices() error {
	var err error
	app.userService, err = service.NewUserService(app.userStore, app.passwordVerifier, app.quotaGate, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create user service: %w", err)
	}
	app.videoService, err = service.NewVideoService(service.VideoServiceDeps{
		DB:           app.db,
		Users:        app.userStore,
		Tasks:        app.taskStore,
		Templates:    app.templateStore,
		Gate:         app.quotaGate,
		Emitter:      app.eventEmitter,
		Canceller:    app.taskRunner,
		ProviderName: app.provider.Name(),
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create video service: %w", err)
	}
	app.templateService, err = service.NewTemplateService(app.templateStore, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create template service: %w", err)
	}
	app.scriptService, err = service.NewScriptService(app.db, app.userStore, app.quotaGate, app.scriptWriter, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create script service: %w", err)
	}
	return nil
}

// Run starts the task runner and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.taskRunner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
