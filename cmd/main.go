package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/tesseract-hub/kwentura-service/internal/ai"
	"github.com/tesseract-hub/kwentura-service/internal/config"
	"github.com/tesseract-hub/kwentura-service/internal/events"
	"github.com/tesseract-hub/kwentura-service/internal/handlers"
	"github.com/tesseract-hub/kwentura-service/internal/identity"
	"github.com/tesseract-hub/kwentura-service/internal/middleware"
	"github.com/tesseract-hub/kwentura-service/internal/redis"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
	"github.com/tesseract-hub/kwentura-service/internal/scheduler"
	"github.com/tesseract-hub/kwentura-service/internal/services"
	"github.com/tesseract-hub/kwentura-service/internal/storage"
)

// backends holds the store implementations selected by configuration
type backends struct {
	documents repository.DocumentStore
	identity  identity.Store
	blobs     storage.BlobStore
	closers   []func() error
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogger(cfg)
	ctx := context.Background()

	stores, err := initBackends(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize backends")
	}
	defer func() {
		for _, closeFn := range stores.closers {
			if err := closeFn(); err != nil {
				logger.WithError(err).Warn("Error closing backend")
			}
		}
	}()

	// Redis is optional; without it locks are process-local
	var redisClient *redis.Client
	var locker redis.Locker = redis.NewLocalLocker()
	if cfg.Redis.URL != "" {
		redisClient, err = redis.NewClient(cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis, using in-process locks")
		} else {
			locker = redis.NewRedisLocker(redisClient, logger)
			logger.Info("Redis connection established")
			defer redisClient.Close()
		}
	}

	bus, err := initBus(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize event bus")
	}

	observed := repository.NewObservedStore(stores.documents, bus, logger)
	accounts := repository.NewAccountRepository(observed)
	pending := repository.NewPendingTeacherRepository(observed)
	stories := repository.NewStoryRepository(observed)
	auditLogs := repository.NewAuditRepository(observed)
	retentionRates := repository.NewRetentionRepository(observed)
	settings := repository.NewSettingsRepository(observed)

	location, err := time.LoadLocation(cfg.Scheduler.RetentionTimezone)
	if err != nil {
		logger.WithError(err).WithField("timezone", cfg.Scheduler.RetentionTimezone).Warn("Unknown timezone, using UTC")
		location = time.UTC
	}

	guard := services.NewAdminGuard(accounts, logger)
	lifecycleService := services.NewLifecycleService(accounts, pending, stories, stores.identity, guard, locker,
		services.LifecycleConfig{LockTTL: cfg.LockTTL(), LockWait: 5 * time.Second}, logger)
	cascadeService := services.NewCascadeService(stories, stores.blobs, cfg.App.BatchConcurrency, logger)
	auditService := services.NewAuditService(auditLogs, accounts, guard, logger)
	retentionService := services.NewRetentionService(accounts, retentionRates, location, cfg.App.BatchConcurrency, logger)
	reconcileService := services.NewReconciliationService(accounts, stores.identity, cfg.App.BatchConcurrency, logger)

	generator, speech := initContentClients(ctx, cfg, logger)
	contentService := services.NewContentService(generator, speech, stores.blobs, settings, stories, logger)

	// Triggers run after the write that caused them has committed
	bus.Subscribe("audit", auditService.HandleChange)
	bus.Subscribe("cascade", cascadeService.HandleChange)
	if err := bus.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start event bus")
	}
	defer bus.Close()

	jobs := scheduler.NewScheduler(location, locker, logger)
	if err := jobs.Add(scheduler.Job{
		Name:     "retention",
		Schedule: cfg.Scheduler.RetentionSchedule,
		Run: func(ctx context.Context) error {
			_, err := retentionService.Aggregate(ctx)
			return err
		},
	}); err != nil {
		logger.WithError(err).Fatal("Failed to schedule retention job")
	}
	if cfg.Scheduler.ReconcileEnabled {
		if err := jobs.Add(scheduler.Job{
			Name:     "reconcile",
			Schedule: cfg.Scheduler.ReconcileSchedule,
			Run: func(ctx context.Context) error {
				_, err := reconcileService.Run(ctx)
				return err
			},
		}); err != nil {
			logger.WithError(err).Fatal("Failed to schedule reconcile job")
		}
	}
	jobs.Start()
	defer jobs.Stop()

	callables := handlers.NewCallableHandlers(logger)
	callables.RegisterLifecycle(lifecycleService)
	callables.RegisterAudit(auditService)
	callables.RegisterContent(contentService)

	checks := map[string]handlers.ReadinessCheck{}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
	}
	if natsBus, ok := bus.(*events.NATSBus); ok {
		checks["nats"] = func(ctx context.Context) error {
			if !natsBus.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	}
	health := handlers.NewHealthHandlers(checks)

	router := setupRouter(cfg, logger, stores.identity, callables, health, bus, jobs)
	// speech synthesis of long stories holds the response open
	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AI.TTSTimeout + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address":    cfg.GetServerAddress(),
			"doc_store":  cfg.Firebase.DocStoreProvider,
			"event_bus":  cfg.Events.Bus,
			"ai_enabled": generator != nil,
			"callables":  callables.Operations(),
		}).Info("Starting kwentura service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// setupLogger configures the application logger
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	})

	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	switch {
	case err == nil && cfg.IsProduction():
		logger.SetLevel(level)
	case cfg.IsProduction():
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// firebaseOptions returns client options for the configured credentials
func firebaseOptions(cfg *config.Config) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	} else if cfg.Firebase.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.Firebase.CredentialsJSON)))
	}
	return opts
}

// initBackends connects the identity, document and blob stores
func initBackends(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*backends, error) {
	if cfg.UsesMemoryStores() {
		logger.Warn("Using in-memory stores; data is lost on restart")
		bucket := cfg.Storage.Bucket
		if bucket == "" {
			bucket = "kwentura-local"
		}
		return &backends{
			documents: repository.NewMemoryStore(),
			identity:  identity.NewMemoryStore(),
			blobs:     storage.NewMemoryStore(bucket),
		}, nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		StorageBucket: cfg.Storage.Bucket,
	}, firebaseOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	documents := repository.NewFirestoreStore(firestoreClient)

	blobs, err := storage.NewGCSStore(ctx, storage.GCSConfig{
		Bucket:          cfg.Storage.Bucket,
		CredentialsFile: cfg.Firebase.CredentialsFile,
		CredentialsJSON: cfg.Firebase.CredentialsJSON,
	}, logger)
	if err != nil {
		documents.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"project_id": cfg.Firebase.ProjectID,
		"bucket":     cfg.Storage.Bucket,
	}).Info("Firebase backends initialized")

	return &backends{
		documents: documents,
		identity:  identity.NewFirebaseStore(authClient),
		blobs:     blobs,
		closers:   []func() error{documents.Close, blobs.Close},
	}, nil
}

// initBus selects the change stream transport
func initBus(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (events.Bus, error) {
	if cfg.Events.Bus != "nats" {
		logger.Info("Using in-process change stream")
		return events.NewLocalBus(logger), nil
	}

	bus, err := events.NewNATSBus(ctx, events.NATSConfig{
		URL:           cfg.NATS.URL,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: time.Duration(cfg.NATS.ReconnectWait) * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.WithField("url", cfg.NATS.URL).Info("Using NATS JetStream change stream")
	return bus, nil
}

// initContentClients builds the optional AI clients. Unconfigured clients are
// returned as nil interfaces so the content service reports FailedPrecondition.
func initContentClients(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (ai.TextGenerator, ai.SpeechSynthesizer) {
	var generator ai.TextGenerator
	if cfg.AIEnabled() {
		gemini, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Timeout: cfg.AI.Timeout,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("AI generation disabled")
		} else {
			generator = gemini
		}
	} else {
		logger.Info("AI_API_KEY not set, AI generation disabled")
	}

	var speech ai.SpeechSynthesizer
	if !cfg.UsesMemoryStores() {
		tts, err := ai.NewTTSClient(ctx, ai.TTSConfig{
			CredentialsFile: cfg.Firebase.CredentialsFile,
			CredentialsJSON: cfg.Firebase.CredentialsJSON,
			Timeout:         cfg.AI.TTSTimeout,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Speech synthesis disabled")
		} else {
			speech = tts
		}
	}
	return generator, speech
}

// setupRouter configures the Gin router with middleware and routes
func setupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	verifier middleware.TokenVerifier,
	callables *handlers.CallableHandlers,
	health *handlers.HealthHandlers,
	bus events.Bus,
	jobs *scheduler.Scheduler,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.SetupCORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health check endpoints
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Internal stats endpoint (for monitoring)
	router.GET("/internal/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"event_bus": bus.GetStats(),
			"scheduler": jobs.GetStats(),
		})
	})

	callable := router.Group("/callable")
	callable.Use(middleware.FirebaseAuth(verifier, logger))
	{
		callable.POST("/:name", callables.Invoke)
	}

	return router
}
