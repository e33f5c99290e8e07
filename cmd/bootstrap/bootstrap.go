package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"telemed-backend/config"
	deliveryHttp "telemed-backend/internal/delivery/http"
	"telemed-backend/internal/delivery/http/handler"
	"telemed-backend/internal/delivery/http/middleware"
	domainRepo "telemed-backend/internal/domain/repository"
	"telemed-backend/internal/infrastructure/cache"
	"telemed-backend/internal/infrastructure/database"
	"telemed-backend/internal/repository"
	"telemed-backend/internal/service"
	"telemed-backend/internal/usecase"
	"telemed-backend/pkg/jwt"
	"telemed-backend/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// changeFeed is a ChangeFeed the application owns and must stop
type changeFeed interface {
	domainRepo.ChangeFeed
	Stop()
}

// App holds all dependencies for the application
type App struct {
	Config        *config.Config
	Log           *logrus.Logger
	DB            *gorm.DB
	RedisClient   *redis.Client
	Feed          changeFeed
	Subscriptions *service.SubscriptionManager
	Server        *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &App{
		Config: cfg,
		Log:    setupLogger(cfg.App),
	}
	app.Log.Info("Configuration loaded successfully")

	if err := app.initialize(context.Background()); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg config.AppConfig) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func (app *App) initialize(ctx context.Context) error {
	cfg := app.Config

	// Document store
	store, err := app.initializeStore()
	if err != nil {
		return err
	}

	// Change feed
	feed, err := app.initializeFeed(ctx)
	if err != nil {
		return err
	}
	app.Feed = feed

	repo := repository.NewPublishingDocumentRepository(store, feed, app.Log)
	app.Subscriptions = service.NewSubscriptionManager(repo, feed, app.Log, cfg.Realtime.RetryBackoff)

	app.Server = app.initializeServer(repo)
	return nil
}

func (app *App) initializeStore() (domainRepo.DocumentRepository, error) {
	cfg := app.Config

	switch cfg.App.StoreDriver {
	case config.StoreDriverMemory:
		app.Log.Warn("Using in-memory document store; data is lost on restart")
		return repository.NewMemoryDocumentRepository(), nil

	case config.StoreDriverPostgres:
		if err := database.RunMigrations(cfg.DB, app.Log); err != nil {
			return nil, err
		}

		db, err := database.NewPostgresConnection(cfg.DB, app.Log)
		if err != nil {
			return nil, err
		}
		app.DB = db
		return repository.NewPostgresDocumentRepository(db, app.Log), nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.App.StoreDriver)
}

func (app *App) initializeFeed(ctx context.Context) (changeFeed, error) {
	cfg := app.Config

	switch cfg.Realtime.Driver {
	case config.RealtimeDriverMemory:
		return service.NewMemoryChangeFeed(cfg.Realtime.Buffer), nil

	case config.RealtimeDriverRedis:
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, app.Log)
		if err != nil {
			return nil, err
		}
		app.RedisClient = redisClient

		feed, err := service.NewRedisChangeFeed(ctx, redisClient, app.Log, cfg.Realtime.ChannelPrefix, cfg.Realtime.Buffer)
		if err != nil {
			return nil, fmt.Errorf("failed to start change feed: %w", err)
		}
		return feed, nil
	}

	return nil, fmt.Errorf("unknown realtime driver %q", cfg.Realtime.Driver)
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(repo domainRepo.DocumentRepository) *http.Server {
	cfg := app.Config
	log := app.Log

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize services
	auditService := service.NewAuditService(log, repo)

	// Initialize usecases
	userUsecase := usecase.NewUserDirectoryUsecase(log, repo, auditService)
	appointmentUsecase := usecase.NewAppointmentUsecase(log, repo, app.Subscriptions, auditService)
	consultationUsecase := usecase.NewConsultationUsecase(log, repo, auditService)
	chatUsecase := usecase.NewChatUsecase(log, repo, app.Subscriptions)
	videoCallUsecase := usecase.NewVideoCallUsecase(log, repo, auditService)
	dashboardUsecase := usecase.NewDashboardUsecase(log, repo)

	// Initialize handlers
	streamer := handler.NewStreamer(cfg.App.CORSOrigin, log)
	handlers := deliveryHttp.Handlers{
		User:         handler.NewUserHandler(userUsecase, customValidator),
		Appointment:  handler.NewAppointmentHandler(appointmentUsecase, customValidator, streamer),
		Consultation: handler.NewConsultationHandler(consultationUsecase, customValidator),
		Chat:         handler.NewChatHandler(chatUsecase, customValidator, streamer),
		VideoCall:    handler.NewVideoCallHandler(videoCallUsecase, customValidator),
		Dashboard:    handler.NewDashboardHandler(dashboardUsecase),
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, userUsecase, log)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigin)

	// Initialize router
	router := deliveryHttp.NewRouter(handlers, authMiddleware, corsMiddleware)

	// Create server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.App.Port),
		Handler: router.Setup(),
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s, store: %s, realtime: %s",
			app.Config.App.Env, app.Config.App.StoreDriver, app.Config.Realtime.Driver)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), app.Config.App.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close releases subscriptions, the change feed and connections, in that order
func (app *App) Close() {
	if app.Subscriptions != nil {
		app.Subscriptions.Close()
	}

	if app.Feed != nil {
		app.Feed.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
