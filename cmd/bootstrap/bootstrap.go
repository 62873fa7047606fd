package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"whatsapp-booking-bot/config"
	deliveryHttp "whatsapp-booking-bot/internal/delivery/http"
	"whatsapp-booking-bot/internal/delivery/http/handler"
	"whatsapp-booking-bot/internal/delivery/http/middleware"
	"whatsapp-booking-bot/internal/domain/gateway"
	"whatsapp-booking-bot/internal/infrastructure/cache"
	"whatsapp-booking-bot/internal/infrastructure/database"
	"whatsapp-booking-bot/internal/infrastructure/messaging"
	"whatsapp-booking-bot/internal/infrastructure/metrics"
	"whatsapp-booking-bot/internal/repository"
	"whatsapp-booking-bot/internal/service"
	"whatsapp-booking-bot/internal/usecase"
	"whatsapp-booking-bot/pkg/jwt"
	"whatsapp-booking-bot/pkg/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AMQPConn    *amqp091.Connection
	AMQPChannel *amqp091.Channel
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	log := NewLogger(cfg.App.LogLevel)
	app.Log = log
	log.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	dispatcher, err := app.newDispatcher()
	if err != nil {
		app.Close()
		return nil, err
	}

	server, err := initializeServer(cfg, log, db, redisClient, dispatcher)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Server = server

	return app, nil
}

// NewLogger builds the JSON logger shared by all layers
func NewLogger(level string) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// newDispatcher selects the outbound transport from WHATSAPP_DRIVER
func (app *App) newDispatcher() (gateway.MessageDispatcher, error) {
	cfg := app.Config
	switch cfg.WhatsApp.Driver {
	case config.DispatcherQueue:
		conn, err := messaging.NewRabbitMQ(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		app.AMQPConn = conn

		ch, err := messaging.OpenOutboundChannel(conn, cfg.RabbitMQ.Queue)
		if err != nil {
			return nil, err
		}
		app.AMQPChannel = ch
		app.Log.Infof("Outbound messages published to queue %s", cfg.RabbitMQ.Queue)
		return messaging.NewQueueDispatcher(ch, cfg.RabbitMQ.Queue, cfg.WhatsApp.TemplateLang, app.Log), nil
	case config.DispatcherTwilio:
		if cfg.Twilio.AccountSID == "" {
			app.Log.Warn("TWILIO_ACCOUNT_SID is not set; outbound sends will fail")
		}
		for _, name := range []string{cfg.Templates.Greeting, cfg.Templates.Scheduled, cfg.Templates.Rescheduled, cfg.Templates.Cancelled} {
			if _, ok := cfg.Twilio.ContentSIDs[name]; !ok && !strings.HasPrefix(name, "HX") {
				app.Log.Warnf("Template %s has no Twilio content SID; sends of it will fail", name)
			}
		}
		return messaging.NewTwilioDispatcher(cfg.Twilio, app.Log), nil
	case config.DispatcherCloudAPI, "":
		if cfg.WhatsApp.AccessToken == "" || cfg.WhatsApp.PhoneNumberID == "" {
			app.Log.Warn("WhatsApp Cloud API credentials are not set; outbound sends will fail")
		}
		return messaging.NewCloudAPIDispatcher(cfg.WhatsApp, app.Log), nil
	default:
		return nil, fmt.Errorf("unknown WHATSAPP_DRIVER %q", cfg.WhatsApp.Driver)
	}
}

// initializeServer creates and configures the HTTP server
func initializeServer(
	cfg *config.Config,
	log *logrus.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	dispatcher gateway.MessageDispatcher,
) (*http.Server, error) {
	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	doctorRepo := repository.NewDoctorRepository()
	patientRepo := repository.NewPatientRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	catalog, err := service.NewSlotCatalog(cfg.Booking)
	if err != nil {
		return nil, fmt.Errorf("invalid booking configuration: %w", err)
	}
	auditService := service.NewAuditService(log, auditLogRepo)
	conversationMetrics := metrics.NewConversationMetrics(prometheus.DefaultRegisterer)

	// Initialize usecases
	conversationUsecase := usecase.NewConversationUsecase(usecase.ConversationDeps{
		DB:              db,
		Log:             log,
		Metrics:         conversationMetrics,
		Normalizer:      service.NewEventNormalizer(customValidator),
		Catalog:         catalog,
		Locker:          service.NewAddressLocker(),
		Guard:           service.NewDeliveryGuard(redisClient, cfg.Booking.DedupeWindow, log),
		Audit:           auditService,
		Dispatcher:      dispatcher,
		DoctorRepo:      doctorRepo,
		PatientRepo:     patientRepo,
		AppointmentRepo: appointmentRepo,
		Templates:       cfg.Templates,
	})
	authUsecase := usecase.NewAuthUsecase(log, cfg.Admin, jwtService, redisClient)
	doctorUsecase := usecase.NewDoctorUsecase(db, log, doctorRepo, auditService)
	appointmentUsecase := usecase.NewAppointmentUsecase(db, log, doctorRepo, patientRepo, appointmentRepo, catalog)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditService)

	router := deliveryHttp.NewRouter(deliveryHttp.RouterDeps{
		RateLimit:          cfg.RateLimit,
		WebhookHandler:     handler.NewWebhookHandler(conversationUsecase, log),
		AuthHandler:        handler.NewAuthHandler(authUsecase, customValidator),
		DoctorHandler:      handler.NewDoctorHandler(doctorUsecase, appointmentUsecase, customValidator),
		AppointmentHandler: handler.NewAppointmentHandler(appointmentUsecase),
		AuditLogHandler:    handler.NewAuditLogHandler(auditLogUsecase),
		AuthMiddleware:     middleware.NewAuthMiddleware(jwtService, redisClient),
		CORSMiddleware:     middleware.NewCORSMiddleware(cfg.App.CORSOrigin),
		SignatureCheck:     middleware.NewTwilioSignatureMiddleware(cfg.Twilio.AuthToken, cfg.Twilio.WebhookURL, log),
		Readiness: map[string]deliveryHttp.ReadinessCheck{
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
		},
	})

	// Create server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s, dispatcher: %s", app.Config.App.Env, app.Config.WhatsApp.Driver)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// In-flight webhooks finish before connections close
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, broker)
func (app *App) Close() {
	if app.AMQPChannel != nil {
		app.AMQPChannel.Close()
	}
	if app.AMQPConn != nil {
		app.AMQPConn.Close()
	}

	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
