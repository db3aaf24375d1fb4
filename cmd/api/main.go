package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/medconnect/clinic-backend/internal/adapters/cache"
	"github.com/medconnect/clinic-backend/internal/adapters/database"
	"github.com/medconnect/clinic-backend/internal/adapters/events"
	"github.com/medconnect/clinic-backend/internal/api/handlers"
	"github.com/medconnect/clinic-backend/internal/api/middleware"
	"github.com/medconnect/clinic-backend/internal/api/routes"
	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/providers"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/redis"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	"github.com/medconnect/clinic-backend/internal/infrastructure/security"
	"github.com/medconnect/clinic-backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	pgClient.OnTx(func(ctx context.Context, operation string, duration time.Duration) {
		observability.RecordDBMetric(ctx, metrics, operation, duration)
	})
	db := sqlx.NewDb(pgClient.DB(), "postgres")

	// Redis backs OTP codes, the response cache and realtime fan-out. The API
	// keeps working without it.
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable; running without cache and realtime events")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient, "clinic:")
		eventBus = events.NewRedisEventBus(redisClient)
		defer func() {
			if err := eventBus.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing event bus")
			}
		}()
	}

	// Initialize adapters
	userAdapter := database.NewUserAdapter(pgClient)
	profileAdapter := database.NewProfileAdapter(pgClient)
	availabilityAdapter := database.NewAvailabilityAdapter(pgClient)
	appointmentAdapter := database.NewAppointmentAdapter(pgClient)
	messageAdapter := database.NewMessageAdapter(pgClient)
	articleAdapter := database.NewArticleAdapter(pgClient)
	eventAdapter := database.NewEventAdapter(pgClient)
	notificationAdapter := database.NewNotificationAdapter(db)

	var otpStore repositories.OTPRepository
	if cacheProvider != nil {
		otpStore = cache.NewOTPStore(cacheProvider)
	} else {
		otpStore = database.NewOTPAdapter(pgClient)
	}

	loc := cfg.Clinic.Location()

	// Initialize services
	dispatcher := services.NewNotificationDispatcher(userAdapter, notificationAdapter, eventBus, cfg.Notifications, metrics)
	dispatcher.Start(ctx)
	notifier := services.NewNotificationService(notificationAdapter, eventBus, dispatcher, metrics)

	hasher := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	authService := services.NewAuthService(userAdapter, profileAdapter, otpStore, hasher, tokens, cfg.Auth.AdminSecret, cfg.Auth.OTPTTL)
	profileService := services.NewProfileService(userAdapter, profileAdapter, notifier)
	availabilityService := services.NewAvailabilityService(availabilityAdapter, profileAdapter, loc)
	appointmentService := services.NewAppointmentService(appointmentAdapter, profileAdapter, notifier, metrics)
	messageService := services.NewMessageService(messageAdapter, userAdapter, notifier)
	articleService := services.NewArticleService(articleAdapter, notifier)
	eventService := services.NewEventService(eventAdapter, notifier, loc)
	dashboardService := services.NewDashboardService(
		userAdapter,
		profileAdapter,
		appointmentAdapter,
		availabilityAdapter,
		articleAdapter,
		eventAdapter,
		messageAdapter,
		loc,
	)

	// Initialize handlers
	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Profile:      handlers.NewProfileHandler(profileService),
		Availability: handlers.NewAvailabilityHandler(availabilityService, profileService),
		Appointment:  handlers.NewAppointmentHandler(appointmentService),
		Message:      handlers.NewMessageHandler(messageService),
		Notification: handlers.NewNotificationHandler(notifier),
		Article:      handlers.NewArticleHandler(articleService),
		Event:        handlers.NewEventHandler(eventService),
		Dashboard:    handlers.NewDashboardHandler(dashboardService),
	}

	var responseCache *middleware.ResponseCache
	if cacheProvider != nil {
		responseCache = middleware.NewResponseCache(cacheProvider)
	}

	ready := func(r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pgClient.Ping(ctx); err != nil {
			return err
		}
		if redisClient != nil {
			return redisClient.Ping(ctx)
		}
		return nil
	}

	router := routes.NewRouter(h, authService, responseCache, metrics, cfg.Server.AllowedOrigins, ready)

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	// Drain queued broadcasts before the database goes away
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Notification dispatcher did not drain")
	}
	cancel()

	logger.Info().Msg("Server stopped")
}
