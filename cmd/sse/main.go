package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medconnect/clinic-backend/internal/adapters/events"
	"github.com/medconnect/clinic-backend/internal/api/handlers"
	"github.com/medconnect/clinic-backend/internal/api/middleware"
	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/redis"
	"github.com/medconnect/clinic-backend/internal/infrastructure/observability"
	"github.com/medconnect/clinic-backend/internal/infrastructure/security"
	"github.com/medconnect/clinic-backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-sse", cfg.Environment)
	logger := observability.GetLogger()
	logger.Info().Msg("Starting SSE server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Redis is required: it is the only source of realtime events
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	sseHandler := handlers.NewSSEHandler(eventBus)
	verifier := services.NewTokenVerifier(security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", sseHandler.Health)
	mux.Handle("GET /notifications/stream", middleware.Authenticate(verifier)(http.HandlerFunc(sseHandler.StreamNotifications)))

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(metrics)(handler)
	handler = middleware.CORSMiddleware(cfg.Server.AllowedOrigins)(handler)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.SSEPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,  // Longer timeout for SSE
		WriteTimeout: 0,                 // No timeout for SSE streaming
		IdleTimeout:  120 * time.Second, // Allow long-lived connections
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("SSE server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("SSE server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Int("streams", sseHandler.GetClientCount()).Msg("SSE server shutting down")

	// Open streams never finish on their own; cancelling the base context ends them
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	if err := eventBus.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing event bus")
	}

	logger.Info().Msg("SSE server stopped")
}
