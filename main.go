package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"pollgate/internal/config"
	"pollgate/internal/handler"
	"pollgate/internal/middleware"
	"pollgate/internal/ratelimit"
	"pollgate/internal/repository"
	"pollgate/internal/service"
	"pollgate/internal/service/stripe"
	"pollgate/pkg/database"
	"pollgate/pkg/logger"
	"pollgate/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db          *database.PostgresDB
	redisClient *redis.Client
	limiters    *ratelimit.Set
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Stop rate limiter janitors
	if r.limiters != nil {
		r.limiters.Close()
	}

	// Close Redis connection
	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errors = append(errors, fmt.Errorf("Redis close: %w", err))
		} else {
			r.log.Info("Redis connection closed successfully")
		}
	}

	// Close database connection pool
	if r.db != nil {
		r.log.Info("Closing database connection pool...")
		r.db.Close()
		r.log.Info("Database connection pool closed successfully")
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting pollgate server")

	// Initialize database connection
	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize Redis connection. Redis is a fast path only, so a missing
	// or unreachable Redis degrades to database-backed checks.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, continuing without cache")
			redisClient = nil
		}
	} else {
		log.Info("No Redis URL configured, running without cache")
	}

	// Initialize repositories
	pollRepo := repository.NewPollRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Per-route rate limiters
	limiters := ratelimit.NewSet()

	// Initialize services
	stripeService := stripe.NewService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, log.Logger)
	pollService := service.NewPollService(pollRepo, voteRepo, cfg.AppBaseURL, log.Logger)
	voteService := service.NewVoteService(pollRepo, voteRepo, redisClient, log.Logger)
	resultsService := service.NewResultsService(pollRepo, voteRepo, paymentRepo, redisClient, log.Logger)
	paymentService := service.NewPaymentService(pollRepo, paymentRepo, stripeService, redisClient, cfg.AppBaseURL, cfg.ResultsPriceCents, log.Logger)

	// Setup router
	router := setupRouter(cfg, log, db, redisClient, limiters, pollService, voteService, resultsService, paymentService, stripeService)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Create resources manager for cleanup
	resources := &Resources{
		db:          db,
		redisClient: redisClient,
		limiters:    limiters,
		server:      server,
		log:         log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(
	cfg *config.Config,
	log *logger.Logger,
	db *database.PostgresDB,
	redisClient *redis.Client,
	limiters *ratelimit.Set,
	pollService *service.PollService,
	voteService *service.VoteService,
	resultsService *service.ResultsService,
	paymentService *service.PaymentService,
	provider service.PaymentProvider,
) *chi.Mux {
	r := chi.NewRouter()

	corsConfig := &middleware.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Accept-Language"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         86400,
	}

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Create handlers
	healthHandler := handler.NewHealthHandler(db, redisClient, log)
	pollHandler := handler.NewPollHandler(pollService, limiters, log)
	voteHandler := handler.NewVoteHandler(voteService, limiters, log)
	resultsHandler := handler.NewResultsHandler(resultsService, log)
	paymentHandler := handler.NewPaymentHandler(paymentService, provider, limiters, log)

	// Health check
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Route("/polls", func(r chi.Router) {
			r.Post("/", pollHandler.Create)

			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", pollHandler.Get)
				r.Delete("/", pollHandler.Delete)
				r.Post("/vote", voteHandler.Submit)
				r.Get("/results", resultsHandler.Get)
				r.Get("/admin", resultsHandler.Admin)
				r.Post("/checkout", paymentHandler.CreateCheckout)
				r.Get("/payment-status", paymentHandler.Status)
			})
		})

		r.Post("/webhook/stripe", paymentHandler.Webhook)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
