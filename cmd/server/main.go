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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lessonlift/backend/internal/config"
	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/handler"
	"github.com/lessonlift/backend/internal/llm"
	"github.com/lessonlift/backend/internal/logger"
	appMiddleware "github.com/lessonlift/backend/internal/middleware"
	"github.com/lessonlift/backend/internal/repository"
	"github.com/lessonlift/backend/internal/service"
	"github.com/lessonlift/backend/pkg/crypto"
	"github.com/lessonlift/backend/pkg/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database error")
	}
	defer db.Close()
	log.Info().Msg("database connected")

	// SEN/EAL notes are sealed at rest when a key is configured
	var sealer repository.FieldSealer
	if key, err := cfg.NotesKey(); err != nil {
		log.Fatal().Err(err).Msg("invalid notes encryption key")
	} else if key != nil {
		s, err := crypto.NewSealer(string(key))
		if err != nil {
			log.Fatal().Err(err).Msg("encryption error")
		}
		sealer = s
	} else {
		log.Warn().Msg("NOTES_ENCRYPTION_KEY not set, SEN/EAL notes stored in plain text")
	}

	// Text generation
	generator, err := llm.NewOpenAIClient(llm.OpenAIOptions{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("OpenAI client error")
	}

	// Payment gateway
	var gateway payment.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey, nil)
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, using mock checkout")
		gateway = payment.NewMockGateway()
	}

	// Repositories and services
	usageRepo := repository.NewUsageRepository(db)
	lessonRepo := repository.NewLessonRepository(db, sealer)
	catalog := domain.NewPlanCatalog(cfg.Stripe.StarterPrice, cfg.Stripe.StandardPrice, cfg.Stripe.ProPrice)

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.JWTAudience, cfg.AdminEmails)
	gate := service.NewEntitlementGate(usageRepo, log)
	lessonSvc := service.NewLessonService(lessonRepo, gate, generator, log)
	subSvc := service.NewSubscriptionService(catalog, gateway, cfg.PublicSiteURL, cfg.DevOrigin, log)

	// Rate limiting is shared through Redis when configured
	var (
		rateLimit   func(http.Handler) http.Handler
		cachePinger handler.Pinger
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis not reachable, rate limiter will fail open")
		}
		perMinute := int(cfg.RateLimitRPS*60) + cfg.RateLimitBurst
		rateLimit = appMiddleware.NewRedisRateLimiter(rdb, perMinute, time.Minute).Middleware()
		cachePinger = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info().Int("per_minute", perMinute).Msg("redis rate limiter enabled")
	} else {
		rateLimit = appMiddleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware()
	}

	// Initialize handlers
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	usageHandler := handler.NewUsageHandler(gate)
	paymentHandler := handler.NewPaymentHandler(subSvc)
	plansHandler := handler.NewPlansHandler(catalog)
	healthHandler := handler.NewHealthHandler(db, cachePinger)
	adminHandler := handler.NewAdminHandler(lessonRepo)

	r := newRouter(routerDeps{
		log:         log,
		corsOrigins: cfg.CORSOrigins,
		rateLimit:   rateLimit,
		auth:        appMiddleware.Auth(authSvc),
		lessons:     lessonHandler,
		usage:       usageHandler,
		payment:     paymentHandler,
		plans:       plansHandler,
		health:      healthHandler,
		admin:       adminHandler,
	})

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: generation can take several model calls
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Str("model", generator.Model()).Msg("LessonLift API listening")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}

type routerDeps struct {
	log         zerolog.Logger
	corsOrigins []string
	rateLimit   func(http.Handler) http.Handler
	auth        func(http.Handler) http.Handler
	lessons     *handler.LessonHandler
	usage       *handler.UsageHandler
	payment     *handler.PaymentHandler
	plans       *handler.PlansHandler
	health      *handler.HealthHandler
	admin       *handler.AdminHandler
}

func newRouter(d routerDeps) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.RequestID)
	r.Use(appMiddleware.Logger(d.log))
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "Apikey", appMiddleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", appMiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check and public routes (no auth)
	r.Get("/health", d.health.Check)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/plans", d.plans.List)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(d.rateLimit)
		r.Use(d.auth)

		r.Post("/functions/v1/generate-lesson", d.lessons.Generate)
		r.Post("/functions/v1/create-checkout-session", d.payment.CreateCheckout)
		r.Get("/functions/v1/usage", d.usage.Get)

		r.Get("/api/lessons", d.lessons.List)
		r.Get("/api/lessons/{id}/export", d.lessons.Export)
		r.Get("/api/lessons/{id}", d.lessons.GetByID)
		r.Delete("/api/lessons/{id}", d.lessons.Delete)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Get("/api/admin/stats", d.admin.GetStats)
		})
	})

	return r
}
