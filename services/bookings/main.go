package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/diagnosis/boxbook/pkg/cache"
	"github.com/diagnosis/boxbook/pkg/config"
	"github.com/diagnosis/boxbook/pkg/database"
	"github.com/diagnosis/boxbook/pkg/events"
	"github.com/diagnosis/boxbook/pkg/logger"
	mw "github.com/diagnosis/boxbook/pkg/middleware"
	"github.com/diagnosis/boxbook/pkg/retry"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
	"github.com/diagnosis/boxbook/services/bookings/internal/handlers"
	"github.com/diagnosis/boxbook/services/bookings/internal/notify"
	"github.com/diagnosis/boxbook/services/bookings/internal/payment"
	"github.com/diagnosis/boxbook/services/bookings/internal/pricing"
	"github.com/diagnosis/boxbook/services/bookings/internal/promo"
	"github.com/diagnosis/boxbook/services/bookings/internal/repository"
	"github.com/diagnosis/boxbook/services/bookings/internal/service"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to redis
	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL, "boxbook-bookings")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is not set, checkout will fail")
	}

	// Initialize repositories
	reservationRepo := repository.NewReservationRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	promoRepo := repository.NewPromoRepository(pool)

	// Initialize services
	reservationService := service.NewReservationService(
		reservationRepo,
		settingsRepo,
		promo.NewValidator(promoRepo),
		payment.NewStripeGateway(cfg.Stripe),
		notify.NewEventNotifier(eventBus, cfg.Email.AdminEmail, cfg.Venue.NotifyTimeout),
		cache.NewEventLedger(rdb, cfg.Redis.EventLease, cfg.Redis.EventTTL),
		eventBus,
		service.Config{
			Rate: pricing.Rate{
				PerHour:           cfg.Venue.PerHour,
				PerPerson:         cfg.Venue.PerPerson,
				ExtraHourDiscount: cfg.Venue.ExtraHourDiscount,
			},
			Groups:   domain.GroupLimits{Min: cfg.Venue.MinGroupSize, Max: cfg.Venue.MaxGroupSize},
			Currency: cfg.Stripe.Currency,
			TestMode: cfg.Venue.TestMode,
			Location: cfg.Venue.Location(),
			ConfirmLookup: retry.Policy{
				Attempts: cfg.Venue.ConfirmLookupTries,
				Delay:    cfg.Venue.ConfirmLookupDelay,
			},
		},
	)

	// Initialize handlers
	h := handlers.New(reservationService, cfg.Auth)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(mw.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(mw.Health(map[string]mw.HealthCheck{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"nats":     eventBus.Ping,
	}))

	limiter := mw.NewRateLimiter(cache.NewCounter(rdb), mw.RateLimitConfig{
		Requests: cfg.Venue.ReservationRateMax,
		Window:   cfg.Venue.ReservationRateWindow,
		Prefix:   "reservations",
	})
	h.Mount(r,
		limiter.Middleware(),
		mw.IdempotencyMiddleware(cache.NewStore(rdb), cfg.Redis.IdempotencyTTL),
	)

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bookings service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bookings service", "port", cfg.Server.Port, "test_mode", cfg.Venue.TestMode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}
