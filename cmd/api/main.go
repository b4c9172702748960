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

	"github.com/malabartours/bookings/internal/cache"
	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/http/handlers"
	httpmw "github.com/malabartours/bookings/internal/http/middleware"
	"github.com/malabartours/bookings/internal/mailer"
	"github.com/malabartours/bookings/internal/notify"
	"github.com/malabartours/bookings/internal/payments"
	"github.com/malabartours/bookings/internal/repo/postgres"
	"github.com/malabartours/bookings/internal/service"
	"github.com/malabartours/bookings/pkg/config"
	"github.com/malabartours/bookings/pkg/database"
	"github.com/malabartours/bookings/pkg/events"
	"github.com/malabartours/bookings/pkg/logger"
	mw "github.com/malabartours/bookings/pkg/middleware"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	idempotencyStore := cache.NewRedisStore(cfg.Redis)
	if err := idempotencyStore.Ping(ctx); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer idempotencyStore.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	bookingRepo := postgres.NewBookingRepo(pool)
	packageRepo := postgres.NewPackageRepo(pool)
	vehicleRepo := postgres.NewVehicleRepo(pool)
	paymentRepo := postgres.NewPaymentRequestRepo(pool)
	assignmentRepo := postgres.NewAssignmentRepo(pool)
	userRepo := postgres.NewUserRepo(pool)

	// Payment providers
	providers := map[domain.PaymentMethod]payments.Provider{
		domain.MethodUPI: payments.NewUPIProvider(cfg.Booking.UPIVPA, cfg.Email.FromName),
	}
	if cfg.Stripe.SecretKey != "" {
		providers[domain.MethodPSP] = payments.NewStripeProvider(cfg.Stripe.SecretKey)
	}

	// Services
	bookingService := service.NewBookingService(bookingRepo, packageRepo, vehicleRepo, paymentRepo, eventBus, cfg)
	paymentService := service.NewPaymentService(bookingRepo, paymentRepo, vehicleRepo, assignmentRepo, providers, eventBus, cfg)
	assignmentService := service.NewAssignmentService(assignmentRepo, bookingRepo, eventBus)
	vehicleService := service.NewVehicleService(vehicleRepo, bookingRepo)
	authService := service.NewAuthService(userRepo, cfg)

	// Notification worker
	worker := notify.NewWorker(eventBus, buildMailer(cfg))
	if err := worker.Start(); err != nil {
		logger.Error("failed to start notification worker", "error", err)
		os.Exit(1)
	}

	// Payment expiry sweeper
	go paymentService.RunExpirySweeper(ctx)

	// Handlers
	bookingHandler := handlers.NewBookingHandler(bookingService)
	myBookingsHandler := handlers.NewMyBookingsHandler(bookingService)
	adminBookingHandler := handlers.NewAdminBookingHandler(bookingService, paymentService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	driverHandler := handlers.NewDriverHandler(assignmentService)
	vehicleHandler := handlers.NewVehicleHandler(vehicleService)
	packageHandler := handlers.NewPackageHandler(packageRepo)
	authHandler := handlers.NewAuthHandler(authService)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	secret := cfg.Auth.JWTSecret
	limiter := httpmw.NewRateLimiter(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst)
	r.Route("/v1", func(r chi.Router) {
		r.With(limiter.Limit).Mount("/auth", authHandler.Routes())
		r.Mount("/packages", packageHandler.Routes())

		r.With(limiter.Limit, httpmw.OptionalJWT(secret), httpmw.Idempotency(idempotencyStore)).Mount("/bookings", bookingHandler.Routes())
		r.With(httpmw.RequireJWT(secret, "user")).Mount("/my/bookings", myBookingsHandler.Routes())

		r.Mount("/payments", paymentHandler.Routes())

		r.With(httpmw.RequireJWT(secret, "driver")).Mount("/driver", driverHandler.Routes())

		r.Route("/admin", func(r chi.Router) {
			r.Use(httpmw.RequireJWT(secret, "admin"))
			r.Mount("/bookings", adminBookingHandler.Routes())
			r.Mount("/vehicles", vehicleHandler.Routes())
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down api")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("api listening", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func buildMailer(cfg *config.Config) mailer.Mailer {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
	}
}
