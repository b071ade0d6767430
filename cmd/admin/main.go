package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/couponops/promo-admin/internal/abtest"
	"github.com/couponops/promo-admin/internal/backend"
	"github.com/couponops/promo-admin/internal/bulkjob"
	"github.com/couponops/promo-admin/internal/config"
	"github.com/couponops/promo-admin/internal/handler"
	"github.com/couponops/promo-admin/internal/metrics"
	"github.com/couponops/promo-admin/internal/service"
	"github.com/couponops/promo-admin/internal/validator"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	m := metrics.New()
	metrics.SetGlobal(m)

	// Connect to the storefront backend with retry
	ctx := context.Background()
	api, err := backend.Dial(ctx, cfg.Backend.BaseURL, cfg.Backend.RequestTimeout(), cfg.Backend.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to reach storefront backend")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Promotion Admin Gateway",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // CSV uploads stay well under 1MB at the 500-address cap
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	// Initialize validator with custom rules
	validate := validator.New()

	// Orchestration components. The refresh hook is where dependent views
	// (assignment lists) get reloaded once a distribution job succeeds.
	onJobSucceeded := func(couponID string) {
		log.Info().Str("coupon_id", couponID).Msg("assignments refresh triggered")
	}
	jobRegistry := bulkjob.NewRegistry(api, cfg.Poll.Interval(), onJobSucceeded)
	abManager := abtest.NewManager(api, cfg.Poll.Interval(), func(pairID string) {
		log.Info().Str("pair_id", pairID).Msg("A/B assignments refresh triggered")
	})

	// Services and handlers (layered architecture)
	promotionService := service.NewPromotionService(api)
	couponService := service.NewCouponService(api)
	promotionHandler := handler.NewPromotionHandler(promotionService, validate)
	couponHandler := handler.NewCouponHandler(couponService, validate)
	jobHandler := handler.NewJobHandler(jobRegistry, validate)
	abtestHandler := handler.NewABTestHandler(abManager, validate)
	healthHandler := handler.NewHealthHandler(api)

	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// Promotion routes
	app.Post("/api/promotions", promotionHandler.CreatePromotion)
	app.Get("/api/promotions", promotionHandler.ListPromotions)
	app.Get("/api/promotions/schedule", promotionHandler.Schedule)
	app.Post("/api/promotions/preview", promotionHandler.Preview)
	app.Put("/api/promotions/:id", promotionHandler.UpdatePromotion)

	// Coupon routes
	app.Post("/api/coupons", couponHandler.CreateCoupon)
	app.Get("/api/coupons", couponHandler.ListCoupons)
	app.Patch("/api/coupons/:id", couponHandler.UpdateCoupon)
	app.Post("/api/coupons/:id/email-batch", couponHandler.ParseEmailBatch)
	app.Post("/api/coupons/:id/bulk-email", couponHandler.BulkEmail)
	app.Post("/api/coupons/:id/segment-preview", couponHandler.SegmentPreview)

	// Distribution job routes
	app.Post("/api/coupons/:id/jobs", jobHandler.StartJob)
	app.Get("/api/coupons/:id/jobs", jobHandler.RecentJobs)
	app.Get("/api/coupons/:id/jobs/current", jobHandler.CurrentJob)
	app.Post("/api/coupons/:id/jobs/cancel", jobHandler.CancelJob)
	app.Post("/api/coupons/:id/jobs/retry", jobHandler.RetryJob)
	app.Delete("/api/coupons/:id/workspace", jobHandler.ReleaseWorkspace)

	// A/B test routes
	app.Post("/api/abtests", abtestHandler.StartABTest)
	app.Get("/api/abtests/:id", abtestHandler.GetABTest)
	app.Get("/api/abtests/:id/analytics", abtestHandler.ABTestAnalytics)
	app.Delete("/api/abtests/:id", abtestHandler.ReleaseABTest)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting admin gateway")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Poll loops must not outlive the process: explicit teardown, not GC.
	log.Info().Msg("stopping poll loops...")
	jobRegistry.StopAll()
	abManager.StopAll()
	log.Info().Msg("admin gateway stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
