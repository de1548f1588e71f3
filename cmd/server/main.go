package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vendalivre/payhub/internal/config"
	"github.com/vendalivre/payhub/internal/database"
	"github.com/vendalivre/payhub/internal/fees"
	"github.com/vendalivre/payhub/internal/gateway"
	"github.com/vendalivre/payhub/internal/handler"
	"github.com/vendalivre/payhub/internal/httpx"
	"github.com/vendalivre/payhub/internal/middleware"
	"github.com/vendalivre/payhub/internal/repository"
	"github.com/vendalivre/payhub/internal/service"
	"github.com/vendalivre/payhub/internal/validator"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := database.RunMigrations(cfg.DatabaseURL()); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(gin.Recovery())

	healthHandler := handler.NewHealthHandler(pool)
	router.GET("/health", healthHandler.Health)

	setupRoutes(router, cfg, pool)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func setupRoutes(router *gin.Engine, cfg *config.Config, pool *pgxpool.Pool) {
	limiter := httpx.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	exec := httpx.NewExecutor(limiter,
		httpx.WithClient(&http.Client{Timeout: cfg.ProviderTimeout}),
		httpx.WithRetries(cfg.RetryMax),
		httpx.WithBaseDelay(cfg.RetryBaseDelay),
	)

	registry := gateway.NewRegistry(cfg, exec)
	validatorClient := validator.NewClient(cfg.ValidatorURL, cfg.ValidatorKey, exec)

	chargeRepo := repository.NewChargeRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)

	events := service.LogOrderEvents{}
	chargeService := service.NewChargeService(registry, fees.NewTieredCalculator(), validatorClient, chargeRepo, ledgerRepo, events, cfg.MerchantID)
	reconciler := service.NewReconciler(registry, chargeRepo, ledgerRepo, events)

	chargeHandler := handler.NewChargeHandler(chargeService)
	webhookHandler := handler.NewWebhookHandler(reconciler)

	api := router.Group("/api/v1")
	{
		api.POST("/charges", chargeHandler.Create)
		api.GET("/charges/:id", chargeHandler.Get)
		api.POST("/charges/:id/cancel", chargeHandler.Cancel)
		api.POST("/charges/:id/refund", chargeHandler.Refund)
	}

	router.POST("/webhooks/:gateway", webhookHandler.Handle)
}
