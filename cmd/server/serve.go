package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mealplan-backend-go/internal/api"
	"mealplan-backend-go/internal/config"
	"mealplan-backend-go/internal/core"
	"mealplan-backend-go/internal/db"
	"mealplan-backend-go/internal/middleware"
	"mealplan-backend-go/internal/notify"
	"mealplan-backend-go/pkg/mailer"
	"mealplan-backend-go/pkg/messagequeue"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize zap logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, logger)
		},
	}
}

// closers run in reverse order on shutdown.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func runServe(ctx context.Context, logger *zap.Logger) error {
	appConfig, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}
	logger.Info("Application configuration loaded", zap.String("storeDriver", appConfig.StoreDriver))

	var cleanup closers
	defer cleanup.run()

	initCtx, cancelInit := context.WithTimeout(ctx, 15*time.Second)
	defer cancelInit()

	fbApp, err := db.NewFirebaseApp(initCtx, appConfig, logger)
	if err != nil {
		return err
	}
	authClient, err := fbApp.Auth(initCtx)
	if err != nil {
		return fmt.Errorf("failed to get Firebase Auth client: %w", err)
	}

	repo, err := openProfileStore(initCtx, appConfig, fbApp, &cleanup)
	if err != nil {
		return err
	}

	statusCache, err := openStatusCache(initCtx, appConfig, logger, &cleanup)
	if err != nil {
		return err
	}

	catalog, err := core.NewPlanCatalogFromConfig(appConfig)
	if err != nil {
		return err
	}
	gateway := core.NewStripeGateway(appConfig.StripeSecretKey, appConfig.StripeWebhookSecret, appConfig.ProviderTimeout, nil)

	opts := []core.ReconcileOption{core.WithStatusCache(statusCache)}
	if appConfig.RabbitMQURL != "" {
		mq, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.RabbitMQURL}, logger)
		if err != nil {
			return err
		}
		cleanup.add(func() { _ = mq.Close() })
		opts = append(opts, core.WithChangePublisher(notify.NewQueuePublisher(mq, appConfig.RabbitMQQueue)))
	} else {
		logger.Warn("RABBITMQ_URL not set; billing change notifications disabled")
	}
	if appConfig.MailEnabled() {
		m, err := mailer.NewSMTPMailer(mailer.Config{
			Host:     appConfig.SMTPHost,
			Port:     appConfig.SMTPPort,
			Username: appConfig.SMTPUser,
			Password: appConfig.SMTPPass,
			From:     appConfig.MailFrom,
		})
		if err != nil {
			return err
		}
		opts = append(opts, core.WithNotifier(notify.NewEmailNotifier(m, catalog, appConfig.BaseURL)))
	}

	reconciler := core.NewReconciliationService(repo, gateway, catalog, appConfig.BaseURL, logger, opts...)
	services := api.Services{
		Profiles:   core.NewProfileService(repo, statusCache, logger),
		Reconciler: reconciler,
		Webhooks:   core.NewWebhookService(gateway, reconciler, logger),
		MealPlans: core.NewMealPlanService(core.MealPlanConfig{
			APIKey:  appConfig.MealPlanAPIKey,
			BaseURL: appConfig.MealPlanBaseURL,
			Model:   appConfig.MealPlanModel,
			Timeout: appConfig.ProviderTimeout,
		}, http.DefaultClient, logger),
		Catalog: catalog,
	}

	if appConfig.Release() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig.ClientURL))
	} else {
		logger.Warn("CORS middleware skipped: CLIENT_URL is not configured")
	}
	api.SetupRoutes(router, middleware.NewAuthMiddleware(authClient, logger), services, logger)

	httpServer := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", httpServer.Addr), zap.String("ginMode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server exiting gracefully")
	return nil
}
