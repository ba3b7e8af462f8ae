package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/balu-dk/e3dc-gateway/config"
	"github.com/balu-dk/e3dc-gateway/internal/api"
	"github.com/balu-dk/e3dc-gateway/internal/auth"
	"github.com/balu-dk/e3dc-gateway/internal/db"
	"github.com/balu-dk/e3dc-gateway/internal/e3dc"
	"github.com/balu-dk/e3dc-gateway/internal/e3dc/bridge"
	"github.com/balu-dk/e3dc-gateway/internal/metrics"
	"github.com/balu-dk/e3dc-gateway/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Setup logger
	cfg.SetupLogger()
	logrus.Info("Starting E3/DC gateway")

	verifier, err := auth.NewVerifier(cfg.AdminPassword)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build admin credential")
	}

	ctx := context.Background()

	reg := metrics.NewRegistry()
	appMetrics := metrics.NewAppMetrics(reg)

	// Connect to the device
	client, err := bridge.New(ctx, bridge.Config{
		BaseURL:      cfg.BridgeURL,
		IPAddress:    cfg.E3DCIPAddress,
		Username:     cfg.E3DCUsername,
		Password:     cfg.E3DCPassword,
		Key:          cfg.E3DCKey,
		DeviceConfig: cfg.E3DCConfig,
		Timeout:      cfg.BridgeTimeout,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to E3/DC device")
	}
	session := e3dc.NewSession(client, appMetrics)

	// Connect to database, if configured
	var commands *service.CommandLogger
	if cfg.DatabaseURL != "" {
		store, err := db.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to database")
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			logrus.WithError(err).Fatal("Failed to prepare database schema")
		}
		commands = service.NewCommandLogger(store)
	} else {
		logrus.Info("DATABASE_URL not set, device commands are only logged")
		commands = service.NewCommandLogger(nil)
	}

	gateway := service.NewGateway(session, commands)

	// Create API server
	apiServer := api.NewAPI(api.Options{
		Gateway:           gateway,
		Verifier:          verifier,
		Metrics:           appMetrics,
		MetricsHandler:    metrics.Handler(reg),
		LegacyStatusCodes: cfg.LegacyStatusCodes,
		AllowedOrigins:    cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           apiServer,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run the server in a goroutine
	go func() {
		logrus.Infof("Starting API server on port %d", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start API server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// In-flight device calls are not cancelled, so allow for the bridge timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.BridgeTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}
