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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-demo/config"
	"checkout-demo/handlers"
	"checkout-demo/logging"
	"checkout-demo/models"
	"checkout-demo/monitoring"
	"checkout-demo/service"
)

var version = "dev"

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize structured logging
	if err := logging.InitLogger(logging.Options{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTELEndpoint,
		ExportOTLP:   cfg.TelemetryEnabled,
		Development:  cfg.GinMode() == gin.DebugMode,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Sync()
	defer func() {
		if err := logging.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry
	var tracer trace.Tracer = otel.Tracer(cfg.ServiceName)
	if cfg.TelemetryEnabled {
		tp, t, err := monitoring.InitTracer(cfg.ServiceName, cfg.OTELEndpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		tracer = t
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logging.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	mp, metricsHandler, err := monitoring.InitMeter(monitoring.MeterOptions{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTELEndpoint,
		ExportOTLP:   cfg.TelemetryEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	if cfg.Checkout.SecretKey == "" {
		logging.Warn("CHECKOUT_SECRET_KEY is not set, payment requests will be rejected")
	}

	// Initialize service layer
	gateway := service.NewGatewayClient(cfg.Checkout.APIURL, cfg.Checkout.SecretKey, cfg.Checkout.Timeout)
	paymentService := service.NewPaymentService(tracer, gateway, service.Merchant{
		ProcessingChannel: cfg.Checkout.ProcessingChannel,
		SuccessURL:        cfg.Checkout.SuccessURL,
		FailureURL:        cfg.Checkout.FailureURL,
	})

	// Initialize handlers
	static, err := handlers.NewStaticHandler(cfg.AssetDir)
	if err != nil {
		return fmt.Errorf("failed to resolve asset dir: %w", err)
	}

	gin.SetMode(cfg.GinMode())
	router := handlers.NewRouter(handlers.RouterDeps{
		ServiceName: cfg.ServiceName,
		Payments:    handlers.NewPaymentHandler(paymentService),
		Config: handlers.NewConfigHandler(models.PublicConfig{
			PublicKey:         cfg.Checkout.PublicKey,
			ProcessingChannel: cfg.Checkout.ProcessingChannel,
			SuccessURL:        cfg.Checkout.SuccessURL,
			FailureURL:        cfg.Checkout.FailureURL,
		}),
		Static:  static,
		Metrics: metricsHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Checkout demo server listening", zap.String("addr", "http://"+cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logging.Info("Server exited gracefully")
	return nil
}
