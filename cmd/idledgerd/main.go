// Command idledgerd serves the identifier ledger over HTTP.
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

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	otelAdapter "github.com/neomorfeo/idledger/internal/adapter/otel"

	"github.com/neomorfeo/idledger/internal/adapter/logging"
	"github.com/neomorfeo/idledger/internal/app"
	"github.com/neomorfeo/idledger/internal/bootstrap"
	"github.com/neomorfeo/idledger/internal/config"

	handler "github.com/neomorfeo/idledger/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "idledgerd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(os.Stderr, logging.Options{
		Level:  envOrDefault("IDLEDGER_LOG_LEVEL", "info"),
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()

	// --- Adapters (out) ---
	otelCfg := otelAdapter.ConfigFromEnv()
	stack, err := bootstrap.Open(ctx, cfg, otelCfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stack.Close(shutdownCtx); err != nil {
			logger.Error("closing ledger", "error", err)
		}
	}()

	if stack.River != nil {
		if err := stack.River.Start(ctx); err != nil {
			return fmt.Errorf("starting audit worker: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := stack.River.Stop(stopCtx); err != nil {
				logger.Error("stopping audit worker", "error", err)
			}
		}()
	}

	// --- Adapters (in) ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(stack.Service, otelCfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("idledgerd listening", "port", cfg.Port, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-done:
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("stopped")
	return nil
}

func newRouter(svc *app.LedgerService, serviceName string) http.Handler {
	router := chi.NewMux()
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	api := humachi.New(router, huma.DefaultConfig("idledger", "0.1.0"))
	handler.Register(api, svc)

	return router
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
