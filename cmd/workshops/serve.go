package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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
	"github.com/spf13/cobra"

	"github.com/neomorfeo/workshops/internal/adapter/auth"
	otelAdapter "github.com/neomorfeo/workshops/internal/adapter/otel"
	"github.com/neomorfeo/workshops/internal/adapter/postgres"
	riverAdapter "github.com/neomorfeo/workshops/internal/adapter/river"
	"github.com/neomorfeo/workshops/internal/adapter/sqlite"
	"github.com/neomorfeo/workshops/internal/app"
	"github.com/neomorfeo/workshops/internal/config"
	"github.com/neomorfeo/workshops/internal/domain"

	handler "github.com/neomorfeo/workshops/internal/adapter/http"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx)
}

// backend bundles what the serving stack needs from a storage driver.
type backend struct {
	store     domain.Store
	profiles  domain.ProfileRepository
	publisher domain.EventPublisher
	queue     queue
	close     func() error
}

// queue is the lifecycle of a River client, whatever its driver.
type queue interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// run wires every adapter, serves until ctx is cancelled, then shuts down
// gracefully.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	// --- Observability ---
	providers, err := otelAdapter.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	if err := b.queue.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}

	// --- Application ---
	portal := app.New(
		otelAdapter.NewTracingStore(b.store),
		b.profiles,
		otelAdapter.NewTracingPublisher(b.publisher),
		app.WithLogger(logger),
		app.WithAdmissionTimeout(cfg.AdmissionTimeout),
	)

	// --- Adapters (in) ---
	tokens := auth.NewTokenService(cfg.AuthSigningKey, cfg.AuthIssuer, cfg.AuthAudience)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware(cfg.Telemetry.ServiceName, otelchi.WithChiRoutes(router)))
	router.Use(handler.Identity(tokens, logger))

	api := humachi.New(router, huma.DefaultConfig("workshops", version))
	handler.Register(api, portal)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("workshops listening", "port", cfg.Port, "driver", cfg.DatabaseDriver)
		logger.Info("API docs", "url", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := b.queue.Stop(shutdownCtx); err != nil {
		logger.Error("river stop", "error", err)
	}

	logger.Info("stopped")
	return nil
}

// openBackend opens the configured store and the job queue next to it.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		store.SetLockTimeout(cfg.AdmissionTimeout)

		client, err := riverAdapter.SetupPostgres(ctx, store.Pool(), riverAdapter.Options{
			Auditor:       store,
			AuditInterval: cfg.OccupancyAuditInterval,
			Logger:        logger,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("river: %w", err)
		}

		return &backend{
			store:     store,
			profiles:  store,
			publisher: riverAdapter.NewPublisher(client),
			queue:     client,
			close:     store.Close,
		}, nil

	default:
		db, err := otelAdapter.OpenDB(cfg.DatabasePath, cfg.AdmissionTimeout)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}

		store, err := sqlite.NewFromDB(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("database: %w", err)
		}

		client, err := riverAdapter.Setup(ctx, db, riverAdapter.Options{
			Auditor:       store,
			AuditInterval: cfg.OccupancyAuditInterval,
			Logger:        logger,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("river: %w", err)
		}

		return &backend{
			store:     store,
			profiles:  store,
			publisher: riverAdapter.NewPublisher(client),
			queue:     client,
			close:     store.Close,
		}, nil
	}
}
