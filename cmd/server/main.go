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

	"golang.org/x/sync/errgroup"

	"speechact/internal/intent/handler"
	"speechact/internal/platform/config"
	"speechact/internal/platform/httpserver"
	"speechact/internal/platform/logger"
	"speechact/internal/platform/metrics"
	"speechact/internal/platform/tracing"
	httptransport "speechact/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "speechact: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, cfgErr := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfgErr != nil {
		// Bad values fall back to defaults; surface them but keep going.
		log.Warn("configuration fell back to defaults", "error", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, handler.ServiceName)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	in, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.Close(log)

	a, err := buildApp(cfg, in, log)
	if err != nil {
		return err
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Metrics:     metrics.New(nil),
		Intents:     a.intents,
		Health:      a.health,
		Audit:       a.audit,
		Validator:   a.validator,
		OnAuthError: a.onAuthError,
	})
	srv := httpserver.New(cfg.Addr, router, httpserver.WithUpstreamTimeout(cfg.Backend.Timeout))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting speechact intent gateway",
			"addr", cfg.Addr,
			"backend_url", cfg.Backend.URL,
			"auth_enabled", cfg.Auth.Enabled(),
			"pending_store", in.pendingKind,
			"audit_store", in.auditKind,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped")
		return nil
	})
	for _, worker := range in.workers {
		g.Go(func() error {
			err := worker(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// sweep periodically drops expired pending intents from the in-memory store.
func sweep(ctx context.Context, every time.Duration, purge func(context.Context) (int, error), log *slog.Logger) error {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil {
				log.Warn("pending sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("expired pending intents removed", "count", n)
			}
		}
	}
}
