// Command backend-mock serves a stand-in system of record for local runs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"speechact/internal/backend/mock"
	"speechact/internal/platform/httpserver"
	"speechact/internal/platform/logger"
)

func main() {
	addr := os.Getenv("MOCK_BACKEND_ADDR")
	if addr == "" {
		addr = ":3001"
	}
	log := logger.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	srv := httpserver.New(addr, mock.New(log).Router())

	go func() {
		log.Info("starting mock backend", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("mock backend error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
