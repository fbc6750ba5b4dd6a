// Command tuned is the tuning daemon: it accepts experiments over HTTP,
// runs lexicographic multi-objective searches in the background, and
// reports progress and results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jingdong00/FLAML/internal/tuned"
	"github.com/jingdong00/FLAML/pkg/logger"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "HTTP listen address")
		logLevel  = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat = flag.String("log-format", "json", "log format (json, text)")
	)
	flag.Parse()

	log := logger.New(*logLevel, os.Stdout)
	if *logFormat == "text" {
		log = logger.NewText(*logLevel, os.Stdout)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := tuned.NewStore()
	registry := tuned.NewRegistry()
	notifier := tuned.NewNotifier(tuned.WithNotifierLogger(log))
	executor := tuned.NewExecutor(store, registry,
		tuned.WithNotifier(notifier),
		tuned.WithExecutorLogger(log))
	server := tuned.NewServer(ctx, store, executor, registry, log)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
	}()

	log.Info("tuned listening", "addr", *addr, "objectives", registry.Names())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "tuned: %v\n", err)
		os.Exit(1)
	}

	// Searches cancel with the signal context; wait for them to wind down.
	executor.Wait()
	log.Info("tuned stopped")
}
