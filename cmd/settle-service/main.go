package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"solsettle/pkg/config"
	"solsettle/pkg/engine"
	"solsettle/pkg/store"
	"solsettle/pkg/subscription"
)

var (
	listenAddr = flag.String("addr", "", "HTTP listen address (overrides SETTLE_LISTEN_ADDR)")
	pgDSN      = flag.String("pg", "", "Postgres DSN (overrides SETTLE_PG_DSN; empty uses in-memory store)")
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}
	flag.Parse()

	settings := config.FromEnv()
	if *listenAddr != "" {
		settings.ListenAddr = *listenAddr
	}
	if *pgDSN != "" {
		settings.PostgresDSN = *pgDSN
	}

	logger, err := newLogger(settings.LogDevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	if settings.PostgresDSN != "" {
		st, err = store.NewPostgresStore(ctx, settings.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres store", zap.Error(err))
		}
		logger.Info("using postgres store")
	} else {
		st = store.NewMemoryStore()
		logger.Info("using in-memory store")
	}

	hub := subscription.NewHub(logger)
	eng, err := engine.New(ctx, logger, st, hub)
	if err != nil {
		logger.Fatal("engine init", zap.Error(err))
	}
	defer eng.Close()

	var limiter *rate.Limiter
	if settings.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(settings.RateLimit), settings.RateBurst)
	}

	srv := &server{
		log:     logger,
		engine:  eng,
		hub:     hub,
		limiter: limiter,
		start:   time.Now(),
	}
	httpServer := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
		hub.Close()
		cancel()
	}()

	logger.Info("settlement service listening",
		zap.String("addr", settings.ListenAddr),
		zap.Float64("rate_limit", settings.RateLimit))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(devel bool) (*zap.Logger, error) {
	if devel {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
