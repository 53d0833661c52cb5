/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the household ledger engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and read environment
  2. Build logger and metrics collector
  3. Open the configured store backend
  4. Wire engine, views and API handler
  5. Start server with graceful shutdown

CONFIGURATION (env, flags override):
  PORT        HTTP server port (default: 8080)
  STORE       Backend: memory | sqlite | mongo (default: sqlite)
  DB_PATH     SQLite database path (default: casaflow.db)
  MONGO_URI   MongoDB connection string (STORE=mongo)
  MONGO_DB    MongoDB database name (default: casaflow)
  LOG_LEVEL   debug | info | warn | error (default: info)
  LOG_PRETTY  Console-formatted logs when "true"

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - ledger/engine.go: The mutation engine
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/casaflow/ledger-engine/api"
	"github.com/casaflow/ledger-engine/ledger"
	"github.com/casaflow/ledger-engine/pkg/logger"
	"github.com/casaflow/ledger-engine/pkg/metrics"
	"github.com/casaflow/ledger-engine/store"
	"github.com/casaflow/ledger-engine/store/memory"
	storemongo "github.com/casaflow/ledger-engine/store/mongo"
	"github.com/casaflow/ledger-engine/store/sqlite"
	"github.com/casaflow/ledger-engine/views"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	port := flag.String("port", env("PORT", "8080"), "HTTP server port")
	backend := flag.String("store", env("STORE", "sqlite"), "store backend: memory, sqlite or mongo")
	dbPath := flag.String("db", env("DB_PATH", "casaflow.db"), "SQLite database path")
	flag.Parse()

	log := logger.New(logger.Config{
		Level:  env("LOG_LEVEL", "info"),
		Pretty: env("LOG_PRETTY", "") == "true",
	})
	logger.SetGlobalLogger(log)

	collector := metrics.NewCollector()

	var (
		txStore store.TxStore
		cleanup func()
	)
	switch *backend {
	case "memory":
		txStore = memory.New()
		cleanup = func() {}
	case "sqlite":
		s, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize sqlite store")
		}
		txStore = s
		cleanup = func() { s.Close() }
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s, err := storemongo.New(ctx, env("MONGO_URI", "mongodb://localhost:27017"), env("MONGO_DB", "casaflow"))
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize mongo store")
		}
		txStore = s
		cleanup = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.Close(ctx)
		}
	default:
		log.Fatal().Str("store", *backend).Msg("unknown store backend")
	}
	defer cleanup()

	engine := ledger.New(txStore,
		ledger.WithLogger(log),
		ledger.WithMetrics(collector),
	)
	viewSvc := views.NewService(txStore, engine)
	handler := api.NewHandler(txStore, engine, viewSvc, log)
	router := api.NewRouter(handler, collector.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Str("store", *backend).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
