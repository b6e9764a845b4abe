// main is the entry point of the students REST API.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Connect to (and set up) the configured database
//  4. Register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, then exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aanand-mishra/students-admin/internal/config"
	"github.com/aanand-mishra/students-admin/internal/http/handlers/student"
	"github.com/aanand-mishra/students-admin/internal/lib/slogcustom"
	"github.com/aanand-mishra/students-admin/internal/storage"
	"github.com/aanand-mishra/students-admin/internal/storage/postgres"
	"github.com/aanand-mishra/students-admin/internal/storage/sqlite"
)

func main() {
	cfg := config.MustLoad()

	log := slogcustom.NewLogger(os.Stdout, cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("version", "1.0.0"),
	)

	store, err := openStorage(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("driver", cfg.StorageDriver),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	log.Info("storage initialised", slog.String("driver", cfg.StorageDriver))

	// Route table:
	//   POST   /students        → create a new student
	//   GET    /students        → list students (?_page=&_limit=)
	//   GET    /students/{id}   → get one student by ID
	//   PUT    /students/{id}   → replace a student
	//   DELETE /students/{id}   → delete a student
	router := http.NewServeMux()
	student.Register(router, store, student.NewValidator())

	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: router,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == config.DriverPostgres {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return postgres.New(ctx, cfg.PostgresDSN)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o755); err != nil {
		return nil, err
	}
	return sqlite.New(cfg.StoragePath)
}
