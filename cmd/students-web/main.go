// main is the entry point of the students web front-end.
//
// It serves the list and form pages on cfg.Web.Addr and talks to the REST
// API at cfg.API.BaseURL:
//
//	go run ./cmd/students-api --config=config/local.yaml
//	go run ./cmd/students-web --config=config/local.yaml
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aanand-mishra/students-admin/internal/apiclient"
	"github.com/aanand-mishra/students-admin/internal/config"
	"github.com/aanand-mishra/students-admin/internal/http/handlers/views"
	"github.com/aanand-mishra/students-admin/internal/lib/slogcustom"
	"github.com/aanand-mishra/students-admin/internal/query"
)

func main() {
	cfg := config.MustLoad()

	log := slogcustom.NewLogger(os.Stdout, cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-web",
		slog.String("env", cfg.Env),
		slog.String("api", cfg.API.BaseURL),
	)

	api, err := apiclient.New(cfg.API.BaseURL, apiclient.WithTimeout(cfg.API.Timeout))
	if err != nil {
		log.Error("failed to create api client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	queries := query.NewClient(query.Options{
		StaleTime: cfg.Web.StaleTime,
		CacheTime: cfg.Web.CacheTime,
		Logger:    log.With(slog.String("component", "query")),
	})

	handler, err := views.New(api, queries, views.Options{
		PageLimit:  cfg.Web.PageLimit,
		MaxPage:    cfg.Web.MaxPage,
		RenderWait: cfg.Web.RenderWait,
		Logger:     log.With(slog.String("component", "views")),
	})
	if err != nil {
		log.Error("failed to load views", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go queries.Run(ctx)

	server := &http.Server{
		Addr:    cfg.Web.Addr,
		Handler: handler.Routes(),

		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.API.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.Web.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	log.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}
