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

	"go.uber.org/zap"

	"github.com/atharv3903/tourgraph/internal/api"
	"github.com/atharv3903/tourgraph/internal/config"
	"github.com/atharv3903/tourgraph/internal/dataset"
	"github.com/atharv3903/tourgraph/internal/db"
	"github.com/atharv3903/tourgraph/internal/logger"
)

func main() {
	cfg, err := config.FromFlagsServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.AppEnv, "tourgraph")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	store, err := db.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("failed to prepare schema", zap.Error(err))
	}

	if cfg.ImportFile != "" {
		d, err := dataset.Load(cfg.ImportFile)
		if err != nil {
			log.Fatal("failed to load dataset", zap.String("file", cfg.ImportFile), zap.Error(err))
		}
		st, err := store.ImportDataset(ctx, d)
		if err != nil {
			log.Fatal("failed to import dataset", zap.String("file", cfg.ImportFile), zap.Error(err))
		}
		log.Info("dataset imported",
			zap.String("dataset", d.Name),
			zap.Int("pois", st.POIs),
			zap.Int("edges", st.Edges),
			zap.Int("tours", st.Tours),
		)
	}

	srv := api.New(store, log, api.Options{
		CORSOrigins:   cfg.CORSOrigins,
		GraphCacheCap: cfg.GraphCacheCap,
	})

	go srv.Sessions.RunReaper(ctx, cfg.ReapInterval, cfg.SessionIdle)

	httpSrv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     srv,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: position streams are long lived
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("TOURGRAPH listening",
			zap.String("addr", cfg.Addr),
			zap.String("driver", cfg.DBDriver),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("stopped", zap.Int("open_sessions", srv.Sessions.Len()))
}
