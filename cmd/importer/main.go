package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/atharv3903/tourgraph/internal/config"
	"github.com/atharv3903/tourgraph/internal/dataset"
	"github.com/atharv3903/tourgraph/internal/db"
	"github.com/atharv3903/tourgraph/internal/logger"
)

func main() {
	cfg, err := config.FromFlagsImporter()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.AppEnv, "importer")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	d, err := dataset.Load(cfg.File)
	if err != nil {
		log.Fatal("failed to load dataset", zap.String("file", cfg.File), zap.Error(err))
	}

	store, err := db.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("failed to prepare schema", zap.Error(err))
	}

	start := time.Now()
	st, err := store.ImportDataset(ctx, d)
	if err != nil {
		log.Fatal("import failed", zap.String("dataset", d.Name), zap.Error(err))
	}

	log.Info("dataset imported",
		zap.String("dataset", d.Name),
		zap.Int("pois", st.POIs),
		zap.Int("edges", st.Edges),
		zap.Int("tours", st.Tours),
		zap.Int("waypoints", st.Waypoints),
		zap.Duration("took", time.Since(start)),
	)
}
