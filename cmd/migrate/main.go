package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockpool/backend/internal/infrastructure/config"
	"github.com/stockpool/backend/internal/infrastructure/logger"
	"github.com/stockpool/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		logLevel  string
		syncPools bool
	)
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&syncPools, "sync-pools", false, "Create missing inventory pools for deduction-ready categories")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	log.Info("Schema migration completed")

	if !syncPools {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	store := persistence.NewGormInventoryStore(db.DB)

	categories, err := catalogRepo.Categories(ctx)
	if err != nil {
		log.Fatal("Failed to load categories", zap.Error(err))
	}

	created := 0
	for _, cat := range categories {
		if !cat.DeductionReady() {
			continue
		}
		if err := store.EnsurePool(ctx, cat.CategoryGroupID, cat.Name, cat.Unit(), decimal.Zero); err != nil {
			log.Fatal("Failed to ensure inventory pool",
				zap.String("group_id", cat.CategoryGroupID),
				zap.Error(err))
		}
		created++
	}
	log.Info("Inventory pools synchronized", zap.Int("deduction_ready_categories", created))
}
