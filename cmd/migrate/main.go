// Command migrate rewrites legacy scalar header_path metadata into the
// tagged array shape, then exits. Safe to re-run: tagged rows are skipped.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/davharte/docbridge/internal/config"
	"github.com/davharte/docbridge/internal/metapath"
	"github.com/davharte/docbridge/internal/store"
)

func main() {
	godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var (
		dbPath    = flag.String("db", "", "database path (defaults to DOCBRIDGE_DB)")
		batchSize = flag.Int("batch", 0, "rows per batch (defaults to MIGRATION_BATCH_SIZE)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *dbPath == "" {
		*dbPath = cfg.DBPath
	}
	if *batchSize <= 0 {
		*batchSize = cfg.MigrationBatchSize
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Error("failed to open store", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metapath.NewMigrator(db, *batchSize, log)
	stats, err := m.Run(ctx)
	if err != nil {
		log.Error("migration aborted",
			"migrated", stats.Migrated,
			"skipped", stats.Skipped,
			"batches", stats.Batches,
			"error", err)
		os.Exit(1)
	}
	log.Info("migration complete",
		"migrated", stats.Migrated,
		"skipped", stats.Skipped,
		"batches", stats.Batches)
}
