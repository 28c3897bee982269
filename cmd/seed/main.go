package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/samirrijal/bilbomap/internal/adapters/postgres"
	"github.com/samirrijal/bilbomap/internal/fixtures"
	"github.com/samirrijal/bilbomap/internal/pkg/config"
	"github.com/samirrijal/bilbomap/internal/pkg/logging"
)

func main() {
	file := flag.String("file", "", "YAML stop dataset (default: built-in Metro Bilbao)")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load("bilbomap-seed")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	ds := fixtures.Bilbao()
	if *file != "" {
		if ds, err = fixtures.LoadFile(*file); err != nil {
			log.Fatalf("load dataset: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	start := time.Now()
	if err := postgres.NewStopRepo(db).UpsertBatch(ctx, ds.Stops); err != nil {
		log.Fatalf("seed %s: %v", ds.Name, err)
	}
	slog.Info("dataset seeded", "dataset", ds.Name, "stops", len(ds.Stops), "duration", time.Since(start).String())
}
