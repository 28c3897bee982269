package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/samirrijal/bilbomap/internal/adapters/http"
	natsadapter "github.com/samirrijal/bilbomap/internal/adapters/nats"
	"github.com/samirrijal/bilbomap/internal/adapters/postgres"
	"github.com/samirrijal/bilbomap/internal/adapters/valkey"
	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/core/usecases"
	"github.com/samirrijal/bilbomap/internal/pkg/config"
	"github.com/samirrijal/bilbomap/internal/pkg/logging"
	"github.com/samirrijal/bilbomap/internal/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("bilbomap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	deps := &http.Dependencies{DB: db}

	// Cache
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, "bilbomap"); err != nil {
		slog.Warn("valkey unavailable, searching uncached", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	// NATS: refinement events out, positions in
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, refinement events disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		deps.Positions = pub
		deps.NATS = pub.Conn()
	}

	search := usecases.NewSearchService(postgres.NewStopRepo(db), cache, usecases.SearchConfig{
		HitsPerPage:  cfg.GeoSearch.HitsPerPage,
		AroundRadius: cfg.GeoSearch.AroundRadius,
		CacheTTL:     cfg.GeoSearch.CacheTTL,
	})
	sessions := usecases.NewSessionRegistry(search, publisher, usecases.SessionConfig{
		RefineOnMapMove:  cfg.GeoSearch.RefineOnMapMove,
		FitPadding:       cfg.GeoSearch.FitPadding,
		FitSettlesOnIdle: true,
		HitsPerPage:      cfg.GeoSearch.HitsPerPage,
		SearchTimeout:    time.Duration(cfg.GeoSearch.SearchTimeout) * time.Second,
	}, slog.Default())
	deps.Search = search
	deps.Sessions = sessions

	if sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, slog.Default()); err != nil {
		slog.Warn("nats unavailable, position updates disabled", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribePositions(ctx, sessions.DeliverPosition); err != nil {
			slog.Warn("subscribe positions failed", "error", err)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "BilboMap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := sessions.Shutdown(shutdownCtx); err != nil {
		slog.Error("map sessions did not stop", "error", err)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
