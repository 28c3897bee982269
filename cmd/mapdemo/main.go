package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/samirrijal/bilbomap/internal/core/usecases"
	"github.com/samirrijal/bilbomap/internal/fixtures"
	"github.com/samirrijal/bilbomap/internal/pkg/config"
	"github.com/samirrijal/bilbomap/internal/pkg/logging"
	"github.com/samirrijal/bilbomap/internal/tui"
)

func main() {
	file := flag.String("file", "", "YAML stop dataset (default: built-in Metro Bilbao)")
	query := flag.String("q", "", "initial text query")
	logFile := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load("bilbomap-mapdemo")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.Create(*logFile)
		if err != nil {
			log.Fatalf("open log: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	slog.SetDefault(logging.New(logOut, "debug", "text"))

	ds := fixtures.Bilbao()
	if *file != "" {
		if ds, err = fixtures.LoadFile(*file); err != nil {
			log.Fatalf("load dataset: %v", err)
		}
	}

	search := usecases.NewSearchService(fixtures.NewStore(ds.Stops), nil, usecases.SearchConfig{
		HitsPerPage:  cfg.GeoSearch.HitsPerPage,
		AroundRadius: cfg.GeoSearch.AroundRadius,
	})
	sessions := usecases.NewSessionRegistry(search, nil, usecases.SessionConfig{
		RefineOnMapMove: cfg.GeoSearch.RefineOnMapMove,
		FitPadding:      cfg.GeoSearch.FitPadding,
		HitsPerPage:     cfg.GeoSearch.HitsPerPage,
		SearchTimeout:   time.Duration(cfg.GeoSearch.SearchTimeout) * time.Second,
	}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := tui.New(ctx, sessions, tui.Options{
		Debounce: time.Duration(cfg.GeoSearch.IdleDebounceMS) * time.Millisecond,
		Query:    *query,
	})
	if _, err := tea.NewProgram(model).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "mapdemo:", err)
		os.Exit(1)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	_ = sessions.Shutdown(shutdownCtx)
}
