package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/bilbomap/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("bilbomap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.GeoSearch.RefineOnMapMove {
		t.Error("refine on map move defaults to true")
	}
	if cfg.GeoSearch.HitsPerPage != 25 {
		t.Errorf("expected 25 hits per page, got %d", cfg.GeoSearch.HitsPerPage)
	}
	if cfg.Telemetry.ServiceName != "bilbomap-test" {
		t.Errorf("expected service name from argument, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BILBOMAP_GEOSEARCH_REFINE_ON_MAP_MOVE", "false")
	t.Setenv("BILBOMAP_SERVER_PORT", "9090")

	cfg, err := config.Load("bilbomap-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeoSearch.RefineOnMapMove {
		t.Error("expected env to disable refine on map move")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "geosearch.hits_per_page", "geosearch.search_timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
