//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/bilbomap/internal/adapters/http"
	"github.com/samirrijal/bilbomap/internal/adapters/postgres"
	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/usecases"
	"github.com/samirrijal/bilbomap/internal/pkg/config"
)

// setupTestDB connects to the database configured through BILBOMAP_*.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("bilbomap-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := db.Pool.Exec(ctx, `DELETE FROM stops WHERE agency_id = 'it-http'`); err != nil {
		t.Fatalf("clean stops: %v", err)
	}
	return db
}

// setupTestDeps creates dependencies with the real repository and no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	search := usecases.NewSearchService(postgres.NewStopRepo(db), nil, usecases.SearchConfig{})
	return &http.Dependencies{
		Search:   search,
		Sessions: usecases.NewSessionRegistry(search, nil, sessionConfig(), nil),
		DB:       db,
	}
}

func seedTestStops(t *testing.T, db *postgres.DB) {
	stops := []domain.Stop{
		{StopID: "abando", AgencyID: "it-http", Name: "Abando", Location: &domain.LatLng{Lat: 43.2610, Lng: -2.9270}},
		{StopID: "moyua", AgencyID: "it-http", Name: "Moyua", Location: &domain.LatLng{Lat: 43.2630, Lng: -2.9350}},
		{StopID: "plentzia", AgencyID: "it-http", Name: "Plentzia", Location: &domain.LatLng{Lat: 43.4050, Lng: -2.9470}},
	}
	if err := postgres.NewStopRepo(db).UpsertBatch(context.Background(), stops); err != nil {
		t.Fatalf("seed stops: %v", err)
	}
}

func TestSearch_Integration_BoundingBox(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	seedTestStops(t, db)
	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("GET", "/v1/search?inside_bounding_box=43.27,-2.92,43.25,-2.94", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res domain.SearchResults
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, h := range res.Hits {
		if h.Name == "Plentzia" {
			t.Error("Plentzia lies outside the box")
		}
	}
	if res.NbHits < 2 {
		t.Errorf("expected at least 2 hits, got %d", res.NbHits)
	}
	if res.Applied == nil {
		t.Error("expected insideBoundingBox echoed")
	}
}

func TestSearch_Integration_Around(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	seedTestStops(t, db)
	app := setupApp(setupTestDeps(t, db))

	req := httptest.NewRequest("GET", "/v1/search?around=43.2625,-2.9300&around_radius=1500", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res domain.SearchResults
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(res.Hits) < 2 {
		t.Fatalf("expected at least 2 hits, got %d", len(res.Hits))
	}
	for i := 1; i < len(res.Hits); i++ {
		prev, cur := res.Hits[i-1].Distance, res.Hits[i].Distance
		if prev == nil || cur == nil || *prev > *cur {
			t.Errorf("hits not ordered by distance at %d", i)
		}
	}
}

func TestReady_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
