package fixtures_test

import (
	"context"
	"strings"
	"testing"

	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/fixtures"
)

func TestBilbao_Loads(t *testing.T) {
	ds := fixtures.Bilbao()
	if ds.Name != "bilbao" {
		t.Errorf("expected bilbao, got %q", ds.Name)
	}
	if len(ds.Stops) < 20 {
		t.Fatalf("expected at least 20 stops, got %d", len(ds.Stops))
	}

	unlocated := 0
	for _, s := range ds.Stops {
		if s.AgencyID != "metro-bilbao" {
			t.Errorf("stop %s: expected inherited agency, got %q", s.StopID, s.AgencyID)
		}
		if !strings.HasPrefix(s.ID, "metro-bilbao:") {
			t.Errorf("stop %s: unexpected id %q", s.StopID, s.ID)
		}
		if s.Location == nil {
			unlocated++
		}
	}
	if unlocated == 0 {
		t.Error("expected at least one stop without location")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "  \n", "empty"},
		{"bad yaml", "stops: [", "decode"},
		{"missing stop_id", "agency_id: a\nstops:\n  - { name: X }\n", "stop_id is required"},
		{"missing agency", "stops:\n  - { stop_id: X, name: X }\n", "agency_id is required"},
		{"bad location", "agency_id: a\nstops:\n  - { stop_id: X, name: X, location: { lat: 91, lng: 0 } }\n", "invalid coordinate"},
		{"duplicate", "agency_id: a\nstops:\n  - { stop_id: X, name: X }\n  - { stop_id: X, name: Y }\n", "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixtures.Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestStore_FindInBounds(t *testing.T) {
	store := fixtures.NewStore(fixtures.Bilbao().Stops)

	centre := domain.BoundingBox{
		NorthEast: domain.LatLng{Lat: 43.265, Lng: -2.92},
		SouthWest: domain.LatLng{Lat: 43.255, Lng: -2.94},
	}
	stops, total, err := store.FindInBounds(context.Background(), centre, "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != len(stops) || total == 0 {
		t.Fatalf("unexpected total %d for %d stops", total, len(stops))
	}
	for _, s := range stops {
		if !centre.Contains(*s.Location) {
			t.Errorf("%s lies outside the box", s.Name)
		}
	}

	page, total2, _ := store.FindInBounds(context.Background(), centre, "", 1, 1)
	if total2 != total || len(page) != 1 || page[0].ID != stops[1].ID {
		t.Errorf("unexpected second page: %+v (total %d)", page, total2)
	}
}

func TestStore_FindAroundOrdersByDistance(t *testing.T) {
	store := fixtures.NewStore(fixtures.Bilbao().Stops)

	abando := domain.LatLng{Lat: 43.2610, Lng: -2.9270}
	stops, _, err := store.FindAround(context.Background(), abando, 1000, "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(stops) == 0 || stops[0].Name != "Abando" {
		t.Fatalf("expected Abando first, got %+v", stops)
	}
	for i := 1; i < len(stops); i++ {
		if *stops[i-1].Distance > *stops[i].Distance {
			t.Errorf("not ordered by distance at %d", i)
		}
		if *stops[i].Distance > 1000 {
			t.Errorf("%s beyond radius", stops[i].Name)
		}
	}
}

func TestStore_SearchIncludesUnlocated(t *testing.T) {
	store := fixtures.NewStore(fixtures.Bilbao().Stops)

	stops, total, err := store.Search(context.Background(), "TXURDINAGA", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || stops[0].Location != nil {
		t.Errorf("expected the unlocated stop, got %+v", stops)
	}

	if err := store.UpsertBatch(context.Background(), stops); err == nil {
		t.Error("expected read-only error")
	}
}
