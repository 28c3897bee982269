package fixtures

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/pkg/geospatial"
)

var errReadOnly = errors.New("fixtures: store is read-only")

// Store answers stop queries from memory. It is read-only after
// construction and safe for concurrent use.
type Store struct {
	stops []domain.Stop
}

var _ ports.StopRepository = (*Store)(nil)

// NewStore returns a store over a copy of stops, ordered by name.
func NewStore(stops []domain.Stop) *Store {
	s := &Store{stops: append([]domain.Stop(nil), stops...)}
	sort.SliceStable(s.stops, func(i, j int) bool { return s.stops[i].Name < s.stops[j].Name })
	return s
}

// UpsertBatch is not supported; fixtures are loaded once.
func (s *Store) UpsertBatch(context.Context, []domain.Stop) error {
	return errReadOnly
}

// FindInBounds returns located stops inside box whose name matches query.
func (s *Store) FindInBounds(_ context.Context, box domain.BoundingBox, query string, limit, offset int) ([]domain.Stop, int, error) {
	var out []domain.Stop
	for _, st := range s.stops {
		if st.Location == nil || !matches(st, query) || !inBox(box, *st.Location) {
			continue
		}
		out = append(out, st)
	}
	return page(out, limit, offset)
}

// FindAround returns located stops within radiusMeters of p, nearest first.
func (s *Store) FindAround(_ context.Context, p domain.LatLng, radiusMeters float64, query string, limit, offset int) ([]domain.Stop, int, error) {
	var out []domain.Stop
	for _, st := range s.stops {
		if st.Location == nil || !matches(st, query) {
			continue
		}
		d := geospatial.Haversine(p.Lat, p.Lng, st.Location.Lat, st.Location.Lng)
		if d > radiusMeters {
			continue
		}
		st.Distance = &d
		out = append(out, st)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	return page(out, limit, offset)
}

// Search matches names case-insensitively. Stops without a location are
// included.
func (s *Store) Search(_ context.Context, query string, limit, offset int) ([]domain.Stop, int, error) {
	var out []domain.Stop
	for _, st := range s.stops {
		if matches(st, query) {
			out = append(out, st)
		}
	}
	return page(out, limit, offset)
}

func matches(st domain.Stop, query string) bool {
	q := strings.TrimSpace(query)
	return q == "" || strings.Contains(strings.ToLower(st.Name), strings.ToLower(q))
}

// inBox handles boxes crossing the antimeridian (south-west lng east of
// north-east lng).
func inBox(box domain.BoundingBox, p domain.LatLng) bool {
	if p.Lat < box.SouthWest.Lat || p.Lat > box.NorthEast.Lat {
		return false
	}
	if box.SouthWest.Lng <= box.NorthEast.Lng {
		return p.Lng >= box.SouthWest.Lng && p.Lng <= box.NorthEast.Lng
	}
	return p.Lng >= box.SouthWest.Lng || p.Lng <= box.NorthEast.Lng
}

func page(stops []domain.Stop, limit, offset int) ([]domain.Stop, int, error) {
	total := len(stops)
	if offset >= total {
		return []domain.Stop{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return stops[offset:end], total, nil
}
