package ports

import (
	"context"

	"github.com/samirrijal/bilbomap/internal/core/domain"
)

// StopRepository persists stops and answers the geo queries behind search.
type StopRepository interface {
	UpsertBatch(ctx context.Context, stops []domain.Stop) error
	// FindInBounds returns stops inside box matching query (empty = all), and the
	// total number of matches.
	FindInBounds(ctx context.Context, box domain.BoundingBox, query string, limit, offset int) ([]domain.Stop, int, error)
	// FindAround returns stops within radiusMeters of p ordered by distance.
	FindAround(ctx context.Context, p domain.LatLng, radiusMeters float64, query string, limit, offset int) ([]domain.Stop, int, error)
	// Search performs a text search with no geo constraint. Stops without a
	// location are included.
	Search(ctx context.Context, query string, limit, offset int) ([]domain.Stop, int, error)
}
