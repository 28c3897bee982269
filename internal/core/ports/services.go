package ports

import (
	"context"

	"github.com/samirrijal/bilbomap/internal/core/domain"
)

// SearchEngine executes a search state and returns a page of results.
type SearchEngine interface {
	Search(ctx context.Context, state domain.SearchState) (*domain.SearchResults, error)
}

// RefinementSink is the write channel from a map widget to the query engine.
// Submitting resets paging to the first page.
type RefinementSink interface {
	SubmitRefinement(r domain.Refinement)
}

// RefinementEvent is published whenever a session commits a refinement.
type RefinementEvent struct {
	SessionID   string              `json:"session_id"`
	Kind        string              `json:"kind"` // "refine" | "clear" | "position"
	BoundingBox *domain.BoundingBox `json:"boundingBox,omitempty"`
	Position    *domain.LatLng      `json:"position,omitempty"`
}

// EventPublisher publishes session events to a message broker.
type EventPublisher interface {
	PublishRefinement(ctx context.Context, event *RefinementEvent) error
}

// PositionUpdate is an externally produced "search around" value for a session,
// e.g. from geolocation or a places autocomplete. A nil Position removes it.
type PositionUpdate struct {
	SessionID string         `json:"session_id"`
	Position  *domain.LatLng `json:"position,omitempty"`
}

// PositionSubscriber delivers position updates from upstream producers.
type PositionSubscriber interface {
	SubscribePositions(ctx context.Context, handler func(ctx context.Context, update *PositionUpdate) error) error
}

// PositionPublisher forwards a position update to whichever instance holds
// the session.
type PositionPublisher interface {
	PublishPosition(update *PositionUpdate) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
