package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/pkg/metrics"
)

const (
	strategyBoundingBox = "bounding_box"
	strategyAround      = "around"
	strategyText        = "text"

	maxHitsPerPage = 1000
)

var tracer = otel.Tracer("github.com/samirrijal/bilbomap/internal/core/usecases")

// SearchConfig holds engine defaults.
type SearchConfig struct {
	HitsPerPage  int
	AroundRadius float64 // meters
	CacheTTL     int     // seconds; 0 disables caching
}

// SearchService is the search engine: it turns a SearchState into one page of
// hits using the stop catalogue.
type SearchService struct {
	stops ports.StopRepository
	cache ports.CacheService
	cfg   SearchConfig
}

// NewSearchService creates a new SearchService.
func NewSearchService(stops ports.StopRepository, cache ports.CacheService, cfg SearchConfig) *SearchService {
	if cfg.HitsPerPage <= 0 {
		cfg.HitsPerPage = 25
	}
	if cfg.AroundRadius <= 0 {
		cfg.AroundRadius = 5000
	}
	return &SearchService{stops: stops, cache: cache, cfg: cfg}
}

// Search runs state against the catalogue. A bounding box takes precedence
// over an around point; with neither, the query alone is matched. Page is
// 1-based.
func (s *SearchService) Search(ctx context.Context, state domain.SearchState) (*domain.SearchResults, error) {
	state = s.normalize(state)
	if state.BoundingBox != nil {
		if err := state.BoundingBox.Validate(); err != nil {
			return nil, err
		}
	}
	if state.AroundLatLng != nil {
		if err := state.AroundLatLng.Validate(); err != nil {
			return nil, err
		}
	}

	strategy := strategyFor(state)
	ctx, span := tracer.Start(ctx, "SearchService.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.strategy", strategy),
		attribute.String("search.query", state.Query),
		attribute.Int("search.page", state.Page),
	)

	cacheKey := searchCacheKey(state)
	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var res domain.SearchResults
			if err := json.Unmarshal(data, &res); err == nil {
				metrics.CacheHits.WithLabelValues("search").Inc()
				span.SetAttributes(attribute.Bool("search.cached", true))
				return &res, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("search").Inc()
	}

	start := time.Now()
	stops, total, err := s.run(ctx, strategy, state)
	metrics.SearchDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchErrors.WithLabelValues(strategy).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search %s: %w", strategy, err)
	}

	res := &domain.SearchResults{
		Hits:        make([]domain.Hit, 0, len(stops)),
		NbHits:      total,
		Page:        state.Page,
		HitsPerPage: state.HitsPerPage,
		Applied:     state.BoundingBox,
		ProcessedAt: time.Now().UTC(),
	}
	for _, st := range stops {
		res.Hits = append(res.Hits, domain.HitFromStop(st))
	}
	span.SetAttributes(attribute.Int("search.nb_hits", total))

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if data, err := json.Marshal(res); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cfg.CacheTTL)
		}
	}

	return res, nil
}

func (s *SearchService) run(ctx context.Context, strategy string, state domain.SearchState) ([]domain.Stop, int, error) {
	limit := state.HitsPerPage
	offset := (state.Page - 1) * limit
	switch strategy {
	case strategyBoundingBox:
		return s.stops.FindInBounds(ctx, *state.BoundingBox, state.Query, limit, offset)
	case strategyAround:
		return s.stops.FindAround(ctx, *state.AroundLatLng, state.AroundRadius, state.Query, limit, offset)
	default:
		return s.stops.Search(ctx, state.Query, limit, offset)
	}
}

func (s *SearchService) normalize(state domain.SearchState) domain.SearchState {
	if state.Page < 1 {
		state.Page = 1
	}
	if state.HitsPerPage <= 0 {
		state.HitsPerPage = s.cfg.HitsPerPage
	}
	if state.HitsPerPage > maxHitsPerPage {
		state.HitsPerPage = maxHitsPerPage
	}
	if state.AroundRadius <= 0 {
		state.AroundRadius = s.cfg.AroundRadius
	}
	return state
}

func strategyFor(state domain.SearchState) string {
	switch {
	case state.BoundingBox != nil:
		return strategyBoundingBox
	case state.AroundLatLng != nil:
		return strategyAround
	default:
		return strategyText
	}
}

func searchCacheKey(state domain.SearchState) string {
	box, around := "-", "-"
	if state.BoundingBox != nil {
		box = state.BoundingBox.String()
	}
	if state.AroundLatLng != nil {
		around = fmt.Sprintf("%.5f,%.5f,%.0f", state.AroundLatLng.Lat, state.AroundLatLng.Lng, state.AroundRadius)
	}
	return fmt.Sprintf("search:%s:%s:%s:%d:%d", state.Query, box, around, state.Page, state.HitsPerPage)
}
