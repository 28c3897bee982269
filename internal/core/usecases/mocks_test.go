package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/ports"
)

// --- Mock StopRepository ---

type mockStopRepo struct {
	findInBoundsFn func(ctx context.Context, box domain.BoundingBox, query string, limit, offset int) ([]domain.Stop, int, error)
	findAroundFn   func(ctx context.Context, p domain.LatLng, radius float64, query string, limit, offset int) ([]domain.Stop, int, error)
	searchFn       func(ctx context.Context, query string, limit, offset int) ([]domain.Stop, int, error)
}

func (m *mockStopRepo) UpsertBatch(ctx context.Context, stops []domain.Stop) error { return nil }

func (m *mockStopRepo) FindInBounds(ctx context.Context, box domain.BoundingBox, query string, limit, offset int) ([]domain.Stop, int, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, box, query, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockStopRepo) FindAround(ctx context.Context, p domain.LatLng, radius float64, query string, limit, offset int) ([]domain.Stop, int, error) {
	if m.findAroundFn != nil {
		return m.findAroundFn(ctx, p, radius, query, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockStopRepo) Search(ctx context.Context, query string, limit, offset int) ([]domain.Stop, int, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit, offset)
	}
	return nil, 0, nil
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock SearchEngine ---

type mockEngine struct {
	searchFn func(ctx context.Context, state domain.SearchState) (*domain.SearchResults, error)
}

func (m *mockEngine) Search(ctx context.Context, state domain.SearchState) (*domain.SearchResults, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, state)
	}
	return &domain.SearchResults{Page: state.Page, Applied: state.BoundingBox}, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	events chan *ports.RefinementEvent
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{events: make(chan *ports.RefinementEvent, 16)}
}

func (m *mockPublisher) PublishRefinement(ctx context.Context, event *ports.RefinementEvent) error {
	m.events <- event
	return nil
}

// --- Fake viewport ---

// fakeViewport fires nothing on its own; tests deliver move and idle events
// through the session goroutine. It is only touched from that goroutine.
type fakeViewport struct {
	bounds   domain.BoundingBox
	fits     []domain.BoundingBox
	centers  []domain.LatLng
	nextID   int
	moveSubs map[int]func()
	idleSubs map[int]func()
	disposed bool
}

func newFakeViewport() *fakeViewport {
	return &fakeViewport{
		bounds:   box(0, 0, 1, 1),
		moveSubs: map[int]func(){},
		idleSubs: map[int]func(){},
	}
}

type fakeSub func()

func (f fakeSub) Remove() { f() }

func (v *fakeViewport) Bounds() domain.BoundingBox { return v.bounds }

func (v *fakeViewport) FitBounds(b domain.BoundingBox, padding int) {
	v.fits = append(v.fits, b)
	v.bounds = b
}

func (v *fakeViewport) SetCenter(p domain.LatLng) { v.centers = append(v.centers, p) }

func (v *fakeViewport) OnMove(h func()) ports.Subscription { return v.add(v.moveSubs, h) }
func (v *fakeViewport) OnIdle(h func()) ports.Subscription { return v.add(v.idleSubs, h) }

func (v *fakeViewport) add(set map[int]func(), h func()) ports.Subscription {
	v.nextID++
	id := v.nextID
	set[id] = h
	return fakeSub(func() { delete(set, id) })
}

func (v *fakeViewport) Dispose() { v.disposed = true }

func (v *fakeViewport) move() {
	for _, h := range v.moveSubs {
		h()
	}
}

func (v *fakeViewport) idle() {
	for _, h := range v.idleSubs {
		h()
	}
}

// userPan simulates a completed user gesture ending at b.
func (v *fakeViewport) userPan(b domain.BoundingBox) {
	v.bounds = b
	v.move()
	v.idle()
}

func box(swLat, swLng, neLat, neLng float64) domain.BoundingBox {
	return domain.BoundingBox{
		NorthEast: domain.LatLng{Lat: neLat, Lng: neLng},
		SouthWest: domain.LatLng{Lat: swLat, Lng: swLng},
	}
}

func stop(id string, lat, lng float64) domain.Stop {
	return domain.Stop{ID: id, Name: "Stop " + id, Location: &domain.LatLng{Lat: lat, Lng: lng}}
}
