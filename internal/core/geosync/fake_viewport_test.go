package geosync_test

import (
	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/ports"
)

// fakeViewport records programmatic calls and lets tests fire events. With
// emitOnFit set it behaves like a map SDK: FitBounds and SetCenter fire a
// move event synchronously.
type fakeViewport struct {
	bounds     domain.BoundingBox
	fits       []domain.BoundingBox
	centers    []domain.LatLng
	emitOnFit  bool
	idleOnFit  bool
	disposed   bool
	nextID     int
	moveSubs   map[int]func()
	idleSubs   map[int]func()
	removeCall int
}

func newFakeViewport() *fakeViewport {
	return &fakeViewport{
		bounds:   box(0, 0, 1, 1),
		moveSubs: map[int]func(){},
		idleSubs: map[int]func(){},
	}
}

type fakeSub struct {
	remove func()
}

func (s fakeSub) Remove() { s.remove() }

func (v *fakeViewport) Bounds() domain.BoundingBox { return v.bounds }

func (v *fakeViewport) FitBounds(b domain.BoundingBox, padding int) {
	v.fits = append(v.fits, b)
	v.bounds = b
	v.afterProgrammatic()
}

func (v *fakeViewport) SetCenter(p domain.LatLng) {
	v.centers = append(v.centers, p)
	v.afterProgrammatic()
}

func (v *fakeViewport) afterProgrammatic() {
	if v.emitOnFit {
		v.move()
	}
	if v.idleOnFit {
		v.idle()
	}
}

func (v *fakeViewport) OnMove(h func()) ports.Subscription { return v.add(v.moveSubs, h) }
func (v *fakeViewport) OnIdle(h func()) ports.Subscription { return v.add(v.idleSubs, h) }

func (v *fakeViewport) add(set map[int]func(), h func()) ports.Subscription {
	v.nextID++
	id := v.nextID
	set[id] = h
	return fakeSub{remove: func() {
		v.removeCall++
		delete(set, id)
	}}
}

func (v *fakeViewport) Dispose() {
	v.disposed = true
	for id := range v.moveSubs {
		delete(v.moveSubs, id)
	}
	for id := range v.idleSubs {
		delete(v.idleSubs, id)
	}
}

func (v *fakeViewport) subscriptions() int { return len(v.moveSubs) + len(v.idleSubs) }

func (v *fakeViewport) move() {
	for _, h := range snapshotHandlers(v.moveSubs) {
		h()
	}
}

func (v *fakeViewport) idle() {
	for _, h := range snapshotHandlers(v.idleSubs) {
		h()
	}
}

// userPan simulates a gesture ending at b: bounds change, then a move event.
func (v *fakeViewport) userPan(b domain.BoundingBox) {
	v.bounds = b
	v.move()
}

func snapshotHandlers(set map[int]func()) []func() {
	out := make([]func(), 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

type recordingSink struct {
	refinements []domain.Refinement
}

func (s *recordingSink) SubmitRefinement(r domain.Refinement) {
	s.refinements = append(s.refinements, r)
}

func (s *recordingSink) last() domain.Refinement {
	return s.refinements[len(s.refinements)-1]
}

func box(swLat, swLng, neLat, neLng float64) domain.BoundingBox {
	return domain.BoundingBox{
		NorthEast: domain.LatLng{Lat: neLat, Lng: neLng},
		SouthWest: domain.LatLng{Lat: swLat, Lng: swLng},
	}
}

func hit(id string, lat, lng float64) domain.Hit {
	return domain.Hit{ID: id, Geo: &domain.LatLng{Lat: lat, Lng: lng}}
}
