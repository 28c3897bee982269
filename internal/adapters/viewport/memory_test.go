package viewport_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/bilbomap/internal/adapters/viewport"
	"github.com/samirrijal/bilbomap/internal/core/domain"
)

func TestMemory_InitialPosition(t *testing.T) {
	vp := viewport.NewMemory(800, 600)
	if vp.Center() != (domain.LatLng{}) || vp.Zoom() != viewport.MinZoom {
		t.Errorf("expected {0,0} at zoom 1, got %v at %v", vp.Center(), vp.Zoom())
	}
	if err := vp.Bounds().Validate(); err != nil {
		t.Errorf("initial bounds invalid: %v", err)
	}
}

func TestMemory_FitBoundsEnclosesBox(t *testing.T) {
	vp := viewport.NewMemory(800, 600)
	target := domain.BoundingBox{
		NorthEast: domain.LatLng{Lat: 43.30, Lng: -2.90},
		SouthWest: domain.LatLng{Lat: 43.20, Lng: -3.00},
	}
	moves := 0
	vp.OnMove(func() { moves++ })

	vp.FitBounds(target, 20)

	got := vp.Bounds()
	if !got.Contains(target.NorthEast) || !got.Contains(target.SouthWest) {
		t.Errorf("fitted bounds %s do not enclose %s", got, target)
	}
	if moves != 1 {
		t.Errorf("expected one move event, got %d", moves)
	}
}

func TestMemory_FitSinglePointUsesMaxZoom(t *testing.T) {
	vp := viewport.NewMemory(800, 600)
	p := domain.LatLng{Lat: 43.26, Lng: -2.93}
	vp.FitBounds(domain.NewBoundingBox(p), 0)
	if vp.Zoom() != viewport.MaxZoom {
		t.Errorf("expected max zoom, got %v", vp.Zoom())
	}
	if vp.Center() != p {
		t.Errorf("expected centre %v, got %v", p, vp.Center())
	}
}

func TestMemory_PanAndZoom(t *testing.T) {
	vp := viewport.NewMemory(800, 600)
	vp.SetCenter(domain.LatLng{Lat: 43.26, Lng: -2.93})
	vp.ZoomBy(10)

	before := vp.Center()
	vp.Pan(0.5, 0)
	if vp.Center().Lng <= before.Lng {
		t.Error("panning east must increase longitude")
	}

	moves := 0
	vp.OnMove(func() { moves++ })
	vp.ZoomBy(100)
	vp.ZoomBy(1)
	if vp.Zoom() != viewport.MaxZoom {
		t.Errorf("zoom not clamped: %v", vp.Zoom())
	}
	if moves != 1 {
		t.Errorf("zooming past the limit must not fire a move, got %d moves", moves)
	}
}

func TestMemory_SettleAndDispose(t *testing.T) {
	vp := viewport.NewMemory(100, 100)
	idles, after := 0, 0
	vp.OnIdle(func() { idles++ })
	sub := vp.OnMove(func() {})
	vp.AfterMove = func() { after++ }

	vp.SetCenter(domain.LatLng{Lat: 1, Lng: 1})
	vp.Settle()
	if idles != 1 || after != 1 {
		t.Errorf("expected 1 idle and 1 after-move, got %d and %d", idles, after)
	}

	sub.Remove()
	if vp.Listeners() != 1 {
		t.Errorf("expected 1 listener, got %d", vp.Listeners())
	}
	vp.Dispose()
	if vp.Listeners() != 0 {
		t.Errorf("expected no listeners after dispose, got %d", vp.Listeners())
	}
	vp.Settle()
	if idles != 1 {
		t.Error("idle fired after dispose")
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	var fired atomic.Int32
	d := viewport.NewDebouncer(30*time.Millisecond, func() { fired.Add(1) })
	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	var fired atomic.Int32
	d := viewport.NewDebouncer(10*time.Millisecond, func() { fired.Add(1) })
	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(50 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Errorf("expected no calls after stop, got %d", n)
	}
}
