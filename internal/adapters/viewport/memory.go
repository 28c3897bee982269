package viewport

import (
	"math"

	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/pkg/geospatial"
)

const (
	// MaxZoom bounds zooming in and fitting to a single point.
	MaxZoom = 16
	// MinZoom shows the whole world.
	MinZoom = 1
)

// Memory is a web-mercator style viewport held in memory. Every change fires
// move handlers synchronously; it has no idle signal of its own, so callers
// invoke Settle, usually through a Debouncer registered as AfterMove.
type Memory struct {
	center domain.LatLng
	zoom   float64
	width  int
	height int

	// AfterMove, when set, runs after every move event.
	AfterMove func()

	move listeners
	idle listeners
}

var _ ports.Viewport = (*Memory)(nil)

// NewMemory returns a viewport of width×height pixels centred on {0,0} at
// zoom 1.
func NewMemory(width, height int) *Memory {
	return &Memory{zoom: MinZoom, width: width, height: height}
}

// Bounds returns the visible area.
func (m *Memory) Bounds() domain.BoundingBox {
	latSpan, lngSpan := geospatial.Span(m.center.Lat, m.zoom, m.width, m.height)
	return domain.BoundingBox{
		NorthEast: domain.LatLng{
			Lat: math.Min(90, m.center.Lat+latSpan/2),
			Lng: math.Min(180, m.center.Lng+lngSpan/2),
		},
		SouthWest: domain.LatLng{
			Lat: math.Max(-90, m.center.Lat-latSpan/2),
			Lng: math.Max(-180, m.center.Lng-lngSpan/2),
		},
	}
}

// Center returns the centre point.
func (m *Memory) Center() domain.LatLng { return m.center }

// Zoom returns the zoom level.
func (m *Memory) Zoom() float64 { return m.zoom }

// Size returns the viewport size in pixels.
func (m *Memory) Size() (width, height int) { return m.width, m.height }

// FitBounds centres on box at the largest zoom that shows all of it with
// padding pixels to spare on each side.
func (m *Memory) FitBounds(box domain.BoundingBox, padding int) {
	w, h := m.width-2*padding, m.height-2*padding
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	latSpan, lngSpan := box.Span()
	m.center = box.Center()
	m.zoom = math.Max(MinZoom, geospatial.ZoomFor(m.center.Lat, latSpan, lngSpan, w, h, MaxZoom))
	m.moved()
}

// SetCenter moves the centre, keeping the zoom.
func (m *Memory) SetCenter(p domain.LatLng) {
	m.center = p
	m.moved()
}

// Pan shifts the centre by a fraction of the visible span; dx>0 pans east,
// dy>0 pans north.
func (m *Memory) Pan(dx, dy float64) {
	latSpan, lngSpan := geospatial.Span(m.center.Lat, m.zoom, m.width, m.height)
	m.center.Lat = clamp(m.center.Lat+dy*latSpan, -85, 85)
	m.center.Lng = wrapLng(m.center.Lng + dx*lngSpan)
	m.moved()
}

// ZoomBy changes the zoom by delta levels within [MinZoom, MaxZoom].
func (m *Memory) ZoomBy(delta float64) {
	z := clamp(m.zoom+delta, MinZoom, MaxZoom)
	if z == m.zoom {
		return
	}
	m.zoom = z
	m.moved()
}

// Resize changes the pixel size. It counts as a move.
func (m *Memory) Resize(width, height int) {
	if width == m.width && height == m.height {
		return
	}
	m.width, m.height = width, height
	m.moved()
}

// Settle fires the idle event.
func (m *Memory) Settle() { m.idle.fire() }

// OnMove registers a move handler.
func (m *Memory) OnMove(fn func()) ports.Subscription { return m.move.add(fn) }

// OnIdle registers an idle handler.
func (m *Memory) OnIdle(fn func()) ports.Subscription { return m.idle.add(fn) }

// Listeners returns the number of attached handlers.
func (m *Memory) Listeners() int { return m.move.len() + m.idle.len() }

// Dispose drops every handler.
func (m *Memory) Dispose() {
	m.move.clear()
	m.idle.clear()
	m.AfterMove = nil
}

func (m *Memory) moved() {
	m.move.fire()
	if m.AfterMove != nil {
		m.AfterMove()
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func wrapLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
