package ports

import "github.com/samirrijal/bilbomap/internal/core/domain"

// Subscription is a handle on a viewport listener.
type Subscription interface {
	Remove()
}

// Viewport is the map surface a controller drives. Implementations fire move
// events for every change, programmatic or not, and an idle event once the
// viewport has settled.
type Viewport interface {
	Bounds() domain.BoundingBox
	// FitBounds repositions the viewport to enclose box. padding is in screen
	// units; zero means the implementation default.
	FitBounds(box domain.BoundingBox, padding int)
	SetCenter(p domain.LatLng)
	OnMove(handler func()) Subscription
	OnIdle(handler func()) Subscription
	// Dispose releases every subscription still attached.
	Dispose()
}
