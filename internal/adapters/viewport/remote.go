package viewport

import (
	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/pkg/metrics"
)

// Command types sent to a remote map client.
const (
	CommandFitBounds = "fit_bounds"
	CommandSetCenter = "set_center"
)

// Command asks the client to reposition its map. Seq increases with every
// command; the client echoes the last applied Seq in its idle events.
type Command struct {
	Type    string              `json:"type"`
	Seq     uint64              `json:"seq"`
	Bounds  *domain.BoundingBox `json:"bounds,omitempty"`
	Padding int                 `json:"padding,omitempty"`
	Center  *domain.LatLng      `json:"center,omitempty"`
}

// Remote mirrors a map rendered by a client. Programmatic calls become
// commands; the client's move and idle reports arrive through HandleMove and
// HandleIdle. Commands are applied asynchronously, so controllers driving a
// Remote must let programmatic moves settle on idle.
type Remote struct {
	send   func(Command)
	bounds domain.BoundingBox
	seq    uint64

	move listeners
	idle listeners
}

var _ ports.Viewport = (*Remote)(nil)

// NewRemote returns a viewport that reports initial until the client sends
// its own bounds.
func NewRemote(initial domain.BoundingBox, send func(Command)) *Remote {
	return &Remote{send: send, bounds: initial}
}

// Bounds returns the last bounds reported by the client.
func (r *Remote) Bounds() domain.BoundingBox { return r.bounds }

// FitBounds sends a fit_bounds command.
func (r *Remote) FitBounds(box domain.BoundingBox, padding int) {
	r.seq++
	b := box
	r.send(Command{Type: CommandFitBounds, Seq: r.seq, Bounds: &b, Padding: padding})
}

// SetCenter sends a set_center command.
func (r *Remote) SetCenter(p domain.LatLng) {
	r.seq++
	c := p
	r.send(Command{Type: CommandSetCenter, Seq: r.seq, Center: &c})
}

// HandleMove records the client's bounds and fires move handlers.
func (r *Remote) HandleMove(bounds domain.BoundingBox) {
	r.bounds = bounds
	r.move.fire()
}

// HandleIdle records the client's bounds and fires idle handlers, unless the
// client has not yet applied the latest command: such an idle belongs to an
// earlier camera movement and is dropped.
func (r *Remote) HandleIdle(bounds domain.BoundingBox, seq uint64) bool {
	r.bounds = bounds
	if seq < r.seq {
		metrics.GeoStaleIdles.Inc()
		return false
	}
	r.idle.fire()
	return true
}

// OnMove registers a move handler.
func (r *Remote) OnMove(fn func()) ports.Subscription { return r.move.add(fn) }

// OnIdle registers an idle handler.
func (r *Remote) OnIdle(fn func()) ports.Subscription { return r.idle.add(fn) }

// Listeners returns the number of attached handlers.
func (r *Remote) Listeners() int { return r.move.len() + r.idle.len() }

// Dispose drops every handler. Later client reports are ignored.
func (r *Remote) Dispose() {
	r.move.clear()
	r.idle.clear()
}
