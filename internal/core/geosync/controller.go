// Package geosync keeps a map viewport and a search refinement in step
// without feedback loops: results reposition the map, the user moving the
// map refines the search, and repositioning done by the widget itself is
// never mistaken for a user move.
package geosync

import (
	"log/slog"

	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/ports"
)

// syncState is the viewport arbitration state.
type syncState int

const (
	stateIdle                      syncState = iota
	stateProgrammaticMove                    // move events are ours, not the user's
	stateAwaitingIdleAfterUserMove           // user gesture in flight
)

func (s syncState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateProgrammaticMove:
		return "programmatic_move"
	case stateAwaitingIdleAfterUserMove:
		return "awaiting_idle"
	default:
		return "unknown"
	}
}

// Options configures a Controller.
type Options struct {
	// RefineOnMapMove is the initial "search as I move the map" mode.
	RefineOnMapMove bool
	// FitPadding is passed to Viewport.FitBounds.
	FitPadding int
	// FitSettlesOnIdle must be set for viewports that deliver events
	// asynchronously to FitBounds/SetCenter (remote clients). Programmatic
	// moves then end on the next idle event rather than when the call returns.
	FitSettlesOnIdle bool
	Logger           *slog.Logger
}

type observer struct {
	id int
	fn func(RefinementState)
}

// Controller owns the refinement state of one map widget and the viewport it
// drives. It is not safe for concurrent use: every method, and every viewport
// callback, must run on the same goroutine.
type Controller struct {
	viewport ports.Viewport
	sink     ports.RefinementSink
	opts     Options
	logger   *slog.Logger

	state   RefinementState
	applied *domain.BoundingBox
	hits    []domain.Hit

	machine       syncState
	resume        syncState
	pendingRefine bool

	ready   bool
	queue   []func()
	idleSub ports.Subscription
	moveSub ports.Subscription

	initialModeSet bool
	observers      []observer
	nextObserver   int
	disposed       bool
}

// NewController attaches to vp and waits for its first idle event before
// acting on it. Refinements are written to sink.
func NewController(vp ports.Viewport, sink ports.RefinementSink, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		viewport: vp,
		sink:     sink,
		opts:     opts,
		logger:   logger,
		state:    RefinementState{IsRefineOnMapMove: opts.RefineOnMapMove},
	}
	c.idleSub = vp.OnIdle(c.handleIdle)
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() RefinementState {
	return c.state.clone()
}

// Hits returns the geo-tagged hits of the last result set.
func (c *Controller) Hits() []domain.Hit {
	out := make([]domain.Hit, len(c.hits))
	copy(out, c.hits)
	return out
}

// Controls returns the render model for the toggle, redo and clear controls.
func (c *Controller) Controls() Controls {
	return ControlsFor(c.state)
}

// Ready reports whether the viewport has signalled its first idle.
func (c *Controller) Ready() bool {
	return c.ready
}

// Subscribe registers fn to receive a snapshot after every state change. The
// returned func removes it.
func (c *Controller) Subscribe(fn func(RefinementState)) (unsubscribe func()) {
	c.nextObserver++
	id := c.nextObserver
	c.observers = append(c.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// OnResultsChanged takes a new result set from the engine. applied is the
// bounding box the engine reports having filtered on; it can lag behind the
// local refinement by one result cycle, so both count as "refined with map".
func (c *Controller) OnResultsChanged(hits []domain.Hit, applied *domain.BoundingBox) {
	if c.disposed {
		return
	}
	c.hits = GeoHits(hits)
	c.applied = cloneBox(applied)
	c.state.IsRefinedWithMap = c.state.BoundingBox != nil || c.applied != nil
	c.publish()

	if len(c.hits) == 0 || c.state.HasMovedSinceLastRefine || c.state.IsRefinedWithMap {
		return
	}
	box, _ := HitsBounds(c.hits)
	c.whenReady(func() { c.fitBounds(box) })
}

// Refine commits box as the map refinement and forwards it to the engine.
func (c *Controller) Refine(box domain.BoundingBox) {
	if c.disposed {
		return
	}
	c.whenReady(func() { c.commitRefine(box) })
}

// RefineWithViewport refines with the viewport bounds read when the command
// runs. This is the redo action.
func (c *Controller) RefineWithViewport() {
	if c.disposed {
		return
	}
	c.whenReady(func() { c.commitRefine(c.viewport.Bounds()) })
}

// Clear removes the map refinement and forwards the removal to the engine.
func (c *Controller) Clear() {
	if c.disposed {
		return
	}
	c.whenReady(c.commitClear)
}

// ToggleRefineOnMapMove flips the "search as I move the map" mode. Turning it
// off drops a refine queued by a gesture still in flight.
func (c *Controller) ToggleRefineOnMapMove() {
	if c.disposed {
		return
	}
	c.state.IsRefineOnMapMove = !c.state.IsRefineOnMapMove
	if !c.state.IsRefineOnMapMove {
		c.pendingRefine = false
	}
	c.publish()
}

// SetRefineOnMapMove overrides the initial mode. Only the first call has an
// effect; later changes go through ToggleRefineOnMapMove.
func (c *Controller) SetRefineOnMapMove(initial bool) {
	if c.disposed {
		return
	}
	if c.initialModeSet {
		c.logger.Debug("geosync: initial refine-on-move already set, ignoring", "value", initial)
		return
	}
	c.initialModeSet = true
	if c.state.IsRefineOnMapMove == initial {
		return
	}
	c.state.IsRefineOnMapMove = initial
	c.publish()
}

// SetMovedFlag sets HasMovedSinceLastRefine. Setting the current value is a
// no-op and notifies nobody.
func (c *Controller) SetMovedFlag(value bool) {
	if c.disposed || c.state.HasMovedSinceLastRefine == value {
		return
	}
	c.state.HasMovedSinceLastRefine = value
	c.publish()
}

// SetPosition takes the externally supplied "search around" point. A change
// counts as an external recentring: the moved flag resets and the viewport is
// centred on the new point.
func (c *Controller) SetPosition(p *domain.LatLng) {
	if c.disposed || domain.SameLatLng(c.state.Position, p) {
		return
	}
	c.state.Position = clonePoint(p)
	c.abandonGesture()
	c.state.HasMovedSinceLastRefine = false
	c.publish()

	if p == nil {
		return
	}
	center := *p
	c.whenReady(func() {
		c.programmatic(func() { c.viewport.SetCenter(center) })
	})
}

// ApplyExternalRefinement adopts a bounding box set outside the map (history
// restore, another widget). It is not forwarded to the engine, which already
// holds it; the viewport is fitted to it.
func (c *Controller) ApplyExternalRefinement(box *domain.BoundingBox) {
	if c.disposed || domain.SameBoundingBox(c.state.BoundingBox, box) {
		return
	}
	c.state.BoundingBox = cloneBox(box)
	c.abandonGesture()
	c.state.HasMovedSinceLastRefine = false
	c.state.IsRefinedWithMap = c.state.BoundingBox != nil || c.applied != nil
	c.publish()

	if box == nil {
		return
	}
	target := *box
	c.whenReady(func() { c.fitBounds(target) })
}

// Metadata lists the active map refinement for a current-refinements widget.
// Removing the item is Clear.
func (c *Controller) Metadata() []RefinementItem {
	if c.state.BoundingBox == nil {
		return nil
	}
	value := c.state.BoundingBox.String()
	return []RefinementItem{{
		Attribute: boundingBoxAttribute,
		Label:     boundingBoxAttribute + ": " + value,
		Value:     value,
	}}
}

// Dispose detaches every viewport listener and releases the viewport.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	if c.moveSub != nil {
		c.moveSub.Remove()
		c.moveSub = nil
	}
	if c.idleSub != nil {
		c.idleSub.Remove()
		c.idleSub = nil
	}
	c.viewport.Dispose()
	c.observers = nil
	c.queue = nil
}

func (c *Controller) handleMove() {
	if c.disposed {
		return
	}
	if c.machine == stateProgrammaticMove {
		c.logger.Debug("geosync: move suppressed during programmatic repositioning")
		return
	}
	c.machine = stateAwaitingIdleAfterUserMove
	c.SetMovedFlag(true)
	if c.state.IsRefineOnMapMove {
		c.pendingRefine = true
	}
}

func (c *Controller) handleIdle() {
	if c.disposed {
		return
	}
	if !c.ready {
		c.ready = true
		c.moveSub = c.viewport.OnMove(c.handleMove)
		c.logger.Debug("geosync: viewport ready", "queued", len(c.queue))
		c.replay()
		return
	}

	if c.machine == stateProgrammaticMove {
		// Only reachable when programmatic moves settle on idle.
		c.machine, c.resume = c.resume, stateIdle
	}
	if c.machine != stateAwaitingIdleAfterUserMove {
		return
	}
	c.machine = stateIdle
	if c.pendingRefine {
		c.pendingRefine = false
		c.commitRefine(c.viewport.Bounds())
	}
}

func (c *Controller) commitRefine(box domain.BoundingBox) {
	c.abandonGesture()
	committed := box
	c.state.BoundingBox = &committed
	c.state.HasMovedSinceLastRefine = false
	c.state.IsRefinedWithMap = true
	c.publish()
	c.logger.Debug("geosync: refine", "bounding_box", committed.String())
	c.sink.SubmitRefinement(domain.Refinement{BoundingBox: cloneBox(&committed)})
}

func (c *Controller) commitClear() {
	c.abandonGesture()
	c.state.BoundingBox = nil
	c.state.HasMovedSinceLastRefine = false
	c.state.IsRefinedWithMap = c.applied != nil
	c.publish()
	c.logger.Debug("geosync: clear")
	c.sink.SubmitRefinement(domain.Refinement{})
}

func (c *Controller) fitBounds(box domain.BoundingBox) {
	c.programmatic(func() { c.viewport.FitBounds(box, c.opts.FitPadding) })
}

// programmatic runs a viewport call with user-move handling suspended.
func (c *Controller) programmatic(call func()) {
	if c.machine != stateProgrammaticMove {
		c.resume = c.machine
		c.machine = stateProgrammaticMove
	}
	call()
	if !c.opts.FitSettlesOnIdle {
		c.machine, c.resume = c.resume, stateIdle
	}
}

// abandonGesture forgets a refine queued by an in-flight gesture. Any commit or
// external recentring supersedes it.
func (c *Controller) abandonGesture() {
	c.pendingRefine = false
	if c.machine == stateAwaitingIdleAfterUserMove {
		c.machine = stateIdle
	}
	if c.machine == stateProgrammaticMove {
		c.resume = stateIdle
	}
}

func (c *Controller) whenReady(cmd func()) {
	if c.ready {
		cmd()
		return
	}
	c.queue = append(c.queue, cmd)
}

func (c *Controller) replay() {
	queued := c.queue
	c.queue = nil
	for _, cmd := range queued {
		if c.disposed {
			return
		}
		cmd()
	}
}

func (c *Controller) publish() {
	if len(c.observers) == 0 {
		return
	}
	snapshot := c.state.clone()
	observers := make([]observer, len(c.observers))
	copy(observers, c.observers)
	for _, o := range observers {
		o.fn(snapshot)
	}
}
