package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/geosync"
	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/pkg/metrics"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// SessionConfig configures every map session.
type SessionConfig struct {
	RefineOnMapMove  bool
	FitPadding       int
	FitSettlesOnIdle bool
	HitsPerPage      int
	SearchTimeout    time.Duration
}

// Update types sent to a session's client.
const (
	UpdateState   = "state"
	UpdateResults = "results"
	UpdateError   = "error"
)

// SessionUpdate is pushed to the client whenever the widget state or the
// result set changes.
type SessionUpdate struct {
	Type        string                   `json:"type"`
	State       *geosync.RefinementState `json:"state,omitempty"`
	Controls    *geosync.Controls        `json:"controls,omitempty"`
	Refinements []geosync.RefinementItem `json:"refinements,omitempty"`
	Results     *domain.SearchResults    `json:"results,omitempty"`
	Markers     []domain.Hit             `json:"markers,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// Session is one client's map widget. A single goroutine (Run) owns the
// controller, the viewport and the search state; everything else reaches
// them through Post.
type Session struct {
	id        string
	engine    ports.SearchEngine
	publisher ports.EventPublisher
	notify    func(SessionUpdate)
	cfg       SessionConfig
	logger    *slog.Logger

	controller *geosync.Controller
	search     domain.SearchState
	dirty      bool
	seq        uint64
	ctx        context.Context

	cmds      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession wires a controller to vp. notify is called on the session
// goroutine and must not block for long.
func NewSession(
	id string,
	vp ports.Viewport,
	engine ports.SearchEngine,
	publisher ports.EventPublisher,
	notify func(SessionUpdate),
	cfg SessionConfig,
	logger *slog.Logger,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 5 * time.Second
	}
	if notify == nil {
		notify = func(SessionUpdate) {}
	}
	s := &Session{
		id:        id,
		engine:    engine,
		publisher: publisher,
		notify:    notify,
		cfg:       cfg,
		logger:    logger.With("session_id", id),
		search:    domain.SearchState{Page: 1, HitsPerPage: cfg.HitsPerPage},
		ctx:       context.Background(),
		cmds:      make(chan func(), 64),
		done:      make(chan struct{}),
	}
	s.controller = geosync.NewController(countingViewport{vp}, sessionSink{s}, geosync.Options{
		RefineOnMapMove:  cfg.RefineOnMapMove,
		FitPadding:       cfg.FitPadding,
		FitSettlesOnIdle: cfg.FitSettlesOnIdle,
		Logger:           s.logger,
	})
	s.controller.Subscribe(s.stateChanged)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run processes commands until ctx is cancelled or Close is called, then
// disposes the controller. The first search starts immediately.
func (s *Session) Run(ctx context.Context) {
	s.ctx = ctx
	defer s.shutdown()

	s.dirty = true
	s.flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case cmd := <-s.cmds:
			cmd()
			s.flush()
		}
	}
}

// Close stops the session. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the session stops accepting commands.
func (s *Session) Done() <-chan struct{} { return s.done }

// Post schedules fn on the session goroutine. Viewport adapters use it to
// deliver move and idle events.
func (s *Session) Post(fn func()) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.cmds <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Do runs fn on the session goroutine and waits for it to finish.
func (s *Session) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := s.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the controller state as seen by the session goroutine.
func (s *Session) Snapshot(ctx context.Context) (geosync.RefinementState, error) {
	var st geosync.RefinementState
	err := s.Do(ctx, func() { st = s.controller.Snapshot() })
	return st, err
}

// SessionView is a point-in-time copy of a session for inspection.
type SessionView struct {
	ID          string                   `json:"session_id"`
	Ready       bool                     `json:"ready"`
	State       geosync.RefinementState  `json:"state"`
	Controls    geosync.Controls         `json:"controls"`
	Refinements []geosync.RefinementItem `json:"refinements"`
	Search      domain.SearchState       `json:"search"`
}

// View returns the session as seen by its goroutine.
func (s *Session) View(ctx context.Context) (SessionView, error) {
	var v SessionView
	err := s.Do(ctx, func() {
		v = SessionView{
			ID:          s.id,
			Ready:       s.controller.Ready(),
			State:       s.controller.Snapshot(),
			Controls:    s.controller.Controls(),
			Refinements: s.controller.Metadata(),
			Search:      s.search,
		}
	})
	return v, err
}

// SearchState returns the query the next search will run.
func (s *Session) SearchState(ctx context.Context) (domain.SearchState, error) {
	var st domain.SearchState
	err := s.Do(ctx, func() { st = s.search })
	return st, err
}

// ToggleRefineOnMapMove flips "search as I move the map".
func (s *Session) ToggleRefineOnMapMove() error {
	return s.Post(s.controller.ToggleRefineOnMapMove)
}

// SetRefineOnMapMove sets the initial mode; later calls are ignored.
func (s *Session) SetRefineOnMapMove(v bool) error {
	return s.Post(func() { s.controller.SetRefineOnMapMove(v) })
}

// Redo refines with the current viewport bounds.
func (s *Session) Redo() error {
	return s.Post(s.controller.RefineWithViewport)
}

// Clear removes the map refinement.
func (s *Session) Clear() error {
	return s.Post(s.controller.Clear)
}

// SetQuery replaces the text query. The map refinement is kept.
func (s *Session) SetQuery(q string) error {
	return s.Post(func() {
		if s.search.Query == q {
			return
		}
		s.search = s.search.WithQuery(q)
		s.dirty = true
		metrics.GeoRefinements.WithLabelValues("query").Inc()
	})
}

// SetPosition sets or removes the "search around" point. A position replaces
// any bounding box refinement.
func (s *Session) SetPosition(p *domain.LatLng) error {
	return s.Post(func() {
		if domain.SameLatLng(s.search.AroundLatLng, p) {
			return
		}
		s.search = s.search.WithPosition(p)
		s.dirty = true
		s.controller.ApplyExternalRefinement(nil)
		s.controller.SetPosition(p)
		metrics.GeoRefinements.WithLabelValues("position").Inc()
		s.publish(&ports.RefinementEvent{SessionID: s.id, Kind: "position", Position: p})
	})
}

// RestoreRefinement applies a bounding box that comes from outside the map,
// such as a shared URL, and fits the viewport to it.
func (s *Session) RestoreRefinement(box *domain.BoundingBox) error {
	return s.Post(func() {
		if domain.SameBoundingBox(s.search.BoundingBox, box) {
			return
		}
		s.search = s.search.Apply(domain.Refinement{BoundingBox: box})
		s.dirty = true
		s.controller.ApplyExternalRefinement(box)
	})
}

// submit is the controller's refinement sink. It runs on the session
// goroutine; the search starts once the current command returns.
func (s *Session) submit(r domain.Refinement) {
	s.search = s.search.Apply(r)
	s.dirty = true

	kind := "refine"
	if r.BoundingBox == nil {
		kind = "clear"
	}
	metrics.GeoRefinements.WithLabelValues(kind).Inc()
	s.publish(&ports.RefinementEvent{SessionID: s.id, Kind: kind, BoundingBox: r.BoundingBox})
}

// flush starts a search when the state changed. Results for anything but the
// latest search are dropped on arrival.
func (s *Session) flush() {
	if !s.dirty {
		return
	}
	s.dirty = false
	s.seq++
	seq, state, ctx := s.seq, s.search, s.ctx

	go func() {
		sctx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
		defer cancel()
		res, err := s.engine.Search(sctx, state)
		_ = s.Post(func() { s.deliver(seq, res, err) })
	}()
}

func (s *Session) deliver(seq uint64, res *domain.SearchResults, err error) {
	if seq != s.seq {
		metrics.GeoStaleResults.Inc()
		s.logger.Debug("discarding superseded results", "seq", seq, "latest", s.seq)
		return
	}
	if err != nil {
		s.logger.Error("search failed", "error", err)
		s.notify(SessionUpdate{Type: UpdateError, Error: "search failed"})
		return
	}
	s.controller.OnResultsChanged(res.Hits, res.Applied)
	s.notify(SessionUpdate{Type: UpdateResults, Results: res, Markers: s.controller.Hits()})
}

func (s *Session) stateChanged(st geosync.RefinementState) {
	controls := geosync.ControlsFor(st)
	s.notify(SessionUpdate{
		Type:        UpdateState,
		State:       &st,
		Controls:    &controls,
		Refinements: s.controller.Metadata(),
	})
}

func (s *Session) publish(event *ports.RefinementEvent) {
	if s.publisher == nil {
		return
	}
	ctx := s.ctx
	go func() {
		if err := s.publisher.PublishRefinement(ctx, event); err != nil {
			s.logger.Warn("publish refinement failed", "kind", event.Kind, "error", err)
		}
	}()
}

func (s *Session) shutdown() {
	s.Close()
	s.controller.Dispose()
	s.logger.Debug("session closed")
}

type sessionSink struct{ s *Session }

func (k sessionSink) SubmitRefinement(r domain.Refinement) { k.s.submit(r) }

// countingViewport records programmatic viewport commands.
type countingViewport struct{ ports.Viewport }

func (v countingViewport) FitBounds(box domain.BoundingBox, padding int) {
	metrics.GeoFits.WithLabelValues("fit_bounds").Inc()
	v.Viewport.FitBounds(box, padding)
}

func (v countingViewport) SetCenter(p domain.LatLng) {
	metrics.GeoFits.WithLabelValues("set_center").Inc()
	v.Viewport.SetCenter(p)
}
