package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/pkg/metrics"
)

// SessionRegistry starts map sessions and tracks the live ones so upstream
// position updates can be routed to them.
type SessionRegistry struct {
	engine    ports.SearchEngine
	publisher ports.EventPublisher
	cfg       SessionConfig
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewSessionRegistry creates a new SessionRegistry.
func NewSessionRegistry(engine ports.SearchEngine, publisher ports.EventPublisher, cfg SessionConfig, logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		engine:    engine,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}
}

// Start opens a session on vp and runs it until ctx is cancelled or the
// session is closed.
func (r *SessionRegistry) Start(ctx context.Context, vp ports.Viewport, notify func(SessionUpdate)) *Session {
	s := NewSession(uuid.NewString(), vp, r.engine, r.publisher, notify, r.cfg, r.logger)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		s.Run(ctx)

		r.mu.Lock()
		delete(r.sessions, s.ID())
		r.mu.Unlock()
		metrics.ActiveSessions.Dec()
	}()

	r.logger.Info("map session started", "session_id", s.ID())
	return s
}

// Get returns a live session.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// DeliverPosition routes an upstream position update to its session.
func (r *SessionRegistry) DeliverPosition(_ context.Context, update *ports.PositionUpdate) error {
	if update.Position != nil {
		if err := update.Position.Validate(); err != nil {
			return err
		}
	}
	s, err := r.Get(update.SessionID)
	if err != nil {
		return err
	}
	return s.SetPosition(update.Position)
}

// Shutdown closes every session and waits for their loops to exit.
func (r *SessionRegistry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	for _, s := range r.sessions {
		s.Close()
	}
	r.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
