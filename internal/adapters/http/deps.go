package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bilbomap/internal/core/ports"
	"github.com/samirrijal/bilbomap/internal/core/usecases"
)

// Pinger is a backing service with a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Search    ports.SearchEngine
	Sessions  *usecases.SessionRegistry
	// Positions forwards position updates for sessions held by other
	// instances. Optional.
	Positions ports.PositionPublisher
	NATS      *nats.Conn
	DB        Pinger
	Cache     Pinger
}
