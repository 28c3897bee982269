package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bilbomap/internal/core/ports"
)

const (
	refinementStream  = "GEOSEARCH_REFINEMENTS"
	refinementSubject = "geosearch.refinement."
	positionSubject   = "geosearch.position."
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      refinementStream,
		Subjects:  []string{refinementSubject + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishRefinement records a committed refinement on
// geosearch.refinement.<kind>.
func (p *Publisher) PublishRefinement(ctx context.Context, event *ports.RefinementEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(refinementSubject+event.Kind, data, nats.Context(ctx))
	return err
}

// PublishPosition sends a position update to whichever instance holds the
// session.
func (p *Publisher) PublishPosition(update *ports.PositionUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return p.conn.Publish(positionSubject+update.SessionID, data)
}

// Conn exposes the connection for health checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
