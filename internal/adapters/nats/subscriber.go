package natsadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bilbomap/internal/core/ports"
)

// Subscriber implements ports.PositionSubscriber. Sessions live in one
// process only, so positions use core NATS fan-out: every instance sees
// every update and drops those for sessions it does not hold.
type Subscriber struct {
	conn   *nats.Conn
	logger *slog.Logger
	subs   []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own connection.
func NewSubscriber(url string, logger *slog.Logger) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{conn: conn, logger: logger}, nil
}

// SubscribePositions delivers every update published on
// geosearch.position.<session id>.
func (s *Subscriber) SubscribePositions(ctx context.Context, handler func(ctx context.Context, update *ports.PositionUpdate) error) error {
	sub, err := s.conn.Subscribe(positionSubject+"*", func(msg *nats.Msg) {
		var update ports.PositionUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			s.logger.Warn("malformed position update", "subject", msg.Subject, "error", err)
			return
		}
		if update.SessionID == "" {
			update.SessionID = msg.Subject[len(positionSubject):]
		}
		if err := handler(ctx, &update); err != nil {
			s.logger.Debug("position update not applied", "session_id", update.SessionID, "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
