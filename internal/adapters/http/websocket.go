package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/bilbomap/internal/adapters/viewport"
	"github.com/samirrijal/bilbomap/internal/core/domain"
	"github.com/samirrijal/bilbomap/internal/core/usecases"
)

// Client message types on /ws/map.
const (
	msgMove               = "move"
	msgIdle               = "idle"
	msgToggle             = "toggle"
	msgRedo               = "redo"
	msgClear              = "clear"
	msgSetRefineOnMapMove = "set_refine_on_map_move"
	msgQuery              = "query"
	msgPosition           = "position"
	msgRestore            = "restore"
)

// worldBounds is what a freshly loaded map shows: {0,0} at zoom 1.
var worldBounds = domain.BoundingBox{
	NorthEast: domain.LatLng{Lat: 85, Lng: 180},
	SouthWest: domain.LatLng{Lat: -85, Lng: -180},
}

// clientMessage is sent by the map client. Bounds accompany move and idle;
// Seq in an idle is the last viewport command the client applied.
type clientMessage struct {
	Type              string              `json:"type"`
	Bounds            *domain.BoundingBox `json:"bounds,omitempty"`
	Seq               uint64              `json:"seq,omitempty"`
	Value             bool                `json:"value,omitempty"`
	Query             string              `json:"query,omitempty"`
	Position          *domain.LatLng      `json:"position,omitempty"`
	InsideBoundingBox string              `json:"insideBoundingBox,omitempty"`
}

type sessionHello struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// MapSessionHandler runs one map session per connection. The server drives
// the client map with fit_bounds and set_center commands and pushes state and
// results updates; the client reports camera moves and idles and forwards
// control clicks.
//
// Query parameters: inside_bounding_box restores a refinement,
// refine_on_map_move=false starts with the toggle off.
func MapSessionHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		vp := viewport.NewRemote(worldBounds, func(cmd viewport.Command) { _ = writeJSON(cmd) })
		sess := deps.Sessions.Start(ctx, vp, func(u usecases.SessionUpdate) { _ = writeJSON(u) })
		logger := slog.Default().With("session_id", sess.ID(), "remote_addr", c.RemoteAddr().String())
		logger.Info("map session connected")
		_ = writeJSON(sessionHello{Type: "session", SessionID: sess.ID()})

		if raw := c.Query("refine_on_map_move"); raw != "" {
			_ = sess.SetRefineOnMapMove(raw != "false" && raw != "0")
		}
		if raw := c.Query("inside_bounding_box"); raw != "" {
			if box, err := domain.ParseBoundingBox(raw); err == nil {
				_ = sess.RestoreRefinement(&box)
			} else {
				_ = writeJSON(errorMessage{Type: "error", Error: "inside_bounding_box: " + err.Error()})
			}
		}

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		started := time.Now()
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				break
			}
			var m clientMessage
			if err := json.Unmarshal(data, &m); err != nil {
				_ = writeJSON(errorMessage{Type: "error", Error: "invalid JSON"})
				continue
			}
			if err := dispatch(sess, vp, m); err != nil {
				if errors.Is(err, usecases.ErrSessionClosed) {
					break
				}
				_ = writeJSON(errorMessage{Type: "error", Error: err.Error()})
			}
		}

		sess.Close()
		logger.Info("map session disconnected", "duration", time.Since(started).String())
	}
}

// dispatch routes a client message to the session. Viewport reports are
// applied on the session goroutine, like every other command.
func dispatch(sess *usecases.Session, vp *viewport.Remote, m clientMessage) error {
	switch m.Type {
	case msgMove, msgIdle:
		if m.Bounds == nil {
			return fmt.Errorf("%s: bounds are required", m.Type)
		}
		if err := m.Bounds.Validate(); err != nil {
			return fmt.Errorf("%s: %w", m.Type, err)
		}
		bounds, seq := *m.Bounds, m.Seq
		if m.Type == msgMove {
			return sess.Post(func() { vp.HandleMove(bounds) })
		}
		return sess.Post(func() { vp.HandleIdle(bounds, seq) })
	case msgToggle:
		return sess.ToggleRefineOnMapMove()
	case msgRedo:
		return sess.Redo()
	case msgClear:
		return sess.Clear()
	case msgSetRefineOnMapMove:
		return sess.SetRefineOnMapMove(m.Value)
	case msgQuery:
		if len(m.Query) > maxQueryLength {
			return fmt.Errorf("query too long (max %d characters)", maxQueryLength)
		}
		return sess.SetQuery(m.Query)
	case msgPosition:
		if m.Position != nil {
			if err := m.Position.Validate(); err != nil {
				return fmt.Errorf("position: %w", err)
			}
		}
		return sess.SetPosition(m.Position)
	case msgRestore:
		if m.InsideBoundingBox == "" {
			return sess.RestoreRefinement(nil)
		}
		box, err := domain.ParseBoundingBox(m.InsideBoundingBox)
		if err != nil {
			return err
		}
		return sess.RestoreRefinement(&box)
	default:
		return fmt.Errorf("unknown message type: %s", m.Type)
	}
}
