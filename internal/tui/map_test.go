package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/samirrijal/bilbomap/internal/core/usecases"
	"github.com/samirrijal/bilbomap/internal/fixtures"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	engine := usecases.NewSearchService(fixtures.NewStore(fixtures.Bilbao().Stops), nil, usecases.SearchConfig{HitsPerPage: 50})
	reg := usecases.NewSessionRegistry(engine, nil, usecases.SessionConfig{
		RefineOnMapMove: true,
		HitsPerPage:     50,
		SearchTimeout:   time.Second,
	}, nil)
	m := New(context.Background(), reg, Options{Cols: 40, Rows: 12, Debounce: 20 * time.Millisecond})
	t.Cleanup(func() {
		m.shutdown()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})
	return m
}

// pump feeds session events to the model until cond holds.
func pump(t *testing.T, m *Model, what string, cond func(*Model) bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond(m) {
		select {
		case msg := <-m.events:
			m.Update(msg)
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func press(m *Model, k string) {
	switch k {
	case "right":
		m.Update(tea.KeyMsg{Type: tea.KeyRight})
	case "space":
		m.Update(tea.KeyMsg{Type: tea.KeySpace})
	default:
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
}

func fitted(m *Model) bool {
	return len(m.markers) > 0 && m.frame.zoom > 1
}

func TestModel_InitialResultsFitMap(t *testing.T) {
	m := newTestModel(t)

	pump(t, m, "initial fit", fitted)

	if m.state.BoundingBox != nil || m.state.HasMovedSinceLastRefine {
		t.Errorf("a fit must not refine or count as a move: %+v", m.state)
	}
	for _, h := range m.markers {
		if h.Geo == nil {
			t.Errorf("marker %s has no location", h.ID)
		}
	}
	if !strings.Contains(m.View(), "●") {
		t.Error("expected markers on the grid")
	}
	if !strings.Contains(m.View(), "Search as I move the map") {
		t.Error("expected the toggle")
	}
}

func TestModel_PanRefinesAndClearRemoves(t *testing.T) {
	m := newTestModel(t)
	pump(t, m, "initial fit", fitted)

	press(m, "right")
	pump(t, m, "refinement", func(m *Model) bool { return m.state.BoundingBox != nil })

	if !m.state.IsRefinedWithMap || m.state.HasMovedSinceLastRefine {
		t.Errorf("unexpected state after refine: %+v", m.state)
	}
	if !m.controls.Clear.Visible {
		t.Error("expected the clear control")
	}
	if len(m.refinements) != 1 || !strings.HasPrefix(m.refinements[0].Label, "boundingBox: ") {
		t.Errorf("unexpected refinements: %+v", m.refinements)
	}

	press(m, "c")
	pump(t, m, "clear", func(m *Model) bool { return m.state.BoundingBox == nil })
	if len(m.refinements) != 0 {
		t.Errorf("expected no refinements, got %+v", m.refinements)
	}
}

func TestModel_ToggleOffShowsRedo(t *testing.T) {
	m := newTestModel(t)
	pump(t, m, "initial fit", fitted)

	press(m, "space")
	pump(t, m, "toggle off", func(m *Model) bool { return !m.state.IsRefineOnMapMove })

	press(m, "right")
	pump(t, m, "moved flag", func(m *Model) bool { return m.state.HasMovedSinceLastRefine })
	if m.state.BoundingBox != nil {
		t.Fatal("must not refine with the toggle off")
	}
	if !m.controls.Redo.Visible || m.controls.Redo.Disabled || m.controls.Toggle.Visible {
		t.Errorf("unexpected controls: %+v", m.controls)
	}

	press(m, "r")
	pump(t, m, "redo refinement", func(m *Model) bool { return m.state.BoundingBox != nil })
	if m.state.HasMovedSinceLastRefine {
		t.Error("redo must reset the moved flag")
	}
}

func TestModel_PositionKey(t *testing.T) {
	m := newTestModel(t)
	pump(t, m, "initial fit", fitted)

	press(m, "p")
	pump(t, m, "position", func(m *Model) bool { return m.state.Position != nil })
	if !strings.Contains(m.View(), "around: ") {
		t.Error("expected the around point in the view")
	}

	press(m, "p")
	pump(t, m, "position removed", func(m *Model) bool { return m.state.Position == nil })
}

func TestModel_QuitEndsSession(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	select {
	case <-m.Session().Done():
	case <-time.After(time.Second):
		t.Fatal("session still running")
	}
}
