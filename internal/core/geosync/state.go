package geosync

import "github.com/samirrijal/bilbomap/internal/core/domain"

// RefinementState is the observable state of a map widget: the committed
// map refinement, the externally supplied position, and the UI-local flags.
type RefinementState struct {
	BoundingBox             *domain.BoundingBox `json:"boundingBox,omitempty"`
	Position                *domain.LatLng      `json:"position,omitempty"`
	IsRefinedWithMap        bool                `json:"isRefinedWithMap"`
	IsRefineOnMapMove       bool                `json:"isRefineOnMapMove"`
	HasMovedSinceLastRefine bool                `json:"hasMapMoveSinceLastRefine"`
}

// Equal reports whether both states carry the same values.
func (s RefinementState) Equal(o RefinementState) bool {
	return domain.SameBoundingBox(s.BoundingBox, o.BoundingBox) &&
		domain.SameLatLng(s.Position, o.Position) &&
		s.IsRefinedWithMap == o.IsRefinedWithMap &&
		s.IsRefineOnMapMove == o.IsRefineOnMapMove &&
		s.HasMovedSinceLastRefine == o.HasMovedSinceLastRefine
}

func (s RefinementState) clone() RefinementState {
	out := s
	out.BoundingBox = cloneBox(s.BoundingBox)
	out.Position = clonePoint(s.Position)
	return out
}

func cloneBox(b *domain.BoundingBox) *domain.BoundingBox {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func clonePoint(p *domain.LatLng) *domain.LatLng {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
