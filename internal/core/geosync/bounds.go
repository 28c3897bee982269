package geosync

import "github.com/samirrijal/bilbomap/internal/core/domain"

// GeoHits keeps the hits that carry a valid geo-coordinate, preserving order.
func GeoHits(hits []domain.Hit) []domain.Hit {
	out := make([]domain.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Geo == nil || h.Geo.Validate() != nil {
			continue
		}
		out = append(out, h)
	}
	return out
}

// HitsBounds returns the smallest box enclosing every geo-tagged hit. ok is
// false when no hit has a coordinate.
func HitsBounds(hits []domain.Hit) (box domain.BoundingBox, ok bool) {
	for _, h := range GeoHits(hits) {
		if !ok {
			box, ok = domain.NewBoundingBox(*h.Geo), true
			continue
		}
		box = box.Extend(*h.Geo)
	}
	return box, ok
}
