package domain

import (
	"time"
)

// Stop represents a transit stop or station as stored in the catalogue.
// Location is nil for stops imported without coordinates.
type Stop struct {
	ID                   string         `json:"id" yaml:"id"`
	StopID               string         `json:"stop_id" yaml:"stop_id"`
	AgencyID             string         `json:"agency_id" yaml:"agency_id"`
	Name                 string         `json:"name" yaml:"name"`
	Location             *LatLng        `json:"location,omitempty" yaml:"location,omitempty"`
	PlatformCode         string         `json:"platform_code,omitempty" yaml:"platform_code,omitempty"`
	WheelchairAccessible bool           `json:"wheelchair_accessible" yaml:"wheelchair_accessible"`
	Metadata             map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Distance             *float64       `json:"distance,omitempty" yaml:"-"` // computed field
	CreatedAt            time.Time      `json:"created_at" yaml:"-"`
}

// Hit is one search result record. Geo is optional; hits without it are
// neither rendered nor used for bounds computation.
type Hit struct {
	ID         string         `json:"objectID"`
	Name       string         `json:"name"`
	Geo        *LatLng        `json:"_geoloc,omitempty"`
	Distance   *float64       `json:"distance,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// HitFromStop projects a catalogue stop onto a search hit.
func HitFromStop(s Stop) Hit {
	h := Hit{ID: s.ID, Name: s.Name, Distance: s.Distance}
	if s.Location != nil {
		loc := *s.Location
		h.Geo = &loc
	}
	attrs := map[string]any{"stop_id": s.StopID, "agency_id": s.AgencyID}
	if s.PlatformCode != "" {
		attrs["platform_code"] = s.PlatformCode
	}
	if s.WheelchairAccessible {
		attrs["wheelchair_accessible"] = true
	}
	h.Attributes = attrs
	return h
}

// Refinement is the partial search state a map widget writes to the engine.
// A nil BoundingBox removes the key from the search state entirely.
type Refinement struct {
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
}

// SearchState is the engine-facing query. BoundingBox and AroundLatLng are
// omitted from the encoded form when unset.
type SearchState struct {
	Query        string       `json:"query,omitempty"`
	Page         int          `json:"page,omitempty"`
	HitsPerPage  int          `json:"hitsPerPage,omitempty"`
	BoundingBox  *BoundingBox `json:"boundingBox,omitempty"`
	AroundLatLng *LatLng      `json:"aroundLatLng,omitempty"`
	AroundRadius float64      `json:"aroundRadius,omitempty"`
}

// Apply merges a map refinement into the state. Paging restarts at page 1.
func (s SearchState) Apply(r Refinement) SearchState {
	next := s
	next.Page = 1
	if r.BoundingBox == nil {
		next.BoundingBox = nil
		return next
	}
	box := *r.BoundingBox
	next.BoundingBox = &box
	return next
}

// WithPosition sets an around-point refinement. A position search replaces
// any bounding box refinement.
func (s SearchState) WithPosition(p *LatLng) SearchState {
	next := s
	next.Page = 1
	next.BoundingBox = nil
	if p == nil {
		next.AroundLatLng = nil
		return next
	}
	pos := *p
	next.AroundLatLng = &pos
	return next
}

// WithQuery replaces the text query and restarts paging.
func (s SearchState) WithQuery(q string) SearchState {
	next := s
	next.Query = q
	next.Page = 1
	return next
}

// SearchResults is what the engine delivers for one SearchState. Applied
// echoes the bounding box the engine actually filtered on.
type SearchResults struct {
	Hits        []Hit        `json:"hits"`
	NbHits      int          `json:"nbHits"`
	Page        int          `json:"page"`
	HitsPerPage int          `json:"hitsPerPage"`
	Applied     *BoundingBox `json:"insideBoundingBox,omitempty"`
	ProcessedAt time.Time    `json:"processedAt"`
}
