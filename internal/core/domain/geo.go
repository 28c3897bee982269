package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidCoordinate is returned for a LatLng that is not finite or out of range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidBoundingBox is returned when a bounding box cannot be parsed.
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
)

// LatLng represents a geographic coordinate (WGS 84).
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Validate checks that both components are finite and within range.
func (p LatLng) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidCoordinate)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: lat %f out of [-90,90]", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: lng %f out of [-180,180]", ErrInvalidCoordinate, p.Lng)
	}
	return nil
}

// String renders the point as "lat, lng", the aroundLatLng wire form.
func (p LatLng) String() string {
	return fmt.Sprintf("%s, %s", formatCoord(p.Lat), formatCoord(p.Lng))
}

// ParseLatLng parses "lat,lng" (whitespace around the comma is allowed).
func ParseLatLng(s string) (LatLng, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return LatLng{}, fmt.Errorf("%w: want \"lat,lng\", got %q", ErrInvalidCoordinate, s)
	}
	vals, err := parseFloats(parts)
	if err != nil {
		return LatLng{}, fmt.Errorf("%w: %v", ErrInvalidCoordinate, err)
	}
	p := LatLng{Lat: vals[0], Lng: vals[1]}
	return p, p.Validate()
}

// BoundingBox is a geographic rectangle given by its north-east and south-west
// corners. It may be degenerate (both corners equal).
type BoundingBox struct {
	NorthEast LatLng `json:"northEast" yaml:"north_east"`
	SouthWest LatLng `json:"southWest" yaml:"south_west"`
}

// NewBoundingBox returns the degenerate box holding a single point.
func NewBoundingBox(p LatLng) BoundingBox {
	return BoundingBox{NorthEast: p, SouthWest: p}
}

// Extend returns the smallest box enclosing b and p.
func (b BoundingBox) Extend(p LatLng) BoundingBox {
	return BoundingBox{
		NorthEast: LatLng{Lat: math.Max(b.NorthEast.Lat, p.Lat), Lng: math.Max(b.NorthEast.Lng, p.Lng)},
		SouthWest: LatLng{Lat: math.Min(b.SouthWest.Lat, p.Lat), Lng: math.Min(b.SouthWest.Lng, p.Lng)},
	}
}

// Contains reports whether p lies inside b (edges included).
func (b BoundingBox) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() LatLng {
	return LatLng{
		Lat: (b.NorthEast.Lat + b.SouthWest.Lat) / 2,
		Lng: (b.NorthEast.Lng + b.SouthWest.Lng) / 2,
	}
}

// Span returns the latitude and longitude extent of the box in degrees.
func (b BoundingBox) Span() (dLat, dLng float64) {
	return b.NorthEast.Lat - b.SouthWest.Lat, b.NorthEast.Lng - b.SouthWest.Lng
}

// IsPoint reports whether the box is degenerate.
func (b BoundingBox) IsPoint() bool {
	return b.NorthEast == b.SouthWest
}

// Validate checks both corners and their ordering.
func (b BoundingBox) Validate() error {
	if err := b.NorthEast.Validate(); err != nil {
		return fmt.Errorf("north-east: %w", err)
	}
	if err := b.SouthWest.Validate(); err != nil {
		return fmt.Errorf("south-west: %w", err)
	}
	if b.SouthWest.Lat > b.NorthEast.Lat {
		return fmt.Errorf("%w: south-west lat above north-east lat", ErrInvalidBoundingBox)
	}
	return nil
}

// String renders the box as "neLat,neLng,swLat,swLng", the insideBoundingBox
// query parameter form.
func (b BoundingBox) String() string {
	return strings.Join([]string{
		formatCoord(b.NorthEast.Lat),
		formatCoord(b.NorthEast.Lng),
		formatCoord(b.SouthWest.Lat),
		formatCoord(b.SouthWest.Lng),
	}, ",")
}

// ParseBoundingBox parses the "neLat,neLng,swLat,swLng" form produced by String.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: want 4 values, got %d", ErrInvalidBoundingBox, len(parts))
	}
	vals, err := parseFloats(parts)
	if err != nil {
		return BoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidBoundingBox, err)
	}
	b := BoundingBox{
		NorthEast: LatLng{Lat: vals[0], Lng: vals[1]},
		SouthWest: LatLng{Lat: vals[2], Lng: vals[3]},
	}
	return b, b.Validate()
}

// SameBoundingBox compares two optional boxes.
func SameBoundingBox(a, b *BoundingBox) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SameLatLng compares two optional points.
func SameLatLng(a, b *LatLng) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func parseFloats(parts []string) ([]float64, error) {
	out := make([]float64, len(parts))
	for i, raw := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
