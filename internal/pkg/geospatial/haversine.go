package geospatial

import "math"

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoundingBox returns a bounding box around a point with the given radius in
// meters, clamped to valid coordinates.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := 180.0
	if c := math.Cos(toRad(lat)); c > 1e-9 {
		lonDelta = math.Min(180, radiusMeters/(111320.0*c))
	}

	return math.Max(-90, lat-latDelta), math.Max(-180, lon-lonDelta),
		math.Min(90, lat+latDelta), math.Min(180, lon+lonDelta)
}

// Span returns the degrees of latitude and longitude visible at a web
// mercator zoom level in a viewport of the given size in pixels, centred on
// lat.
func Span(lat float64, zoom float64, widthPx, heightPx int) (latSpan, lngSpan float64) {
	worldPx := 256 * math.Pow(2, zoom)
	lngSpan = math.Min(360, 360*float64(widthPx)/worldPx)
	latSpan = math.Min(180, lngSpan*float64(heightPx)/float64(widthPx)*math.Cos(toRad(lat)))
	return latSpan, lngSpan
}

// ZoomFor returns the largest whole zoom level at which a span of
// latSpan × lngSpan degrees centred on lat fits in the given viewport, capped
// at maxZoom.
func ZoomFor(lat, latSpan, lngSpan float64, widthPx, heightPx int, maxZoom float64) float64 {
	zoom := maxZoom
	for zoom > 0 {
		visLat, visLng := Span(lat, zoom, widthPx, heightPx)
		if visLat >= latSpan && visLng >= lngSpan {
			return zoom
		}
		zoom--
	}
	return 0
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
