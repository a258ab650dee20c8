package spatial

import (
	"github.com/golang/geo/s2"
)

// Point is a (lat, lon) pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Equal reports exact coordinate equality.
func (p Point) Equal(o Point) bool {
	return p.Lat == o.Lat && p.Lon == o.Lon
}

// LatLng converts the point for s2 computations.
func (p Point) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// Centroid calculates the arithmetic centroid of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// CloseRing returns the ring with its first vertex appended when the last
// vertex differs from it. The input slice is not modified.
func CloseRing(ring []Point) []Point {
	out := make([]Point, len(ring), len(ring)+1)
	copy(out, ring)
	if len(out) > 0 && !out[0].Equal(out[len(out)-1]) {
		out = append(out, out[0])
	}
	return out
}

// DistinctVertices counts unique vertices of a ring.
func DistinctVertices(ring []Point) int {
	seen := make(map[Point]struct{}, len(ring))
	for _, p := range ring {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// PointInPolygon checks if a point is inside a ring using planar ray casting
// in (lat, lon) space.
//
// Edges are half-open: an edge takes part only when exactly one endpoint lies
// strictly north of the point, and the crossing counts only when the point is
// strictly west of it. A point on a southern or western edge is therefore
// inside, one on a northern or eastern edge is outside.
func PointInPolygon(point Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	j := len(polygon) - 1

	for i := 0; i < len(polygon); i++ {
		if ((polygon[i].Lat > point.Lat) != (polygon[j].Lat > point.Lat)) &&
			(point.Lon < (polygon[j].Lon-polygon[i].Lon)*(point.Lat-polygon[i].Lat)/(polygon[j].Lat-polygon[i].Lat)+polygon[i].Lon) {
			inside = !inside
		}
		j = i
	}

	return inside
}

// Polygon is a ring prepared for repeated containment tests. The s2 bounding
// rectangle is inclusive, so it only rejects points the ray test would reject
// as well.
type Polygon struct {
	Ring   []Point
	bounds s2.Rect
}

// NewPolygon prepares ring for Contains.
func NewPolygon(ring []Point) Polygon {
	bounds := s2.EmptyRect()
	for _, p := range ring {
		bounds = bounds.AddPoint(p.LatLng())
	}
	return Polygon{Ring: ring, bounds: bounds}
}

// Contains runs the bounding-rectangle prefilter, then PointInPolygon.
func (p Polygon) Contains(pt Point) bool {
	if len(p.Ring) < 3 {
		return false
	}
	// An inverted longitude interval means the ring straddles the
	// antimeridian in s2 terms; the planar test decides alone there.
	if !p.bounds.Lng.IsInverted() && !p.bounds.ContainsLatLng(pt.LatLng()) {
		return false
	}
	return PointInPolygon(pt, p.Ring)
}
