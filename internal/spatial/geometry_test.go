package spatial

import (
	"math"
	"testing"
)

var square = []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}}

func TestPointInPolygonSquare(t *testing.T) {
	if !PointInPolygon(Point{5, 5}, square) {
		t.Error("expected (5,5) inside square")
	}
	if PointInPolygon(Point{15, 15}, square) {
		t.Error("expected (15,15) outside square")
	}
	closed := CloseRing(square)
	if !PointInPolygon(Point{5, 5}, closed) || PointInPolygon(Point{15, 15}, closed) {
		t.Error("closed ring must classify like the open one")
	}
}

func TestPointInPolygonCentroid(t *testing.T) {
	ring := CloseRing([]Point{{-4.1, 10.2}, {-3.6, 10.3}, {-3.5, 10.9}, {-4.0, 11.0}})
	c := Centroid(ring[:len(ring)-1])
	if !PointInPolygon(c, ring) {
		t.Errorf("centroid %+v should be inside", c)
	}
	if PointInPolygon(Point{40, 40}, ring) {
		t.Error("far point should be outside")
	}
}

func TestPointInPolygonEdgeTieBreak(t *testing.T) {
	ring := CloseRing(square)
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"west edge", Point{5, 0}, true},
		{"south edge", Point{0, 5}, true},
		{"east edge", Point{5, 10}, false},
		{"north edge", Point{10, 5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if got := PointInPolygon(tc.p, ring); got != tc.want {
					t.Fatalf("PointInPolygon(%+v) = %v, want %v", tc.p, got, tc.want)
				}
			}
		})
	}
}

func TestPolygonContainsMatchesRayCast(t *testing.T) {
	poly := NewPolygon(CloseRing(square))
	for lat := -2.0; lat <= 12; lat += 0.5 {
		for lon := -2.0; lon <= 12; lon += 0.5 {
			p := Point{lat, lon}
			if poly.Contains(p) != PointInPolygon(p, poly.Ring) {
				t.Fatalf("prefilter disagrees at %+v", p)
			}
		}
	}
}

func TestCloseRing(t *testing.T) {
	open := []Point{{1, 1}, {1, 2}, {2, 2}}
	got := CloseRing(open)
	if len(got) != 4 || !got[3].Equal(open[0]) {
		t.Fatalf("CloseRing = %+v", got)
	}
	if len(open) != 3 {
		t.Fatal("CloseRing modified its input")
	}
	again := CloseRing(got)
	if len(again) != 4 {
		t.Fatalf("CloseRing on a closed ring appended a vertex: %+v", again)
	}
}

func TestPathLength(t *testing.T) {
	if PathLength([]Point{{1, 1}}) != 0 {
		t.Error("single point path must have zero length")
	}
	// one degree of latitude is ~111.19 km on the mean sphere
	km := PathLengthKm([]Point{{0, 0}, {1, 0}})
	if math.Abs(km-111.19) > 0.05 {
		t.Errorf("PathLengthKm = %.3f, want ~111.19", km)
	}
}
