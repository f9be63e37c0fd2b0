package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersects reports whether g shares at least one point with the box.
// Boundary contact counts. Empty geometries never intersect.
func (b BoundingBox) Intersects(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return false
	case orb.Point:
		return b.Bound.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if b.Bound.Contains(p) {
				return true
			}
		}
	case orb.LineString:
		return b.intersectsPath(g, false)
	case orb.MultiLineString:
		for _, ls := range g {
			if b.intersectsPath(ls, false) {
				return true
			}
		}
	case orb.Ring:
		return b.intersectsPolygon(orb.Polygon{g})
	case orb.Polygon:
		return b.intersectsPolygon(g)
	case orb.MultiPolygon:
		for _, p := range g {
			if b.intersectsPolygon(p) {
				return true
			}
		}
	case orb.Collection:
		for _, c := range g {
			if b.Intersects(c) {
				return true
			}
		}
	case orb.Bound:
		return b.Bound.Intersects(g)
	}

	return false
}

func (b BoundingBox) intersectsPolygon(p orb.Polygon) bool {
	if len(p) == 0 || len(p[0]) == 0 {
		return false
	}
	if !b.Bound.Intersects(p[0].Bound()) {
		return false
	}

	for _, r := range p {
		if b.intersectsPath(r, true) {
			return true
		}
	}

	// No edge touches the box, so the box is either wholly inside the
	// polygon or wholly outside it.
	return planar.PolygonContains(p, b.Bound.Min)
}

func (b BoundingBox) intersectsPath(pts []orb.Point, closed bool) bool {
	switch len(pts) {
	case 0:
		return false
	case 1:
		return b.Bound.Contains(pts[0])
	}

	for i := 1; i < len(pts); i++ {
		if b.intersectsSegment(pts[i-1], pts[i]) {
			return true
		}
	}

	last := pts[len(pts)-1]
	if closed && last != pts[0] {
		return b.intersectsSegment(last, pts[0])
	}

	return false
}

func (b BoundingBox) intersectsSegment(p, q orb.Point) bool {
	if b.Bound.Contains(p) || b.Bound.Contains(q) {
		return true
	}

	seg := orb.LineString{p, q}
	if !b.Bound.Intersects(seg.Bound()) {
		return false
	}

	lo, hi := b.Bound.Min, b.Bound.Max
	corners := [4]orb.Point{lo, {hi[0], lo[1]}, hi, {lo[0], hi[1]}}
	for i := range corners {
		if segmentsIntersect(p, q, corners[i], corners[(i+1)%4]) {
			return true
		}
	}

	return false
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}

	return false
}

// orientation is the cross product of (b-a) and (c-a).
func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// onSegment assumes p is collinear with a and b.
func onSegment(a, b, p orb.Point) bool {
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}
