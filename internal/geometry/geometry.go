// Package geometry isolates the core from a concrete GIS binding. It wraps
// orb geometry types with the polygon operations the tessellator, segmenter,
// sampler and classifier need: boolean overlays, area/centroid math,
// validity repair, buffering and CRS transforms.
//
// Operations that accept possibly-invalid input repair validity before use;
// repair failures collapse the geometry to empty rather than raising, and
// callers treat empty as "skip this feature".
package geometry

import (
	"math"

	pc "github.com/murphy214/polyclip"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// minRingArea filters out degenerate slivers produced by clipping noise.
const minRingArea = 1e-9

// toClip converts polygonal orb geometry to the clipping data structure.
func toClip(g orb.Geometry) pc.Polygon {
	polygon := pc.Polygon{}
	appendRing := func(r orb.Ring) {
		if len(r) < 3 {
			return
		}
		cont := pc.Contour{}
		last := len(r)
		// drop the closing point, polyclip contours are implicitly closed
		if r[0] == r[len(r)-1] {
			last--
		}
		for _, pt := range r[:last] {
			cont.Add(pc.Point{X: pt[0], Y: pt[1]})
		}
		if len(cont) >= 3 {
			polygon = append(polygon, cont)
		}
	}
	switch v := g.(type) {
	case orb.Ring:
		appendRing(v)
	case orb.Polygon:
		for _, r := range v {
			appendRing(r)
		}
	case orb.MultiPolygon:
		for _, p := range v {
			for _, r := range p {
				appendRing(r)
			}
		}
	case orb.Bound:
		appendRing(v.ToRing())
	}
	return polygon
}

func contourToRing(c pc.Contour) orb.Ring {
	ring := make(orb.Ring, 0, len(c)+1)
	for _, pt := range c {
		ring = append(ring, orb.Point{pt.X, pt.Y})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

func contourContains(c pc.Contour, p pc.Point) bool {
	// ray casting against the implicitly-closed contour
	inside := false
	j := len(c) - 1
	for i := 0; i < len(c); i++ {
		pi, pj := c[i], c[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// fromClip rebuilds a MultiPolygon from clipper output. Contours at even
// nesting depth become outer rings; odd-depth contours become holes of the
// smallest outer ring that contains them.
func fromClip(p pc.Polygon) orb.MultiPolygon {
	type entry struct {
		contour pc.Contour
		area    float64
		depth   int
	}
	entries := make([]entry, 0, len(p))
	for _, c := range p {
		if len(c) < 3 {
			continue
		}
		ring := contourToRing(c)
		area := math.Abs(planar.Area(ring))
		if area < minRingArea {
			continue
		}
		entries = append(entries, entry{contour: c, area: area})
	}
	for i := range entries {
		probe := entries[i].contour[0]
		for j := range entries {
			if i == j {
				continue
			}
			if contourContains(entries[j].contour, probe) {
				entries[i].depth++
			}
		}
	}

	var out orb.MultiPolygon
	outerIdx := make(map[int]int) // entry index -> polygon index
	for i, e := range entries {
		if e.depth%2 == 0 {
			outerIdx[i] = len(out)
			out = append(out, orb.Polygon{contourToRing(e.contour)})
		}
	}
	for _, e := range entries {
		if e.depth%2 == 0 {
			continue
		}
		// attach to the smallest containing outer ring
		best := -1
		bestArea := math.Inf(1)
		for j, je := range entries {
			if je.depth%2 != 0 || je.area < e.area {
				continue
			}
			if contourContains(je.contour, e.contour[0]) && je.area < bestArea {
				best = j
				bestArea = je.area
			}
		}
		if best >= 0 {
			pi := outerIdx[best]
			out[pi] = append(out[pi], contourToRing(e.contour))
		}
	}
	return out
}

// UnaryUnion dissolves a batch of polygonal geometries into one
// MultiPolygon. Nil and empty inputs are skipped; an all-empty batch
// returns an empty MultiPolygon.
func UnaryUnion(geoms []orb.Geometry) orb.MultiPolygon {
	var acc pc.Polygon
	for _, g := range geoms {
		if g == nil {
			continue
		}
		clip := toClip(g)
		if len(clip) == 0 {
			continue
		}
		if len(acc) == 0 {
			acc = clip
			continue
		}
		acc = acc.Construct(pc.UNION, clip)
	}
	if len(acc) == 0 {
		return orb.MultiPolygon{}
	}
	return fromClip(acc)
}

// Intersection overlays two polygonal geometries. An empty result means the
// inputs do not overlap; callers skip the feature rather than treating it as
// an error.
func Intersection(a, b orb.Geometry) orb.MultiPolygon {
	ca := toClip(a)
	cb := toClip(b)
	if len(ca) == 0 || len(cb) == 0 {
		return orb.MultiPolygon{}
	}
	return fromClip(ca.Construct(pc.INTERSECTION, cb))
}

// Area returns the planar area of any polygonal geometry.
func Area(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	return planar.Area(g)
}

// Centroid returns the area-weighted centroid.
func Centroid(g orb.Geometry) orb.Point {
	c, _ := planar.CentroidArea(g)
	return c
}

// Bound returns the bounding box of a geometry.
func Bound(g orb.Geometry) orb.Bound {
	return g.Bound()
}

// IsEmpty reports whether a MultiPolygon carries no usable ring.
func IsEmpty(mp orb.MultiPolygon) bool {
	for _, p := range mp {
		if len(p) > 0 && len(p[0]) >= 4 {
			return false
		}
	}
	return true
}

// MakeValid repairs a polygonal geometry: degenerate and sliver rings are
// dropped and outer/hole nesting is rebuilt from containment depth.
// Geometries that cannot be repaired collapse to an empty MultiPolygon.
func MakeValid(g orb.Geometry) orb.MultiPolygon {
	clip := toClip(g)
	if len(clip) == 0 {
		return orb.MultiPolygon{}
	}
	return fromClip(clip)
}

// Contains reports whether a point lies inside a polygonal geometry.
func Contains(g orb.Geometry, p orb.Point) bool {
	switch v := g.(type) {
	case orb.Ring:
		return planar.RingContains(v, p)
	case orb.Polygon:
		return planar.PolygonContains(v, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, p)
	case orb.Bound:
		return v.Contains(p)
	}
	return false
}

// DistanceToBoundary returns the planar distance from a point to the
// nearest boundary segment of a polygonal geometry. Used for on-boundary
// tie-breaks where Contains is numerically unstable.
func DistanceToBoundary(g orb.Geometry, p orb.Point) float64 {
	min := math.Inf(1)
	visit := func(r orb.Ring) {
		for i := 1; i < len(r); i++ {
			if d := pointSegmentDistance(p, r[i-1], r[i]); d < min {
				min = d
			}
		}
	}
	switch v := g.(type) {
	case orb.Ring:
		visit(v)
	case orb.Polygon:
		for _, r := range v {
			visit(r)
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			for _, r := range poly {
				visit(r)
			}
		}
	}
	return min
}

func pointSegmentDistance(p, a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return planar.Distance(p, a)
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return planar.Distance(p, orb.Point{a[0] + t*dx, a[1] + t*dy})
}

// circleRing approximates a circle with 4*segments vertices, matching the
// quarter-circle segment convention of GIS buffer operations.
func circleRing(center orb.Point, radius float64, segments int) orb.Ring {
	if segments < 1 {
		segments = 8
	}
	n := 4 * segments
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{
			center[0] + radius*math.Cos(theta),
			center[1] + radius*math.Sin(theta),
		})
	}
	ring = append(ring, ring[0])
	return ring
}

// stadium buffers one segment as a single ring: two straight sides joined by
// semicircular end caps. Building the outline directly keeps tangent circle
// and rectangle edges out of the union stage, where the clipper mishandles
// coincident geometry.
func stadium(a, b orb.Point, radius float64, segments int) orb.Polygon {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	if math.Hypot(dx, dy) == 0 {
		return orb.Polygon{circleRing(a, radius, segments)}
	}
	if segments < 1 {
		segments = 8
	}
	theta := math.Atan2(dy, dx)
	n := 2 * segments // vertices per semicircular cap

	ring := make(orb.Ring, 0, 2*n+3)
	arc := func(center orb.Point, from float64) {
		for i := 0; i <= n; i++ {
			ang := from + math.Pi*float64(i)/float64(n)
			ring = append(ring, orb.Point{
				center[0] + radius*math.Cos(ang),
				center[1] + radius*math.Sin(ang),
			})
		}
	}
	arc(b, theta-math.Pi/2)
	arc(a, theta+math.Pi/2)
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// Buffer expands a geometry outward by the given distance. Segments is the
// number of arc segments per quarter circle. Non-positive distances return
// the repaired input for polygonal geometry and empty otherwise; shrinking
// is not supported.
func Buffer(g orb.Geometry, distance float64, segments int) orb.MultiPolygon {
	if distance <= 0 {
		switch g.(type) {
		case orb.Ring, orb.Polygon, orb.MultiPolygon, orb.Bound:
			return MakeValid(g)
		}
		return orb.MultiPolygon{}
	}

	var pieces []orb.Geometry
	bufferLine := func(ls orb.LineString) {
		if len(ls) == 1 {
			pieces = append(pieces, orb.Polygon{circleRing(ls[0], distance, segments)})
			return
		}
		for i := 1; i < len(ls); i++ {
			pieces = append(pieces, stadium(ls[i-1], ls[i], distance, segments))
		}
	}

	switch v := g.(type) {
	case orb.Point:
		pieces = append(pieces, orb.Polygon{circleRing(v, distance, segments)})
	case orb.MultiPoint:
		for _, p := range v {
			pieces = append(pieces, orb.Polygon{circleRing(p, distance, segments)})
		}
	case orb.LineString:
		bufferLine(v)
	case orb.MultiLineString:
		for _, ls := range v {
			bufferLine(ls)
		}
	case orb.Ring:
		pieces = append(pieces, orb.Polygon{v})
		bufferLine(orb.LineString(v))
	case orb.Polygon:
		pieces = append(pieces, v)
		for _, r := range v {
			bufferLine(orb.LineString(r))
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			pieces = append(pieces, poly)
			for _, r := range poly {
				bufferLine(orb.LineString(r))
			}
		}
	case orb.Bound:
		return Buffer(v.ToPolygon(), distance, segments)
	}
	return UnaryUnion(pieces)
}

// ForceMultiPolygon normalizes polygonal geometry to multi-part form.
func ForceMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.MultiPolygon:
		return v
	case orb.Polygon:
		return orb.MultiPolygon{v}
	case orb.Ring:
		return orb.MultiPolygon{orb.Polygon{v}}
	case orb.Bound:
		return orb.MultiPolygon{v.ToPolygon()}
	}
	return orb.MultiPolygon{}
}
