package geometry

import (
	"math"
	"testing"

	pc "github.com/murphy214/polyclip"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size}, {minX, minY},
	}}
}

func TestIntersectionOverlap(t *testing.T) {
	a := square(0, 0, 10)
	b := square(5, 5, 10)

	out := Intersection(a, b)
	require.False(t, IsEmpty(out))
	assert.InDelta(t, 25.0, Area(out), 1e-9)

	bound := out.Bound()
	assert.InDelta(t, 5.0, bound.Min[0], 1e-9)
	assert.InDelta(t, 10.0, bound.Max[0], 1e-9)
}

func TestIntersectionDisjoint(t *testing.T) {
	out := Intersection(square(0, 0, 10), square(100, 100, 10))
	assert.True(t, IsEmpty(out))
}

func TestUnaryUnionDissolves(t *testing.T) {
	union := UnaryUnion([]orb.Geometry{
		square(0, 0, 10),
		square(10, 0, 10), // touching neighbour
		nil,
	})
	require.False(t, IsEmpty(union))
	assert.InDelta(t, 200.0, Area(union), 1e-9)
}

func TestUnaryUnionDisjointParts(t *testing.T) {
	union := UnaryUnion([]orb.Geometry{
		square(0, 0, 10),
		square(100, 100, 10),
	})
	assert.Len(t, union, 2)
	assert.InDelta(t, 200.0, Area(union), 1e-9)
}

func TestMakeValidKeepsValidPolygon(t *testing.T) {
	repaired := MakeValid(square(0, 0, 10))
	require.False(t, IsEmpty(repaired))
	assert.InDelta(t, 100.0, Area(repaired), 1e-9)
}

func TestMakeValidDegenerateCollapses(t *testing.T) {
	line := orb.Polygon{orb.Ring{{0, 0}, {10, 0}, {0, 0}}}
	assert.True(t, IsEmpty(MakeValid(line)))
}

func TestHoleReconstruction(t *testing.T) {
	outer := square(0, 0, 10)
	hole := square(4, 4, 2)

	donut := toClip(outer).Construct(pc.DIFFERENCE, toClip(hole))
	mp := fromClip(donut)
	require.Len(t, mp, 1)
	require.Len(t, mp[0], 2, "expected one outer ring and one hole")
	assert.InDelta(t, 96.0, Area(mp), 1e-9)
}

func TestContainsAndCentroid(t *testing.T) {
	sq := square(0, 0, 10)
	assert.True(t, Contains(sq, orb.Point{5, 5}))
	assert.False(t, Contains(sq, orb.Point{15, 5}))

	c := Centroid(sq)
	assert.InDelta(t, 5.0, c[0], 1e-9)
	assert.InDelta(t, 5.0, c[1], 1e-9)
}

func TestDistanceToBoundary(t *testing.T) {
	sq := square(0, 0, 10)
	assert.InDelta(t, 5.0, DistanceToBoundary(sq, orb.Point{15, 5}), 1e-9)
	assert.InDelta(t, 0.0, DistanceToBoundary(sq, orb.Point{10, 5}), 1e-12)
	// interior points measure to the nearest edge
	assert.InDelta(t, 2.0, DistanceToBoundary(sq, orb.Point{2, 5}), 1e-9)
}

func TestBufferPoint(t *testing.T) {
	buffered := Buffer(orb.Point{0, 0}, 10, 8)
	require.False(t, IsEmpty(buffered))
	area := Area(buffered)
	// inscribed polygon area approaches pi*r^2 from below
	assert.Greater(t, area, math.Pi*100*0.98)
	assert.Less(t, area, math.Pi*100)
}

func TestBufferLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {100, 0}}
	buffered := Buffer(line, 10, 8)
	require.False(t, IsEmpty(buffered))
	// a 100 x 20 rectangle plus two inscribed semicircular caps of 16 chords
	capArea := 8 * 100.0 * math.Sin(math.Pi/16)
	assert.InDelta(t, 2000.0+2*capArea, Area(buffered), 1e-6)
	assert.True(t, Contains(buffered, orb.Point{50, 5}))
	assert.False(t, Contains(buffered, orb.Point{50, 15}))
}

func TestBufferBentLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {100, 0}, {100, 100}}
	buffered := Buffer(line, 10, 8)
	require.False(t, IsEmpty(buffered))
	// the two segment stadiums overlap at the elbow and dissolve into one part
	require.Len(t, buffered, 1)
	assert.Greater(t, Area(buffered), 4000.0)
	assert.True(t, Contains(buffered, orb.Point{100, 0}))
	assert.True(t, Contains(buffered, orb.Point{95, 95}))
	assert.False(t, Contains(buffered, orb.Point{80, 80}))
}

func TestBufferNonPositiveDistance(t *testing.T) {
	sq := square(0, 0, 10)
	out := Buffer(sq, 0, 8)
	assert.InDelta(t, 100.0, Area(out), 1e-9)

	assert.True(t, IsEmpty(Buffer(orb.LineString{{0, 0}, {1, 1}}, 0, 8)))
}

func TestForceMultiPolygon(t *testing.T) {
	sq := square(0, 0, 10)
	mp := ForceMultiPolygon(sq)
	require.Len(t, mp, 1)

	same := ForceMultiPolygon(mp)
	assert.Len(t, same, 1)

	assert.Empty(t, ForceMultiPolygon(orb.LineString{{0, 0}, {1, 1}}))
}
