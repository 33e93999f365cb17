package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEPSGValidation(t *testing.T) {
	for _, code := range []int{4326, 3857, 32601, 32633, 32660, 32701, 32760} {
		_, err := EPSG(code)
		assert.NoError(t, err, code)
	}
	for _, code := range []int{0, 4979, 32600, 32661, 32700, 32761, 25832} {
		_, err := EPSG(code)
		assert.Error(t, err, code)
	}
}

func TestUTMZoneFor(t *testing.T) {
	assert.Equal(t, 32633, UTMZoneFor(15.0, 52.0).Code())  // Berlin area
	assert.Equal(t, 32733, UTMZoneFor(15.0, -10.0).Code()) // southern hemisphere
	assert.Equal(t, 32601, UTMZoneFor(-180.0, 10.0).Code())
	assert.Equal(t, 32660, UTMZoneFor(179.9, 10.0).Code())
}

func TestUTMRoundTrip(t *testing.T) {
	cases := []orb.Point{
		{15.0, 52.0},
		{13.4, 52.52},
		{16.9, 48.2},
		{14.99, -33.9},
	}
	for _, lonlat := range cases {
		crs := UTMZoneFor(lonlat[0], lonlat[1])
		fwd, err := TransformPoint(lonlat, WGS84, crs)
		require.NoError(t, err)
		back, err := TransformPoint(fwd, crs, WGS84)
		require.NoError(t, err)
		assert.InDelta(t, lonlat[0], back[0], 1e-6)
		assert.InDelta(t, lonlat[1], back[1], 1e-6)
	}
}

func TestUTMKnownPoint(t *testing.T) {
	// zone 33 central meridian at 15 E maps onto the false easting
	crs, err := EPSG(32633)
	require.NoError(t, err)
	p, err := TransformPoint(orb.Point{15.0, 0.0}, WGS84, crs)
	require.NoError(t, err)
	assert.InDelta(t, 500000.0, p[0], 0.001)
	assert.InDelta(t, 0.0, p[1], 0.001)
}

func TestWebMercatorRoundTrip(t *testing.T) {
	lonlat := orb.Point{13.4, 52.52}
	fwd, err := TransformPoint(lonlat, WGS84, WebMercator)
	require.NoError(t, err)
	back, err := TransformPoint(fwd, WebMercator, WGS84)
	require.NoError(t, err)
	assert.InDelta(t, lonlat[0], back[0], 1e-9)
	assert.InDelta(t, lonlat[1], back[1], 1e-9)
}

func TestTransformPolygonKeepsStructure(t *testing.T) {
	crs, err := EPSG(32633)
	require.NoError(t, err)
	poly := orb.Polygon{orb.Ring{
		{14.9, 51.9}, {15.1, 51.9}, {15.1, 52.1}, {14.9, 52.1}, {14.9, 51.9},
	}}

	out, err := Transform(poly, WGS84, crs)
	require.NoError(t, err)
	projected, ok := out.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, projected[0], 5)

	// the input polygon is not mutated
	assert.Equal(t, 14.9, poly[0][0][0])
	assert.NotEqual(t, poly[0][0], projected[0][0])
}

func TestTransformBoundCoversCorners(t *testing.T) {
	crs, err := EPSG(32633)
	require.NoError(t, err)
	b := orb.Bound{Min: orb.Point{14.0, 51.0}, Max: orb.Point{16.0, 53.0}}

	out, err := TransformBound(b, WGS84, crs)
	require.NoError(t, err)

	for _, corner := range []orb.Point{
		{14.0, 51.0}, {16.0, 51.0}, {16.0, 53.0}, {14.0, 53.0},
	} {
		p, err := TransformPoint(corner, WGS84, crs)
		require.NoError(t, err)
		assert.True(t, out.Contains(p))
	}
}

func TestSameCRSIdentity(t *testing.T) {
	p := orb.Point{12.3, 45.6}
	out, err := TransformPoint(p, WGS84, WGS84)
	require.NoError(t, err)
	assert.Equal(t, p, out)
}
