package elevation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

func squareCell(id int, minX, minY, size float64) model.HexCell {
	return model.HexCell{
		ID: id,
		Geometry: orb.MultiPolygon{orb.Polygon{orb.Ring{
			{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size}, {minX, minY},
		}}},
		Centroid: orb.Point{minX + size/2, minY + size/2},
	}
}

func testCRS(t *testing.T) geometry.CRS {
	t.Helper()
	crs, err := geometry.EPSG(32633)
	require.NoError(t, err)
	return crs
}

// threeHexDEM builds a 3x1 raster with values 2, 7, 7 at 10 m pixels, laid
// out so the first two cells cover one pixel each and the third cell sits
// entirely off-grid.
func threeHexDEM(t *testing.T) (*GridRaster, []model.HexCell) {
	t.Helper()
	crs := testCRS(t)
	dem, err := NewGridRaster("test-dem", crs, 3, 1, 0, 0, 10, -9999,
		[]float64{2, 7, 7})
	require.NoError(t, err)
	cells := []model.HexCell{
		squareCell(1, 0, 0, 10),
		squareCell(2, 10, 0, 10),
		squareCell(3, 1000, 1000, 10), // no raster coverage
	}
	return dem, cells
}

func TestSampleMeanBuckets(t *testing.T) {
	dem, cells := threeHexDEM(t)

	result, err := Sample(cells, testCRS(t), dem, Options{Method: MethodMean, BucketSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalFeatures)
	assert.Equal(t, 2, result.CountWithData)
	require.NotNil(t, result.MinBucket)
	require.NotNil(t, result.MaxBucket)
	assert.Equal(t, 2.0, *result.MinBucket)
	assert.Equal(t, 6.0, *result.MaxBucket)

	byID := result.SampleByFeature()
	require.NotNil(t, byID[1].ElevValue)
	assert.Equal(t, 2.0, *byID[1].ElevValue)
	assert.Equal(t, 2.0, *byID[1].ElevBucket)
	assert.Equal(t, 7.0, *byID[2].ElevValue)
	assert.Equal(t, 6.0, *byID[2].ElevBucket)

	// the uncovered hex keeps a nil value, not a zero
	assert.Nil(t, byID[3].ElevValue)
	assert.Nil(t, byID[3].ElevBucket)
	assert.Equal(t, 0, byID[3].PixelCount)
}

func TestSampleMedianWarnsOnUncoveredHex(t *testing.T) {
	dem, cells := threeHexDEM(t)

	result, err := Sample(cells, testCRS(t), dem, Options{Method: MethodMedian, BucketSize: 5})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no raster coverage")
	assert.Contains(t, result.Warnings[0], "Hex feature 3")
	assert.Equal(t, 2, result.CountWithData)
	assert.Equal(t, 0.0, *result.MinBucket)
	assert.Equal(t, 5.0, *result.MaxBucket)
}

func TestSampleMinMethod(t *testing.T) {
	crs := testCRS(t)
	dem, err := NewGridRaster("d", crs, 2, 1, 0, 0, 10, -9999, []float64{3, 9})
	require.NoError(t, err)
	cells := []model.HexCell{squareCell(1, 0, 0, 20)} // covers both pixels

	result, err := Sample(cells, crs, dem, Options{Method: MethodMin, BucketSize: 2})
	require.NoError(t, err)
	require.NotNil(t, result.Samples[0].ElevValue)
	assert.Equal(t, 3.0, *result.Samples[0].ElevValue)
	assert.Equal(t, 2.0, *result.Samples[0].ElevBucket)
	assert.Equal(t, 2, result.Samples[0].PixelCount)
}

func TestSampleSkipsNodataPixels(t *testing.T) {
	crs := testCRS(t)
	dem, err := NewGridRaster("d", crs, 2, 1, 0, 0, 10, -9999, []float64{-9999, 4})
	require.NoError(t, err)
	cells := []model.HexCell{squareCell(1, 0, 0, 20)}

	result, err := Sample(cells, crs, dem, Options{Method: MethodMean, BucketSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Samples[0].PixelCount)
	assert.Equal(t, 4.0, *result.Samples[0].ElevValue)
}

func TestSampleInvalidArguments(t *testing.T) {
	dem, cells := threeHexDEM(t)

	_, err := Sample(cells, testCRS(t), dem, Options{Method: MethodMean, BucketSize: 0})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = Sample(cells, testCRS(t), dem, Options{Method: "mode", BucketSize: 2})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = Sample(cells, testCRS(t), nil, Options{Method: MethodMean, BucketSize: 2})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestSampleEngineError(t *testing.T) {
	dem, cells := threeHexDEM(t)
	failing := &failingSource{inner: dem}

	_, err := Sample(cells, testCRS(t), failing, Options{Method: MethodMean, BucketSize: 2})
	require.Error(t, err)
	var engineErr *model.SamplingEngineError
	assert.ErrorAs(t, err, &engineErr)
}

type failingSource struct {
	inner RasterSource
}

func (f *failingSource) Description() string { return f.inner.Description() }
func (f *failingSource) CRS() geometry.CRS   { return f.inner.CRS() }
func (f *failingSource) Bound() orb.Bound    { return f.inner.Bound() }
func (f *failingSource) SamplePolygon(orb.MultiPolygon) ([]float64, error) {
	return nil, assert.AnError
}

func TestBucketMonotonicAndNormalized(t *testing.T) {
	prev := math.Inf(-1)
	for v := -50.0; v <= 50.0; v += 0.7 {
		b := Bucket(v, 2.5)
		assert.GreaterOrEqual(t, b, prev)
		assert.LessOrEqual(t, b, v)
		prev = b
	}

	// float noise near a whole number collapses onto it
	assert.Equal(t, 200.0, Bucket(200.0000001, 100))
	assert.Equal(t, -200.0, Bucket(-199.9999999, 100))
}

func TestFormatSummary(t *testing.T) {
	lo, hi := 2.0, 6.0
	r := &model.SamplingResult{
		TotalFeatures: 3, CountWithData: 2,
		MinBucket: &lo, MaxBucket: &hi,
	}
	assert.Equal(t, "2/3 hexes sampled, bucket 2-6", FormatSummary(r))

	empty := &model.SamplingResult{TotalFeatures: 3}
	assert.Equal(t, "0/3 hexes sampled, no elevation data", FormatSummary(empty))
}

func TestReadASCIIGrid(t *testing.T) {
	asc := `ncols 3
nrows 2
xllcorner 100
yllcorner 200
cellsize 10
NODATA_value -9999
1 2 3
4 -9999 6
`
	dem, err := ReadASCIIGrid(strings.NewReader(asc), "unit.asc", testCRS(t))
	require.NoError(t, err)

	b := dem.Bound()
	assert.Equal(t, orb.Point{100, 200}, b.Min)
	assert.Equal(t, orb.Point{130, 220}, b.Max)

	// top-left pixel holds the first value
	values, err := dem.SamplePolygon(orb.MultiPolygon{orb.Polygon{orb.Ring{
		{100, 210}, {110, 210}, {110, 220}, {100, 220}, {100, 210},
	}}})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, 1.0, values[0])

	// the nodata pixel drops out of full-extent sampling
	all, err := dem.SamplePolygon(orb.MultiPolygon{orb.Polygon{orb.Ring{
		{100, 200}, {130, 200}, {130, 220}, {100, 220}, {100, 200},
	}}})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestReadASCIIGridRejectsTruncatedData(t *testing.T) {
	asc := "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3"
	_, err := ReadASCIIGrid(strings.NewReader(asc), "bad.asc", testCRS(t))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestDatasetProperties(t *testing.T) {
	v, b := 12.5, 10.0
	sample := model.HexSample{FeatureID: 1, ElevValue: &v, ElevBucket: &b, PixelCount: 4}
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	props := DatasetProperties(sample, strings.Repeat("x", 200), MethodMean, ts)
	assert.Equal(t, 12.5, props[FieldElevValue])
	assert.Equal(t, 10.0, props[FieldElevBucket])
	assert.Len(t, props[FieldDEMSource], 120)
	assert.Equal(t, "mean", props[FieldMethod])
	assert.Equal(t, "2026-03-14T09:26:53Z", props[FieldGeneratedAt])

	empty := DatasetProperties(model.HexSample{FeatureID: 2}, "dem", MethodMean, ts)
	assert.Nil(t, empty[FieldElevValue])
	assert.Nil(t, empty[FieldElevBucket])
}
