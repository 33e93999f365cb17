package elevation

import (
	"fmt"
	"math"
	"sort"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

// Bucketing methods.
const (
	MethodMean   = "mean"
	MethodMedian = "median"
	MethodMin    = "min"
)

// Options configures one sampling run.
type Options struct {
	Method     string
	BucketSize float64
}

// bucketEpsilon normalizes buckets that land within float noise of a whole
// number, so bucket labels read "200" instead of "199.99999999999997".
const bucketEpsilon = 1e-6

// Sample computes zonal elevation statistics for every hex cell and assigns
// each a bucket: floor(value/bucketSize)*bucketSize. Hexes without raster
// coverage get a nil value and a warning; they never contribute to the
// summary statistics. Zero is a legitimate elevation and is kept distinct
// from missing data.
func Sample(cells []model.HexCell, cellCRS geometry.CRS, dem RasterSource, opts Options) (*model.SamplingResult, error) {
	if dem == nil {
		return nil, fmt.Errorf("no DEM source: %w", model.ErrInvalidArgument)
	}
	if opts.BucketSize <= 0 {
		return nil, fmt.Errorf("bucket size must be positive, got %g: %w", opts.BucketSize, model.ErrInvalidArgument)
	}
	stat, err := statFunc(opts.Method)
	if err != nil {
		return nil, err
	}

	result := &model.SamplingResult{
		Method:        opts.Method,
		BucketSize:    opts.BucketSize,
		TotalFeatures: len(cells),
	}

	for _, cell := range cells {
		geom := cell.Geometry
		if cellCRS != dem.CRS() {
			transformed, err := geometry.Transform(geom, cellCRS, dem.CRS())
			if err != nil {
				return nil, err
			}
			geom = geometry.ForceMultiPolygon(transformed)
		}

		values, err := dem.SamplePolygon(geom)
		if err != nil {
			return nil, &model.SamplingEngineError{Reason: err.Error()}
		}

		sample := model.HexSample{FeatureID: cell.ID, PixelCount: len(values)}
		raw := stat(values)
		if len(values) == 0 || math.IsNaN(raw) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Hex feature %d has no raster coverage.", cell.ID))
		} else {
			v := raw
			b := Bucket(raw, opts.BucketSize)
			sample.ElevValue = &v
			sample.ElevBucket = &b
			result.CountWithData++
			updateRange(&result.MinValue, &result.MaxValue, v)
			updateRange(&result.MinBucket, &result.MaxBucket, b)
		}
		result.Samples = append(result.Samples, sample)
	}
	return result, nil
}

// Bucket maps an elevation to the lower edge of its band. Results within
// float noise of a whole number are normalized to it.
func Bucket(value, size float64) float64 {
	b := math.Floor(value/size) * size
	if r := math.Round(b); math.Abs(b-r) <= bucketEpsilon {
		return r
	}
	return b
}

func updateRange(min, max **float64, v float64) {
	if *min == nil || v < **min {
		c := v
		*min = &c
	}
	if *max == nil || v > **max {
		c := v
		*max = &c
	}
}

func statFunc(method string) (func([]float64) float64, error) {
	switch method {
	case MethodMean:
		return mean, nil
	case MethodMedian:
		return median, nil
	case MethodMin:
		return minOf, nil
	}
	return nil, fmt.Errorf("unknown sampling method %q: %w", method, model.ErrInvalidArgument)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// FormatSummary renders the one-line run summary shown to operators and
// cached per AOI.
func FormatSummary(r *model.SamplingResult) string {
	if r.CountWithData == 0 || r.MinBucket == nil || r.MaxBucket == nil {
		return fmt.Sprintf("%d/%d hexes sampled, no elevation data", r.CountWithData, r.TotalFeatures)
	}
	return fmt.Sprintf("%d/%d hexes sampled, bucket %g-%g",
		r.CountWithData, r.TotalFeatures, *r.MinBucket, *r.MaxBucket)
}
