package elevation

import (
	"time"

	"hexatlas/internal/model"
)

// Attribute field names and widths for the persisted hex elevation dataset.
// Widths match common shapefile-era limits so exports stay portable.
const (
	FieldElevValue   = "elev_value"
	FieldElevBucket  = "elev_bucket"
	FieldDEMSource   = "dem_source"
	FieldMethod      = "bucket_method"
	FieldGeneratedAt = "generated_at"

	maxDEMSourceLen = 120
	maxMethodLen    = 32
	maxTimestampLen = 32
)

// DatasetProperties builds the attribute map written per hex feature. Nil
// elevation values are written as explicit nulls, not zeros.
func DatasetProperties(s model.HexSample, demSource, method string, generatedAt time.Time) map[string]interface{} {
	props := map[string]interface{}{
		FieldElevValue:   nil,
		FieldElevBucket:  nil,
		FieldDEMSource:   truncate(demSource, maxDEMSourceLen),
		FieldMethod:      truncate(method, maxMethodLen),
		FieldGeneratedAt: truncate(Timestamp(generatedAt), maxTimestampLen),
	}
	if s.ElevValue != nil {
		props[FieldElevValue] = *s.ElevValue
	}
	if s.ElevBucket != nil {
		props[FieldElevBucket] = *s.ElevBucket
	}
	return props
}

// Timestamp renders the run time as ISO-8601 UTC with a Z suffix.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
