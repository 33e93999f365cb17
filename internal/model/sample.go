package model

import "time"

// HexSample is a sampled elevation value for a single hex feature.
// ElevValue is nil exactly when PixelCount is zero or the underlying
// statistic was NaN; nil is distinguishable from a legitimate zero
// elevation.
type HexSample struct {
	FeatureID  int
	ElevValue  *float64
	ElevBucket *float64
	PixelCount int
}

// SamplingResult aggregates the full sample list plus summary statistics.
// It is the unit of reporting and persistence for one sampling run.
type SamplingResult struct {
	Samples       []HexSample
	Method        string
	BucketSize    float64
	TotalFeatures int
	CountWithData int
	MinValue      *float64
	MaxValue      *float64
	MinBucket     *float64
	MaxBucket     *float64
	Warnings      []string
}

// SampleByFeature returns a lookup map keyed by feature id.
func (r SamplingResult) SampleByFeature() map[int]HexSample {
	lookup := make(map[int]HexSample, len(r.Samples))
	for _, s := range r.Samples {
		lookup[s.FeatureID] = s
	}
	return lookup
}

// SamplingRunPG records one sampling run summary in PostgreSQL.
type SamplingRunPG struct {
	ID            uint `gorm:"primaryKey"`
	AOIKey        string
	DEMSource     string
	Method        string
	BucketSize    float64
	TotalFeatures int
	CountWithData int
	MinBucket     *float64
	MaxBucket     *float64
	CreatedAt     time.Time
}

func (SamplingRunPG) TableName() string { return "sampling_runs" }
