package model

import "errors"

// ErrInvalidArgument marks caller errors: non-positive sizes, unreadable
// inputs. Nothing is partially computed when it is returned.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrEmptyResult marks reported conditions that are safe to retry with
// different parameters: empty AOI geometry, no intersecting cells.
var ErrEmptyResult = errors.New("empty result")

// SamplingEngineError means the zonal statistics computation itself failed
// even though the inputs were valid. Callers can distinguish it from
// ErrInvalidArgument and decide whether to retry.
type SamplingEngineError struct {
	Reason string
}

func (e *SamplingEngineError) Error() string {
	return "sampling engine: " + e.Reason
}
