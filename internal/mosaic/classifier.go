package mosaic

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

// ClassifiedHex is one hex accepted into a mosaic class.
type ClassifiedHex struct {
	HexID       int
	ClassID     string
	Coverage    float64 // covered fraction of the hex, 0..1, rounded to 4 dp
	CentroidHit bool
}

// ClassifyPolygons reduces polygon source features onto the hex layer.
// Overlap area accumulates across all source features of the class, so two
// disjoint sources each covering part of a hex count together; the covered
// fraction is capped at 1. A hex is accepted when any source contains its
// centroid, or when the accumulated fraction exceeds the state's area
// threshold.
func ClassifyPolygons(cache *HexCache, class model.MosaicClass, sources []orb.Geometry, state model.MosaicClassState) []ClassifiedHex {
	type accum struct {
		overlap     float64
		centroidHit bool
	}
	hits := make(map[int]*accum)

	for _, src := range sources {
		srcMP := geometry.MakeValid(src)
		if geometry.IsEmpty(srcMP) {
			continue
		}
		for _, cell := range cache.Candidates(srcMP.Bound()) {
			centroid, _ := cache.Centroid(cell.ID)
			centroidHit := geometry.Contains(srcMP, centroid)
			overlap := geometry.Area(geometry.Intersection(cell.Geometry, srcMP))
			if !centroidHit && overlap <= 0 {
				continue
			}
			a, ok := hits[cell.ID]
			if !ok {
				a = &accum{}
				hits[cell.ID] = a
			}
			a.overlap += overlap
			a.centroidHit = a.centroidHit || centroidHit
		}
	}

	out := make([]ClassifiedHex, 0, len(hits))
	for id, a := range hits {
		coverage := 0.0
		if area := cache.Area(id); area > 0 {
			coverage = math.Min(1, a.overlap/area)
		}
		coverage = math.Round(coverage*1e4) / 1e4
		if !a.centroidHit && coverage <= state.AreaThreshold {
			continue
		}
		out = append(out, ClassifiedHex{
			HexID:       id,
			ClassID:     class.ClassID,
			Coverage:    coverage,
			CentroidHit: a.centroidHit,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HexID < out[j].HexID })
	return out
}
