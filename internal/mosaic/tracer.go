package mosaic

import (
	"math"

	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

// minStepFraction keeps the walk step from undersampling the lattice when
// the caller's step distance is smaller than a third of a hex.
const minStepFraction = 0.3

// TraceResult is a source line reduced to a hex chain plus its rendering.
type TraceResult struct {
	HexIDs   []int
	Behavior string

	// Path is the polyline through visited hex centroids, filled for both
	// behaviors.
	Path orb.LineString

	// Edges is the union of shared boundaries between consecutive hexes,
	// filled for edge_path only.
	Edges orb.MultiLineString

	// Corridor is the buffered source line clipped to nothing in particular;
	// it accompanies edge_path output when the buffer distance is positive.
	Corridor orb.MultiPolygon
}

// TraceLine walks a source line at a fixed step, collecting the hex under
// each sample point with consecutive duplicates removed. Lines that visit
// fewer than two distinct hexes produce no result, and neither do edge_path
// chains whose hexes share no boundary.
func TraceLine(cache *HexCache, line orb.LineString, behavior string, state model.MosaicClassState) *TraceResult {
	if cache == nil || cache.Len() == 0 || len(line) < 2 {
		return nil
	}
	if behavior == "" {
		behavior = model.LineBehaviorCentroid
	}

	step := math.Max(state.LineStepM, cache.HexStep()*minStepFraction)
	length := lineLength(line)

	var ids []int
	push := func(id int) {
		if len(ids) > 0 && ids[len(ids)-1] == id {
			return
		}
		ids = append(ids, id)
	}
	for dist := 0.0; dist <= length; dist += step {
		if id, ok := cache.HexAt(pointAlong(line, dist)); ok {
			push(id)
		}
	}
	// the walk can stop short of the line end, sample it explicitly
	if id, ok := cache.HexAt(line[len(line)-1]); ok {
		push(id)
	}
	if len(ids) < 2 {
		return nil
	}

	result := &TraceResult{HexIDs: ids, Behavior: behavior}
	for _, id := range ids {
		if c, ok := cache.Centroid(id); ok {
			result.Path = append(result.Path, c)
		}
	}

	if behavior == model.LineBehaviorEdge {
		for i := 1; i < len(ids); i++ {
			result.Edges = append(result.Edges, cache.SharedEdge(ids[i-1], ids[i])...)
		}
		// a chain whose hexes share no boundary renders nothing
		if len(result.Edges) == 0 {
			return nil
		}
		if state.LineBufferM > 0 {
			result.Corridor = geometry.Buffer(line, state.LineBufferM, 8)
		}
	}
	return result
}

func lineLength(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += math.Hypot(line[i][0]-line[i-1][0], line[i][1]-line[i-1][1])
	}
	return total
}

// pointAlong interpolates the point at the given arc length from the line
// start. Distances past the end clamp to the last vertex.
func pointAlong(line orb.LineString, dist float64) orb.Point {
	if dist <= 0 {
		return line[0]
	}
	remaining := dist
	for i := 1; i < len(line); i++ {
		seg := math.Hypot(line[i][0]-line[i-1][0], line[i][1]-line[i-1][1])
		if remaining <= seg && seg > 0 {
			t := remaining / seg
			return orb.Point{
				line[i-1][0] + (line[i][0]-line[i-1][0])*t,
				line[i-1][1] + (line[i][1]-line[i-1][1])*t,
			}
		}
		remaining -= seg
	}
	return line[len(line)-1]
}
