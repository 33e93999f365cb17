// Package mosaic reduces source vector features onto the hex lattice:
// polygon classification by centroid or coverage, and line tracing into
// hex chains rendered as centroid paths or shared-edge paths.
package mosaic

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

// boundaryTolerance breaks containment ties for points sitting exactly on a
// hex edge.
const boundaryTolerance = 1e-9

// defaultHexStep is assumed when the cache holds no usable cell to measure.
const defaultHexStep = 200.0

type hexSpatial struct {
	cell *model.HexCell
	bbox orb.Bound
}

// Bounds implements the rtreego.Spatial interface.
func (h *hexSpatial) Bounds() rtreego.Rect {
	minX, minY := h.bbox.Min[0], h.bbox.Min[1]
	maxX, maxY := h.bbox.Max[0], h.bbox.Max[1]

	rect, _ := rtreego.NewRect(
		rtreego.Point{minX, minY},
		[]float64{maxX - minX, maxY - minY},
	)
	return rect
}

// HexCache indexes a hex layer for repeated classification and tracing
// passes. Geometries are repaired once on build; cells whose repair
// collapses to empty are dropped from the index.
type HexCache struct {
	index     *rtreego.Rtree
	cells     map[int]*model.HexCell
	centroids map[int]orb.Point
	areas     map[int]float64
	hexStep   float64
}

// NewHexCache builds the spatial index over the given cells.
func NewHexCache(cells []model.HexCell) *HexCache {
	cache := &HexCache{
		index:     rtreego.NewTree(2, 25, 50), // 2D index with min 25, max 50 entries per node
		cells:     make(map[int]*model.HexCell, len(cells)),
		centroids: make(map[int]orb.Point, len(cells)),
		areas:     make(map[int]float64, len(cells)),
		hexStep:   defaultHexStep,
	}

	first := true
	for i := range cells {
		cell := &cells[i]
		repaired := geometry.MakeValid(cell.Geometry)
		if geometry.IsEmpty(repaired) {
			continue
		}
		cell.Geometry = repaired
		bbox := repaired.Bound()
		if first {
			// step estimate from the first usable cell's bounding box
			cache.hexStep = math.Max(bbox.Max[0]-bbox.Min[0], bbox.Max[1]-bbox.Min[1])
			first = false
		}
		cache.cells[cell.ID] = cell
		cache.centroids[cell.ID] = geometry.Centroid(repaired)
		cache.areas[cell.ID] = geometry.Area(repaired)
		cache.index.Insert(&hexSpatial{cell: cell, bbox: bbox})
	}
	return cache
}

// Len returns the number of indexed cells.
func (c *HexCache) Len() int { return len(c.cells) }

// HexStep is the estimated cell diameter, used to derive trace step sizes.
func (c *HexCache) HexStep() float64 { return c.hexStep }

// Cell returns the indexed cell by id.
func (c *HexCache) Cell(id int) (*model.HexCell, bool) {
	cell, ok := c.cells[id]
	return cell, ok
}

// Centroid returns the cached centroid for a cell.
func (c *HexCache) Centroid(id int) (orb.Point, bool) {
	p, ok := c.centroids[id]
	return p, ok
}

// Area returns the cached area for a cell.
func (c *HexCache) Area(id int) float64 { return c.areas[id] }

// Candidates returns the cells whose bounding boxes intersect the given
// bound.
func (c *HexCache) Candidates(b orb.Bound) []*model.HexCell {
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w <= 0 {
		w = boundaryTolerance
	}
	if h <= 0 {
		h = boundaryTolerance
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
	if err != nil {
		return nil
	}

	hits := c.index.SearchIntersect(rect)
	out := make([]*model.HexCell, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.(*hexSpatial).cell)
	}
	return out
}

// HexAt finds the cell containing a point. Points on a shared edge resolve
// to the first candidate within the boundary tolerance; points outside every
// cell fall back to the nearest centroid among bbox candidates, or the
// nearest centroid overall when the bbox search is empty.
func (c *HexCache) HexAt(p orb.Point) (int, bool) {
	if len(c.cells) == 0 {
		return 0, false
	}

	probe := orb.Bound{Min: p, Max: p}
	candidates := c.Candidates(probe)
	for _, cell := range candidates {
		if geometry.Contains(cell.Geometry, p) {
			return cell.ID, true
		}
	}
	for _, cell := range candidates {
		if geometry.DistanceToBoundary(cell.Geometry, p) <= boundaryTolerance {
			return cell.ID, true
		}
	}

	// nearest-centroid fallback
	search := candidates
	if len(search) == 0 {
		search = make([]*model.HexCell, 0, len(c.cells))
		for _, cell := range c.cells {
			search = append(search, cell)
		}
	}
	bestID := 0
	bestDist := math.Inf(1)
	for _, cell := range search {
		centroid := c.centroids[cell.ID]
		dx := centroid[0] - p[0]
		dy := centroid[1] - p[1]
		if d := dx*dx + dy*dy; d < bestDist {
			bestDist = d
			bestID = cell.ID
		}
	}
	if math.IsInf(bestDist, 1) {
		return 0, false
	}
	return bestID, true
}

// SharedEdge returns the boundary between two adjacent cells as line
// segments, empty when the cells do not touch. Unclipped lattice neighbours
// share exact vertex pairs, so the edge is recovered by matching boundary
// segments; clipped border cells may share only partial segments, which this
// lookup does not split.
func (c *HexCache) SharedEdge(idA, idB int) orb.MultiLineString {
	cellA, okA := c.cells[idA]
	cellB, okB := c.cells[idB]
	if !okA || !okB {
		return nil
	}

	segsB := make(map[[4]float64]struct{})
	eachSegment(cellB.Geometry, func(a, b orb.Point) {
		segsB[segKey(a, b)] = struct{}{}
	})

	var out orb.MultiLineString
	eachSegment(cellA.Geometry, func(a, b orb.Point) {
		if _, ok := segsB[segKey(a, b)]; ok {
			out = append(out, orb.LineString{a, b})
		}
	})
	return out
}

// segKey normalizes segment endpoints so direction does not matter.
func segKey(a, b orb.Point) [4]float64 {
	if a[0] > b[0] || (a[0] == b[0] && a[1] > b[1]) {
		a, b = b, a
	}
	return [4]float64{round9(a[0]), round9(a[1]), round9(b[0]), round9(b[1])}
}

func round9(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

func eachSegment(mp orb.MultiPolygon, fn func(a, b orb.Point)) {
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 1; i < len(ring); i++ {
				fn(ring[i-1], ring[i])
			}
		}
	}
}
