// Package hexgrid tessellates an area of interest into a regular hexagon
// lattice and derives its helper layers.
//
// Orientation is flat-top: the top and bottom edges of every hexagon are
// horizontal. The cell size is the across-flats diameter, which equals the
// vertical center-to-center spacing within a column; adjacent columns are
// offset by half a cell. The orientation is fixed so a project tessellated
// twice gets the same lattice.
package hexgrid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

// Tessellate clips a flat-top hexagon lattice to the AOI geometry and
// derives the edge, vertex and centroid helper layers. Cell ids are
// sequential 1-based in column-major generation order and stable across
// reruns with identical inputs. Output CRS equals the AOI CRS; the cell
// size is measured in CRS units.
func Tessellate(aoi model.AreaOfInterest, cellSize float64) (*model.Tessellation, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %g: %w", cellSize, model.ErrInvalidArgument)
	}

	result := &model.Tessellation{
		AOIName:  aoi.Name,
		CRS:      aoi.CRS,
		CellSize: cellSize,
	}

	aoiGeom := geometry.MakeValid(aoi.Geometry)
	if geometry.IsEmpty(aoiGeom) {
		result.Warnings = append(result.Warnings, "AOI geometry is empty; tessellation skipped.")
		return result, nil
	}

	bbox := aoiGeom.Bound()
	circum := cellSize / math.Sqrt(3) // circumradius of a flat-top hexagon
	colStep := 1.5 * circum
	rowStep := cellSize

	// Overshoot the bounding box by one cell in every direction so clipped
	// cells exist along all edges.
	cols := int(math.Ceil((bbox.Max[0]-bbox.Min[0])/colStep)) + 2
	rows := int(math.Ceil((bbox.Max[1]-bbox.Min[1])/rowStep)) + 2

	// The rows are anchored an irrational fraction of a cell below the
	// bounding box so horizontal hex edges never coincide with axis-aligned
	// AOI boundaries; coincident edges are the clipper's weak spot. Column
	// spacing is already irrational in the cell size.
	yBase := bbox.Min[1] - rowStep*math.Sqrt2/4

	nextID := 1
	for col := -1; col <= cols; col++ {
		cx := bbox.Min[0] + float64(col)*colStep
		yOffset := 0.0
		if (col+2)%2 == 1 { // odd columns shift down half a cell
			yOffset = rowStep / 2
		}
		for row := -1; row <= rows; row++ {
			cy := yBase + float64(row)*rowStep + yOffset
			hex := hexRing(orb.Point{cx, cy}, circum)
			clipped := geometry.Intersection(orb.Polygon{hex}, aoiGeom)
			if geometry.IsEmpty(clipped) {
				continue
			}
			clipped = geometry.MakeValid(clipped)
			if geometry.IsEmpty(clipped) {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Hex cell at column %d row %d could not be repaired; skipped.", col, row))
				continue
			}
			result.Cells = append(result.Cells, model.HexCell{
				ID:       nextID,
				Geometry: clipped,
				Centroid: geometry.Centroid(clipped),
			})
			nextID++
		}
	}

	if len(result.Cells) == 0 {
		result.Warnings = append(result.Warnings, "No lattice cells intersect the AOI.")
		return result, nil
	}

	deriveHelpers(result)
	return result, nil
}

// hexRing returns the closed ring of a flat-top hexagon with the given
// center and circumradius. Vertices start at the rightmost corner and run
// counter-clockwise.
func hexRing(center orb.Point, circum float64) orb.Ring {
	ring := make(orb.Ring, 0, 7)
	for i := 0; i < 6; i++ {
		theta := math.Pi / 3 * float64(i)
		ring = append(ring, orb.Point{
			center[0] + circum*math.Cos(theta),
			center[1] + circum*math.Sin(theta),
		})
	}
	ring = append(ring, ring[0])
	return ring
}

// deriveHelpers explodes cell boundaries into edge segments, extracts
// boundary vertices and collects centroids. The three sets share the AOI
// CRS but are independent derived sets, not parallel arrays.
func deriveHelpers(t *model.Tessellation) {
	edgeID := 1
	vertexID := 1
	for _, cell := range t.Cells {
		for _, poly := range cell.Geometry {
			for _, ring := range poly {
				for i := 1; i < len(ring); i++ {
					t.Edges = append(t.Edges, model.HexEdge{
						ID:       edgeID,
						Geometry: orb.LineString{ring[i-1], ring[i]},
					})
					edgeID++
				}
				last := len(ring)
				if last > 1 && ring[0] == ring[last-1] {
					last-- // closing point duplicates the first vertex
				}
				for _, pt := range ring[:last] {
					t.Vertices = append(t.Vertices, model.HexVertex{ID: vertexID, Point: pt})
					vertexID++
				}
			}
		}
		t.Centroids = append(t.Centroids, model.HexCentroid{CellID: cell.ID, Point: cell.Centroid})
	}
}

// FullCellArea returns the area of an unclipped hexagon at the given cell
// size, the upper bound for any clipped cell.
func FullCellArea(cellSize float64) float64 {
	circum := cellSize / math.Sqrt(3)
	return 3 * math.Sqrt(3) / 2 * circum * circum
}
