package model

import (
	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
)

// HexCell is one polygon in the tessellated lattice. Cells are generated
// once per tessellation request and are immutable afterwards; the ID is the
// addressable unit for sampling and classification.
type HexCell struct {
	ID       int
	Geometry orb.MultiPolygon
	Centroid orb.Point
}

// HexEdge is one cell boundary exploded to a line feature.
type HexEdge struct {
	ID       int
	Geometry orb.LineString
}

// HexVertex is one boundary vertex extracted as a point feature.
type HexVertex struct {
	ID    int
	Point orb.Point
}

// HexCentroid is the centroid helper feature for one cell.
type HexCentroid struct {
	CellID int
	Point  orb.Point
}

// Tessellation is the full output of one tessellation request: the clipped
// hexagon lattice plus the derived helper layers. The helper layers share
// the CRS of the input AOI but are independent derived sets, not parallel
// arrays.
type Tessellation struct {
	AOIName  string
	CRS      geometry.CRS
	CellSize float64

	Cells     []HexCell
	Edges     []HexEdge
	Vertices  []HexVertex
	Centroids []HexCentroid

	Warnings []string
}
