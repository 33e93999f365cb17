package hexgrid

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

func squareAOI(t *testing.T, size float64) model.AreaOfInterest {
	t.Helper()
	crs, err := geometry.EPSG(32633)
	require.NoError(t, err)
	return model.AreaOfInterest{
		Name: "Square",
		CRS:  crs,
		Geometry: orb.MultiPolygon{orb.Polygon{orb.Ring{
			{0, 0}, {size, 0}, {size, size}, {0, size}, {0, 0},
		}}},
	}
}

func TestTessellateCoversAOI(t *testing.T) {
	aoi := squareAOI(t, 4000)

	tess, err := Tessellate(aoi, 500)
	require.NoError(t, err)
	require.NotEmpty(t, tess.Cells)

	aoiArea := geometry.Area(aoi.Geometry)
	var total float64
	fullArea := FullCellArea(500)
	for _, cell := range tess.Cells {
		area := geometry.Area(cell.Geometry)
		assert.Greater(t, area, 0.0)
		// clipped cells never exceed a full hexagon
		assert.LessOrEqual(t, area, fullArea+1e-6)
		total += area
	}
	// cells partition the AOI without gaps or overlaps
	assert.InDelta(t, aoiArea, total, aoiArea*1e-6)
}

func TestTessellateCoversAOIWithHalfCellBounds(t *testing.T) {
	// AOI bounds on exact half-cell multiples, the worst case for lattice
	// edges landing on the AOI boundary
	aoi := squareAOI(t, 2250)

	tess, err := Tessellate(aoi, 500)
	require.NoError(t, err)
	require.NotEmpty(t, tess.Cells)

	aoiArea := geometry.Area(aoi.Geometry)
	var total float64
	for _, cell := range tess.Cells {
		total += geometry.Area(cell.Geometry)
	}
	assert.InDelta(t, aoiArea, total, aoiArea*1e-6)
}

func TestTessellateCellsStayInsideAOI(t *testing.T) {
	aoi := squareAOI(t, 2000)

	tess, err := Tessellate(aoi, 400)
	require.NoError(t, err)
	for _, cell := range tess.Cells {
		b := cell.Geometry.Bound()
		assert.GreaterOrEqual(t, b.Min[0], -1e-6)
		assert.GreaterOrEqual(t, b.Min[1], -1e-6)
		assert.LessOrEqual(t, b.Max[0], 2000+1e-6)
		assert.LessOrEqual(t, b.Max[1], 2000+1e-6)
	}
}

func TestTessellateIdempotent(t *testing.T) {
	aoi := squareAOI(t, 2000)

	first, err := Tessellate(aoi, 400)
	require.NoError(t, err)
	second, err := Tessellate(aoi, 400)
	require.NoError(t, err)

	require.Equal(t, len(first.Cells), len(second.Cells))
	for i := range first.Cells {
		assert.Equal(t, first.Cells[i].ID, second.Cells[i].ID)
		assert.Equal(t, first.Cells[i].Geometry, second.Cells[i].Geometry)
	}
}

func TestTessellateSequentialIDs(t *testing.T) {
	aoi := squareAOI(t, 2000)

	tess, err := Tessellate(aoi, 400)
	require.NoError(t, err)
	for i, cell := range tess.Cells {
		assert.Equal(t, i+1, cell.ID)
	}
}

func TestTessellateHelperLayers(t *testing.T) {
	aoi := squareAOI(t, 2000)

	tess, err := Tessellate(aoi, 400)
	require.NoError(t, err)
	require.NotEmpty(t, tess.Edges)
	require.NotEmpty(t, tess.Vertices)
	require.Len(t, tess.Centroids, len(tess.Cells))

	for _, edge := range tess.Edges {
		assert.Len(t, edge.Geometry, 2)
	}
	for i, c := range tess.Centroids {
		assert.Equal(t, tess.Cells[i].ID, c.CellID)
		assert.True(t, geometry.Contains(aoi.Geometry, c.Point) ||
			geometry.DistanceToBoundary(aoi.Geometry, c.Point) < 1e-6)
	}
}

func TestTessellateFlatTopSpacing(t *testing.T) {
	aoi := squareAOI(t, 4000)

	tess, err := Tessellate(aoi, 500)
	require.NoError(t, err)

	// interior cells are full hexagons with the across-flats width of one
	// cell size and the across-corners height of twice the circumradius
	circum := 500 / math.Sqrt(3)
	found := false
	for _, cell := range tess.Cells {
		area := geometry.Area(cell.Geometry)
		if math.Abs(area-FullCellArea(500)) > 1e-6 {
			continue
		}
		found = true
		b := cell.Geometry.Bound()
		assert.InDelta(t, 2*circum, b.Max[0]-b.Min[0], 1e-6)
		assert.InDelta(t, 500.0, b.Max[1]-b.Min[1], 1e-6)
		break
	}
	assert.True(t, found, "expected at least one unclipped interior hexagon")
}

func TestTessellateInvalidCellSize(t *testing.T) {
	aoi := squareAOI(t, 1000)
	_, err := Tessellate(aoi, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = Tessellate(aoi, -5)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestTessellateEmptyAOI(t *testing.T) {
	crs, err := geometry.EPSG(32633)
	require.NoError(t, err)
	aoi := model.AreaOfInterest{Name: "Empty", CRS: crs, Geometry: orb.MultiPolygon{}}

	tess, err := Tessellate(aoi, 500)
	require.NoError(t, err)
	assert.Empty(t, tess.Cells)
	require.NotEmpty(t, tess.Warnings)
	assert.Contains(t, tess.Warnings[0], "empty")
}
