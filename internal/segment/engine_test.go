package segment

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

func rectMP(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{orb.Polygon{orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}}
}

func projectedAOI(t *testing.T, name string, geom orb.MultiPolygon) model.AreaOfInterest {
	t.Helper()
	crs, err := geometry.EPSG(32633)
	require.NoError(t, err)
	return model.AreaOfInterest{Name: name, CRS: crs, Geometry: geom}
}

func TestEqualSplitsSquareIntoQuadrants(t *testing.T) {
	aoi := projectedAOI(t, "Test AOI", rectMP(0, 0, 4000, 4000))

	set, err := Equal(aoi, 2, 2, 500)
	require.NoError(t, err)
	require.Len(t, set.Cells, 4)
	assert.Equal(t, model.SegmentModeEqual, set.Mode)

	var total float64
	for _, cell := range set.Cells {
		assert.InDelta(t, 2000.0*2000.0, geometry.Area(cell.Geometry), 1e-6)
		total += geometry.Area(cell.Geometry)
	}
	assert.InDelta(t, 4000.0*4000.0, total, 1e-6)

	// row 1 is the northernmost row
	first := set.Cells[0]
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, 1, first.Col)
	assert.Equal(t, "Test AOI - Segment R1C1", first.Name)
	b := first.Geometry.Bound()
	assert.InDelta(t, 2000.0, b.Min[1], 1e-9)
	assert.InDelta(t, 4000.0, b.Max[1], 1e-9)
	assert.InDelta(t, 0.0, b.Min[0], 1e-9)

	assert.Equal(t, "Test AOI - Segment R2C2", set.Cells[3].Name)
}

func TestEqualSkipsEmptyCellsButKeepsIDs(t *testing.T) {
	// L-shape: the north-east quadrant is missing.
	lShape := orb.MultiPolygon{orb.Polygon{orb.Ring{
		{0, 0}, {4000, 0}, {4000, 2000}, {2000, 2000}, {2000, 4000}, {0, 4000}, {0, 0},
	}}}
	aoi := projectedAOI(t, "L", lShape)

	set, err := Equal(aoi, 2, 2, 500)
	require.NoError(t, err)
	require.Len(t, set.Cells, 3)

	ids := []int{set.Cells[0].ID, set.Cells[1].ID, set.Cells[2].ID}
	assert.Equal(t, []int{1, 3, 4}, ids)
	assert.Equal(t, 1, set.Cells[0].Row)
	assert.Equal(t, 1, set.Cells[0].Col)
	assert.Equal(t, 2, set.Cells[1].Row)
}

func TestEqualSnapsGridToHexMultiples(t *testing.T) {
	// bbox 3900 wide/tall snaps outward to 4000 at 500 m hexes, then splits
	// evenly without fractional-hex segment borders.
	aoi := projectedAOI(t, "Snap", rectMP(50, 50, 3950, 3950))

	set, err := Equal(aoi, 2, 2, 500)
	require.NoError(t, err)
	require.Len(t, set.Cells, 4)

	b := set.Cells[0].Geometry.Bound()
	// the grid midline sits at 2000, a hex-size multiple
	assert.InDelta(t, 2000.0, b.Min[1], 1e-9)
}

func TestEqualEmptyAOI(t *testing.T) {
	aoi := projectedAOI(t, "Empty", orb.MultiPolygon{})
	_, err := Equal(aoi, 2, 2, 500)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrEmptyResult)
}

func TestMetadataRecord(t *testing.T) {
	aoi := projectedAOI(t, "Test AOI", rectMP(0, 0, 4000, 4000))
	set, err := Equal(aoi, 2, 2, 500)
	require.NoError(t, err)

	meta := Metadata(set, aoi.Name)
	assert.Equal(t, "Test AOI", meta.Parent)
	assert.Equal(t, 2, meta.Rows)
	assert.Equal(t, 2, meta.Cols)
	assert.Equal(t, model.SegmentModeEqual, meta.Mode)
	require.Len(t, meta.Segments, 4)
	assert.Equal(t, "Test AOI - Segment R1C1", meta.Segments[0])
	assert.Nil(t, meta.Offsets)
}

func TestMapTileExtentAlignment(t *testing.T) {
	aoi := projectedAOI(t, "Tiles", rectMP(1000, 1000, 9000, 9000))

	set, err := MapTile(aoi, "1:25k", model.AlignExtent, model.TileOffsets{})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Rows)
	assert.Equal(t, 2, set.Cols)
	require.Len(t, set.Cells, 4)
	assert.Equal(t, "Tiles - Tile 1:25k R1C1", set.Cells[0].Name)
	assert.Equal(t, "MapTiles_1_25k_extent", set.Subdir)
	assert.Equal(t, 5.0, set.TileWidthKm)

	// grid snapped to 5 km multiples, not to the AOI corner
	require.NotNil(t, set.Origin.Project)
	assert.InDelta(t, 0.0, (*set.Origin.Project)[0], 1e-9)
	assert.InDelta(t, 0.0, (*set.Origin.Project)[1], 1e-9)

	// R1C1 is the north-west tile clipped to the AOI
	b := set.Cells[0].Geometry.Bound()
	assert.InDelta(t, 5000.0, b.Min[1], 1e-9)
	assert.InDelta(t, 9000.0, b.Max[1], 1e-9)
}

func TestMapTileMinuteAlignment(t *testing.T) {
	aoi := model.AreaOfInterest{
		Name:     "Geo",
		CRS:      geometry.WGS84,
		Geometry: rectMP(10.0, 50.0, 10.4, 50.3),
	}

	set, err := MapTile(aoi, "1:25k", model.AlignMinute, model.TileOffsets{})
	require.NoError(t, err)
	require.NotNil(t, set.Grid)

	// 5 km is well under 15 arc minutes at this latitude, so the tile
	// rounds up to one increment in both axes.
	assert.InDelta(t, 0.25, set.Grid.TileLonDeg, 1e-12)
	assert.InDelta(t, 0.25, set.Grid.TileLatDeg, 1e-12)
	assert.Equal(t, 2, set.Rows)
	assert.Equal(t, 2, set.Cols)

	require.NotNil(t, set.Origin.Geographic)
	assert.InDelta(t, 10.0, (*set.Origin.Geographic)[0], 1e-9)
	assert.InDelta(t, 50.0, (*set.Origin.Geographic)[1], 1e-9)
}

func TestMapTileArcminOffsetShiftsOrigin(t *testing.T) {
	aoi := model.AreaOfInterest{
		Name:     "Geo",
		CRS:      geometry.WGS84,
		Geometry: rectMP(10.0, 50.0, 10.4, 50.3),
	}

	set, err := MapTile(aoi, "1:25k", model.AlignMinute,
		model.TileOffsets{NS: 7.5, EW: 0, Unit: "arcmin"})
	require.NoError(t, err)
	require.NotNil(t, set.Origin.Geographic)
	assert.InDelta(t, 49.875, (*set.Origin.Geographic)[1], 1e-9)
}

func TestMapTileRejectsUnknownScale(t *testing.T) {
	aoi := projectedAOI(t, "Tiles", rectMP(0, 0, 1000, 1000))
	_, err := MapTile(aoi, "1:1000k", model.AlignExtent, model.TileOffsets{})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestMapTileDefaultScale(t *testing.T) {
	aoi := projectedAOI(t, "Tiles", rectMP(0, 0, 1000, 1000))
	set, err := MapTile(aoi, "", "", model.TileOffsets{})
	require.NoError(t, err)
	assert.Equal(t, DefaultScaleKey, set.ScaleKey)
	assert.Equal(t, model.AlignExtent, set.Alignment)
}

func TestScalePresetsOrdered(t *testing.T) {
	presets := ScalePresets()
	require.NotEmpty(t, presets)
	for i := 1; i < len(presets); i++ {
		assert.Greater(t, presets[i].TileWidthKm, presets[i-1].TileWidthKm)
	}
	_, ok := PresetByKey(DefaultScaleKey)
	assert.True(t, ok)
}
