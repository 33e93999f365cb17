// Package segment partitions a tessellated AOI into independently editable
// cells: either an equal R x C grid or a map-tile grid aligned to a
// cartographic scale.
package segment

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

const defaultHexSizeM = 500.0

// Equal splits the AOI bounding box into rows x cols cells. The box is
// first snapped outward to hex-size multiples and padded until evenly
// divisible, so segment borders land on hex boundaries. Row 1 is the
// northernmost row. Rectangles that miss the AOI leave gaps in the row/col
// numbering rather than placeholders.
func Equal(aoi model.AreaOfInterest, rows, cols int, hexSizeM float64) (*model.SegmentSet, error) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if hexSizeM <= 0 {
		hexSizeM = defaultHexSizeM
	}

	aoiGeom, err := unionAOI(aoi)
	if err != nil {
		return nil, err
	}

	bbox := aoiGeom.Bound()
	gridMinX := math.Floor(bbox.Min[0]/hexSizeM) * hexSizeM
	gridMaxX := math.Ceil(bbox.Max[0]/hexSizeM) * hexSizeM
	gridMinY := math.Floor(bbox.Min[1]/hexSizeM) * hexSizeM
	gridMaxY := math.Ceil(bbox.Max[1]/hexSizeM) * hexSizeM

	widthCells := int(math.Ceil((gridMaxX - gridMinX) / hexSizeM))
	if widthCells < cols {
		widthCells = cols
	}
	if widthCells%cols != 0 {
		widthCells = int(math.Ceil(float64(widthCells)/float64(cols))) * cols
	}
	gridMaxX = gridMinX + float64(widthCells)*hexSizeM

	heightCells := int(math.Ceil((gridMaxY - gridMinY) / hexSizeM))
	if heightCells < rows {
		heightCells = rows
	}
	if heightCells%rows != 0 {
		heightCells = int(math.Ceil(float64(heightCells)/float64(rows))) * rows
	}
	gridMaxY = gridMinY + float64(heightCells)*hexSizeM

	stepX := (gridMaxX - gridMinX) / float64(cols)
	stepY := (gridMaxY - gridMinY) / float64(rows)

	xEdges := make([]float64, cols+1)
	for i := range xEdges {
		xEdges[i] = gridMinX + float64(i)*stepX
	}
	yEdges := make([]float64, rows+1)
	for j := range yEdges {
		yEdges[j] = gridMinY + float64(j)*stepY
	}

	cells := buildCellsFromEdges(aoiGeom, xEdges, yEdges)
	if len(cells) == 0 {
		return nil, fmt.Errorf("no segments intersect the AOI: %w", model.ErrEmptyResult)
	}

	set := &model.SegmentSet{
		Cells:     cells,
		Rows:      rows,
		Cols:      cols,
		Mode:      model.SegmentModeEqual,
		Alignment: "equal",
	}
	nameCells(set, aoi.Name)
	return set, nil
}

// unionAOI dissolves the AOI geometry and reports the empty conditions the
// caller surfaces verbatim in its log.
func unionAOI(aoi model.AreaOfInterest) (orb.MultiPolygon, error) {
	if aoi.IsEmpty() {
		return nil, fmt.Errorf("selected AOI has no geometry to segment: %w", model.ErrEmptyResult)
	}
	union := geometry.UnaryUnion([]orb.Geometry{aoi.Geometry})
	union = geometry.MakeValid(union)
	if geometry.IsEmpty(union) {
		return nil, fmt.Errorf("AOI geometry is empty; segmentation skipped: %w", model.ErrEmptyResult)
	}
	return union, nil
}

// buildCellsFromEdges intersects every grid rectangle with the AOI. Row 1
// is the northernmost row; empty intersections are skipped while ids keep
// incrementing.
func buildCellsFromEdges(aoiGeom orb.MultiPolygon, xEdges, yEdges []float64) []model.SegmentCell {
	rows := len(yEdges) - 1
	cols := len(xEdges) - 1
	if rows < 1 || cols < 1 {
		return nil
	}

	var cells []model.SegmentCell
	featureID := 1
	for rowIndex := 0; rowIndex < rows; rowIndex++ {
		rowNum := rowIndex + 1
		yMin := yEdges[rows-(rowIndex+1)]
		yMax := yEdges[rows-rowIndex]
		for colIndex := 0; colIndex < cols; colIndex++ {
			colNum := colIndex + 1
			xMin := xEdges[colIndex]
			xMax := xEdges[colIndex+1]

			rect := orb.Polygon{orb.Ring{
				{xMin, yMin}, {xMin, yMax}, {xMax, yMax}, {xMax, yMin}, {xMin, yMin},
			}}
			seg := geometry.Intersection(aoiGeom, rect)
			if geometry.IsEmpty(seg) {
				featureID++
				continue
			}
			seg = geometry.MakeValid(seg)
			if geometry.IsEmpty(seg) {
				featureID++
				continue
			}
			cells = append(cells, model.SegmentCell{
				ID:       featureID,
				Row:      rowNum,
				Col:      colNum,
				Geometry: geometry.ForceMultiPolygon(seg),
			})
			featureID++
		}
	}
	return cells
}

// nameCells fills the persisted name/scale/align attributes. The naming
// encodes row, column and (for map tiles) scale key and alignment so that
// regenerating with different parameters cannot collide with prior output.
func nameCells(set *model.SegmentSet, parentName string) {
	for i := range set.Cells {
		cell := &set.Cells[i]
		if set.Mode == model.SegmentModeMapTile {
			cell.Name = fmt.Sprintf("%s - Tile %s R%dC%d", parentName, set.ScaleKey, cell.Row, cell.Col)
			cell.Scale = set.ScaleKey
			cell.Align = set.Alignment
		} else {
			cell.Name = fmt.Sprintf("%s - Segment R%dC%d", parentName, cell.Row, cell.Col)
			cell.Align = "equal"
		}
	}
}

// Metadata builds the JSON-serializable record persisted per parent AOI.
// Re-segmenting with identical parameters reproduces an identical record.
func Metadata(set *model.SegmentSet, parentName string) model.SegmentMetadata {
	meta := model.SegmentMetadata{
		Parent:    parentName,
		Rows:      set.Rows,
		Cols:      set.Cols,
		Mode:      set.Mode,
		Alignment: set.Alignment,
		Segments:  make([]string, 0, len(set.Cells)),
	}
	for _, cell := range set.Cells {
		meta.Segments = append(meta.Segments, cell.Name)
	}
	if set.Mode == model.SegmentModeMapTile {
		offsets := set.Offsets
		origin := set.Origin
		meta.Scale = set.ScaleKey
		meta.ScaleLabel = set.ScaleLabel
		meta.Offsets = &offsets
		meta.Origin = &origin
		meta.TileWidthKm = set.TileWidthKm
		meta.TileHeightKm = set.TileHeightKm
		meta.Grid = set.Grid
		meta.Subdir = set.Subdir
	}
	return meta
}
