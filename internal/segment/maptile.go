package segment

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
	"hexatlas/internal/util"
)

// ScalePreset maps a cartographic scale to the printed tile width it
// implies at that scale.
type ScalePreset struct {
	Key         string
	Label       string
	TileWidthKm float64
}

// DefaultScaleKey is used when the caller does not pick a scale.
const DefaultScaleKey = "1:250k"

var scalePresets = []ScalePreset{
	{Key: "1:25k", Label: "1:25 000", TileWidthKm: 5},
	{Key: "1:50k", Label: "1:50 000", TileWidthKm: 10},
	{Key: "1:100k", Label: "1:100 000", TileWidthKm: 20},
	{Key: "1:200k", Label: "1:200 000", TileWidthKm: 40},
	{Key: "1:250k", Label: "1:250 000", TileWidthKm: 50},
}

// ScalePresets lists the supported map scales in ascending tile width.
func ScalePresets() []ScalePreset {
	out := make([]ScalePreset, len(scalePresets))
	copy(out, scalePresets)
	return out
}

// PresetByKey looks up a scale preset by its key, e.g. "1:50k".
func PresetByKey(key string) (ScalePreset, bool) {
	for _, p := range scalePresets {
		if p.Key == key {
			return p, true
		}
	}
	return ScalePreset{}, false
}

// Fallback meters-per-degree factors used when the geodesic measure
// degenerates near the poles.
const (
	fallbackMetersPerDegLat = 111320.0
	fallbackMetersPerDegLng = 111320.0
)

// MapTile covers the AOI with square tiles whose width matches the chosen
// cartographic scale. The tile grid is snapped to round coordinates per the
// alignment mode, so neighbouring AOIs at the same scale share tile borders:
//
//	extent  snaps to tile-width multiples in the AOI CRS
//	minute  snaps to 15-arc-minute multiples in geographic coordinates
//	degree  snaps to whole-degree multiples in geographic coordinates
//
// Offsets shift the snapped origin, in kilometres or arc minutes.
func MapTile(aoi model.AreaOfInterest, scaleKey, alignment string, offsets model.TileOffsets) (*model.SegmentSet, error) {
	if scaleKey == "" {
		scaleKey = DefaultScaleKey
	}
	preset, ok := PresetByKey(scaleKey)
	if !ok {
		return nil, fmt.Errorf("unknown map scale %q: %w", scaleKey, model.ErrInvalidArgument)
	}
	if preset.TileWidthKm <= 0 {
		return nil, fmt.Errorf("tile width is too small: %w", model.ErrInvalidArgument)
	}

	aoiGeom, err := unionAOI(aoi)
	if err != nil {
		return nil, err
	}

	var set *model.SegmentSet
	switch alignment {
	case model.AlignExtent, "":
		alignment = model.AlignExtent
		set, err = mapTileExtent(aoi, aoiGeom, preset, offsets)
	case model.AlignMinute:
		set, err = mapTileGeographic(aoi, aoiGeom, preset, offsets, 0.25)
	case model.AlignDegree:
		set, err = mapTileGeographic(aoi, aoiGeom, preset, offsets, 1.0)
	default:
		return nil, fmt.Errorf("unknown tile alignment %q: %w", alignment, model.ErrInvalidArgument)
	}
	if err != nil {
		return nil, err
	}

	set.Mode = model.SegmentModeMapTile
	set.Alignment = alignment
	set.ScaleKey = preset.Key
	set.ScaleLabel = preset.Label
	set.Offsets = offsets
	set.Subdir = fmt.Sprintf("MapTiles_%s_%s", model.SafeName(preset.Key), alignment)
	nameCells(set, aoi.Name)
	return set, nil
}

// mapTileExtent snaps the grid to tile-width multiples in the AOI CRS.
// Kilometre offsets shift the snap origin; arc-minute offsets only apply to
// geographic alignments and are ignored here.
func mapTileExtent(aoi model.AreaOfInterest, aoiGeom orb.MultiPolygon, preset ScalePreset, offsets model.TileOffsets) (*model.SegmentSet, error) {
	tileW := preset.TileWidthKm * 1000.0
	if aoi.CRS.IsGeographic() {
		// CRS units are degrees, convert the tile width at the AOI centroid.
		centroid := geometry.Centroid(aoiGeom)
		perDegLat, _ := util.MetersPerDegree(centroid[1], centroid[0])
		if perDegLat <= 0 {
			perDegLat = fallbackMetersPerDegLat
		}
		tileW = tileW / perDegLat
	}

	offX, offY := 0.0, 0.0
	if offsets.Unit == "km" {
		offX = offsets.EW * 1000.0
		offY = offsets.NS * 1000.0
	}

	bbox := aoiGeom.Bound()
	startX := math.Floor((bbox.Min[0]-offX)/tileW)*tileW + offX
	startY := math.Floor((bbox.Min[1]-offY)/tileW)*tileW + offY
	cols := int(math.Ceil((bbox.Max[0] - startX) / tileW))
	rows := int(math.Ceil((bbox.Max[1] - startY) / tileW))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	xEdges := make([]float64, cols+1)
	for i := range xEdges {
		xEdges[i] = startX + float64(i)*tileW
	}
	yEdges := make([]float64, rows+1)
	for j := range yEdges {
		yEdges[j] = startY + float64(j)*tileW
	}

	cells := buildCellsFromEdges(aoiGeom, xEdges, yEdges)
	if len(cells) == 0 {
		return nil, fmt.Errorf("no intersection between AOI and computed tile grid: %w", model.ErrEmptyResult)
	}

	origin := orb.Point{startX, startY}
	set := &model.SegmentSet{
		Cells:        cells,
		Rows:         rows,
		Cols:         cols,
		TileWidthKm:  preset.TileWidthKm,
		TileHeightKm: preset.TileWidthKm,
		Origin:       model.TileOrigin{Project: &origin},
	}
	if geo, err := geometry.TransformPoint(origin, aoi.CRS, geometry.WGS84); err == nil {
		set.Origin.Geographic = &geo
	}
	return set, nil
}

// mapTileGeographic snaps the grid in geographic coordinates to multiples
// of inc degrees (0.25 for minute alignment, 1.0 for degree alignment). The
// physical tile width is converted to degrees at the AOI centre and rounded
// up to the increment, so the tile is never narrower than the scale demands.
func mapTileGeographic(aoi model.AreaOfInterest, aoiGeom orb.MultiPolygon, preset ScalePreset, offsets model.TileOffsets, inc float64) (*model.SegmentSet, error) {
	geoBound, err := geometry.TransformBound(aoiGeom.Bound(), aoi.CRS, geometry.WGS84)
	if err != nil {
		return nil, err
	}
	centerLat := (geoBound.Min[1] + geoBound.Max[1]) / 2
	centerLng := (geoBound.Min[0] + geoBound.Max[0]) / 2

	perDegLat, perDegLng := util.MetersPerDegree(centerLat, centerLng)
	if perDegLat <= 0 {
		perDegLat = fallbackMetersPerDegLat
	}
	if perDegLng <= 0 {
		perDegLng = fallbackMetersPerDegLng * math.Max(0.1, math.Cos(centerLat*math.Pi/180))
	}

	tileM := preset.TileWidthKm * 1000.0
	tileLonDeg := roundUpToIncrement(tileM/perDegLng, inc)
	tileLatDeg := roundUpToIncrement(tileM/perDegLat, inc)

	offLonDeg, offLatDeg := 0.0, 0.0
	switch offsets.Unit {
	case "km":
		offLonDeg = offsets.EW * 1000.0 / perDegLng
		offLatDeg = offsets.NS * 1000.0 / perDegLat
	case "arcmin":
		offLonDeg = offsets.EW / 60.0
		offLatDeg = offsets.NS / 60.0
	}

	startLon := math.Floor((geoBound.Min[0]-offLonDeg)/tileLonDeg)*tileLonDeg + offLonDeg
	startLat := math.Floor((geoBound.Min[1]-offLatDeg)/tileLatDeg)*tileLatDeg + offLatDeg
	cols := int(math.Ceil((geoBound.Max[0] - startLon) / tileLonDeg))
	rows := int(math.Ceil((geoBound.Max[1] - startLat) / tileLatDeg))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	toProject, err := transformFunc(geometry.WGS84, aoi.CRS)
	if err != nil {
		return nil, err
	}

	var cells []model.SegmentCell
	featureID := 1
	for rowIndex := 0; rowIndex < rows; rowIndex++ {
		rowNum := rowIndex + 1
		latMax := startLat + float64(rows-rowIndex)*tileLatDeg
		latMin := latMax - tileLatDeg
		for colIndex := 0; colIndex < cols; colIndex++ {
			colNum := colIndex + 1
			lonMin := startLon + float64(colIndex)*tileLonDeg
			lonMax := lonMin + tileLonDeg

			rect := geographicRect(lonMin, latMin, lonMax, latMax, toProject)
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
	if len(cells) == 0 {
		return nil, fmt.Errorf("no intersection between AOI and snapped map tiles: %w", model.ErrEmptyResult)
	}

	geoOrigin := orb.Point{startLon, startLat}
	set := &model.SegmentSet{
		Cells:        cells,
		Rows:         rows,
		Cols:         cols,
		TileWidthKm:  tileLonDeg * perDegLng / 1000.0,
		TileHeightKm: tileLatDeg * perDegLat / 1000.0,
		Origin:       model.TileOrigin{Geographic: &geoOrigin},
		Grid: &model.TileGridInfo{
			TileLonDeg:      tileLonDeg,
			TileLatDeg:      tileLatDeg,
			MetersPerDegLon: perDegLng,
			MetersPerDegLat: perDegLat,
		},
	}
	if proj, err := geometry.TransformPoint(geoOrigin, geometry.WGS84, aoi.CRS); err == nil {
		set.Origin.Project = &proj
	}
	return set, nil
}

// roundUpToIncrement rounds v up to the next multiple of inc. The epsilon
// keeps an exact multiple from spilling into the next step.
func roundUpToIncrement(v, inc float64) float64 {
	steps := math.Ceil(v/inc - 1e-9)
	if steps < 1 {
		steps = 1
	}
	return steps * inc
}

// transformFunc adapts the point transform to a per-point closure, with an
// identity shortcut when the systems match.
func transformFunc(from, to geometry.CRS) (func(orb.Point) orb.Point, error) {
	if from == to {
		return func(p orb.Point) orb.Point { return p }, nil
	}
	// probe once so an unsupported pair fails up front
	if _, err := geometry.TransformPoint(orb.Point{}, from, to); err != nil {
		return nil, err
	}
	return func(p orb.Point) orb.Point {
		out, _ := geometry.TransformPoint(p, from, to)
		return out
	}, nil
}

// geographicRect builds a geographic tile rectangle and reprojects its
// boundary to the target CRS. Edges are densified so the reprojected tile
// follows the curved grid lines instead of cutting corners.
func geographicRect(lonMin, latMin, lonMax, latMax float64, toProject func(orb.Point) orb.Point) orb.Polygon {
	const steps = 4
	ring := make(orb.Ring, 0, 4*steps+1)
	edge := func(x0, y0, x1, y1 float64) {
		for i := 0; i < steps; i++ {
			t := float64(i) / steps
			ring = append(ring, toProject(orb.Point{x0 + (x1-x0)*t, y0 + (y1-y0)*t}))
		}
	}
	edge(lonMin, latMin, lonMax, latMin)
	edge(lonMax, latMin, lonMax, latMax)
	edge(lonMax, latMax, lonMin, latMax)
	edge(lonMin, latMax, lonMin, latMin)
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}
