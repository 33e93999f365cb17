package model

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
)

// Segmentation modes.
const (
	SegmentModeEqual   = "equal"
	SegmentModeMapTile = "map_tile"
)

// Map tile alignment strategies.
const (
	AlignExtent = "extent" // snap to CRS-unit multiples of the tile width
	AlignMinute = "minute" // snap to 15-arc-minute geographic increments
	AlignDegree = "degree" // snap to whole-degree geographic increments
)

// SegmentCell is a rectangular sub-region of an AOI clipped to the AOI
// geometry, so edge cells are irregular. Row/col are 1-indexed with row 1
// northernmost.
type SegmentCell struct {
	ID       int
	Row      int
	Col      int
	Name     string
	Scale    string // scale key for map tiles, empty for equal grids
	Align    string
	Geometry orb.MultiPolygon
}

// TileOffsets is the user-specified origin offset for geographic alignment.
type TileOffsets struct {
	NS   float64 `json:"ns"`
	EW   float64 `json:"ew"`
	Unit string  `json:"unit"` // "km" or "arcmin"
}

// TileOrigin records where the snapped grid starts, in both the AOI's CRS
// and geographic coordinates when available.
type TileOrigin struct {
	Project    *orb.Point `json:"project,omitempty"`
	Geographic *orb.Point `json:"geographic,omitempty"` // lon/lat
}

// TileGridInfo carries the geographic lattice parameters used to snap map
// tiles, kept so a regeneration can reproduce the same grid.
type TileGridInfo struct {
	TileLonDeg      float64 `json:"tile_lon_deg"`
	TileLatDeg      float64 `json:"tile_lat_deg"`
	MetersPerDegLon float64 `json:"meters_per_deg_lon"`
	MetersPerDegLat float64 `json:"meters_per_deg_lat"`
}

// SegmentSet is the bulk result of one segmentation run. Regenerating always
// replaces the full set; there is no partial update.
type SegmentSet struct {
	Cells        []SegmentCell
	Rows         int
	Cols         int
	Mode         string
	Alignment    string
	ScaleKey     string
	ScaleLabel   string
	Offsets      TileOffsets
	Origin       TileOrigin
	TileWidthKm  float64
	TileHeightKm float64
	Grid         *TileGridInfo
	Subdir       string
}

// SegmentMetadata is the JSON-serializable record persisted per parent AOI,
// keyed by the AOI slug.
type SegmentMetadata struct {
	Parent       string        `json:"parent"`
	Rows         int           `json:"rows"`
	Cols         int           `json:"cols"`
	Mode         string        `json:"mode"`
	Alignment    string        `json:"alignment"`
	Scale        string        `json:"scale,omitempty"`
	ScaleLabel   string        `json:"scale_label,omitempty"`
	Offsets      *TileOffsets  `json:"offsets,omitempty"`
	Origin       *TileOrigin   `json:"origin,omitempty"`
	TileWidthKm  float64       `json:"tile_width_km,omitempty"`
	TileHeightKm float64       `json:"tile_height_km,omitempty"`
	Grid         *TileGridInfo `json:"grid,omitempty"`
	Subdir       string        `json:"subdir,omitempty"`
	Segments     []string      `json:"segments"`
}

// SegmentMetadataPG mirrors SegmentMetadata in PostgreSQL for project
// registries that want a queryable copy next to the on-disk JSON.
type SegmentMetadataPG struct {
	Key       string `gorm:"primaryKey"`
	Parent    string
	Mode      string
	Rows      int
	Cols      int
	Payload   string `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (SegmentMetadataPG) TableName() string { return "segment_metadata" }

// MetadataToPG converts the JSON record to its PostgreSQL mirror.
func MetadataToPG(key string, meta SegmentMetadata) (SegmentMetadataPG, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return SegmentMetadataPG{}, err
	}
	return SegmentMetadataPG{
		Key:     key,
		Parent:  meta.Parent,
		Mode:    meta.Mode,
		Rows:    meta.Rows,
		Cols:    meta.Cols,
		Payload: string(payload),
	}, nil
}

// MetadataFromPG converts the PostgreSQL mirror back to the JSON record.
func MetadataFromPG(pg SegmentMetadataPG) (SegmentMetadata, error) {
	var meta SegmentMetadata
	err := json.Unmarshal([]byte(pg.Payload), &meta)
	return meta, err
}
