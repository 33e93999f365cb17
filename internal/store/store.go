// Package store persists project artifacts on disk: GeoJSON datasets for
// the hex layers and segments, plus the segments.json metadata registry.
// Each AOI gets its own directory keyed by its slug; writers replace stale
// output from prior runs before writing.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"

	"hexatlas/internal/elevation"
	"hexatlas/internal/model"
)

const (
	hexCellsFile     = "hex_cells.geojson"
	hexEdgesFile     = "hex_edges.geojson"
	hexVerticesFile  = "hex_vertices.geojson"
	hexCentroidsFile = "hex_centroids.geojson"
	hexElevationFile = "hex_elevation.geojson"
	metadataFile     = "segments.json"

	equalSegmentsDir = "Segments"
)

// Store reads and writes project artifacts under a root directory.
type Store struct {
	root string
}

// New opens a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("project directory not set: %w", model.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// Root returns the project root directory.
func (s *Store) Root() string { return s.root }

// AOIDir returns the per-AOI output directory.
func (s *Store) AOIDir(aoi model.AreaOfInterest) string {
	return filepath.Join(s.root, aoi.Slug())
}

// WriteTessellation persists the hex lattice and its helper layers,
// replacing any previous tessellation of the same AOI.
func (s *Store) WriteTessellation(aoi model.AreaOfInterest, tess *model.Tessellation) error {
	dir := s.AOIDir(aoi)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create AOI dir %s: %w", dir, err)
	}

	cells := geojson.NewFeatureCollection()
	for _, cell := range tess.Cells {
		f := geojson.NewFeature(cell.Geometry)
		f.Properties["id"] = cell.ID
		cells.Append(f)
	}
	if err := s.writeCollection(filepath.Join(dir, hexCellsFile), cells); err != nil {
		return err
	}

	edges := geojson.NewFeatureCollection()
	for _, edge := range tess.Edges {
		f := geojson.NewFeature(edge.Geometry)
		f.Properties["id"] = edge.ID
		edges.Append(f)
	}
	if err := s.writeCollection(filepath.Join(dir, hexEdgesFile), edges); err != nil {
		return err
	}

	vertices := geojson.NewFeatureCollection()
	for _, v := range tess.Vertices {
		f := geojson.NewFeature(v.Point)
		f.Properties["id"] = v.ID
		vertices.Append(f)
	}
	if err := s.writeCollection(filepath.Join(dir, hexVerticesFile), vertices); err != nil {
		return err
	}

	centroids := geojson.NewFeatureCollection()
	for _, c := range tess.Centroids {
		f := geojson.NewFeature(c.Point)
		f.Properties["cell_id"] = c.CellID
		centroids.Append(f)
	}
	return s.writeCollection(filepath.Join(dir, hexCentroidsFile), centroids)
}

// WriteElevation persists the sampled hex layer with its attribute block.
// Features are matched to samples by id; hexes without a sample get the
// null-value attribute block.
func (s *Store) WriteElevation(aoi model.AreaOfInterest, cells []model.HexCell, result *model.SamplingResult, demSource string, generatedAt time.Time) error {
	dir := s.AOIDir(aoi)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create AOI dir %s: %w", dir, err)
	}

	byID := result.SampleByFeature()
	fc := geojson.NewFeatureCollection()
	for _, cell := range cells {
		f := geojson.NewFeature(cell.Geometry)
		f.Properties["id"] = cell.ID
		for k, v := range elevation.DatasetProperties(byID[cell.ID], demSource, result.Method, generatedAt) {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	return s.writeCollection(filepath.Join(dir, hexElevationFile), fc)
}

func (s *Store) writeCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadCollection loads a GeoJSON feature collection from a project-relative
// or absolute path.
func (s *Store) ReadCollection(path string) (*geojson.FeatureCollection, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fc, nil
}
