package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"hexatlas/internal/model"
	"hexatlas/internal/segment"
)

// segmentDir returns the output directory for one segmentation run.
func (s *Store) segmentDir(aoi model.AreaOfInterest, set *model.SegmentSet) string {
	sub := equalSegmentsDir
	if set.Mode == model.SegmentModeMapTile {
		sub = set.Subdir
	}
	return filepath.Join(s.AOIDir(aoi), sub)
}

// WriteSegments persists one segmentation run: a GeoJSON file per cell plus
// the metadata registry entry. Any previous run with the same subdirectory
// is removed first, so regeneration fully replaces stale cells.
func (s *Store) WriteSegments(aoi model.AreaOfInterest, set *model.SegmentSet) error {
	dir := s.segmentDir(aoi, set)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear segment dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create segment dir %s: %w", dir, err)
	}

	for _, cell := range set.Cells {
		f := geojson.NewFeature(cell.Geometry)
		f.Properties["id"] = cell.ID
		f.Properties["row"] = cell.Row
		f.Properties["col"] = cell.Col
		f.Properties["name"] = cell.Name
		if cell.Scale != "" {
			f.Properties["scale"] = cell.Scale
		}
		f.Properties["align"] = cell.Align

		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		if err := s.writeCollection(filepath.Join(dir, segmentFileName(set, cell)), fc); err != nil {
			return err
		}
	}

	meta := segment.Metadata(set, aoi.Name)
	return s.putMetadata(aoi.Slug(), meta)
}

// segmentFileName names the per-cell dataset file.
func segmentFileName(set *model.SegmentSet, cell model.SegmentCell) string {
	if set.Mode == model.SegmentModeMapTile {
		return fmt.Sprintf("Tile_%s_R%d_C%d.geojson", model.SafeName(set.ScaleKey), cell.Row, cell.Col)
	}
	return fmt.Sprintf("Segment_%d_%d.geojson", cell.Row, cell.Col)
}

// ClearSegments removes the segment output of an AOI and drops its metadata
// entry. Missing output is not an error; clearing is idempotent.
func (s *Store) ClearSegments(aoi model.AreaOfInterest) error {
	registry, err := s.loadMetadata()
	if err != nil {
		return err
	}
	key := aoi.Slug()
	if meta, ok := registry[key]; ok {
		sub := equalSegmentsDir
		if meta.Subdir != "" {
			sub = meta.Subdir
		}
		if err := os.RemoveAll(filepath.Join(s.AOIDir(aoi), sub)); err != nil {
			return fmt.Errorf("remove segment dir: %w", err)
		}
		delete(registry, key)
		return s.saveMetadata(registry)
	}
	// no registry entry, still sweep the default dir
	return os.RemoveAll(filepath.Join(s.AOIDir(aoi), equalSegmentsDir))
}

// Metadata returns the registry entry for an AOI.
func (s *Store) Metadata(aoi model.AreaOfInterest) (model.SegmentMetadata, bool, error) {
	registry, err := s.loadMetadata()
	if err != nil {
		return model.SegmentMetadata{}, false, err
	}
	meta, ok := registry[aoi.Slug()]
	return meta, ok, nil
}

// AllMetadata returns the full registry keyed by AOI slug.
func (s *Store) AllMetadata() (map[string]model.SegmentMetadata, error) {
	return s.loadMetadata()
}

func (s *Store) metadataPath() string {
	return filepath.Join(s.root, metadataFile)
}

func (s *Store) loadMetadata() (map[string]model.SegmentMetadata, error) {
	data, err := os.ReadFile(s.metadataPath())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]model.SegmentMetadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", metadataFile, err)
	}
	registry := map[string]model.SegmentMetadata{}
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("decode %s: %w", metadataFile, err)
	}
	return registry, nil
}

func (s *Store) saveMetadata(registry map[string]model.SegmentMetadata) error {
	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", metadataFile, err)
	}
	if err := os.WriteFile(s.metadataPath(), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", metadataFile, err)
	}
	return nil
}

func (s *Store) putMetadata(key string, meta model.SegmentMetadata) error {
	registry, err := s.loadMetadata()
	if err != nil {
		return err
	}
	registry[key] = meta
	return s.saveMetadata(registry)
}
