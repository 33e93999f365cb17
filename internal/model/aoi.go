package model

import (
	"strings"

	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
)

// AreaOfInterest is the polygon bounding the map region being worked on.
// Operations never mutate it in place; derived entities (segments, tiles)
// are always new values.
type AreaOfInterest struct {
	Name     string
	SourceID string // file path or generated in-memory handle
	CRS      geometry.CRS
	Geometry orb.MultiPolygon
}

// Slug returns the filesystem-safe lowercased key used for metadata and
// output directories.
func (a AreaOfInterest) Slug() string {
	return SafeName(strings.ReplaceAll(a.Name, " ", "_"))
}

// IsEmpty reports whether the AOI carries no usable geometry.
func (a AreaOfInterest) IsEmpty() bool {
	if len(a.Geometry) == 0 {
		return true
	}
	for _, poly := range a.Geometry {
		if len(poly) > 0 && len(poly[0]) >= 4 {
			return false
		}
	}
	return true
}

// SafeName strips characters that are unsafe in file names, mirroring how
// segment and tile outputs are keyed on disk.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.ToLower(b.String())
}
