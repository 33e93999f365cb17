package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS identifies a coordinate reference system by EPSG code. Supported
// systems: EPSG:4326 geographic, EPSG:3857 web mercator, and the WGS84 UTM
// zones EPSG:32601-32660 (north) and EPSG:32701-32760 (south). Transforms
// between any two supported systems route through geographic coordinates.
type CRS struct {
	code int
}

// WGS84 is geographic lon/lat, EPSG:4326.
var WGS84 = CRS{4326}

// WebMercator is EPSG:3857.
var WebMercator = CRS{3857}

// EPSG returns the CRS for a supported EPSG code.
func EPSG(code int) (CRS, error) {
	switch {
	case code == 4326 || code == 3857:
		return CRS{code}, nil
	case code >= 32601 && code <= 32660:
		return CRS{code}, nil
	case code >= 32701 && code <= 32760:
		return CRS{code}, nil
	}
	return CRS{}, fmt.Errorf("unsupported EPSG code %d", code)
}

// UTMZoneFor picks the UTM CRS containing the given geographic point.
func UTMZoneFor(lon, lat float64) CRS {
	zone := int(math.Floor((lon+180.0)/6.0)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	if lat >= 0 {
		return CRS{32600 + zone}
	}
	return CRS{32700 + zone}
}

// Code returns the EPSG code.
func (c CRS) Code() int { return c.code }

// AuthID returns the "EPSG:nnnn" authority identifier.
func (c CRS) AuthID() string { return fmt.Sprintf("EPSG:%d", c.code) }

// IsGeographic reports whether coordinates are lon/lat degrees.
func (c CRS) IsGeographic() bool { return c.code == 4326 }

// IsZero reports whether the CRS was never set.
func (c CRS) IsZero() bool { return c.code == 0 }

func (c CRS) utmZone() (zone int, south bool, ok bool) {
	switch {
	case c.code >= 32601 && c.code <= 32660:
		return c.code - 32600, false, true
	case c.code >= 32701 && c.code <= 32760:
		return c.code - 32700, true, true
	}
	return 0, false, false
}

// pointFunc builds the per-point transform from one CRS to another.
func pointFunc(from, to CRS) (func(orb.Point) orb.Point, error) {
	if from == to {
		return func(p orb.Point) orb.Point { return p }, nil
	}
	toGeo, err := toGeographic(from)
	if err != nil {
		return nil, err
	}
	fromGeo, err := fromGeographic(to)
	if err != nil {
		return nil, err
	}
	return func(p orb.Point) orb.Point { return fromGeo(toGeo(p)) }, nil
}

func toGeographic(c CRS) (func(orb.Point) orb.Point, error) {
	if c.IsGeographic() {
		return func(p orb.Point) orb.Point { return p }, nil
	}
	if c == WebMercator {
		return func(p orb.Point) orb.Point {
			return project.Mercator.ToWGS84(p)
		}, nil
	}
	if zone, south, ok := c.utmZone(); ok {
		return func(p orb.Point) orb.Point {
			lon, lat := utmInverse(p[0], p[1], zone, south)
			return orb.Point{lon, lat}
		}, nil
	}
	return nil, fmt.Errorf("no transform from %s", c.AuthID())
}

func fromGeographic(c CRS) (func(orb.Point) orb.Point, error) {
	if c.IsGeographic() {
		return func(p orb.Point) orb.Point { return p }, nil
	}
	if c == WebMercator {
		return func(p orb.Point) orb.Point {
			return project.WGS84.ToMercator(p)
		}, nil
	}
	if zone, south, ok := c.utmZone(); ok {
		return func(p orb.Point) orb.Point {
			x, y := utmForward(p[0], p[1], zone, south)
			return orb.Point{x, y}
		}, nil
	}
	return nil, fmt.Errorf("no transform to %s", c.AuthID())
}

// TransformPoint reprojects a single point. The transform is always
// explicit; same-CRS input is returned unchanged.
func TransformPoint(p orb.Point, from, to CRS) (orb.Point, error) {
	fn, err := pointFunc(from, to)
	if err != nil {
		return orb.Point{}, err
	}
	return fn(p), nil
}

// Transform reprojects any orb geometry between two supported systems.
func Transform(g orb.Geometry, from, to CRS) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	fn, err := pointFunc(from, to)
	if err != nil {
		return nil, err
	}
	return project.Geometry(orb.Clone(g), fn), nil
}

// TransformBound reprojects a bounding box by transforming its corners and
// edge midpoints, which keeps the result conservative when the transform
// bends grid lines.
func TransformBound(b orb.Bound, from, to CRS) (orb.Bound, error) {
	fn, err := pointFunc(from, to)
	if err != nil {
		return orb.Bound{}, err
	}
	midX := (b.Min[0] + b.Max[0]) / 2
	midY := (b.Min[1] + b.Max[1]) / 2
	pts := []orb.Point{
		{b.Min[0], b.Min[1]}, {b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]}, {b.Min[0], b.Max[1]},
		{midX, b.Min[1]}, {midX, b.Max[1]},
		{b.Min[0], midY}, {b.Max[0], midY},
	}
	out := fn(pts[0]).Bound()
	for _, p := range pts[1:] {
		out = out.Extend(fn(p))
	}
	return out, nil
}
