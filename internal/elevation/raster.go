// Package elevation samples a digital elevation model under the hex lattice
// and buckets the results for terrain-band styling.
package elevation

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
)

// RasterSource is the DEM abstraction the sampler runs against. A source
// reports the pixel values covered by a polygon given in its own CRS;
// no-data pixels are excluded from the returned slice.
type RasterSource interface {
	Description() string
	CRS() geometry.CRS
	Bound() orb.Bound
	SamplePolygon(poly orb.MultiPolygon) ([]float64, error)
}

// GridRaster is an in-memory regular grid DEM. Values are stored row-major
// from the northernmost row down, matching the Esri ASCII layout.
type GridRaster struct {
	desc     string
	crs      geometry.CRS
	cols     int
	rows     int
	cellSize float64
	// lower-left corner of the grid
	xll    float64
	yll    float64
	nodata float64
	values []float64
}

// NewGridRaster builds a raster from row-major values, northernmost row
// first. len(values) must be cols*rows.
func NewGridRaster(desc string, crs geometry.CRS, cols, rows int, xll, yll, cellSize, nodata float64, values []float64) (*GridRaster, error) {
	if cols < 1 || rows < 1 || cellSize <= 0 {
		return nil, fmt.Errorf("raster must have positive dimensions: %w", model.ErrInvalidArgument)
	}
	if len(values) != cols*rows {
		return nil, fmt.Errorf("raster needs %d values, got %d: %w", cols*rows, len(values), model.ErrInvalidArgument)
	}
	return &GridRaster{
		desc: desc, crs: crs,
		cols: cols, rows: rows,
		cellSize: cellSize,
		xll:      xll, yll: yll,
		nodata: nodata,
		values: values,
	}, nil
}

func (g *GridRaster) Description() string { return g.desc }

func (g *GridRaster) CRS() geometry.CRS { return g.crs }

func (g *GridRaster) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{g.xll, g.yll},
		Max: orb.Point{g.xll + float64(g.cols)*g.cellSize, g.yll + float64(g.rows)*g.cellSize},
	}
}

// value returns the pixel at grid column/row, row 0 being the northernmost.
func (g *GridRaster) value(col, row int) (float64, bool) {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return 0, false
	}
	v := g.values[row*g.cols+col]
	if math.IsNaN(v) || v == g.nodata {
		return 0, false
	}
	return v, true
}

// SamplePolygon collects pixels whose centers fall inside the polygon.
// Pixels outside the grid or flagged no-data are skipped.
func (g *GridRaster) SamplePolygon(poly orb.MultiPolygon) ([]float64, error) {
	if geometry.IsEmpty(poly) {
		return nil, nil
	}
	b := poly.Bound()
	colMin := int(math.Floor((b.Min[0] - g.xll) / g.cellSize))
	colMax := int(math.Ceil((b.Max[0] - g.xll) / g.cellSize))
	rowTop := g.rows - int(math.Ceil((b.Max[1]-g.yll)/g.cellSize))
	rowBot := g.rows - int(math.Floor((b.Min[1]-g.yll)/g.cellSize))
	if colMin < 0 {
		colMin = 0
	}
	if colMax > g.cols {
		colMax = g.cols
	}
	if rowTop < 0 {
		rowTop = 0
	}
	if rowBot > g.rows {
		rowBot = g.rows
	}

	var out []float64
	for row := rowTop; row < rowBot; row++ {
		cy := g.yll + (float64(g.rows-row)-0.5)*g.cellSize
		for col := colMin; col < colMax; col++ {
			cx := g.xll + (float64(col)+0.5)*g.cellSize
			if !geometry.Contains(poly, orb.Point{cx, cy}) {
				continue
			}
			if v, ok := g.value(col, row); ok {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// ReadASCIIGrid parses an Esri ASCII grid (.asc). Header keys are
// case-insensitive; xllcenter/yllcenter headers are converted to corner
// coordinates. The format does not carry a CRS, so the caller supplies it.
func ReadASCIIGrid(r io.Reader, desc string, crs geometry.CRS) (*GridRaster, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	headers := map[string]float64{}
	var cols, rows int
	var firstValue string
	for {
		tok, ok := next()
		if !ok {
			return nil, fmt.Errorf("ascii grid: truncated header: %w", model.ErrInvalidArgument)
		}
		key := strings.ToLower(tok)
		switch key {
		case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
			val, ok := next()
			if !ok {
				return nil, fmt.Errorf("ascii grid: header %s has no value: %w", key, model.ErrInvalidArgument)
			}
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("ascii grid: bad %s value %q: %w", key, val, model.ErrInvalidArgument)
			}
			headers[key] = f
		default:
			firstValue = tok
		}
		if firstValue != "" {
			break
		}
	}

	cols = int(headers["ncols"])
	rows = int(headers["nrows"])
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("ascii grid: missing ncols/nrows: %w", model.ErrInvalidArgument)
	}
	cellSize, ok := headers["cellsize"]
	if !ok || cellSize <= 0 {
		return nil, fmt.Errorf("ascii grid: missing cellsize: %w", model.ErrInvalidArgument)
	}

	xll, hasXC := headers["xllcorner"]
	if !hasXC {
		if xc, hasCenter := headers["xllcenter"]; hasCenter {
			xll = xc - cellSize/2
		}
	}
	yll, hasYC := headers["yllcorner"]
	if !hasYC {
		if yc, hasCenter := headers["yllcenter"]; hasCenter {
			yll = yc - cellSize/2
		}
	}

	nodata, hasNodata := headers["nodata_value"]
	if !hasNodata {
		nodata = -9999
	}

	values := make([]float64, 0, cols*rows)
	parse := func(tok string) error {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("ascii grid: bad value %q: %w", tok, model.ErrInvalidArgument)
		}
		values = append(values, f)
		return nil
	}
	if err := parse(firstValue); err != nil {
		return nil, err
	}
	for len(values) < cols*rows {
		tok, ok := next()
		if !ok {
			return nil, fmt.Errorf("ascii grid: expected %d values, got %d: %w", cols*rows, len(values), model.ErrInvalidArgument)
		}
		if err := parse(tok); err != nil {
			return nil, err
		}
	}

	return NewGridRaster(desc, crs, cols, rows, xll, yll, cellSize, nodata, values)
}

// LoadASCIIGrid reads an .asc file from disk, using the file path as the
// DEM description.
func LoadASCIIGrid(path string, crs geometry.CRS) (*GridRaster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open DEM %s: %w", path, err)
	}
	defer f.Close()
	return ReadASCIIGrid(f, path, crs)
}
