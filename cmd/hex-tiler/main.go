package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"hexatlas/internal/elevation"
	"hexatlas/internal/geometry"
	"hexatlas/internal/hexgrid"
	"hexatlas/internal/model"
	"hexatlas/internal/segment"
	"hexatlas/internal/store"
)

// Command line flags
var (
	runMode     int
	aoiPath     string
	aoiName     string
	epsgCode    int
	projectDir  string
	hexSizeM    float64
	rows        int
	cols        int
	scaleKey    string
	alignment   string
	offsetNS    float64
	offsetEW    float64
	offsetUnit  string
	demPath     string
	method      string
	bucketSizeM float64
)

// RunMode represents different operation modes
const (
	RunModeTessellate = 1
	RunModeEqualGrid  = 2
	RunModeMapTiles   = 3
	RunModeSample     = 4
)

func init() {
	// Define command line flags
	flag.IntVar(&runMode, "mode", 0, "Run mode: 1 = Tessellate, 2 = Equal grid segments, 3 = Map tiles, 4 = Sample elevation")
	flag.StringVar(&aoiPath, "aoi", "", "Path to AOI GeoJSON file")
	flag.StringVar(&aoiName, "name", "", "AOI name (default: file name)")
	flag.IntVar(&epsgCode, "epsg", 3857, "EPSG code of the AOI coordinates")
	flag.StringVar(&projectDir, "project-dir", "./project", "Project output directory")
	flag.Float64Var(&hexSizeM, "hex-size", 500.0, "Hexagon cell size in CRS units (default: 500m)")
	flag.IntVar(&rows, "rows", 2, "Segment grid rows")
	flag.IntVar(&cols, "cols", 2, "Segment grid columns")
	flag.StringVar(&scaleKey, "scale", segment.DefaultScaleKey, "Map tile scale key")
	flag.StringVar(&alignment, "alignment", model.AlignExtent, "Map tile alignment: extent, minute or degree")
	flag.Float64Var(&offsetNS, "offset-ns", 0, "North-south tile origin offset")
	flag.Float64Var(&offsetEW, "offset-ew", 0, "East-west tile origin offset")
	flag.StringVar(&offsetUnit, "offset-unit", "km", "Offset unit: km or arcmin")
	flag.StringVar(&demPath, "dem", "", "Path to Esri ASCII DEM file")
	flag.StringVar(&method, "method", elevation.MethodMean, "Sampling method: mean, median or min")
	flag.Float64Var(&bucketSizeM, "bucket-size", 10.0, "Elevation bucket size in meters")
}

func main() {
	flag.Parse()

	if runMode == 0 {
		log.Fatal("Run mode must be specified: 1 = Tessellate, 2 = Equal grid segments, 3 = Map tiles, 4 = Sample elevation")
	}

	aoi := loadAOI()
	st := openStore()

	switch runMode {
	case RunModeTessellate:
		runTessellate(st, aoi)
	case RunModeEqualGrid:
		runEqualGrid(st, aoi)
	case RunModeMapTiles:
		runMapTiles(st, aoi)
	case RunModeSample:
		runSample(st, aoi)
	default:
		log.Fatalf("Invalid run mode: %d", runMode)
	}
}

// loadAOI reads the AOI GeoJSON file and dissolves its polygonal features
func loadAOI() model.AreaOfInterest {
	if aoiPath == "" {
		log.Fatal("AOI file path must be specified")
	}
	data, err := os.ReadFile(aoiPath)
	if err != nil {
		log.Fatalf("Failed to read AOI file: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		log.Fatalf("Failed to parse AOI GeoJSON: %v", err)
	}

	var parts []orb.Geometry
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			parts = append(parts, g)
		}
	}
	if len(parts) == 0 {
		log.Fatalf("AOI file %s contains no polygon features", aoiPath)
	}

	crs, err := geometry.EPSG(epsgCode)
	if err != nil {
		log.Fatalf("Unsupported EPSG code: %v", err)
	}

	name := aoiName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(aoiPath), filepath.Ext(aoiPath))
	}

	return model.AreaOfInterest{
		Name:     name,
		SourceID: aoiPath,
		CRS:      crs,
		Geometry: geometry.UnaryUnion(parts),
	}
}

func openStore() *store.Store {
	st, err := store.New(projectDir)
	if err != nil {
		log.Fatalf("Failed to open project directory: %v", err)
	}
	return st
}

func runTessellate(st *store.Store, aoi model.AreaOfInterest) {
	log.Printf("Tessellating %s at %g units per hex", aoi.Name, hexSizeM)
	start := time.Now()

	tess, err := hexgrid.Tessellate(aoi, hexSizeM)
	if err != nil {
		log.Fatalf("Tessellation failed: %v", err)
	}
	for _, w := range tess.Warnings {
		log.Printf("Warning: %s", w)
	}
	if err := st.WriteTessellation(aoi, tess); err != nil {
		log.Fatalf("Failed to write tessellation: %v", err)
	}

	log.Printf("Wrote %d cells, %d edges, %d vertices in %v",
		len(tess.Cells), len(tess.Edges), len(tess.Vertices), time.Since(start))
}

func runEqualGrid(st *store.Store, aoi model.AreaOfInterest) {
	log.Printf("Segmenting %s into %dx%d equal grid", aoi.Name, rows, cols)

	set, err := segment.Equal(aoi, rows, cols, hexSizeM)
	if err != nil {
		log.Fatalf("Segmentation failed: %v", err)
	}
	if err := st.WriteSegments(aoi, set); err != nil {
		log.Fatalf("Failed to write segments: %v", err)
	}

	log.Printf("Wrote %d segments", len(set.Cells))
}

func runMapTiles(st *store.Store, aoi model.AreaOfInterest) {
	log.Printf("Tiling %s at scale %s with %s alignment", aoi.Name, scaleKey, alignment)

	offsets := model.TileOffsets{NS: offsetNS, EW: offsetEW, Unit: offsetUnit}
	set, err := segment.MapTile(aoi, scaleKey, alignment, offsets)
	if err != nil {
		log.Fatalf("Map tiling failed: %v", err)
	}
	if err := st.WriteSegments(aoi, set); err != nil {
		log.Fatalf("Failed to write tiles: %v", err)
	}

	log.Printf("Wrote %d tiles (%s, %.1f x %.1f km) to %s",
		len(set.Cells), set.ScaleLabel, set.TileWidthKm, set.TileHeightKm, set.Subdir)
}

func runSample(st *store.Store, aoi model.AreaOfInterest) {
	if demPath == "" {
		log.Fatal("DEM file path must be specified when sampling")
	}

	tess, err := hexgrid.Tessellate(aoi, hexSizeM)
	if err != nil {
		log.Fatalf("Tessellation failed: %v", err)
	}
	dem, err := elevation.LoadASCIIGrid(demPath, aoi.CRS)
	if err != nil {
		log.Fatalf("Failed to load DEM: %v", err)
	}

	start := time.Now()
	result, err := elevation.Sample(tess.Cells, aoi.CRS, dem, elevation.Options{
		Method:     method,
		BucketSize: bucketSizeM,
	})
	if err != nil {
		log.Fatalf("Sampling failed: %v", err)
	}
	for _, w := range result.Warnings {
		log.Printf("Warning: %s", w)
	}

	if err := st.WriteTessellation(aoi, tess); err != nil {
		log.Fatalf("Failed to write tessellation: %v", err)
	}
	if err := st.WriteElevation(aoi, tess.Cells, result, dem.Description(), time.Now()); err != nil {
		log.Fatalf("Failed to write elevation layer: %v", err)
	}

	log.Printf("%s in %v", elevation.FormatSummary(result), time.Since(start))
}
