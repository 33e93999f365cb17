package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/qedus/osmpbf"

	"hexatlas/internal/model"
)

// Command line flags
var (
	osmFilePath string
	classesPath string
	outDir      string
)

func init() {
	flag.StringVar(&osmFilePath, "osm-file", "", "Path to OSM PBF file")
	flag.StringVar(&classesPath, "classes", "", "Path to mosaic class definitions JSON (default: built-in classes)")
	flag.StringVar(&outDir, "out", "./sources", "Output directory for class source layers")
}

// defaultClasses covers the common wargame terrain categories when no class
// file is given.
var defaultClasses = []model.MosaicClass{
	{
		ClassID: "forest", TargetLayer: "forest", Mode: model.MosaicModePolygon,
		Matchers: []model.TagMatcher{
			{Key: "landuse", Values: []string{"forest"}},
			{Key: "natural", Values: []string{"wood"}},
		},
	},
	{
		ClassID: "water", TargetLayer: "water", Mode: model.MosaicModePolygon,
		Matchers: []model.TagMatcher{
			{Key: "natural", Values: []string{"water"}},
			{Key: "landuse", Values: []string{"reservoir"}},
		},
	},
	{
		ClassID: "urban", TargetLayer: "urban", Mode: model.MosaicModePolygon,
		Matchers: []model.TagMatcher{
			{Key: "landuse", Values: []string{"residential", "industrial", "commercial"}},
		},
	},
	{
		ClassID: "road_primary", TargetLayer: "roads", Mode: model.MosaicModeLine,
		LineBehavior: model.LineBehaviorEdge,
		Matchers: []model.TagMatcher{
			{Key: "highway", Values: []string{"motorway", "trunk", "primary"}},
		},
	},
	{
		ClassID: "river", TargetLayer: "rivers", Mode: model.MosaicModeLine,
		LineBehavior: model.LineBehaviorCentroid,
		Matchers: []model.TagMatcher{
			{Key: "waterway", Values: []string{"river", "canal"}},
		},
	},
}

func main() {
	flag.Parse()

	if osmFilePath == "" {
		log.Fatal("OSM file path must be specified")
	}
	classes := loadClasses()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	// Phase 1: cache node coordinates
	log.Println("Phase 1: Caching node coordinates...")
	nodeCache := collectNodes()
	log.Printf("Cached %d nodes", len(nodeCache))

	// Phase 2: extract matching ways into per-layer collections
	log.Println("Phase 2: Extracting matching ways...")
	layers := extractWays(nodeCache, classes)

	for layer, fc := range layers {
		path := filepath.Join(outDir, layer+".geojson")
		data, err := json.Marshal(fc)
		if err != nil {
			log.Fatalf("Failed to encode layer %s: %v", layer, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Fatalf("Failed to write layer %s: %v", layer, err)
		}
		log.Printf("Wrote %d features to %s", len(fc.Features), path)
	}
}

func loadClasses() []model.MosaicClass {
	if classesPath == "" {
		return defaultClasses
	}
	data, err := os.ReadFile(classesPath)
	if err != nil {
		log.Fatalf("Failed to read class file: %v", err)
	}
	var classes []model.MosaicClass
	if err := json.Unmarshal(data, &classes); err != nil {
		log.Fatalf("Failed to parse class file: %v", err)
	}
	return classes
}

func newDecoder(f *os.File) *osmpbf.Decoder {
	decoder := osmpbf.NewDecoder(f)
	decoder.SetBufferSize(osmpbf.MaxBlobSize)
	decoder.Start(runtime.GOMAXPROCS(-1))
	return decoder
}

func collectNodes() map[int64]orb.Point {
	f, err := os.Open(osmFilePath)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer f.Close()

	decoder := newDecoder(f)
	nodeCache := make(map[int64]orb.Point)
	for {
		object, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Error decoding: %v", err)
		}
		if node, ok := object.(*osmpbf.Node); ok {
			nodeCache[node.ID] = orb.Point{node.Lon, node.Lat}
		}
	}
	return nodeCache
}

func extractWays(nodeCache map[int64]orb.Point, classes []model.MosaicClass) map[string]*geojson.FeatureCollection {
	f, err := os.Open(osmFilePath)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer f.Close()

	decoder := newDecoder(f)
	layers := make(map[string]*geojson.FeatureCollection)
	wayCount := 0
	for {
		object, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Error decoding: %v", err)
		}
		way, ok := object.(*osmpbf.Way)
		if !ok {
			continue
		}

		for _, class := range classes {
			if !class.Matches(way.Tags) {
				continue
			}
			feature := wayToFeature(way, nodeCache, class)
			if feature == nil {
				continue
			}
			fc, ok := layers[class.TargetLayer]
			if !ok {
				fc = geojson.NewFeatureCollection()
				layers[class.TargetLayer] = fc
			}
			fc.Append(feature)
			wayCount++
			break
		}
	}
	log.Printf("Extracted %d ways", wayCount)
	return layers
}

// wayToFeature resolves way node refs against the cache. Polygon classes
// need closed rings of at least four points; line classes need two.
func wayToFeature(way *osmpbf.Way, nodeCache map[int64]orb.Point, class model.MosaicClass) *geojson.Feature {
	line := make(orb.LineString, 0, len(way.NodeIDs))
	for _, id := range way.NodeIDs {
		pt, ok := nodeCache[id]
		if !ok {
			return nil
		}
		line = append(line, pt)
	}

	var feature *geojson.Feature
	if class.Mode == model.MosaicModePolygon {
		if len(line) < 4 || line[0] != line[len(line)-1] {
			return nil
		}
		feature = geojson.NewFeature(orb.Polygon{orb.Ring(line)})
	} else {
		if len(line) < 2 {
			return nil
		}
		feature = geojson.NewFeature(line)
	}

	feature.Properties["osm_id"] = way.ID
	feature.Properties["class_id"] = class.ClassID
	if name, ok := way.Tags["name"]; ok {
		feature.Properties["name"] = name
	}
	return feature
}
