// Package project holds the in-memory working state of one map project:
// loaded AOIs, their tessellations and the spatial caches built on top,
// with persistence delegated to the store and the optional database
// mirrors.
package project

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"hexatlas/internal/elevation"
	"hexatlas/internal/geometry"
	"hexatlas/internal/hexgrid"
	"hexatlas/internal/model"
	"hexatlas/internal/mosaic"
	"hexatlas/internal/postgres"
	"hexatlas/internal/redis"
	"hexatlas/internal/segment"
	"hexatlas/internal/store"
	"hexatlas/internal/util"
)

// ProjectService is the singleton coordinating all project operations.
type ProjectService struct {
	mu sync.RWMutex

	store         *store.Store
	aois          map[string]model.AreaOfInterest
	tessellations map[string]*model.Tessellation
	caches        map[string]*mosaic.HexCache
	classStates   map[string]model.MosaicClassState

	defaultHexSizeM    float64
	defaultBucketSizeM float64
}

var (
	projectService *ProjectService
	once           sync.Once
)

// GetProjectService returns the singleton instance. InitService must be
// called once before use.
func GetProjectService() *ProjectService {
	once.Do(func() {
		projectService = &ProjectService{
			aois:          make(map[string]model.AreaOfInterest),
			tessellations: make(map[string]*model.Tessellation),
			caches:        make(map[string]*mosaic.HexCache),
			classStates:   make(map[string]model.MosaicClassState),

			defaultHexSizeM:    500.0,
			defaultBucketSizeM: 10.0,
		}
	})
	return projectService
}

// InitService opens the project store.
func (s *ProjectService) InitService(projectDir string) error {
	st, err := store.New(projectDir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.store = st
	s.mu.Unlock()
	log.Printf("Project store opened at %s", projectDir)
	return nil
}

// SetDefaults overrides the fallback hex and bucket sizes applied when a
// request leaves them unset.
func (s *ProjectService) SetDefaults(hexSizeM, bucketSizeM float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hexSizeM > 0 {
		s.defaultHexSizeM = hexSizeM
	}
	if bucketSizeM > 0 {
		s.defaultBucketSizeM = bucketSizeM
	}
}

// Store returns the underlying artifact store.
func (s *ProjectService) Store() *store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// CreateAOI registers an AOI from explicit geometry. The source id is
// generated for in-memory AOIs without a backing file.
func (s *ProjectService) CreateAOI(name string, crs geometry.CRS, geom orb.MultiPolygon) (model.AreaOfInterest, error) {
	if name == "" {
		return model.AreaOfInterest{}, fmt.Errorf("AOI name is required: %w", model.ErrInvalidArgument)
	}
	aoi := model.AreaOfInterest{
		Name:     name,
		SourceID: "mem-" + util.ShortUUID(),
		CRS:      crs,
		Geometry: geom,
	}
	if aoi.IsEmpty() {
		return model.AreaOfInterest{}, fmt.Errorf("AOI %q has no geometry: %w", name, model.ErrEmptyResult)
	}

	s.mu.Lock()
	s.aois[aoi.Slug()] = aoi
	s.mu.Unlock()
	return aoi, nil
}

// CreateAOIFromCenter builds a rectangular AOI around a geographic center
// point, projected into the UTM zone of that point so dimensions are meters.
func (s *ProjectService) CreateAOIFromCenter(name string, lon, lat, widthM, heightM float64) (model.AreaOfInterest, error) {
	if widthM <= 0 || heightM <= 0 {
		return model.AreaOfInterest{}, fmt.Errorf("AOI dimensions must be positive: %w", model.ErrInvalidArgument)
	}
	crs := geometry.UTMZoneFor(lon, lat)
	center, err := geometry.TransformPoint(orb.Point{lon, lat}, geometry.WGS84, crs)
	if err != nil {
		return model.AreaOfInterest{}, err
	}

	halfW, halfH := widthM/2, heightM/2
	rect := orb.MultiPolygon{orb.Polygon{orb.Ring{
		{center[0] - halfW, center[1] - halfH},
		{center[0] + halfW, center[1] - halfH},
		{center[0] + halfW, center[1] + halfH},
		{center[0] - halfW, center[1] + halfH},
		{center[0] - halfW, center[1] - halfH},
	}}}
	return s.CreateAOI(name, crs, rect)
}

// GetAOI returns a registered AOI by slug.
func (s *ProjectService) GetAOI(slug string) (model.AreaOfInterest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aoi, ok := s.aois[slug]
	return aoi, ok
}

// ListAOIs returns all registered AOIs keyed by slug.
func (s *ProjectService) ListAOIs() map[string]model.AreaOfInterest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.AreaOfInterest, len(s.aois))
	for k, v := range s.aois {
		out[k] = v
	}
	return out
}

// Tessellate builds the hex lattice for an AOI, persists the layers and
// refreshes the spatial cache used by classification and tracing.
func (s *ProjectService) Tessellate(slug string, cellSize float64) (*model.Tessellation, error) {
	aoi, ok := s.GetAOI(slug)
	if !ok {
		return nil, fmt.Errorf("unknown AOI %q: %w", slug, model.ErrEmptyResult)
	}
	if cellSize == 0 {
		s.mu.RLock()
		cellSize = s.defaultHexSizeM
		s.mu.RUnlock()
	}

	start := time.Now()
	tess, err := hexgrid.Tessellate(aoi, cellSize)
	if err != nil {
		return nil, err
	}
	log.Printf("Tessellated %s into %d cells in %v", aoi.Name, len(tess.Cells), time.Since(start))

	if st := s.Store(); st != nil {
		if err := st.WriteTessellation(aoi, tess); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.tessellations[slug] = tess
	s.caches[slug] = mosaic.NewHexCache(tess.Cells)
	s.mu.Unlock()
	return tess, nil
}

// Tessellation returns the cached lattice for an AOI.
func (s *ProjectService) Tessellation(slug string) (*model.Tessellation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tess, ok := s.tessellations[slug]
	return tess, ok
}

// HexCache returns the spatial cache for an AOI's lattice.
func (s *ProjectService) HexCache(slug string) (*mosaic.HexCache, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cache, ok := s.caches[slug]
	return cache, ok
}

// SegmentEqual splits the AOI into an equal grid and persists the result.
func (s *ProjectService) SegmentEqual(slug string, rows, cols int, hexSizeM float64) (*model.SegmentSet, error) {
	aoi, ok := s.GetAOI(slug)
	if !ok {
		return nil, fmt.Errorf("unknown AOI %q: %w", slug, model.ErrEmptyResult)
	}

	set, err := segment.Equal(aoi, rows, cols, hexSizeM)
	if err != nil {
		return nil, err
	}
	return set, s.persistSegments(aoi, set)
}

// SegmentMapTile covers the AOI with scale-aligned map tiles and persists
// the result.
func (s *ProjectService) SegmentMapTile(slug, scaleKey, alignment string, offsets model.TileOffsets) (*model.SegmentSet, error) {
	aoi, ok := s.GetAOI(slug)
	if !ok {
		return nil, fmt.Errorf("unknown AOI %q: %w", slug, model.ErrEmptyResult)
	}

	set, err := segment.MapTile(aoi, scaleKey, alignment, offsets)
	if err != nil {
		return nil, err
	}
	return set, s.persistSegments(aoi, set)
}

func (s *ProjectService) persistSegments(aoi model.AreaOfInterest, set *model.SegmentSet) error {
	st := s.Store()
	if st == nil {
		return nil
	}
	if err := st.WriteSegments(aoi, set); err != nil {
		return err
	}
	if postgres.GetDB() != nil {
		meta := segment.Metadata(set, aoi.Name)
		if err := postgres.SaveSegmentMetadata(aoi.Slug(), meta); err != nil {
			log.Printf("Failed to mirror segment metadata for %s: %v", aoi.Slug(), err)
		}
	}
	return nil
}

// ClearSegments drops the persisted segment output of an AOI.
func (s *ProjectService) ClearSegments(slug string) error {
	aoi, ok := s.GetAOI(slug)
	if !ok {
		return fmt.Errorf("unknown AOI %q: %w", slug, model.ErrEmptyResult)
	}
	st := s.Store()
	if st == nil {
		return nil
	}
	if err := st.ClearSegments(aoi); err != nil {
		return err
	}
	if postgres.GetDB() != nil {
		if err := postgres.DeleteSegmentMetadata(aoi.Slug()); err != nil {
			log.Printf("Failed to drop segment metadata mirror for %s: %v", aoi.Slug(), err)
		}
	}
	return nil
}

// SegmentMetadata returns the persisted registry entry for an AOI.
func (s *ProjectService) SegmentMetadata(slug string) (model.SegmentMetadata, bool, error) {
	aoi, ok := s.GetAOI(slug)
	if !ok {
		return model.SegmentMetadata{}, false, fmt.Errorf("unknown AOI %q: %w", slug, model.ErrEmptyResult)
	}
	st := s.Store()
	if st == nil {
		return model.SegmentMetadata{}, false, nil
	}
	return st.Metadata(aoi)
}

// Sample runs zonal elevation statistics over the tessellated lattice,
// persists the sampled layer and caches the one-line summary.
func (s *ProjectService) Sample(slug, demPath string, opts elevation.Options) (*model.SamplingResult, error) {
	aoi, ok := s.GetAOI(slug)
	if !ok {
		return nil, fmt.Errorf("unknown AOI %q: %w", slug, model.ErrEmptyResult)
	}
	tess, ok := s.Tessellation(slug)
	if !ok || len(tess.Cells) == 0 {
		return nil, fmt.Errorf("AOI %q has no tessellation to sample: %w", slug, model.ErrEmptyResult)
	}
	if opts.Method == "" {
		opts.Method = elevation.MethodMean
	}
	if opts.BucketSize == 0 {
		s.mu.RLock()
		opts.BucketSize = s.defaultBucketSizeM
		s.mu.RUnlock()
	}

	dem, err := elevation.LoadASCIIGrid(demPath, aoi.CRS)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, model.ErrInvalidArgument)
	}

	start := time.Now()
	result, err := elevation.Sample(tess.Cells, aoi.CRS, dem, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("Sampled %s: %s in %v", aoi.Name, elevation.FormatSummary(result), time.Since(start))

	generatedAt := time.Now()
	if st := s.Store(); st != nil {
		if err := st.WriteElevation(aoi, tess.Cells, result, dem.Description(), generatedAt); err != nil {
			return nil, err
		}
	}
	s.recordSamplingRun(aoi, dem.Description(), result)
	return result, nil
}

func (s *ProjectService) recordSamplingRun(aoi model.AreaOfInterest, demSource string, result *model.SamplingResult) {
	summary := elevation.FormatSummary(result)
	if redis.GetClient() != nil {
		if err := redis.HashSet("sampling:summary", aoi.Slug(), summary); err != nil {
			log.Printf("Failed to cache sampling summary for %s: %v", aoi.Slug(), err)
		}
	}
	if postgres.GetDB() != nil {
		run := &model.SamplingRunPG{
			AOIKey:        aoi.Slug(),
			DEMSource:     demSource,
			Method:        result.Method,
			BucketSize:    result.BucketSize,
			TotalFeatures: result.TotalFeatures,
			CountWithData: result.CountWithData,
			MinBucket:     result.MinBucket,
			MaxBucket:     result.MaxBucket,
		}
		if err := postgres.RecordSamplingRun(run); err != nil {
			log.Printf("Failed to record sampling run for %s: %v", aoi.Slug(), err)
		}
	}
}

// SamplingSummary returns the cached summary line for an AOI, empty when no
// run has been cached.
func (s *ProjectService) SamplingSummary(slug string) string {
	if redis.GetClient() == nil {
		return ""
	}
	summary, err := redis.HashGet("sampling:summary", slug)
	if err != nil {
		return ""
	}
	return summary
}

// ClassState returns the runtime state for a mosaic class, primed with
// defaults on first access.
func (s *ProjectService) ClassState(classID string) model.MosaicClassState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.classStates[classID]
	if !ok {
		state = model.NewMosaicClassState()
		s.classStates[classID] = state
	}
	return state
}

// SetClassState replaces the runtime state for a mosaic class.
func (s *ProjectService) SetClassState(classID string, state model.MosaicClassState) {
	s.mu.Lock()
	s.classStates[classID] = state
	s.mu.Unlock()
}

// Classify reduces polygon sources onto the AOI's lattice for one class.
func (s *ProjectService) Classify(slug string, class model.MosaicClass, sources []orb.Geometry) ([]mosaic.ClassifiedHex, error) {
	cache, ok := s.HexCache(slug)
	if !ok || cache.Len() == 0 {
		return nil, fmt.Errorf("AOI %q has no tessellation to classify against: %w", slug, model.ErrEmptyResult)
	}
	state := s.ClassState(class.ClassID)
	return mosaic.ClassifyPolygons(cache, class, sources, state), nil
}

// Trace walks a source line over the AOI's lattice.
func (s *ProjectService) Trace(slug string, class model.MosaicClass, line orb.LineString) (*mosaic.TraceResult, error) {
	cache, ok := s.HexCache(slug)
	if !ok || cache.Len() == 0 {
		return nil, fmt.Errorf("AOI %q has no tessellation to trace against: %w", slug, model.ErrEmptyResult)
	}
	state := s.ClassState(class.ClassID)
	result := mosaic.TraceLine(cache, line, class.LineBehavior, state)
	if result == nil {
		return nil, fmt.Errorf("line visits fewer than two hexes: %w", model.ErrEmptyResult)
	}
	return result, nil
}
