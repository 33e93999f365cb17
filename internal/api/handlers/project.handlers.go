package routes

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"hexatlas/internal/elevation"
	"hexatlas/internal/geometry"
	"hexatlas/internal/model"
	"hexatlas/internal/segment"
	"hexatlas/internal/service/project"
)

// SetupProjectHandlers registers the project management endpoints
func SetupProjectHandlers(router *gin.RouterGroup) {
	router.GET("/scales", ListScales)

	aoiGroup := router.Group("/aoi")
	aoiGroup.POST("", CreateAOI)
	aoiGroup.GET("", ListAOIs)
	aoiGroup.POST("/:slug/tessellate", TessellateAOI)
	aoiGroup.POST("/:slug/segments/equal", SegmentEqual)
	aoiGroup.POST("/:slug/segments/maptile", SegmentMapTile)
	aoiGroup.GET("/:slug/segments", GetSegmentMetadata)
	aoiGroup.DELETE("/:slug/segments", ClearSegments)
	aoiGroup.POST("/:slug/sample", SampleElevation)
	aoiGroup.GET("/:slug/sample/summary", SamplingSummary)
	aoiGroup.POST("/:slug/classify", ClassifyPolygons)
	aoiGroup.POST("/:slug/trace", TraceLine)
}

func respondError(c *gin.Context, err error) {
	var engineErr *model.SamplingEngineError
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, model.ErrEmptyResult):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	case errors.As(err, &engineErr):
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
	}
}

// ListScales returns the supported map-tile scale presets
func ListScales(c *gin.Context) {
	presets := segment.ScalePresets()
	out := make([]gin.H, 0, len(presets))
	for _, p := range presets {
		out = append(out, gin.H{
			"key":           p.Key,
			"label":         p.Label,
			"tile_width_km": p.TileWidthKm,
		})
	}
	c.JSON(http.StatusOK, gin.H{"scales": out, "default": segment.DefaultScaleKey})
}

type createAOIRequest struct {
	Name     string            `json:"name"`
	EPSG     int               `json:"epsg"`
	Geometry *geojson.Geometry `json:"geometry"`
	Center   *struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"center"`
	WidthM  float64 `json:"width_m"`
	HeightM float64 `json:"height_m"`
}

// CreateAOI registers an area of interest from explicit geometry or from a
// geographic center point with metric dimensions
func CreateAOI(c *gin.Context) {
	var req createAOIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	svc := project.GetProjectService()

	var aoi model.AreaOfInterest
	var err error
	switch {
	case req.Center != nil:
		aoi, err = svc.CreateAOIFromCenter(req.Name, req.Center.Lon, req.Center.Lat, req.WidthM, req.HeightM)
	case req.Geometry != nil:
		var crs geometry.CRS
		crs, err = geometry.EPSG(req.EPSG)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}
		aoi, err = svc.CreateAOI(req.Name, crs, toMultiPolygon(req.Geometry.Geometry()))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "geometry or center is required"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Registered AOI %s (%s)", aoi.Name, aoi.CRS.AuthID())
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"slug":   aoi.Slug(),
		"crs":    aoi.CRS.AuthID(),
	})
}

func toMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}
	case orb.MultiPolygon:
		return v
	}
	return orb.MultiPolygon{}
}

// ListAOIs returns all registered AOIs
func ListAOIs(c *gin.Context) {
	aois := project.GetProjectService().ListAOIs()
	out := make([]gin.H, 0, len(aois))
	for slug, aoi := range aois {
		out = append(out, gin.H{
			"slug": slug,
			"name": aoi.Name,
			"crs":  aoi.CRS.AuthID(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"aois": out})
}

type tessellateRequest struct {
	CellSizeM float64 `json:"cell_size_m"`
}

// TessellateAOI builds the hex lattice for an AOI
func TessellateAOI(c *gin.Context) {
	var req tessellateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	tess, err := project.GetProjectService().Tessellate(c.Param("slug"), req.CellSizeM)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"cells":     len(tess.Cells),
		"edges":     len(tess.Edges),
		"vertices":  len(tess.Vertices),
		"centroids": len(tess.Centroids),
		"warnings":  tess.Warnings,
	})
}

type segmentEqualRequest struct {
	Rows     int     `json:"rows"`
	Cols     int     `json:"cols"`
	HexSizeM float64 `json:"hex_size_m"`
}

// SegmentEqual splits an AOI into an equal grid of segments
func SegmentEqual(c *gin.Context) {
	var req segmentEqualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	set, err := project.GetProjectService().SegmentEqual(c.Param("slug"), req.Rows, req.Cols, req.HexSizeM)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"segments": len(set.Cells),
		"rows":     set.Rows,
		"cols":     set.Cols,
	})
}

type segmentMapTileRequest struct {
	Scale     string  `json:"scale"`
	Alignment string  `json:"alignment"`
	OffsetNS  float64 `json:"offset_ns"`
	OffsetEW  float64 `json:"offset_ew"`
	Unit      string  `json:"offset_unit"`
}

// SegmentMapTile covers an AOI with scale-aligned map tiles
func SegmentMapTile(c *gin.Context) {
	var req segmentMapTileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	offsets := model.TileOffsets{NS: req.OffsetNS, EW: req.OffsetEW, Unit: req.Unit}
	set, err := project.GetProjectService().SegmentMapTile(c.Param("slug"), req.Scale, req.Alignment, offsets)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"tiles":       len(set.Cells),
		"rows":        set.Rows,
		"cols":        set.Cols,
		"scale":       set.ScaleKey,
		"scale_label": set.ScaleLabel,
		"alignment":   set.Alignment,
		"subdir":      set.Subdir,
		"tile_width":  set.TileWidthKm,
		"tile_height": set.TileHeightKm,
	})
}

// GetSegmentMetadata returns the persisted segmentation record of an AOI
func GetSegmentMetadata(c *gin.Context) {
	meta, ok, err := project.GetProjectService().SegmentMetadata(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "no segmentation recorded"})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// ClearSegments removes the segment output of an AOI
func ClearSegments(c *gin.Context) {
	if err := project.GetProjectService().ClearSegments(c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Segments cleared"})
}

type sampleRequest struct {
	DEMPath     string  `json:"dem_path"`
	Method      string  `json:"method"`
	BucketSizeM float64 `json:"bucket_size_m"`
}

// SampleElevation runs zonal elevation statistics over the AOI lattice
func SampleElevation(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	result, err := project.GetProjectService().Sample(c.Param("slug"), req.DEMPath, elevation.Options{
		Method:     req.Method,
		BucketSize: req.BucketSizeM,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"summary":         elevation.FormatSummary(result),
		"total_features":  result.TotalFeatures,
		"count_with_data": result.CountWithData,
		"min_bucket":      result.MinBucket,
		"max_bucket":      result.MaxBucket,
		"warnings":        result.Warnings,
	})
}

// SamplingSummary returns the cached sampling summary for an AOI
func SamplingSummary(c *gin.Context) {
	summary := project.GetProjectService().SamplingSummary(c.Param("slug"))
	if summary == "" {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "no sampling run cached"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

type classifyRequest struct {
	Class   model.MosaicClass   `json:"class"`
	Sources []*geojson.Geometry `json:"sources"`
}

// ClassifyPolygons reduces polygon sources onto the AOI lattice
func ClassifyPolygons(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	sources := make([]orb.Geometry, 0, len(req.Sources))
	for _, g := range req.Sources {
		if g != nil {
			sources = append(sources, g.Geometry())
		}
	}
	hits, err := project.GetProjectService().Classify(c.Param("slug"), req.Class, sources)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(hits))
	for _, h := range hits {
		out = append(out, gin.H{
			"hex_id":       h.HexID,
			"class_id":     h.ClassID,
			"coverage":     h.Coverage,
			"centroid_hit": h.CentroidHit,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "hexes": out})
}

type traceRequest struct {
	Class model.MosaicClass `json:"class"`
	Line  *geojson.Geometry `json:"line"`
}

// TraceLine walks a source line over the AOI lattice
func TraceLine(c *gin.Context) {
	var req traceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if req.Line == nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "line geometry is required"})
		return
	}
	line, ok := req.Line.Geometry().(orb.LineString)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "line must be a LineString"})
		return
	}

	result, err := project.GetProjectService().Trace(c.Param("slug"), req.Class, line)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"hex_ids":  result.HexIDs,
		"behavior": result.Behavior,
		"path":     geojson.NewFeature(result.Path),
		"edges":    len(result.Edges),
	})
}
