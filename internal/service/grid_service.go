// Package service provides grid orchestration for the eyemap server.
package service

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/eyemap-vis/server/internal/cache"
	"github.com/eyemap-vis/server/internal/hexgrid"
	"github.com/eyemap-vis/server/internal/output"
	"github.com/eyemap-vis/server/internal/render"
	"github.com/eyemap-vis/server/pkg/colormap"
)

// GridServiceConfig contains grid service configuration.
type GridServiceConfig struct {
	Renderer   *render.Renderer
	Cache      *cache.Manager // nil disables caching
	Writer     *output.Writer
	MaxWorkers int
}

// GridService generates eyemap grids across regions, sides, and metrics.
// All collaborators are injected at construction and immutable afterwards.
type GridService struct {
	processor  *hexgrid.DataProcessor
	renderer   *render.Renderer
	cache      *cache.Manager
	writer     *output.Writer
	maxWorkers int
}

// NewGridService creates a grid service.
func NewGridService(cfg GridServiceConfig) *GridService {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &GridService{
		processor:  hexgrid.NewDataProcessor(),
		renderer:   cfg.Renderer,
		cache:      cfg.Cache,
		writer:     cfg.Writer,
		maxWorkers: maxWorkers,
	}
}

// GridGenerationRequest bundles the inputs of one top-level generation
// call. Validated once at ingress and treated as immutable afterwards.
type GridGenerationRequest struct {
	NeuronType   string
	Observations []hexgrid.ColumnObservation
	Lattice      []hexgrid.PossibleColumn
	Thresholds   map[string][2]float64
	Side         hexgrid.Side
	Metrics      []hexgrid.MetricType
	Format       render.Format
	SaveToFiles  bool
	MinMax       *hexgrid.RegionMinMax
}

// GridKey identifies one artifact in the result map.
type GridKey struct {
	Region string
	Side   hexgrid.Side
	Metric hexgrid.MetricType
}

func (k GridKey) String() string {
	return fmt.Sprintf("%s_%s_%s", k.Region, k.Side.Short(), k.Metric)
}

// Artifact is one rendered grid: inline content in embed mode, a file path
// in save mode. Exactly one of the two is set.
type Artifact struct {
	Content []byte
	Path    string
	Format  render.Format
}

// GridGenerationResult is the outcome of one top-level generation call.
type GridGenerationResult struct {
	Grids          map[GridKey]Artifact
	ProcessingTime time.Duration
	Success        bool
	ErrorMessage   string
	Warnings       []string
}

// GenerateGrids renders eyemaps for every (region, side, metric) triple the
// request implies. Triples are processed concurrently and independently: a
// failed triple is recorded as a warning and omitted from the result map,
// never aborting the rest. Only top-level request validation fails the
// whole call.
func (s *GridService) GenerateGrids(req GridGenerationRequest) GridGenerationResult {
	start := time.Now()

	if err := validateGridGenerationRequest(&req); err != nil {
		return GridGenerationResult{
			Grids:          map[GridKey]Artifact{},
			ProcessingTime: time.Since(start),
			Success:        false,
			ErrorMessage:   fmt.Sprintf("request validation failed: %v", err),
		}
	}

	metrics := req.Metrics
	if len(metrics) == 0 {
		metrics = []hexgrid.MetricType{hexgrid.MetricSynapseDensity, hexgrid.MetricCellCount}
	}

	regions := regionsOf(req.Lattice)
	sides := req.Side.Hemispheres()

	// A region missing from the thresholds table still renders, against the
	// default range, but the substitution is surfaced as a warning.
	var warnings []string
	for _, region := range regions {
		if _, ok := req.Thresholds[region]; !ok {
			warnings = append(warnings, fmt.Sprintf("%s: no thresholds defined, using default range [0, 1]", region))
		}
	}

	type workItem struct {
		key GridKey
	}
	var items []workItem
	for _, region := range regions {
		for _, side := range sides {
			for _, metric := range metrics {
				items = append(items, workItem{key: GridKey{Region: region, Side: side, Metric: metric}})
			}
		}
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		grids = make(map[GridKey]Artifact, len(items))
	)

	queue := make(chan workItem)
	workers := s.maxWorkers
	if workers > len(items) {
		workers = len(items)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				artifact, err := s.generateOne(&req, item.key)
				mu.Lock()
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: %v", item.key, err))
				} else {
					grids[item.key] = artifact
				}
				mu.Unlock()
			}
		}()
	}
	for _, item := range items {
		queue <- item
	}
	close(queue)
	wg.Wait()

	sort.Strings(warnings)

	return GridGenerationResult{
		Grids:          grids,
		ProcessingTime: time.Since(start),
		Success:        true,
		Warnings:       warnings,
	}
}

// generateOne runs the full pipeline for a single (region, side, metric)
// triple and either embeds or persists the artifact.
func (s *GridService) generateOne(req *GridGenerationRequest, key GridKey) (Artifact, error) {
	single := SingleRegionGridRequest{
		NeuronType: req.NeuronType,
		Region:     key.Region,
		Side:       key.Side,
		Metric:     key.Metric,
		Lattice:    req.Lattice,
		Thresholds: thresholdsFor(req.Thresholds, key.Region),
		MinMax:     req.MinMax,
		Format:     req.Format,
	}
	single.RegionCoords = hexgrid.LatticeCoords(req.Lattice, key.Region)
	single.Observed = hexgrid.ObservationsByCoord(req.Observations, key.Region, key.Side)

	sig := cache.ThresholdSignature(req.Thresholds)
	artKey := cache.ArtifactKey(req.NeuronType, key.Region, key.Side, key.Metric, string(req.Format), sig)

	content, ok := s.cache.GetArtifact(artKey)
	if !ok {
		var err error
		content, err = s.GenerateSingleRegionGrid(single)
		if err != nil {
			return Artifact{}, err
		}
		if err := s.cache.SetArtifact(artKey, content); err != nil {
			// Cache failures never fail generation.
			log.Printf("[GridService] %v", &hexgrid.PerformanceError{Op: "artifact_cache_set", Err: err})
		}
	}

	if !req.SaveToFiles {
		return Artifact{Content: content, Format: req.Format}, nil
	}

	meta := gridMeta(req.NeuronType, key)
	base := fmt.Sprintf("%s_%s_%s", meta.PlotDesc, meta.NeuronDesc, meta.RegionDesc)
	path, err := s.writer.Write(base, req.Format.Extension(), content)
	if err != nil {
		return Artifact{}, &hexgrid.RenderingError{Op: "persist_artifact", Err: err}
	}
	return Artifact{Path: path, Format: req.Format}, nil
}

// SingleRegionGridRequest bundles the inputs of one region/side/metric
// pipeline run. Side is always a concrete hemisphere here; combined is
// expanded by the orchestrator.
type SingleRegionGridRequest struct {
	NeuronType   string
	Region       string
	Side         hexgrid.Side
	Metric       hexgrid.MetricType
	Lattice      []hexgrid.PossibleColumn
	RegionCoords map[hexgrid.Coord]struct{}
	Observed     map[hexgrid.Coord]*hexgrid.ColumnObservation
	Thresholds   [2]float64
	MinMax       *hexgrid.RegionMinMax
	Format       render.Format
}

// GenerateSingleRegionGrid runs classification, coordinate conversion,
// color mapping, tooltip attachment, and rendering for one grid, returning
// the artifact bytes. Errors propagate to the caller; the batch
// orchestrator converts them into warnings.
func (s *GridService) GenerateSingleRegionGrid(req SingleRegionGridRequest) ([]byte, error) {
	if err := validateSingleRegionRequest(&req); err != nil {
		return nil, err
	}

	vr, err := hexgrid.NewValueRange(req.Thresholds[0], req.Thresholds[1])
	if err != nil {
		return nil, err
	}

	cols, err := s.classifyWithCache(&req)
	if err != nil {
		return nil, err
	}

	hexagons := s.buildHexagons(&req, cols, vr)
	render.AttachTooltips(hexagons, req.Region, req.Side, req.Metric)

	meta := gridMeta(req.NeuronType, GridKey{Region: req.Region, Side: req.Side, Metric: req.Metric})
	return s.renderer.Render(hexagons, vr, req.Metric, meta, req.Format)
}

// classifyWithCache classifies the lattice, memoizing the processed-column
// list when a cache is attached.
func (s *GridService) classifyWithCache(req *SingleRegionGridRequest) ([]hexgrid.ProcessedColumn, error) {
	key := cache.ColumnsKey(req.NeuronType, req.Region, req.Side, req.Metric)
	if cols, ok := s.cache.GetColumns(key); ok {
		return cols, nil
	}
	cols, err := s.processor.Classify(req.Lattice, req.RegionCoords, req.Observed, req.Metric)
	if err != nil {
		return nil, err
	}
	s.cache.SetColumns(key, cols)
	return cols, nil
}

// buildHexagons converts processed columns into render-ready hexagons:
// pixel positions from the coordinate system, the gradient color for
// HasData cells, and the fixed status colors otherwise.
func (s *GridService) buildHexagons(req *SingleRegionGridRequest, cols []hexgrid.ProcessedColumn, vr hexgrid.ValueRange) []render.Hexagon {
	coords := s.renderer.Coords()
	cmap := s.renderer.Colormap()
	mirror := hexgrid.MirrorForSide(req.Side)

	// Layer colors normalize against the global per-region range when one
	// is supplied, falling back to the grid's own range.
	layerMin, layerMax := vr.Min, vr.Max
	if min, max, ok := req.MinMax.Range(req.Region, req.Metric); ok && min < max {
		layerMin, layerMax = min, max
	}

	hexagons := make([]render.Hexagon, 0, len(cols))
	for _, col := range cols {
		x, y := coords.ToPixel(col.Hex1, col.Hex2, mirror)
		h := render.Hexagon{
			X:           x,
			Y:           y,
			Hex1:        col.Hex1,
			Hex2:        col.Hex2,
			Status:      col.Status,
			Value:       col.Value,
			LayerValues: col.LayerValues,
			Region:      req.Region,
			Side:        req.Side,
		}

		switch col.Status {
		case hexgrid.StatusHasData:
			h.Color = colormap.Hex(cmap.MapValue(col.Value, vr.Min, vr.Max))
		case hexgrid.StatusNoData:
			h.Color = colormap.Hex(colormap.White)
		case hexgrid.StatusNotInRegion:
			h.Color = colormap.Hex(colormap.DarkGray)
		}

		if col.Status == hexgrid.StatusHasData && len(col.LayerValues) > 0 {
			h.LayerColors = make([]string, len(col.LayerValues))
			for i, v := range col.LayerValues {
				if v > 0 {
					h.LayerColors[i] = colormap.Hex(cmap.MapValue(v, layerMin, layerMax))
				} else {
					h.LayerColors[i] = colormap.Hex(colormap.White)
				}
			}
		}

		hexagons = append(hexagons, h)
	}
	return hexagons
}

// CacheStats exposes cache statistics for the stats endpoint.
func (s *GridService) CacheStats() map[string]interface{} {
	return s.cache.Stats()
}

// ClearCache invalidates the whole performance cache.
func (s *GridService) ClearCache() error {
	return s.cache.Clear()
}

// gridMeta builds the description strings used for titles and filenames.
func gridMeta(neuronType string, key GridKey) render.Meta {
	plot := "Synapses (All Columns)"
	if key.Metric == hexgrid.MetricCellCount {
		plot = "Cell Count (All Columns)"
	}
	short := key.Side.Short()
	return render.Meta{
		PlotDesc:   plot,
		NeuronDesc: fmt.Sprintf("%s (%s)", key.Region, short),
		RegionDesc: fmt.Sprintf("%s (%s)", neuronType, short),
	}
}

// thresholdsFor picks a region's thresholds, defaulting to the unit range
// when the table has no entry.
func thresholdsFor(table map[string][2]float64, region string) [2]float64 {
	if t, ok := table[region]; ok {
		return t
	}
	return [2]float64{0, 1}
}

// regionsOf returns the distinct regions of a lattice in sorted order.
func regionsOf(lattice []hexgrid.PossibleColumn) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range lattice {
		region := lattice[i].Region
		if _, ok := seen[region]; !ok {
			seen[region] = struct{}{}
			out = append(out, region)
		}
	}
	sort.Strings(out)
	return out
}
