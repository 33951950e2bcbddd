package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/eyemap-vis/server/internal/data/columns"
	"github.com/eyemap-vis/server/internal/hexgrid"
	"github.com/eyemap-vis/server/internal/jobstore"
	"github.com/eyemap-vis/server/internal/render"
	"github.com/eyemap-vis/server/internal/service"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Service     *service.GridService
	Reader      *columns.Reader
	CORSOrigins []string
	JobManager  *JobManager
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/metadata", metadataHandler(cfg.Reader))
		r.Get("/regions", regionsHandler(cfg.Reader))
		r.Get("/neuron-types", neuronTypesHandler(cfg.Reader))
		r.Get("/thresholds", thresholdsHandler(cfg.Reader))

		// Synchronous generation for one neuron type
		r.Post("/eyemaps", generateHandler(cfg.Service, cfg.Reader))

		// Direct artifact endpoint: one region/side/metric grid
		r.Get("/eyemaps/{neuron_type}/{region}/{side}/{metric}", gridHandler(cfg.Service, cfg.Reader))

		// Batch job endpoints
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobSubmitHandler(cfg.JobManager))
			r.Get("/", jobListHandler(cfg.JobManager))
			r.Get("/{job_id}", jobStatusHandler(cfg.JobManager))
			r.Get("/{job_id}/results", jobResultsHandler(cfg.JobManager))
			r.Delete("/{job_id}", jobCancelHandler(cfg.JobManager))
		})

		r.Get("/cache/stats", cacheStatsHandler(cfg.Service))
		r.Post("/cache/clear", cacheClearHandler(cfg.Service))
	})

	return r
}

// encodeArtifact returns embeddable content: SVG markup as-is, PNG bytes
// base64-encoded.
func encodeArtifact(art service.Artifact) string {
	if art.Format == render.FormatPNG {
		return base64.StdEncoding.EncodeToString(art.Content)
	}
	return string(art.Content)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func metadataHandler(reader *columns.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		md := reader.Metadata()
		types, err := reader.NeuronTypes()
		if err != nil {
			http.Error(w, "failed to list neuron types: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"dataset_name":   md.DatasetName,
			"regions":        md.Regions,
			"n_neuron_types": len(types),
			"n_columns":      len(reader.PossibleColumns()),
		})
	}
}

func regionsHandler(reader *columns.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"regions": reader.Metadata().Regions,
		})
	}
}

func neuronTypesHandler(reader *columns.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := reader.NeuronTypes()
		if err != nil {
			http.Error(w, "failed to list neuron types: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"neuron_types": types,
			"total":        len(types),
		})
	}
}

func thresholdsHandler(reader *columns.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reader.Thresholds())
	}
}

type generateRequest struct {
	NeuronType  string   `json:"neuron_type"`
	Side        string   `json:"side"`
	Metrics     []string `json:"metrics"`
	Format      string   `json:"format"`
	SaveToFiles bool     `json:"save_to_files"`
}

type gridArtifact struct {
	Region  string `json:"region"`
	Side    string `json:"side"`
	Metric  string `json:"metric"`
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`
}

// generateHandler renders eyemaps for one neuron type across all regions of
// the dataset lattice, either embedded in the response or saved to disk.
func generateHandler(svc *service.GridService, reader *columns.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.NeuronType) == "" {
			http.Error(w, "neuron_type is required", http.StatusBadRequest)
			return
		}

		side, err := hexgrid.ParseSide(req.Side)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format := render.FormatSVG
		if req.Format != "" {
			format, err = render.ParseFormat(req.Format)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		var metrics []hexgrid.MetricType
		for _, m := range req.Metrics {
			metric, err := hexgrid.ParseMetric(m)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			metrics = append(metrics, metric)
		}

		observations, err := reader.Observations(req.NeuronType)
		if err != nil {
			http.Error(w, "neuron type not found: "+req.NeuronType, http.StatusNotFound)
			return
		}

		result := svc.GenerateGrids(service.GridGenerationRequest{
			NeuronType:   req.NeuronType,
			Observations: observations,
			Lattice:      reader.PossibleColumns(),
			Thresholds:   reader.Thresholds(),
			Side:         side,
			Metrics:      metrics,
			Format:       format,
			SaveToFiles:  req.SaveToFiles,
			MinMax:       reader.Metadata().MinMax,
		})

		if !result.Success {
			http.Error(w, result.ErrorMessage, http.StatusBadRequest)
			return
		}

		grids := make([]gridArtifact, 0, len(result.Grids))
		for key, art := range result.Grids {
			item := gridArtifact{
				Region: key.Region,
				Side:   string(key.Side),
				Metric: string(key.Metric),
				Format: string(art.Format),
				Path:   art.Path,
			}
			if art.Path == "" {
				item.Content = encodeArtifact(art)
			}
			grids = append(grids, item)
		}

		writeJSON(w, map[string]interface{}{
			"success":            true,
			"neuron_type":        req.NeuronType,
			"processing_time_ms": result.ProcessingTime.Milliseconds(),
			"warnings":           result.Warnings,
			"grids":              grids,
		})
	}
}

// gridHandler serves a single rendered grid as an image response.
func gridHandler(svc *service.GridService, reader *columns.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		neuronType := chi.URLParam(r, "neuron_type")
		region := chi.URLParam(r, "region")

		side, err := hexgrid.ParseSide(chi.URLParam(r, "side"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if side == hexgrid.SideCombined {
			http.Error(w, "side must be left or right", http.StatusBadRequest)
			return
		}
		metric, err := hexgrid.ParseMetric(chi.URLParam(r, "metric"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		format := render.FormatSVG
		if f := r.URL.Query().Get("format"); f != "" {
			format, err = render.ParseFormat(f)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		observations, err := reader.Observations(neuronType)
		if err != nil {
			http.Error(w, "neuron type not found: "+neuronType, http.StatusNotFound)
			return
		}

		lattice := reader.PossibleColumns()
		thresholds := [2]float64{0, 1}
		if t, ok := reader.Thresholds()[region]; ok {
			thresholds = t
		}

		data, err := svc.GenerateSingleRegionGrid(service.SingleRegionGridRequest{
			NeuronType:   neuronType,
			Region:       region,
			Side:         side,
			Metric:       metric,
			Lattice:      lattice,
			RegionCoords: hexgrid.LatticeCoords(lattice, region),
			Observed:     hexgrid.ObservationsByCoord(observations, region, side),
			Thresholds:   thresholds,
			MinMax:       reader.Metadata().MinMax,
			Format:       format,
		})
		if err != nil {
			status := http.StatusInternalServerError
			var verr *hexgrid.ValidationError
			var derr *hexgrid.DataProcessingError
			if errors.As(err, &verr) {
				status = http.StatusBadRequest
			} else if errors.As(err, &derr) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}

		if format == render.FormatPNG {
			w.Header().Set("Content-Type", "image/png")
		} else {
			w.Header().Set("Content-Type", "image/svg+xml")
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}

// Job handlers

type jobSubmitRequest struct {
	NeuronTypes []string `json:"neuron_types"`
	Side        string   `json:"side"`
	Metrics     []string `json:"metrics"`
	Format      string   `json:"format"`
	SaveToFiles bool     `json:"save_to_files"`
}

func jobSubmitHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		var req jobSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		if len(req.NeuronTypes) == 0 {
			http.Error(w, "neuron_types is required (at least one)", http.StatusBadRequest)
			return
		}
		if req.Side == "" {
			req.Side = string(hexgrid.SideCombined)
		}
		if _, err := hexgrid.ParseSide(req.Side); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Format == "" {
			req.Format = string(render.FormatSVG)
		}
		if _, err := render.ParseFormat(req.Format); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, m := range req.Metrics {
			if _, err := hexgrid.ParseMetric(m); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		job, err := jm.Submit(jobstore.JobParams{
			NeuronTypes: req.NeuronTypes,
			Side:        req.Side,
			Metrics:     req.Metrics,
			Format:      req.Format,
			SaveToFiles: req.SaveToFiles,
		})
		if err != nil {
			http.Error(w, "failed to submit job: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"job_id": job.ID,
			"status": job.Status,
		})
	}
}

func jobListHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobs, err := jm.Store().ListJobs()
		if err != nil {
			http.Error(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"jobs":  jobs,
			"total": len(jobs),
		})
	}
}

func jobStatusHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobID := chi.URLParam(r, "job_id")
		job := jm.Get(jobID)
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		writeJSON(w, map[string]interface{}{
			"job_id":      job.ID,
			"status":      job.Status,
			"params":      job.Params,
			"progress":    job.Progress,
			"created_at":  job.CreatedAt,
			"started_at":  job.StartedAt,
			"finished_at": job.FinishedAt,
			"error":       job.Error,
		})
	}
}

func jobResultsHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobID := chi.URLParam(r, "job_id")
		job := jm.Get(jobID)
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		if job.Status != jobstore.JobStatusCompleted {
			http.Error(w, "job not completed (status: "+string(job.Status)+")", http.StatusBadRequest)
			return
		}

		offset := 0
		limit := 100
		if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
			if v, err := strconv.Atoi(offsetStr); err == nil && v >= 0 {
				offset = v
			}
		}
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
				limit = v
				if limit > 1000 {
					limit = 1000
				}
			}
		}

		items, total, err := jm.Store().QueryResults(jobID, offset, limit)
		if err != nil {
			http.Error(w, "failed to query results: "+err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"params": job.Params,
			"total":  total,
			"offset": offset,
			"limit":  limit,
			"items":  items,
		})
	}
}

func jobCancelHandler(jm *JobManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jm == nil {
			http.Error(w, "job manager not configured", http.StatusNotImplemented)
			return
		}

		jobID := chi.URLParam(r, "job_id")
		job := jm.Get(jobID)
		if job == nil {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}

		jm.Cancel(jobID)

		writeJSON(w, map[string]interface{}{
			"job_id":    jobID,
			"cancelled": true,
		})
	}
}

func cacheStatsHandler(svc *service.GridService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.CacheStats())
	}
}

func cacheClearHandler(svc *service.GridService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearCache(); err != nil {
			http.Error(w, "failed to clear cache: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{"cleared": true})
	}
}
