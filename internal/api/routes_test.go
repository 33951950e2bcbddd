package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/eyemap-vis/server/internal/cache"
	"github.com/eyemap-vis/server/internal/data/columns"
	"github.com/eyemap-vis/server/internal/hexgrid"
	"github.com/eyemap-vis/server/internal/output"
	"github.com/eyemap-vis/server/internal/render"
	"github.com/eyemap-vis/server/internal/service"
)

func writeTestDataset(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	meta := map[string]interface{}{
		"dataset_name": "test-columns",
		"lattices": map[string][]map[string]int{
			"ME": {
				{"hex1": 0, "hex2": 0},
				{"hex1": 1, "hex2": 0},
			},
		},
		"thresholds": map[string][2]float64{"ME": {0, 20}},
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("failed to marshal metadata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "metadata.json"), raw, 0o644); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}

	obs := []hexgrid.ColumnObservation{
		{Region: "ME", Hex1: 0, Hex2: 0, Side: hexgrid.SideLeft, SynapseCount: 9, NeuronCount: 2},
	}
	obsRaw, err := json.Marshal(obs)
	if err != nil {
		t.Fatalf("failed to marshal observations: %v", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("failed to create zstd encoder: %v", err)
	}
	compressed := enc.EncodeAll(obsRaw, nil)
	enc.Close()

	typesDir := filepath.Join(base, "types")
	if err := os.MkdirAll(typesDir, 0o755); err != nil {
		t.Fatalf("failed to create types dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(typesDir, "Tm1.json.zst"), compressed, 0o644); err != nil {
		t.Fatalf("failed to write observations: %v", err)
	}
	return base
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	reader, err := columns.NewReader(writeTestDataset(t))
	if err != nil {
		t.Fatalf("failed to open dataset: %v", err)
	}
	t.Cleanup(reader.Close)

	cacheManager, err := cache.NewManager(cache.Config{
		ArtifactCacheSizeMB: 16,
		ArtifactTTL:         1 * time.Minute,
		ColumnsCacheSize:    16,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { cacheManager.Close() })

	renderer, err := render.NewRenderer(render.Config{HexSize: 6, SpacingFactor: 1.1, Margin: 10, Colormap: "reds"})
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}

	svc := service.NewGridService(service.GridServiceConfig{
		Renderer: renderer,
		Cache:    cacheManager,
		Writer:   output.NewWriter(t.TempDir()),
	})

	jobManager, err := NewJobManager(JobManagerConfig{
		SQLitePath: filepath.Join(t.TempDir(), "jobs.sqlite"),
	})
	if err != nil {
		t.Fatalf("failed to create job manager: %v", err)
	}
	t.Cleanup(func() { jobManager.Store().Close() })

	return NewRouter(RouterConfig{
		Service:     svc,
		Reader:      reader,
		CORSOrigins: []string{"*"},
		JobManager:  jobManager,
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMetadataEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/metadata", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["dataset_name"] != "test-columns" {
		t.Errorf("unexpected dataset name %v", body["dataset_name"])
	}
	if body["n_neuron_types"] != float64(1) {
		t.Errorf("unexpected neuron type count %v", body["n_neuron_types"])
	}
}

func TestNeuronTypesEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/neuron-types", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		NeuronTypes []string `json:"neuron_types"`
		Total       int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Total != 1 || len(body.NeuronTypes) != 1 || body.NeuronTypes[0] != "Tm1" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	router := testRouter(t)

	payload := `{"neuron_type":"Tm1","side":"left","metrics":["synapse_density"],"format":"svg"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/eyemaps", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool `json:"success"`
		Grids   []struct {
			Region  string `json:"region"`
			Side    string `json:"side"`
			Metric  string `json:"metric"`
			Content string `json:"content"`
		} `json:"grids"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.Success {
		t.Fatal("expected success")
	}
	if len(body.Grids) != 1 {
		t.Fatalf("expected 1 grid, got %d (warnings %v)", len(body.Grids), body.Warnings)
	}
	g := body.Grids[0]
	if g.Region != "ME" || g.Side != "left" || g.Metric != "synapse_density" {
		t.Errorf("unexpected grid %+v", g)
	}
	if !strings.Contains(g.Content, "<svg") {
		t.Error("embedded SVG content missing")
	}
}

func TestGenerateEndpointValidation(t *testing.T) {
	router := testRouter(t)

	t.Run("missingNeuronType", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/eyemaps", bytes.NewReader([]byte(`{"side":"left"}`)))
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknownNeuronType", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/eyemaps", strings.NewReader(`{"neuron_type":"Nope","side":"left"}`))
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("badSide", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/eyemaps", strings.NewReader(`{"neuron_type":"Tm1","side":"dorsal"}`))
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGridEndpoint(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/eyemaps/Tm1/ME/left/synapse_density", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "data-status=") {
		t.Error("response does not look like an eyemap SVG")
	}

	t.Run("combinedRejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/eyemaps/Tm1/ME/combined/synapse_density", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknownRegion", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/eyemaps/Tm1/XX/left/synapse_density", nil))
		if rec.Code == http.StatusOK {
			t.Fatal("unknown region should not render")
		}
	})
}

func TestJobEndpoints(t *testing.T) {
	router := testRouter(t)

	// Submit without starting workers: the job stays queued.
	payload := `{"neuron_types":["Tm1"],"side":"left","format":"svg","save_to_files":true}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/jobs/", strings.NewReader(payload)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var submitted struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if submitted.JobID == "" || submitted.Status != "queued" {
		t.Fatalf("unexpected submit response %+v", submitted)
	}

	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs/"+submitted.JobID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var status struct {
			Status   string `json:"status"`
			Progress struct {
				Total int `json:"total"`
			} `json:"progress"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if status.Status != "queued" || status.Progress.Total != 1 {
			t.Fatalf("unexpected status %+v", status)
		}
	})

	t.Run("resultsBeforeCompletion", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs/"+submitted.JobID+"/results", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for incomplete job, got %d", rec.Code)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/jobs/"+submitted.JobID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missingJob", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs/deadbeef00000000", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("emptySubmit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/jobs/", strings.NewReader(`{}`)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCacheEndpoints(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/cache/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if stats["enabled"] != true {
		t.Errorf("cache should report enabled, got %v", stats)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/cache/clear", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
