// Package columns provides a reader for on-disk column datasets: the
// per-region lattices, per-region thresholds, and the per-neuron-type
// observation files produced by the upstream connectome export.
package columns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/eyemap-vis/server/internal/hexgrid"
)

// Reader provides access to one column dataset directory. Layout:
//
//	metadata.json              dataset metadata, lattices, thresholds
//	types/<neuron_type>.json.zst   observation records for one neuron type
type Reader struct {
	basePath string
	metadata *Metadata
	mu       sync.RWMutex
	decoder  *zstd.Decoder

	// Cached observations per neuron type
	typeData map[string][]hexgrid.ColumnObservation
}

// Metadata contains dataset metadata: the full lattice of possible columns
// per region and the per-region color thresholds.
type Metadata struct {
	DatasetName string                      `json:"dataset_name"`
	Regions     []string                    `json:"regions"`
	Lattices    map[string][]latticeCoord   `json:"lattices"`
	Thresholds  map[string][2]float64       `json:"thresholds"`
	MinMax      *hexgrid.RegionMinMax       `json:"min_max,omitempty"`
	NeuronTypes []string                    `json:"neuron_types,omitempty"`
	LayerCounts map[string]int              `json:"layer_counts,omitempty"`
}

type latticeCoord struct {
	Hex1 int `json:"hex1"`
	Hex2 int `json:"hex2"`
}

// NewReader creates a dataset reader and loads metadata eagerly so a broken
// dataset fails at startup.
func NewReader(basePath string) (*Reader, error) {
	metaPath := filepath.Join(basePath, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset metadata: %w", err)
	}

	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse dataset metadata: %w", err)
	}
	if len(md.Lattices) == 0 {
		return nil, fmt.Errorf("dataset %s has no region lattices", basePath)
	}
	if len(md.Regions) == 0 {
		for region := range md.Lattices {
			md.Regions = append(md.Regions, region)
		}
		sort.Strings(md.Regions)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Reader{
		basePath: basePath,
		metadata: &md,
		decoder:  decoder,
		typeData: make(map[string][]hexgrid.ColumnObservation),
	}, nil
}

// Metadata returns the dataset metadata.
func (r *Reader) Metadata() *Metadata {
	return r.metadata
}

// PossibleColumns returns the full lattice across all regions, in a stable
// region-then-coordinate order.
func (r *Reader) PossibleColumns() []hexgrid.PossibleColumn {
	var out []hexgrid.PossibleColumn
	for _, region := range r.metadata.Regions {
		for _, c := range r.metadata.Lattices[region] {
			out = append(out, hexgrid.PossibleColumn{Region: region, Hex1: c.Hex1, Hex2: c.Hex2})
		}
	}
	return out
}

// Thresholds returns the per-region threshold table.
func (r *Reader) Thresholds() map[string][2]float64 {
	return r.metadata.Thresholds
}

// Observations loads the observation records for one neuron type. Results
// are cached; repeated calls for the same type return the cached slice.
func (r *Reader) Observations(neuronType string) ([]hexgrid.ColumnObservation, error) {
	r.mu.RLock()
	if obs, ok := r.typeData[neuronType]; ok {
		r.mu.RUnlock()
		return obs, nil
	}
	r.mu.RUnlock()

	path := filepath.Join(r.basePath, "types", typeFilename(neuronType))
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read observations for %s: %w", neuronType, err)
	}

	raw, err := r.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress observations for %s: %w", neuronType, err)
	}

	var obs []hexgrid.ColumnObservation
	if err := json.Unmarshal(raw, &obs); err != nil {
		return nil, fmt.Errorf("failed to parse observations for %s: %w", neuronType, err)
	}

	r.mu.Lock()
	r.typeData[neuronType] = obs
	r.mu.Unlock()
	return obs, nil
}

// NeuronTypes lists the neuron types available in the dataset. The metadata
// list wins when present; otherwise the types directory is scanned.
func (r *Reader) NeuronTypes() ([]string, error) {
	if len(r.metadata.NeuronTypes) > 0 {
		return r.metadata.NeuronTypes, nil
	}

	entries, err := os.ReadDir(filepath.Join(r.basePath, "types"))
	if err != nil {
		return nil, fmt.Errorf("failed to list neuron types: %w", err)
	}

	var types []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".json.zst") {
			types = append(types, strings.TrimSuffix(name, ".json.zst"))
		}
	}
	sort.Strings(types)
	return types, nil
}

// Close releases the decoder.
func (r *Reader) Close() {
	r.decoder.Close()
}

func typeFilename(neuronType string) string {
	return strings.ReplaceAll(neuronType, "/", "_") + ".json.zst"
}
