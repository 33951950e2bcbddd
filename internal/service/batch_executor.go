package service

import (
	"context"
	"fmt"
	"log"

	"github.com/eyemap-vis/server/internal/data/columns"
	"github.com/eyemap-vis/server/internal/hexgrid"
	"github.com/eyemap-vis/server/internal/jobstore"
	"github.com/eyemap-vis/server/internal/render"
)

// BatchService runs persisted generation jobs: one job covers a list of
// neuron types, rendered with shared parameters.
type BatchService struct {
	grids  *GridService
	reader *columns.Reader
}

// NewBatchService creates a batch service.
func NewBatchService(grids *GridService, reader *columns.Reader) *BatchService {
	return &BatchService{grids: grids, reader: reader}
}

// ExecuteGenerationJob runs one batch job to completion, recording per-grid
// results and warnings in the store. Progress is counted in neuron types. A
// cancelled context stops between neuron types; the error return fails the
// whole job, so per-type problems are stored as warning rows instead.
func (b *BatchService) ExecuteGenerationJob(ctx context.Context, store *jobstore.Store, jobID string) error {
	job, err := store.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	side, err := hexgrid.ParseSide(job.Params.Side)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(job.Params.Format)
	if err != nil {
		return err
	}
	var metrics []hexgrid.MetricType
	for _, m := range job.Params.Metrics {
		metric, err := hexgrid.ParseMetric(m)
		if err != nil {
			return err
		}
		metrics = append(metrics, metric)
	}

	lattice := b.reader.PossibleColumns()
	thresholds := b.reader.Thresholds()
	minMax := b.reader.Metadata().MinMax
	total := len(job.Params.NeuronTypes)

	for i, neuronType := range job.Params.NeuronTypes {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := store.UpdateJobProgress(jobID, neuronType, i, total); err != nil {
			log.Printf("[BatchService] failed to update progress for job %s: %v", jobID, err)
		}

		observations, err := b.reader.Observations(neuronType)
		if err != nil {
			row := &jobstore.GridResult{
				NeuronType: neuronType,
				Side:       job.Params.Side,
				Warning:    fmt.Sprintf("failed to load observations: %v", err),
			}
			if err := store.InsertResults(jobID, []*jobstore.GridResult{row}); err != nil {
				log.Printf("[BatchService] failed to record warning for job %s: %v", jobID, err)
			}
			continue
		}

		result := b.grids.GenerateGrids(GridGenerationRequest{
			NeuronType:   neuronType,
			Observations: observations,
			Lattice:      lattice,
			Thresholds:   thresholds,
			Side:         side,
			Metrics:      metrics,
			Format:       format,
			SaveToFiles:  job.Params.SaveToFiles,
			MinMax:       minMax,
		})

		var rows []*jobstore.GridResult
		for key, art := range result.Grids {
			rows = append(rows, &jobstore.GridResult{
				NeuronType: neuronType,
				Region:     key.Region,
				Side:       string(key.Side),
				Metric:     string(key.Metric),
				Path:       art.Path,
			})
		}
		for _, warning := range result.Warnings {
			rows = append(rows, &jobstore.GridResult{
				NeuronType: neuronType,
				Side:       job.Params.Side,
				Warning:    warning,
			})
		}
		if !result.Success {
			rows = append(rows, &jobstore.GridResult{
				NeuronType: neuronType,
				Side:       job.Params.Side,
				Warning:    result.ErrorMessage,
			})
		}

		if len(rows) > 0 {
			if err := store.InsertResults(jobID, rows); err != nil {
				log.Printf("[BatchService] failed to record results for job %s: %v", jobID, err)
			}
		}
	}

	if err := store.UpdateJobProgress(jobID, "done", total, total); err != nil {
		log.Printf("[BatchService] failed to update progress for job %s: %v", jobID, err)
	}
	return nil
}
