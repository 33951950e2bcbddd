package jobstore

import (
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "jobs.sqlite"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testJob(id string) *Job {
	return &Job{
		ID:     id,
		Status: JobStatusQueued,
		Params: JobParams{
			NeuronTypes: []string{"Tm1", "Mi1"},
			Side:        "combined",
			Format:      "svg",
			SaveToFiles: true,
		},
		Progress:  JobProgress{Total: 2},
		CreatedAt: time.Now(),
	}
}

func TestJobLifecycle(t *testing.T) {
	s := testStore(t)

	if err := s.CreateJob(testJob("job1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	job, err := s.GetJob("job1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if job == nil {
		t.Fatal("job not found after create")
	}
	if job.Status != JobStatusQueued {
		t.Errorf("expected queued, got %s", job.Status)
	}
	if len(job.Params.NeuronTypes) != 2 || job.Params.NeuronTypes[0] != "Tm1" {
		t.Errorf("params not round-tripped: %+v", job.Params)
	}
	if !job.Params.SaveToFiles {
		t.Error("save_to_files not round-tripped")
	}
	if job.StartedAt != nil || job.FinishedAt != nil {
		t.Error("queued job should have no start or finish time")
	}

	if err := s.UpdateJobStarted("job1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	job, _ = s.GetJob("job1")
	if job.Status != JobStatusRunning || job.StartedAt == nil {
		t.Errorf("unexpected running state %+v", job)
	}

	if err := s.UpdateJobProgress("job1", "Tm1", 1, 2); err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	job, _ = s.GetJob("job1")
	if job.Progress.Phase != "Tm1" || job.Progress.Done != 1 || job.Progress.Total != 2 {
		t.Errorf("unexpected progress %+v", job.Progress)
	}

	if err := s.UpdateJobStatus("job1", JobStatusCompleted, ""); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	job, _ = s.GetJob("job1")
	if job.Status != JobStatusCompleted || job.FinishedAt == nil {
		t.Errorf("unexpected completed state %+v", job)
	}
}

func TestGetJobMissing(t *testing.T) {
	s := testStore(t)

	job, err := s.GetJob("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job != nil {
		t.Fatal("missing job should return nil, nil")
	}
}

func TestResults(t *testing.T) {
	s := testStore(t)
	if err := s.CreateJob(testJob("job1")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	results := []*GridResult{
		{NeuronType: "Tm1", Region: "ME", Side: "left", Metric: "synapse_density", Path: "/out/a.svg"},
		{NeuronType: "Tm1", Region: "ME", Side: "right", Metric: "synapse_density", Path: "/out/b.svg"},
		{NeuronType: "Mi1", Side: "combined", Warning: "failed to load observations"},
	}
	if err := s.InsertResults("job1", results); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	items, total, err := s.QueryResults("job1", 0, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("expected 3 results, got %d/%d", len(items), total)
	}
	// Ordered by neuron type first.
	if items[0].NeuronType != "Mi1" || items[0].Warning == "" {
		t.Errorf("unexpected first result %+v", items[0])
	}

	// Pagination.
	items, total, err = s.QueryResults("job1", 1, 1)
	if err != nil {
		t.Fatalf("paginated query failed: %v", err)
	}
	if total != 3 || len(items) != 1 {
		t.Fatalf("expected 1 of 3 results, got %d/%d", len(items), total)
	}
}

func TestMarkRunningAsFailed(t *testing.T) {
	s := testStore(t)

	s.CreateJob(testJob("running"))
	s.UpdateJobStarted("running")
	s.CreateJob(testJob("queued"))

	if err := s.MarkRunningAsFailed("server restarted"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	job, _ := s.GetJob("running")
	if job.Status != JobStatusFailed || job.Error != "server restarted" {
		t.Errorf("running job not failed: %+v", job)
	}
	job, _ = s.GetJob("queued")
	if job.Status != JobStatusQueued {
		t.Errorf("queued job must be untouched: %+v", job)
	}

	queued, err := s.ListQueuedJobs()
	if err != nil {
		t.Fatalf("list queued failed: %v", err)
	}
	if len(queued) != 1 || queued[0].ID != "queued" {
		t.Fatalf("unexpected queued list %v", queued)
	}
}

func TestDeleteJob(t *testing.T) {
	s := testStore(t)

	s.CreateJob(testJob("job1"))
	s.InsertResults("job1", []*GridResult{{NeuronType: "Tm1", Region: "ME", Side: "left", Metric: "cell_count"}})

	if err := s.DeleteJob("job1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	job, _ := s.GetJob("job1")
	if job != nil {
		t.Fatal("job survived delete")
	}
	_, total, err := s.QueryResults("job1", 0, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("results survived delete: %d", total)
	}
}

func TestListJobs(t *testing.T) {
	s := testStore(t)

	a := testJob("older")
	a.CreatedAt = time.Now().Add(-time.Hour)
	s.CreateJob(a)
	s.CreateJob(testJob("newer"))

	jobs, err := s.ListJobs()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "newer" {
		t.Errorf("expected newest first, got %s", jobs[0].ID)
	}
}

func TestDeleteExpiredJobs(t *testing.T) {
	s := testStore(t)

	s.CreateJob(testJob("old"))
	s.UpdateJobStatus("old", JobStatusCompleted, "")
	s.CreateJob(testJob("fresh"))

	// Nothing is older than one day yet.
	deleted, err := s.DeleteExpiredJobs(1)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected no deletions, got %d", deleted)
	}

	// Negative retention puts the cutoff in the future, so every finished
	// job has expired.
	deleted, err = s.DeleteExpiredJobs(-1)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}
	if job, _ := s.GetJob("fresh"); job == nil {
		t.Fatal("unfinished job must survive cleanup")
	}
}
