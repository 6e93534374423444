package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ycchuang/moneybook/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.AdviceJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s never reached status %s", jobID, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQueueCompletesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()
	ctx := context.Background()

	handler := func(ctx context.Context, job *jobs.AdviceJob) (string, error) {
		return "advice for " + job.UserID, nil
	}
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.AdviceJob{UserID: "user-1"}
	if err := q.PublishAdvice(ctx, job); err != nil {
		t.Fatalf("PublishAdvice failed: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("expected PublishAdvice to assign a job id")
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.Advice != "advice for user-1" {
		t.Errorf("Advice = %q, want handler output", done.Advice)
	}
	if done.Error != "" {
		t.Errorf("Error = %q, want empty", done.Error)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("expected started and completed timestamps to be set")
	}
}

func TestQueueMarksFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()
	ctx := context.Background()

	handler := func(ctx context.Context, job *jobs.AdviceJob) (string, error) {
		return "", errors.New("snapshot unavailable")
	}
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.AdviceJob{UserID: "user-1"}
	if err := q.PublishAdvice(ctx, job); err != nil {
		t.Fatalf("PublishAdvice failed: %v", err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.Error != "snapshot unavailable" {
		t.Errorf("Error = %q, want handler error", failed.Error)
	}
	if failed.Advice != "" {
		t.Errorf("Advice = %q, want empty on failure", failed.Advice)
	}
}

func TestQueueRejectsPublishAfterStop(t *testing.T) {
	q := NewQueue(1, NewStore())
	ctx := context.Background()

	if err := q.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if err := q.PublishAdvice(ctx, &jobs.AdviceJob{UserID: "user-1"}); err == nil {
		t.Error("expected PublishAdvice to fail on a stopped queue")
	}
	if err := q.Start(ctx, nil); err == nil {
		t.Error("expected Start to fail on a stopped queue")
	}
}

func TestStopWaitsForInFlightJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	handler := func(ctx context.Context, job *jobs.AdviceJob) (string, error) {
		close(started)
		<-release
		return "done", nil
	}
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.AdviceJob{UserID: "user-1"}
	if err := q.PublishAdvice(ctx, job); err != nil {
		t.Fatalf("PublishAdvice failed: %v", err)
	}
	<-started

	stopErr := make(chan error, 1)
	go func() { stopErr <- q.Stop(context.Background()) }()

	select {
	case err := <-stopErr:
		t.Fatalf("Stop returned %v before the in-flight job finished", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-stopErr:
		if err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned after the job finished")
	}
	waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.AdviceJob{JobID: "j1", UserID: "user-1", Status: jobs.JobStatusPending, CreatedAt: time.Now()}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, err := store.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	got.Status = jobs.JobStatusFailed
	again, _ := store.GetJob(ctx, "j1")
	if again.Status != jobs.JobStatusPending {
		t.Error("mutating a returned job leaked back into the store")
	}

	if err := store.SaveJob(ctx, &jobs.AdviceJob{}); err == nil {
		t.Error("expected SaveJob to reject a missing job id")
	}
	if _, err := store.GetJob(ctx, "missing"); err == nil {
		t.Error("expected GetJob to fail for an unknown id")
	}
}

func TestStoreListFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Now()

	seed := []*jobs.AdviceJob{
		{JobID: "a", UserID: "u1", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(1 * time.Second)},
		{JobID: "b", UserID: "u1", Status: jobs.JobStatusPending, CreatedAt: base.Add(2 * time.Second)},
		{JobID: "c", UserID: "u2", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(3 * time.Second)},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	byUser, _ := store.ListJobs(ctx, jobs.JobFilter{UserID: "u1"})
	if len(byUser) != 2 {
		t.Fatalf("user filter returned %d jobs, want 2", len(byUser))
	}
	// Newest first.
	if byUser[0].JobID != "b" || byUser[1].JobID != "a" {
		t.Errorf("order = %s,%s, want b,a", byUser[0].JobID, byUser[1].JobID)
	}

	byStatus, _ := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if len(byStatus) != 2 {
		t.Errorf("status filter returned %d jobs, want 2", len(byStatus))
	}

	limited, _ := store.ListJobs(ctx, jobs.JobFilter{Limit: 1})
	if len(limited) != 1 || limited[0].JobID != "c" {
		t.Errorf("limit filter = %v, want only the newest job c", limited)
	}
}
