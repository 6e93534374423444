// Package jobs defines the async advice-generation job and the queue
// abstractions it travels through. Advice is slow (a remote model call), so
// the API enqueues a job and lets clients poll for the result.
package jobs

import (
	"context"
	"time"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// AdviceJob asks for budgeting advice over the user's current snapshot. The
// worker fills Advice on completion; per the advice-service contract a model
// failure still completes the job, with the fallback text as the result.
type AdviceJob struct {
	JobID  string    `json:"job_id"`
	UserID string    `json:"user_id"`
	Status JobStatus `json:"status"`

	Advice string `json:"advice,omitempty"`
	Error  string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Publisher enqueues advice jobs.
type Publisher interface {
	PublishAdvice(ctx context.Context, job *AdviceJob) error
	Close() error
}

// Handler processes one advice job. The returned advice is stored on the
// job; an error marks the job failed.
type Handler func(ctx context.Context, job *AdviceJob) (string, error)

// Consumer drains the queue with a pool of workers.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// JobStore tracks job state so clients can poll results.
type JobStore interface {
	SaveJob(ctx context.Context, job *AdviceJob) error
	GetJob(ctx context.Context, jobID string) (*AdviceJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*AdviceJob, error)
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
}
