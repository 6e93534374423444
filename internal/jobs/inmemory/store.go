package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ycchuang/moneybook/internal/jobs"
)

// Store keeps advice jobs in memory; state is lost on restart, which is
// acceptable because a lost advice request is simply re-asked.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.AdviceJob
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.AdviceJob)}
}

func (s *Store) SaveJob(ctx context.Context, job *jobs.AdviceJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.AdviceJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	jobCopy := *job
	return &jobCopy, nil
}

func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.AdviceJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.AdviceJob
	for _, job := range s.jobs {
		if filter.UserID != "" && job.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)
