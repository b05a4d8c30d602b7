package services

import (
	"sort"
	"sync"
	"time"

	"mediagrab/types"

	"github.com/google/uuid"
)

// JobStore is the canonical in-memory table of job state. All mutation goes
// through Update so a status poll never observes a half-written record.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*types.Job),
	}
}

// NewJobInput captures the immutable inputs of a job at creation time.
type NewJobInput struct {
	SourceURL string
	Quality   string
	Kind      types.MediaKind
	Title     string
	SessionID string
	StartTime *int
	EndTime   *int
}

// Create registers a new queued job and returns a snapshot of it.
func (s *JobStore) Create(input NewJobInput) types.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &types.Job{
		ID:        uuid.New().String(),
		Status:    types.JobStatusQueued,
		Progress:  0,
		Message:   "Task queued",
		SourceURL: input.SourceURL,
		Quality:   input.Quality,
		Kind:      input.Kind,
		Title:     input.Title,
		SessionID: input.SessionID,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		CreatedAt: time.Now(),
	}
	s.jobs[job.ID] = job
	return *job
}

// Get returns a copy of the job so callers cannot race with writers.
func (s *JobStore) Get(id string) (types.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return types.Job{}, false
	}
	return *job, true
}

// Update applies the mutator atomically. A missing id is a silent skip:
// deletion of a running job's record is advisory and the executor's final
// write must not fail because of it.
func (s *JobStore) Update(id string, mutate func(*types.Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	mutate(job)
	return true
}

// Delete removes a job record. Returns false when the id is unknown.
func (s *JobStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// List returns jobs newest-first, optionally filtered by status.
// A limit <= 0 means no limit.
func (s *JobStore) List(status types.JobStatus, limit int) []types.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]types.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, *job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}

// Count returns the number of records currently tracked.
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
