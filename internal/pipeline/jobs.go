package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an index rebuild job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusLoading   JobStatus = "loading"
	StatusChunking  JobStatus = "chunking"
	StatusIndexing  JobStatus = "indexing"
	StatusCompleted JobStatus = "completed"
	StatusUnchanged JobStatus = "unchanged"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusUnchanged || s == StatusFailed
}

// Job tracks the state of a single index rebuild.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Force  bool      `json:"force"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CorpusHash string    `json:"corpus_hash,omitempty"`
	IndexID    string    `json:"index_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Internal: not serialized.
	errors []string
	done   chan struct{}
}

// Progress tracks processing progress.
type Progress struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Errors    []string `json:"errors"`
}

// NewJob returns a queued job with a fresh ID.
func NewJob(force bool) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Force:     force,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		done:      make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs not updated within the TTL. Queued and
// running jobs are kept however old they are.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically. Reaching a terminal status
// releases Wait.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if status.Terminal() && j.done != nil {
		close(j.done)
	}
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetDocuments records how many corpus documents were loaded.
func (j *Job) SetDocuments(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Documents = n
	j.UpdatedAt = time.Now()
}

// SetChunks records how many chunks were produced.
func (j *Job) SetChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Chunks = n
	j.UpdatedAt = time.Now()
}

// SetResult records the corpus hash and the live index ID.
func (j *Job) SetResult(corpusHash, indexID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.CorpusHash = corpusHash
	j.IndexID = indexID
	j.UpdatedAt = time.Now()
}

// Wait blocks until the job reaches a terminal status or ctx ends.
func (j *Job) Wait(ctx context.Context) bool {
	if j.done == nil {
		return false
	}
	select {
	case <-j.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"job_id"`
	Force      bool      `json:"force"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Progress   Progress  `json:"progress"`
	CorpusHash string    `json:"corpus_hash,omitempty"`
	IndexID    string    `json:"index_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:     j.ID,
		Force:  j.Force,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			Documents: j.Progress.Documents,
			Chunks:    j.Progress.Chunks,
			Errors:    errs,
		},
		CorpusHash: j.CorpusHash,
		IndexID:    j.IndexID,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}
