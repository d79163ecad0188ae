package server

import (
	"sync"
	"time"

	"github.com/nao1215/attrguard/internal/model"
)

// JobStatus is the lifecycle state of a background scan.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"
)

// Job is the externally visible state of one background scan.
type Job struct {
	ID            string             `json:"scanId"`
	Status        JobStatus          `json:"status"`
	Progress      int                `json:"progress"`
	Total         int                `json:"total"`
	StartTime     time.Time          `json:"startTime"`
	EndTime       *time.Time         `json:"endTime,omitempty"`
	Results       []model.URLResult  `json:"results"`
	CSVFile       string             `json:"csvFile,omitempty"`
	TotalThreats  int                `json:"totalThreats"`
	ScannerType   model.ProviderKind `json:"scanner_type,omitempty"`
	ScannerStatus string             `json:"scanner_status,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// finish records the outcome of the scan on the job.
func (j *Job) finish(out model.Outcome, at time.Time) {
	j.EndTime = &at
	if !out.OK() {
		j.Status = JobError
		if out.Err != nil {
			j.Error = out.Err.Message
		} else {
			j.Error = model.ErrEmptyOutcome.Error()
		}
		return
	}

	rep := out.Report
	j.Status = JobCompleted
	j.Progress = 100
	j.Results = rep.Results
	j.CSVFile = rep.ReportPath
	j.TotalThreats = rep.TotalThreats
	j.ScannerType = rep.ProviderKind
	j.ScannerStatus = rep.ProviderStatus
	j.Warnings = rep.Warnings
}

// JobStore is an in-memory, concurrency-safe job registry.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Put stores a job, replacing any job with the same ID.
func (s *JobStore) Put(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = &job
}

// Get returns a copy of the job with the given ID.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Update applies fn to the stored job. It reports false when the job is gone,
// which happens when it was evicted while the scan was still running.
func (s *JobStore) Update(id string, fn func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	return true
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Evict removes jobs started more than ttl before now and returns their IDs.
func (s *JobStore) Evict(now time.Time, ttl time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, job := range s.jobs {
		if now.Sub(job.StartTime) > ttl {
			delete(s.jobs, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
