package state

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/ferry/internal/job"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Jobs        []job.Job // newest first
	LastUpdated time.Time
	Version     uint64
}

// Counts returns the number of jobs per status.
func (s Snapshot) Counts() map[job.Status]int {
	counts := make(map[job.Status]int, len(s.Jobs))
	for _, j := range s.Jobs {
		counts[j.Status]++
	}
	return counts
}

// Find returns the job with the given id.
func (s Snapshot) Find(id uuid.UUID) (job.Job, bool) {
	for _, j := range s.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return job.Job{}, false
}

// Store coordinates concurrent access to the session's job list.
type Store struct {
	mu      sync.RWMutex
	jobs    []job.Job
	updated time.Time
	version uint64
}

// Add places j at the front of the list.
func (s *Store) Add(j job.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append([]job.Job{j.Clone()}, s.jobs...)
	s.touch()
}

// Update applies fn to the job with the given id, in place. It returns the
// updated copy and false when no such job exists. Job timestamps are left to
// fn.
func (s *Store) Update(id uuid.UUID, fn func(*job.Job)) (job.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].ID != id {
			continue
		}
		fn(&s.jobs[i])
		s.touch()
		return s.jobs[i].Clone(), true
	}
	return job.Job{}, false
}

// Get returns a copy of the job with the given id.
func (s *Store) Get(id uuid.UUID) (job.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, j := range s.jobs {
		if j.ID == id {
			return j.Clone(), true
		}
	}
	return job.Job{}, false
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Jobs:        cloneJobs(s.jobs),
		LastUpdated: s.updated,
		Version:     s.version,
	}
}

func (s *Store) touch() {
	s.updated = time.Now()
	s.version++
}

func cloneJobs(jobs []job.Job) []job.Job {
	if len(jobs) == 0 {
		return nil
	}
	dup := make([]job.Job, len(jobs))
	for i, j := range jobs {
		dup[i] = j.Clone()
	}
	return dup
}
