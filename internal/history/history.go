// Package history implements the append-only log of every job ever
// seen by the engine, indexed by job id, pairing each job's type with
// its current status.
package history

import (
	"sync"

	"flowjobs/internal/job"
)

// Entry records the type and current status of one job.
type Entry struct {
	JobType string
	Status  job.Status
}

// Log is a mutex-guarded append/update-only map of job id to its
// current history entry.
type Log struct {
	mu      sync.RWMutex
	entries map[job.JobID]Entry
}

func New() *Log {
	return &Log{entries: make(map[job.JobID]Entry)}
}

// Record creates or overwrites the entry for id, used both when a job
// is first created (status NeverSeen/Queued) and on every later status
// transition.
func (l *Log) Record(id job.JobID, jobType string, status job.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = Entry{JobType: jobType, Status: status}
}

// Status returns the current status for id and whether it has ever
// been seen.
func (l *Log) Status(id job.JobID) (job.Status, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[id]
	return e.Status, ok
}

// Entry returns the full history entry for id.
func (l *Log) Entry(id job.JobID) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[id]
	return e, ok
}
