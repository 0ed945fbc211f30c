package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"flowjobs/internal/depgraph"
	"flowjobs/internal/document"
	"flowjobs/internal/history"
	"flowjobs/internal/job"
	"flowjobs/internal/registry"
)

// Sentinel errors for the scheduler's portion of the engine's error
// taxonomy.
var (
	ErrNoSuchJob            = errors.New("scheduler: no such job")
	ErrAlreadyRetired       = errors.New("scheduler: job already retired")
	ErrNotFoundInCompleted  = errors.New("scheduler: job not found in completed set")
	ErrDependencyUnresolved = errors.New("scheduler: dependency could not be resolved by name")
)

// Scheduler owns job identity (the id-table and the monotonic id
// counter), the queued/running/completed sets, and drives the status
// transitions recorded in the history log. It delegates factory lookup
// to registry and prerequisite bookkeeping to depgraph.
type Scheduler struct {
	registry *registry.Registry
	history  *history.Log
	deps     *depgraph.Graph

	nextID int64

	jobsMu sync.RWMutex
	jobs   map[job.JobID]job.Job

	queueMu sync.Mutex
	queued  []job.JobID

	runMu   sync.Mutex
	running map[job.JobID]struct{}

	doneMu sync.Mutex
	done   map[job.JobID]struct{} // completed, not yet retired
	waitCh map[job.JobID]chan struct{}

	wakeMu sync.Mutex
	wake   chan struct{}
}

func New(reg *registry.Registry, hist *history.Log, deps *depgraph.Graph) *Scheduler {
	return &Scheduler{
		registry: reg,
		history:  hist,
		deps:     deps,
		jobs:     make(map[job.JobID]job.Job),
		running:  make(map[job.JobID]struct{}),
		done:     make(map[job.JobID]struct{}),
		waitCh:   make(map[job.JobID]chan struct{}),
		wake:     make(chan struct{}),
	}
}

// CreateJob allocates the next monotonically increasing job id,
// instantiates a job of the given registered type stamped with that id,
// stamps input onto it (if non-nil), records it in the job table and
// history (status NeverSeen until Enqueue moves it to Queued), and notes
// it as the most-recently-created job for that type name for later
// name-based SetDependency calls.
func (s *Scheduler) CreateJob(typeName string, input *document.Doc) (job.Job, error) {
	id := job.JobID(atomic.AddInt64(&s.nextID, 1) - 1)

	j, err := s.registry.Create(typeName, id)
	if err != nil {
		return nil, err
	}
	if input != nil {
		j.SetInput(input)
	}

	s.jobsMu.Lock()
	s.jobs[j.ID()] = j
	s.jobsMu.Unlock()

	s.deps.NoteCreated(typeName, j.ID())
	s.history.Record(j.ID(), typeName, job.NeverSeen)
	return j, nil
}

// Job returns the job registered under id.
func (s *Scheduler) Job(id job.JobID) (job.Job, bool) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// SetDependency records that dependent waits on prereq.
func (s *Scheduler) SetDependency(dependent, prereq job.JobID) error {
	if _, ok := s.Job(dependent); !ok {
		return errors.Wrapf(ErrNoSuchJob, "dependent %s", dependent)
	}
	if _, ok := s.Job(prereq); !ok {
		return errors.Wrapf(ErrNoSuchJob, "prereq %s", prereq)
	}
	s.deps.SetDependency(dependent, prereq)
	return nil
}

// SetDependencyByName resolves both type names to the most recently
// created job of that type and wires the dependency — the fragile,
// intentionally documented name-based resolution path FlowScript-driven
// graphs use (see depgraph.Graph.ResolveName).
func (s *Scheduler) SetDependencyByName(dependentType, prereqType string) error {
	dependent, ok := s.deps.ResolveName(dependentType)
	if !ok {
		return errors.Wrapf(ErrDependencyUnresolved, "no job created yet for type %q", dependentType)
	}
	prereq, ok := s.deps.ResolveName(prereqType)
	if !ok {
		return errors.Wrapf(ErrDependencyUnresolved, "no job created yet for type %q", prereqType)
	}
	return s.SetDependency(dependent, prereq)
}

// Dependencies returns id's currently outstanding prerequisite ids, used
// to populate the dependencies snapshot in the engine's Create response.
func (s *Scheduler) Dependencies(id job.JobID) []job.JobID {
	return s.deps.PrereqsOf(id)
}

// Enqueue moves id into the ready queue, regardless of whether its
// dependencies are currently resolved (Claim re-checks them and moves an
// unresolved job to the back of the queue instead of handing it out).
func (s *Scheduler) Enqueue(id job.JobID) error {
	j, ok := s.Job(id)
	if !ok {
		return errors.Wrapf(ErrNoSuchJob, "%s", id)
	}
	s.history.Record(id, j.Type(), job.Queued)

	s.queueMu.Lock()
	s.queued = append(s.queued, id)
	s.queueMu.Unlock()

	s.signalWake()
	return nil
}

func (s *Scheduler) signalWake() {
	s.wakeMu.Lock()
	close(s.wake)
	s.wake = make(chan struct{})
	s.wakeMu.Unlock()
}

// WakeChannel returns the channel that closes the next time Enqueue or
// MarkCompleted makes new work available, letting the worker pool block
// without busy-polling.
func (s *Scheduler) WakeChannel() <-chan struct{} {
	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()
	return s.wake
}

// Claim pops the first queued job whose channel mask intersects
// workerMask and whose dependencies are all resolved, promoting it to
// Running. Jobs found queued-but-unresolved are pushed to the back of
// the queue rather than dropped. Claim returns ok=false when no
// claimable job is currently available.
func (s *Scheduler) Claim(workerMask uint32) (j job.Job, ok bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	n := len(s.queued)
	for i := 0; i < n; i++ {
		id := s.queued[0]
		s.queued = s.queued[1:]

		candidate, exists := s.Job(id)
		if !exists {
			continue
		}
		if candidate.ChannelMask()&workerMask == 0 {
			s.queued = append(s.queued, id)
			continue
		}
		if !s.deps.IsResolved(id) {
			s.queued = append(s.queued, id)
			continue
		}

		s.runMu.Lock()
		s.running[id] = struct{}{}
		s.runMu.Unlock()
		s.history.Record(id, candidate.Type(), job.Running)
		return candidate, true
	}
	return nil, false
}

// MarkCompleted transitions id from Running (or Queued) to Completed,
// dropping it from the ready queue if it is still there, propagates
// its output into every dependent's input, resolves those dependents'
// outstanding prerequisites, re-enqueues any dependent that becomes
// fully resolved, and wakes any AwaitJob caller waiting on id. It walks
// every dependent of the completed job, not just the first one found.
func (s *Scheduler) MarkCompleted(ctx context.Context, id job.JobID) error {
	completedJob, ok := s.Job(id)
	if !ok {
		return errors.Wrapf(ErrNoSuchJob, "%s", id)
	}

	s.queueMu.Lock()
	for i, q := range s.queued {
		if q == id {
			s.queued = append(s.queued[:i], s.queued[i+1:]...)
			break
		}
	}
	s.queueMu.Unlock()

	s.runMu.Lock()
	delete(s.running, id)
	s.runMu.Unlock()

	s.history.Record(id, completedJob.Type(), job.Completed)

	for _, dependentID := range s.deps.Dependents(id) {
		dependentJob, exists := s.Job(dependentID)
		if !exists {
			continue
		}
		merged := dependentJob.Input().Clone().MergeInto(completedJob.Output())
		dependentJob.SetInput(merged)

		if s.deps.ResolvePrereq(dependentID, id) {
			if err := s.Enqueue(dependentID); err != nil {
				logrus.WithError(err).WithField("job_id", dependentID).Warn("scheduler: failed to re-enqueue resolved dependent")
			}
		}
	}

	s.doneMu.Lock()
	s.done[id] = struct{}{}
	ch := s.waitCh[id]
	s.doneMu.Unlock()

	if ch != nil {
		close(ch)
	}
	return nil
}

// Retire marks a completed job as Retired. Returns
// ErrNotFoundInCompleted if id was never in the completed set,
// ErrAlreadyRetired if it already was retired.
func (s *Scheduler) Retire(id job.JobID) error {
	s.doneMu.Lock()
	defer s.doneMu.Unlock()

	if _, ok := s.done[id]; !ok {
		if status, seen := s.history.Status(id); seen && status == job.Retired {
			return ErrAlreadyRetired
		}
		return ErrNotFoundInCompleted
	}
	delete(s.done, id)

	j, _ := s.Job(id)
	typeName := ""
	if j != nil {
		typeName = j.Type()
	}
	s.history.Record(id, typeName, job.Retired)
	return nil
}

// DrainCompleted retires every job currently sitting in the completed
// set and returns their ids.
func (s *Scheduler) DrainCompleted() []job.JobID {
	s.doneMu.Lock()
	ids := make([]job.JobID, 0, len(s.done))
	for id := range s.done {
		ids = append(ids, id)
	}
	s.doneMu.Unlock()

	for _, id := range ids {
		_ = s.Retire(id)
	}
	return ids
}

// AwaitJob blocks until id reaches Completed (or Retired), or ctx is
// canceled.
func (s *Scheduler) AwaitJob(ctx context.Context, id job.JobID) error {
	if status, ok := s.history.Status(id); ok && (status == job.Completed || status == job.Retired) {
		return nil
	}

	s.doneMu.Lock()
	if _, ok := s.done[id]; ok {
		s.doneMu.Unlock()
		return nil
	}
	ch, ok := s.waitCh[id]
	if !ok {
		ch = make(chan struct{})
		s.waitCh[id] = ch
	}
	s.doneMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResolveName returns the id of the most recently created job of the
// given registered type name.
func (s *Scheduler) ResolveName(typeName string) (job.JobID, bool) {
	return s.deps.ResolveName(typeName)
}

// Ready reports whether id currently has no outstanding prerequisites,
// used by the graph runner to decide which freshly wired jobs to
// auto-enqueue as ready roots.
func (s *Scheduler) Ready(id job.JobID) bool {
	return s.deps.IsResolved(id)
}

// Registry exposes the underlying factory registry so the graph runner
// can install its built-in and caller-supplied factories before
// creating any jobs.
func (s *Scheduler) Registry() *registry.Registry {
	return s.registry
}

// Status returns id's current status.
func (s *Scheduler) Status(id job.JobID) (job.Status, error) {
	status, ok := s.history.Status(id)
	if !ok {
		return job.NeverSeen, errors.Wrapf(ErrNoSuchJob, "%s", id)
	}
	return status, nil
}

// SetInput is a convenience used by the runner to seed a job's input
// document directly (e.g. a FlowScript Data node's literal payload).
func (s *Scheduler) SetInput(id job.JobID, in *document.Doc) error {
	j, ok := s.Job(id)
	if !ok {
		return errors.Wrapf(ErrNoSuchJob, "%s", id)
	}
	j.SetInput(in)
	return nil
}

// MergeInput folds in's fields into id's existing input document,
// overwriting on key collision, rather than replacing it outright —
// used by the runner when a job has more than one Data-node dependency
// so an earlier dependency's fields survive a later one's merge.
func (s *Scheduler) MergeInput(id job.JobID, in *document.Doc) error {
	j, ok := s.Job(id)
	if !ok {
		return errors.Wrapf(ErrNoSuchJob, "%s", id)
	}
	j.SetInput(j.Input().Clone().MergeInto(in))
	return nil
}
