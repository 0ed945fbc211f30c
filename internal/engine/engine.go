// Package engine provides the facade the CLI (and any other embedder)
// drives: explicit construction and lifecycle (Start/Stop/Destroy) over
// a process-local instance, wrapping registry, history, depgraph,
// scheduler and workerpool behind one stable surface.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"flowjobs/internal/config"
	"flowjobs/internal/depgraph"
	"flowjobs/internal/document"
	"flowjobs/internal/flowscript"
	"flowjobs/internal/history"
	"flowjobs/internal/job"
	"flowjobs/internal/registry"
	"flowjobs/internal/runner"
	"flowjobs/internal/scheduler"
	"flowjobs/internal/workerpool"
)

var validate = validator.New()

// CreateJobRequest is the validated input to Create: a non-empty,
// already-registered job type name, plus the input document to stamp
// onto the new job at creation. Input may be nil for a job type that
// needs no seed input (e.g. one fed entirely by its dependencies).
type CreateJobRequest struct {
	TypeName string `validate:"required"`
	Input    *document.Doc
}

// CreatedJob is the response shape Create returns: the freshly
// allocated id, the job's status immediately after creation (always
// NeverSeen — Enqueue is a separate call), and the dependencies
// currently known for it (normally empty at creation time, since
// SetDependency calls typically follow Create).
type CreatedJob struct {
	JobID        job.JobID
	Status       job.Status
	Dependencies []job.JobID
}

// Engine binds together the registry, history log, dependency graph,
// scheduler and worker pool behind one external operation set:
// Register, Create, SetDependency, Enqueue, Status, AwaitJob,
// ListTypes, Start, Stop, Destroy.
type Engine struct {
	cfg   *config.Config
	reg   *registry.Registry
	hist  *history.Log
	deps  *depgraph.Graph
	sched *scheduler.Scheduler
	pool  *workerpool.Pool

	mu        sync.Mutex
	started   bool
	destroyed bool
}

// New constructs an Engine. cfg may be nil, in which case config
// defaults are used without consulting the environment or a config
// file.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = &config.Config{OutputDir: "data", PollFallbackMillis: 100}
	}
	reg := registry.New()
	hist := history.New()
	deps := depgraph.New()
	sched := scheduler.New(reg, hist, deps)

	return &Engine{cfg: cfg, reg: reg, hist: hist, deps: deps, sched: sched}
}

// Register installs a job factory under name.
func (e *Engine) Register(name string, factory job.Factory) {
	e.reg.Register(name, factory)
}

// ListTypes returns every registered job type name.
func (e *Engine) ListTypes() []string {
	return e.reg.ListTypes()
}

// Create instantiates a job of req.TypeName, stamped with req.Input,
// after validating the request, and reports the id, status, and
// dependencies known for it at creation time.
func (e *Engine) Create(req CreateJobRequest) (CreatedJob, error) {
	if err := validate.Struct(req); err != nil {
		return CreatedJob{}, errors.Wrap(err, "engine: invalid create-job request")
	}
	j, err := e.sched.CreateJob(req.TypeName, req.Input)
	if err != nil {
		return CreatedJob{}, err
	}
	status, err := e.sched.Status(j.ID())
	if err != nil {
		return CreatedJob{}, err
	}
	return CreatedJob{
		JobID:        j.ID(),
		Status:       status,
		Dependencies: e.sched.Dependencies(j.ID()),
	}, nil
}

// SetDependency records that dependent waits on prereq.
func (e *Engine) SetDependency(dependent, prereq job.JobID) error {
	return e.sched.SetDependency(dependent, prereq)
}

// SetDependencyByName resolves both names to their most recently
// created job and wires the dependency between them.
func (e *Engine) SetDependencyByName(dependentType, prereqType string) error {
	return e.sched.SetDependencyByName(dependentType, prereqType)
}

// Enqueue moves id into the ready queue.
func (e *Engine) Enqueue(id job.JobID) error {
	return e.sched.Enqueue(id)
}

// Status returns id's current status.
func (e *Engine) Status(id job.JobID) (job.Status, error) {
	return e.sched.Status(id)
}

// AwaitJob blocks until id completes or ctx is canceled.
func (e *Engine) AwaitJob(ctx context.Context, id job.JobID) error {
	return e.sched.AwaitJob(ctx, id)
}

// FinishJob force-retires id without running it, the engine-level
// counterpart to the CLI's "finish <jobID>" command.
func (e *Engine) FinishJob(ctx context.Context, id job.JobID) error {
	if err := e.sched.MarkCompleted(ctx, id); err != nil {
		return err
	}
	return e.sched.Retire(id)
}

// RunFlowScript tokenizes and parses src, then drives the graph runner
// against this engine's scheduler. extra supplies job factories beyond
// the built-in table (compileJob/customJob/compileParseJob/
// parseOutputJob/flowscriptJob/datasetJob), keyed by the node identifiers the
// FlowScript document uses as job type names.
func (e *Engine) RunFlowScript(src string, extra map[string]job.Factory) error {
	tokens, err := flowscript.Tokenize(src)
	if err != nil {
		return errors.Wrap(err, "engine: flowscript lex error")
	}
	graph, err := flowscript.Parse(tokens)
	if err != nil {
		return errors.Wrap(err, "engine: flowscript parse error")
	}
	return runner.Run(e.sched, graph, extra)
}

// Start spawns the worker pool. WorkerCount from config overrides
// workerpool.DefaultSize() when positive.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return errors.New("engine: cannot Start a destroyed engine")
	}
	if e.started {
		return nil
	}

	n := workerpool.DefaultSize()
	if e.cfg.WorkerCount > 0 {
		n = e.cfg.WorkerCount
	}
	masks := make(map[string]uint32, n)
	for i := 0; i < n; i++ {
		masks[workerName(i)] = job.AllChannels
	}

	e.pool = workerpool.New(e.sched, masks)
	e.pool.Start(ctx)
	e.started = true
	logrus.WithField("workers", n).Info("engine: started")
	return nil
}

// Stop halts the worker pool and retires every completed job still
// pending retirement.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	var err error
	if e.pool != nil {
		err = e.pool.Stop()
	}
	e.sched.DrainCompleted()
	e.started = false
	return err
}

// Destroy stops the engine (if running) and marks it permanently
// unusable, guarding against being started again afterward.
func (e *Engine) Destroy() error {
	if err := e.Stop(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
	return nil
}

func workerName(i int) string {
	return fmt.Sprintf("worker-%d", i)
}
