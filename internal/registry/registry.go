// Package registry implements the job-type factory registry: the
// mapping from a job type name to the constructor the graph runner and
// CLI use to instantiate new jobs of that type.
package registry

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"flowjobs/internal/job"
)

// Registry holds every known job.Factory keyed by type name, plus the
// de-duplicated list of names registered so far.
type Registry struct {
	mu    sync.RWMutex
	types map[string]job.Factory
	order []string
}

func New() *Registry {
	return &Registry{types: make(map[string]job.Factory)}
}

// Register installs factory under name. Re-registering an existing
// name overwrites the factory, but never adds a duplicate entry to
// ListTypes.
func (r *Registry) Register(name string, factory job.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; exists {
		logrus.WithField("job_type", name).Warn("registry: overwriting existing job type factory")
	} else {
		r.order = append(r.order, name)
	}
	r.types[name] = factory
}

// ListTypes returns every registered job type name, in registration
// order.
func (r *Registry) ListTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Create instantiates a fresh job of the given type, stamped with id.
// It returns an error if name was never registered, or if the factory
// itself produced a nil Job.
func (r *Registry) Create(name string, id job.JobID) (job.Job, error) {
	r.mu.RLock()
	factory, ok := r.types[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Errorf("registry: unknown job type %q", name)
	}
	j := factory(id)
	if j == nil {
		return nil, errors.Errorf("registry: factory for job type %q returned nil", name)
	}
	return j, nil
}
