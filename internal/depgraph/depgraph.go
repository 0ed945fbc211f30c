// Package depgraph implements the dependency map between jobs: which
// prerequisite ids a job still waits on, plus the inverse index from a
// prerequisite id to every job depending on it, so completion fan-out
// doesn't require walking every entry in the map.
package depgraph

import (
	"sync"

	"flowjobs/internal/job"
)

// Graph holds, per job id, the ordered list of prerequisite ids still
// outstanding, plus the reverse index used to find dependents quickly.
type Graph struct {
	mu         sync.Mutex
	prereqsOf  map[job.JobID][]job.JobID
	dependents map[job.JobID]map[job.JobID]struct{}

	// nameToID resolves a job-type name to the id of the most recently
	// created job of that type — a deliberately fragile resolution
	// strategy, useful only as a convenience for FlowScript-driven
	// graphs. Callers that need precise wiring should prefer the
	// id-based path instead.
	nameToID map[string]job.JobID
}

func New() *Graph {
	return &Graph{
		prereqsOf:  make(map[job.JobID][]job.JobID),
		dependents: make(map[job.JobID]map[job.JobID]struct{}),
		nameToID:   make(map[string]job.JobID),
	}
}

// NoteCreated records that a job of the given type name was just
// created with the given id, making it the name's most-recent
// resolution target for future SetDependencyByName calls.
func (g *Graph) NoteCreated(typeName string, id job.JobID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nameToID[typeName] = id
}

// ResolveName returns the most-recently-created job id registered under
// typeName.
func (g *Graph) ResolveName(typeName string) (job.JobID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.nameToID[typeName]
	return id, ok
}

// SetDependency records that dependent waits on prereq, in both the
// forward (prereqsOf) and inverse (dependents) indexes.
func (g *Graph) SetDependency(dependent, prereq job.JobID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prereqsOf[dependent] = append(g.prereqsOf[dependent], prereq)

	if g.dependents[prereq] == nil {
		g.dependents[prereq] = make(map[job.JobID]struct{})
	}
	g.dependents[prereq][dependent] = struct{}{}
}

// IsResolved reports whether id has no outstanding prerequisites.
func (g *Graph) IsResolved(id job.JobID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prereqsOf[id]) == 0
}

// PrereqsOf returns a copy of id's currently outstanding prerequisite
// list, in the order they were recorded.
func (g *Graph) PrereqsOf(id job.JobID) []job.JobID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]job.JobID, len(g.prereqsOf[id]))
	copy(out, g.prereqsOf[id])
	return out
}

// Dependents returns every job id waiting (even partly) on prereq.
func (g *Graph) Dependents(prereq job.JobID) []job.JobID {
	g.mu.Lock()
	defer g.mu.Unlock()
	set := g.dependents[prereq]
	out := make([]job.JobID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// ResolvePrereq removes prereq from dependent's outstanding list and
// reports whether dependent is now fully resolved. Called once per
// dependent for every job completion, so every dependent listing prereq
// gets resolved rather than stopping at the first one found.
func (g *Graph) ResolvePrereq(dependent, prereq job.JobID) (resolved bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	remaining := g.prereqsOf[dependent][:0]
	for _, p := range g.prereqsOf[dependent] {
		if p != prereq {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		delete(g.prereqsOf, dependent)
	} else {
		g.prereqsOf[dependent] = remaining
	}

	if deps := g.dependents[prereq]; deps != nil {
		delete(deps, dependent)
		if len(deps) == 0 {
			delete(g.dependents, prereq)
		}
	}

	return len(remaining) == 0
}
