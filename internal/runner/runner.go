// Package runner implements the graph runner: it takes a parsed
// FlowScript graph and drives it through the engine's stable API,
// registering factories, creating jobs, wiring dependencies, and
// enqueuing ready roots, for any graph rather than one hard-coded
// shape.
package runner

import (
	"github.com/pkg/errors"

	"flowjobs/internal/document"
	"flowjobs/internal/flowscript"
	"flowjobs/internal/job"
	"flowjobs/internal/scheduler"
)

// BuiltinFactories is the built-in factory table every graph runner
// installs before wiring a graph: compileJob and customJob (both
// ShellJob variants), compileParseJob (ParseJob), parseOutputJob
// (EmitJob), flowscriptJob (FlowScriptParseJob), and datasetJob
// (DatasetJob) — the names a FlowScript document's nodes reference by
// default.
func BuiltinFactories() map[string]job.Factory {
	return map[string]job.Factory{
		"compileJob":      job.NewCompileJob,
		"customJob":       job.NewCustomJob,
		"compileParseJob": job.NewParseJob,
		"parseOutputJob":  job.NewEmitJob,
		"flowscriptJob":   job.NewFlowScriptParseJob,
		"datasetJob":      job.NewDatasetJob,
	}
}

// Run registers extra (layered over BuiltinFactories — extra wins on a
// name clash) into sched's registry, then wires graph's nodes as
// scheduler jobs. An edge "A -> B" is recorded by the parser on A's own
// Dependencies list, and means B depends on A: A is the prerequisite,
// B the dependent (or, when A is a Data node, B's input consumer). So
// wiring walks every Job- or Data-kind node as a potential edge source,
// and for each entry in its Dependencies list, resolves the target
// forward through any chain of Status nodes to the Job or Data node it
// ultimately names:
//
//   - Job source, Job target: the target depends on the source —
//     SetDependency(target, source).
//   - Data source, Job target: the source's literal payload is merged
//     directly into the target's input.
//
// Status nodes are never wired themselves (see S4-style short-circuit
// in resolveDependency); they're pure passthroughs chased through to
// whatever they ultimately point at.
//
// Wiring happens in three passes so that no node's readiness is
// checked before every node's edges have been recorded: a node's own
// prerequisite list can gain an entry from a dependency declared by a
// node processed later in graph.Order, so enqueuing ready roots must
// wait until all wiring is done.
func Run(sched *scheduler.Scheduler, graph *flowscript.ParsedGraph, extra map[string]job.Factory) error {
	reg := sched.Registry()
	for name, factory := range BuiltinFactories() {
		reg.Register(name, factory)
	}
	for name, factory := range extra {
		reg.Register(name, factory)
	}

	nodeJobID := make(map[string]job.JobID, len(graph.Nodes))

	// Pass 1: create a scheduler job for every Job-kind node, using the
	// node's own identifier as the registered job type name.
	for _, id := range graph.Order {
		n := graph.Nodes[id]
		if n.Kind != flowscript.KindJob {
			continue
		}
		j, err := sched.CreateJob(id, nil)
		if err != nil {
			return errors.Wrapf(err, "runner: failed to create job for node %q", id)
		}
		nodeJobID[id] = j.ID()
	}

	// Pass 2: wire every edge sourced from a Job or Data node. No
	// enqueuing happens here.
	for _, id := range graph.Order {
		n := graph.Nodes[id]
		if n.Kind != flowscript.KindJob && n.Kind != flowscript.KindData {
			continue
		}

		for _, depID := range n.Dependencies {
			kind, resolvedID, _, err := resolveDependency(graph, depID, make(map[string]bool))
			if err != nil {
				return errors.Wrapf(err, "runner: node %q", id)
			}
			if kind != flowscript.KindJob {
				continue
			}
			targetID, ok := nodeJobID[resolvedID]
			if !ok {
				return errors.Errorf("runner: node %q depends on unresolved job node %q", id, resolvedID)
			}

			switch n.Kind {
			case flowscript.KindJob:
				sourceID := nodeJobID[id]
				if err := sched.SetDependency(targetID, sourceID); err != nil {
					return errors.Wrapf(err, "runner: failed to wire dependency %q -> %q", id, resolvedID)
				}
			case flowscript.KindData:
				if err := sched.MergeInput(targetID, n.Data.Clone()); err != nil {
					return errors.Wrapf(err, "runner: failed to seed input for node %q", resolvedID)
				}
			}
		}
	}

	// Pass 3: now that every edge in the graph has been recorded,
	// enqueue every Job node left with no outstanding prerequisite.
	for _, id := range graph.Order {
		n := graph.Nodes[id]
		if n.Kind != flowscript.KindJob {
			continue
		}
		jobID := nodeJobID[id]
		if sched.Ready(jobID) {
			if err := sched.Enqueue(jobID); err != nil {
				return errors.Wrapf(err, "runner: failed to enqueue ready root %q", id)
			}
		}
	}

	return nil
}

// resolveDependency follows a dependency id through any chain of
// Status nodes to the single underlying Data or Job node it ultimately
// stands for. visiting guards against a cyclic chain of Status nodes.
func resolveDependency(graph *flowscript.ParsedGraph, id string, visiting map[string]bool) (flowscript.NodeKind, string, *document.Doc, error) {
	n, ok := graph.Nodes[id]
	if !ok {
		return 0, "", nil, errors.Errorf("unknown node %q", id)
	}
	if n.Kind != flowscript.KindStatus {
		return n.Kind, id, n.Data, nil
	}
	if visiting[id] {
		return 0, "", nil, errors.Errorf("cyclic status-node chain at %q", id)
	}
	visiting[id] = true
	if len(n.Dependencies) != 1 {
		return 0, "", nil, errors.Errorf("status node %q must have exactly one dependency, has %d", id, len(n.Dependencies))
	}
	return resolveDependency(graph, n.Dependencies[0], visiting)
}
