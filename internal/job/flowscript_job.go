package job

import (
	"context"

	"flowjobs/internal/document"
	"flowjobs/internal/flowscript"
)

// FlowScriptParseJob tokenizes and parses the FlowScript source found in
// its input's "flowscript" field and reports the resulting graph (node
// id, kind, dependencies, and data) as its output — useful for
// inspecting a workflow document without driving execution through it.
// Graph execution itself goes through the runner package, which parses
// independently and drives the engine's Create/SetDependency/Enqueue
// calls directly from a ParsedGraph.
type FlowScriptParseJob struct {
	Base
}

func NewFlowScriptParseJob(id JobID) Job {
	return &FlowScriptParseJob{Base: NewBase(id, "flowscriptJob", AllChannels)}
}

func (f *FlowScriptParseJob) Execute(ctx context.Context) error {
	src, ok := f.Input().GetString("flowscript")
	if !ok {
		f.SetOutput(document.New().Set("missing required input field \"flowscript\"", "error"))
		return nil
	}

	tokens, err := flowscript.Tokenize(src)
	if err != nil {
		f.SetOutput(document.New().Set(err.Error(), "error"))
		return err
	}

	graph, err := flowscript.Parse(tokens)
	if err != nil {
		f.SetOutput(document.New().Set(err.Error(), "error"))
		return err
	}

	nodes := make(map[string]interface{}, len(graph.Nodes))
	for id, n := range graph.Nodes {
		nodes[id] = map[string]interface{}{
			"id":           n.ID,
			"type":         int(n.Kind),
			"dependencies": n.Dependencies,
			"inputData":    n.Data.Get(),
		}
	}

	f.SetOutput(document.New().Set(nodes, "nodes"))
	return nil
}

// OnComplete has nothing to do beyond what Execute already recorded in
// the job's output document.
func (f *FlowScriptParseJob) OnComplete() {}
