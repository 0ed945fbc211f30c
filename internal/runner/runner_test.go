package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowjobs/internal/depgraph"
	"flowjobs/internal/flowscript"
	"flowjobs/internal/history"
	"flowjobs/internal/registry"
	"flowjobs/internal/scheduler"
)

func newScheduler() *scheduler.Scheduler {
	return scheduler.New(registry.New(), history.New(), depgraph.New())
}

func parse(t *testing.T, src string) *flowscript.ParsedGraph {
	t.Helper()
	toks, err := flowscript.Tokenize(src)
	require.NoError(t, err)
	g, err := flowscript.Parse(toks)
	require.NoError(t, err)
	return g
}

func TestRunWiresDataIntoJobInput(t *testing.T) {
	src := `digraph {
		{ node [shape="box"]; compileJob; }
		{ node [shape="circle"]; cfg; }
		cfg [data='command','echo hi'];
		cfg -> compileJob;
	}`
	g := parse(t, src)
	sched := newScheduler()

	require.NoError(t, Run(sched, g, nil))

	id, ok := sched.ResolveName("compileJob")
	require.True(t, ok)
	j, ok := sched.Job(id)
	require.True(t, ok)

	cmd, ok := j.Input().GetString("command")
	require.True(t, ok)
	assert.Equal(t, "echo hi", cmd)
	assert.True(t, sched.Ready(id), "job with only a Data dependency should be a ready root")
}

func TestRunWiresJobPrerequisiteAndDefersEnqueue(t *testing.T) {
	src := `digraph {
		{ node [shape="box"]; compileJob; compileParseJob; }
		compileJob -> compileParseJob;
	}`
	g := parse(t, src)
	sched := newScheduler()

	require.NoError(t, Run(sched, g, nil))

	parseJobID, ok := sched.ResolveName("compileParseJob")
	require.True(t, ok)
	assert.False(t, sched.Ready(parseJobID))

	compileJobID, ok := sched.ResolveName("compileJob")
	require.True(t, ok)
	assert.True(t, sched.Ready(compileJobID))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sched.MarkCompleted(ctx, compileJobID))

	assert.True(t, sched.Ready(parseJobID))
}

func TestRunShortCircuitsStatusNode(t *testing.T) {
	src := `digraph {
		{ node [shape="box"]; compileJob; compileParseJob; }
		{ node [shape="diamond"]; st; }
		compileJob -> st;
		st -> compileParseJob;
	}`
	g := parse(t, src)
	sched := newScheduler()

	require.NoError(t, Run(sched, g, nil))

	parseJobID, ok := sched.ResolveName("compileParseJob")
	require.True(t, ok)
	assert.False(t, sched.Ready(parseJobID), "status node should short-circuit to its single underlying job dependency")
}
