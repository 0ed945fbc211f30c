package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowjobs/internal/job"
)

func TestCreateRequiresTypeName(t *testing.T) {
	e := New(nil)
	_, err := e.Create(CreateJobRequest{})
	assert.Error(t, err)
}

func TestRunFlowScriptAndAwaitCompletion(t *testing.T) {
	e := New(nil)
	e.Register("customJob", job.NewCustomJob)

	src := `digraph {
		{ node [shape="box"]; customJob; }
		{ node [shape="circle"]; cfg; }
		cfg [data='command','echo hello'];
		cfg -> customJob;
	}`
	require.NoError(t, e.RunFlowScript(src, nil))

	id, ok := e.sched.ResolveName("customJob")
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Start(ctx))
	defer e.Destroy()

	require.NoError(t, e.AwaitJob(ctx, id))

	status, err := e.Status(id)
	require.NoError(t, err)
	assert.Equal(t, job.Completed, status)
}

func TestDestroyPreventsRestart(t *testing.T) {
	e := New(nil)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Destroy())
	assert.Error(t, e.Start(ctx))
}
