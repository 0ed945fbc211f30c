package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowjobs/internal/document"
)

func TestBaseInputOutputRoundTrip(t *testing.T) {
	b := NewBase(0, "stub", 0)
	assert.Equal(t, AllChannels, b.ChannelMask())

	b.SetName("n1")
	assert.Equal(t, "n1", b.Name())

	b.SetInput(document.New().Set("v", "k"))
	v, ok := b.Input().GetString("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	b.SetOutput(document.New().Set("w", "k2"))
	w, ok := b.Output().GetString("k2")
	require.True(t, ok)
	assert.Equal(t, "w", w)
}

func TestCompileJobSuccessAndFailureStatus(t *testing.T) {
	j := NewCompileJob(0)
	j.SetInput(document.New().Set("true", "command"))
	require.NoError(t, j.Execute(context.Background()))
	status, ok := j.Output().GetString("status")
	require.True(t, ok)
	assert.Equal(t, "compiled with no errors", status)

	failing := NewCompileJob(1)
	failing.SetInput(document.New().Set("echo oops", "command"))
	require.NoError(t, failing.Execute(context.Background()))
	status, ok = failing.Output().GetString("status")
	require.True(t, ok)
	assert.Equal(t, "failed to compile", status)
}

func TestCompileJobMissingCommandStillProducesOutput(t *testing.T) {
	j := NewCompileJob(0)
	err := j.Execute(context.Background())
	assert.Error(t, err)
	status, ok := j.Output().GetString("status")
	require.True(t, ok)
	assert.Equal(t, "failed to compile", status)
}

func TestCustomJobAlwaysCompleted(t *testing.T) {
	j := NewCustomJob(0)
	j.SetInput(document.New().Set("echo hi", "command"))
	require.NoError(t, j.Execute(context.Background()))
	status, _ := j.Output().GetString("status")
	assert.Equal(t, "completed", status)
}

func TestParseJobExtractsCompilerErrorLine(t *testing.T) {
	j := NewParseJob(0)
	j.SetInput(document.New().Set("main.c:10:5: error: expected ';'", "output"))
	require.NoError(t, j.Execute(context.Background()))

	errs, ok := j.Output().Get("errors").([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 1)
	entry := errs[0].(map[string]interface{})
	assert.Equal(t, "main.c", entry["filepath"])
	assert.Equal(t, 10, entry["lineNumber"])
}

func TestEmitJobWritesMergedReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "error_report.json")

	j := &EmitJob{Base: NewBase(0, "parseOutputJob", AllChannels), OutputPath: path}
	j.SetInput(document.New().Set([]interface{}{
		map[string]interface{}{"filepath": "a.c", "lineNumber": 3, "columnNumber": 1, "description": "bad"},
	}, "errors"))

	require.NoError(t, j.Execute(context.Background()))
	_, err := os.Stat(path)
	require.NoError(t, err)
}
