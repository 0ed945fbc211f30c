package job

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowjobs/internal/document"
)

func tempFileWith(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "dataset_job_*.txt")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestDatasetJobMapToLower(t *testing.T) {
	in := tempFileWith(t, "HOLA\nMUNDO")
	out := in + "_out"
	t.Cleanup(func() { os.Remove(out) })

	j := NewDatasetJob(0)
	j.SetInput(document.New().
		Set("map", "op").
		Set("to_lower", "fn").
		Set([]interface{}{in}, "inputs").
		Set(out, "output"))

	require.NoError(t, j.Execute(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hola\nmundo", strings.TrimSpace(string(data)))
}

func TestDatasetJobUnknownOpFailsWithOutput(t *testing.T) {
	j := NewDatasetJob(0)
	j.SetInput(document.New().Set("bogus", "op").Set("x", "output"))

	err := j.Execute(context.Background())
	require.Error(t, err)

	msg, ok := j.Output().GetString("error")
	require.True(t, ok)
	assert.Contains(t, msg, "bogus")
}
