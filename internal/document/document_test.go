package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	d := New()
	d.Set("hola", "greeting")
	v, ok := d.GetString("greeting")
	require.True(t, ok)
	assert.Equal(t, "hola", v)
}

func TestParseRoundTrip(t *testing.T) {
	d, err := Parse([]byte(`{"output":"hi","returnCode":0}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", mustString(t, d, "output"))

	again, err := Parse(d.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hi", mustString(t, again, "output"))
}

func TestMergeIntoOverwrites(t *testing.T) {
	dst := New().Set("old", "a").Set("keep", "b")
	src := New().Set("new", "a")

	dst.MergeInto(src)

	assert.Equal(t, "new", mustString(t, dst, "a"))
	assert.Equal(t, "keep", mustString(t, dst, "b"))
}

func TestExists(t *testing.T) {
	d := New().Set("x", "command")
	assert.True(t, d.Exists("command"))
	assert.False(t, d.Exists("error"))
}

func mustString(t *testing.T, d *Doc, path string) string {
	t.Helper()
	v, ok := d.GetString(path)
	require.True(t, ok, "path %q missing", path)
	return v
}
