package flowscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSrc(t *testing.T, src string) *ParsedGraph {
	t.Helper()
	toks, err := Tokenize(src)
	require.NoError(t, err)
	g, err := Parse(toks)
	require.NoError(t, err)
	return g
}

func TestTokenizeBasic(t *testing.T) {
	toks, err := Tokenize(`digraph { A -> B; }`)
	require.NoError(t, err)

	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokDigraph, TokLBrace, TokIdentifier, TokArrow, TokIdentifier,
		TokSemicolon, TokRBrace, TokEOF,
	}, types)
}

func TestParseSimpleChain(t *testing.T) {
	g := parseSrc(t, `digraph { A -> B; B -> C; }`)

	require.Contains(t, g.Nodes, "A")
	require.Contains(t, g.Nodes, "B")
	require.Contains(t, g.Nodes, "C")
	assert.Equal(t, []string{"B"}, g.Nodes["A"].Dependencies)
	assert.Equal(t, []string{"C"}, g.Nodes["B"].Dependencies)
	assert.Empty(t, g.Nodes["C"].Dependencies)
}

func TestParseShapeBlocksAndData(t *testing.T) {
	src := `digraph {
		{ node [shape="circle"]; cfg; }
		{ node [shape="box"]; build; }
		cfg [data='command','make all'];
		build -> cfg;
	}`
	g := parseSrc(t, src)

	assert.Equal(t, KindData, g.Nodes["cfg"].Kind)
	assert.Equal(t, KindJob, g.Nodes["build"].Kind)
	v, ok := g.Nodes["cfg"].Data.GetString("command")
	require.True(t, ok)
	assert.Equal(t, "make all", v)
	assert.Equal(t, []string{"cfg"}, g.Nodes["build"].Dependencies)
}

func TestDataPropertyRejectedOnNonDataNode(t *testing.T) {
	_, err := Parse(mustTokens(t, `digraph { build [data='x','y']; }`))
	assert.Error(t, err)
}

func TestSerializeRoundTrip(t *testing.T) {
	g := parseSrc(t, `digraph {
		{ node [shape="box"]; build; }
		{ node [shape="circle"]; cfg; }
		cfg [data='command','echo hi'];
		build -> cfg;
	}`)

	out := SerializeGraph(g)
	g2 := parseSrc(t, out)

	assert.Equal(t, g.Nodes["build"].Dependencies, g2.Nodes["build"].Dependencies)
	assert.Equal(t, KindData, g2.Nodes["cfg"].Kind)
	v, _ := g2.Nodes["cfg"].Data.GetString("command")
	assert.Equal(t, "echo hi", v)
}

func mustTokens(t *testing.T, src string) []Token {
	t.Helper()
	toks, err := Tokenize(src)
	require.NoError(t, err)
	return toks
}
