package flowscript

import (
	"fmt"
	"strings"
)

// SerializeGraph renders a ParsedGraph back to FlowScript source text,
// grouping nodes by kind under their own "{ node [shape=...]; ...}"
// block and then emitting every recorded dependency edge. Round-tripping
// Parse(Tokenize(SerializeGraph(g))) reproduces the same graph, which is
// exercised directly by the testable-properties suite.
func SerializeGraph(g *ParsedGraph) string {
	var b strings.Builder
	b.WriteString("digraph {\n")

	byKind := map[NodeKind][]string{}
	for _, id := range g.Order {
		k := g.Nodes[id].Kind
		byKind[k] = append(byKind[k], id)
	}

	for _, kind := range []NodeKind{KindJob, KindData, KindStatus} {
		ids := byKind[kind]
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  { node [shape=%q];\n", kindToShape(kind))
		for _, id := range ids {
			n := g.Nodes[id]
			b.WriteString("    ")
			b.WriteString(n.ID)
			wroteProp := false
			open := func() {
				if !wroteProp {
					b.WriteString(" [")
					wroteProp = true
				} else {
					b.WriteString(" ")
				}
			}
			if n.Label != "" {
				open()
				fmt.Fprintf(&b, "label=%q", n.Label)
			}
			for _, key := range dataKeys(n) {
				val, _ := n.Data.GetString(key)
				open()
				fmt.Fprintf(&b, "data=%q,%q", key, val)
			}
			if wroteProp {
				b.WriteString("]")
			}
			b.WriteString(";\n")
		}
		b.WriteString("  }\n")
	}

	for _, id := range g.Order {
		n := g.Nodes[id]
		for _, dep := range n.Dependencies {
			fmt.Fprintf(&b, "  %s -> %s;\n", n.ID, dep)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func dataKeys(n *Node) []string {
	if n.Data == nil {
		return nil
	}
	return n.Data.Keys()
}
