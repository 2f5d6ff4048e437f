package digraph

import (
	"fmt"
	"strings"
)

// RenderDOT writes the graph in Graphviz DOT syntax. Output is deterministic
// because Build sorts nodes and edges.
func RenderDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for _, n := range g.Nodes {
		label := fmt.Sprintf("%s\\n%d files", n.Folder, n.FileCount)
		if n.Annotation != nil && n.Annotation.Name != "" {
			label = fmt.Sprintf("%s\\n%s\\n%d files", n.Folder, n.Annotation.Name, n.FileCount)
		}
		attrs := fmt.Sprintf("label=\"%s\"", label)
		if n.Folder == ExternalNode {
			attrs += ", style=dashed"
		}
		fmt.Fprintf(&b, "  %q [%s];\n", n.Folder, attrs)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %q -> %q [label=\"%d\", weight=%d];\n", e.From, e.To, e.Weight, e.Weight)
	}

	b.WriteString("}\n")
	return b.String()
}
