// Package digraph condenses the file-level catalog into a folder-level
// dependency graph: one node per project folder, one weighted edge per pair
// of folders with at least one file reference between them.
package digraph

import (
	"sort"

	"blenddoc/internal/annotate"
	"blenddoc/internal/catalog"
	"blenddoc/internal/paths"
)

// ExternalNode is the synthetic node collecting targets outside the project
// root. It only appears when external references are followed.
const ExternalNode = "external"

// Node is one folder, keyed by its project-relative path ("." is the root)
type Node struct {
	Folder         string               `json:"folder" yaml:"folder"`
	FileCount      int                  `json:"fileCount" yaml:"fileCount"`
	TotalSizeBytes int64                `json:"totalSizeBytes" yaml:"totalSizeBytes"`
	SelfRefs       int                  `json:"selfRefs,omitempty" yaml:"selfRefs,omitempty"`
	ExternalRefs   int                  `json:"externalRefs,omitempty" yaml:"externalRefs,omitempty"`
	UnresolvedRefs int                  `json:"unresolvedRefs,omitempty" yaml:"unresolvedRefs,omitempty"`
	Annotation     *annotate.Annotation `json:"annotation,omitempty" yaml:"annotation,omitempty"`
}

// Edge is a directed folder-to-folder dependency. Weight counts the
// file-level edges aggregated into it.
type Edge struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Weight int    `json:"weight" yaml:"weight"`
}

// Stats summarizes the folder graph's shape
type Stats struct {
	NodeCount  int     `json:"nodeCount" yaml:"nodeCount"`
	EdgeCount  int     `json:"edgeCount" yaml:"edgeCount"`
	Density    float64 `json:"density" yaml:"density"`
	IsDAG      bool    `json:"isDag" yaml:"isDag"`
	Components int     `json:"components" yaml:"components"`
}

// Graph is the built folder digraph, with nodes and edges in lexicographic
// order for deterministic output.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
	Stats Stats  `json:"stats" yaml:"stats"`
}

// Builder aggregates a finished catalog into a Graph
type Builder struct {
	root           string
	followExternal bool
	annotations    *annotate.Loader // may be nil
}

// NewBuilder creates a builder over the canonical project root. The
// annotation loader is optional.
func NewBuilder(root string, followExternal bool, annotations *annotate.Loader) *Builder {
	return &Builder{root: root, followExternal: followExternal, annotations: annotations}
}

// folderOf maps a canonical file path to its node key
func (b *Builder) folderOf(path string) string {
	if !paths.IsWithin(path, b.root) {
		return ExternalNode
	}
	return paths.FolderOf(path, b.root)
}

// Build aggregates records and link edges into the folder graph. Unresolved
// references never become edges; they only raise the source folder's
// unresolved count. Same-folder references become SelfRefs, not edges.
func (b *Builder) Build(store *catalog.Store, links *catalog.Registry) *Graph {
	nodes := make(map[string]*Node)
	getNode := func(folder string) *Node {
		if n, ok := nodes[folder]; ok {
			return n
		}
		n := &Node{Folder: folder}
		nodes[folder] = n
		return n
	}

	for rec := range store.All() {
		n := getNode(b.folderOf(rec.Path))
		n.FileCount++
		n.TotalSizeBytes += rec.SizeBytes
	}

	weights := make(map[string]map[string]int)
	for _, e := range links.AllEdges() {
		from := getNode(b.folderOf(e.From))

		if e.Unresolved {
			from.UnresolvedRefs++
			continue
		}

		to := b.folderOf(e.To)
		if e.External {
			from.ExternalRefs++
			if !b.followExternal {
				continue
			}
			to = ExternalNode
		}

		if to == from.Folder {
			from.SelfRefs++
			continue
		}
		getNode(to)
		if weights[from.Folder] == nil {
			weights[from.Folder] = make(map[string]int)
		}
		weights[from.Folder][to]++
	}

	g := &Graph{}
	for folder, n := range nodes {
		if b.annotations != nil && folder != ExternalNode {
			n.Annotation = b.annotations.ForFolder(folder)
		}
		g.Nodes = append(g.Nodes, *n)
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].Folder < g.Nodes[j].Folder })

	for from, tos := range weights {
		for to, w := range tos {
			g.Edges = append(g.Edges, Edge{From: from, To: to, Weight: w})
		}
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})

	g.Stats = b.stats(g)
	return g
}

// stats computes the aggregate shape numbers over the folder graph
func (b *Builder) stats(g *Graph) Stats {
	n := len(g.Nodes)
	e := len(g.Edges)

	density := 0.0
	if n > 1 {
		density = float64(e) / float64(n*(n-1))
	}

	return Stats{
		NodeCount:  n,
		EdgeCount:  e,
		Density:    density,
		IsDAG:      isDAG(g),
		Components: weakComponents(g),
	}
}

// isDAG runs Kahn's algorithm over the folder edges
func isDAG(g *Graph) bool {
	indegree := make(map[string]int, len(g.Nodes))
	succ := make(map[string][]string)
	for _, n := range g.Nodes {
		indegree[n.Folder] = 0
	}
	for _, e := range g.Edges {
		succ[e.From] = append(succ[e.From], e.To)
		indegree[e.To]++
	}

	var ready []string
	for folder, d := range indegree {
		if d == 0 {
			ready = append(ready, folder)
		}
	}

	removed := 0
	for len(ready) > 0 {
		f := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		removed++
		for _, to := range succ[f] {
			indegree[to]--
			if indegree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}
	return removed == len(g.Nodes)
}

// weakComponents counts connected components ignoring edge direction
func weakComponents(g *Graph) int {
	adj := make(map[string][]string)
	for _, e := range g.Edges {
		adj[e.From] = append(adj[e.From], e.To)
		adj[e.To] = append(adj[e.To], e.From)
	}

	visited := make(map[string]bool, len(g.Nodes))
	components := 0
	for _, n := range g.Nodes {
		if visited[n.Folder] {
			continue
		}
		components++
		queue := []string{n.Folder}
		visited[n.Folder] = true
		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]
			for _, next := range adj[f] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return components
}
