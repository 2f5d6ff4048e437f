package digraph

import (
	"path/filepath"
	"strings"
	"testing"

	"blenddoc/internal/catalog"
)

const testRoot = "/project"

func addFile(t *testing.T, store *catalog.Store, rel string, size int64) string {
	t.Helper()
	path := filepath.Join(testRoot, filepath.FromSlash(rel))
	if _, err := store.Add(path, catalog.KindLeaf, size, ""); err != nil {
		t.Fatal(err)
	}
	return path
}

func edge(from, to string) catalog.LinkEdge {
	return catalog.LinkEdge{
		From: filepath.Join(testRoot, filepath.FromSlash(from)),
		To:   filepath.Join(testRoot, filepath.FromSlash(to)),
	}
}

func TestBuildGroupsByFolder(t *testing.T) {
	store := catalog.NewStore()
	links := catalog.NewRegistry()

	addFile(t, store, "scenes/a.blend", 100)
	addFile(t, store, "scenes/b.blend", 50)
	addFile(t, store, "assets/tex.png", 25)
	addFile(t, store, "readme.txt", 5)

	links.RegisterEdge(edge("scenes/a.blend", "assets/tex.png"))
	links.RegisterEdge(edge("scenes/b.blend", "assets/tex.png"))
	links.RegisterEdge(edge("scenes/a.blend", "scenes/b.blend"))

	g := NewBuilder(testRoot, false, nil).Build(store, links)

	if len(g.Nodes) != 3 {
		t.Fatalf("nodes = %+v", g.Nodes)
	}
	// Sorted lexicographically: ".", "assets", "scenes"
	if g.Nodes[0].Folder != "." || g.Nodes[1].Folder != "assets" || g.Nodes[2].Folder != "scenes" {
		t.Errorf("node order = %v %v %v", g.Nodes[0].Folder, g.Nodes[1].Folder, g.Nodes[2].Folder)
	}

	scenes := g.Nodes[2]
	if scenes.FileCount != 2 || scenes.TotalSizeBytes != 150 {
		t.Errorf("scenes node = %+v", scenes)
	}
	if scenes.SelfRefs != 1 {
		t.Errorf("scenes selfRefs = %d, want 1 (a->b stays in folder)", scenes.SelfRefs)
	}

	if len(g.Edges) != 1 {
		t.Fatalf("edges = %+v", g.Edges)
	}
	e := g.Edges[0]
	if e.From != "scenes" || e.To != "assets" || e.Weight != 2 {
		t.Errorf("edge = %+v", e)
	}
}

func TestBuildUnresolvedCountsButNoEdge(t *testing.T) {
	store := catalog.NewStore()
	links := catalog.NewRegistry()
	addFile(t, store, "scenes/a.blend", 10)

	links.RegisterEdge(catalog.LinkEdge{
		From:       filepath.Join(testRoot, "scenes", "a.blend"),
		To:         filepath.Join(testRoot, "missing", "tex.png"),
		Unresolved: true,
	})

	g := NewBuilder(testRoot, false, nil).Build(store, links)
	if len(g.Edges) != 0 {
		t.Errorf("unresolved reference produced an edge: %+v", g.Edges)
	}
	if g.Nodes[0].UnresolvedRefs != 1 {
		t.Errorf("node = %+v", g.Nodes[0])
	}
}

func TestBuildExternalNode(t *testing.T) {
	store := catalog.NewStore()
	addFile(t, store, "scenes/a.blend", 10)

	ext := catalog.LinkEdge{
		From:     filepath.Join(testRoot, "scenes", "a.blend"),
		To:       "/shared/library/tex.png",
		External: true,
	}

	t.Run("not followed", func(t *testing.T) {
		l := catalog.NewRegistry()
		l.RegisterEdge(ext)
		g := NewBuilder(testRoot, false, nil).Build(store, l)
		if len(g.Edges) != 0 {
			t.Errorf("edges = %+v", g.Edges)
		}
		for _, n := range g.Nodes {
			if n.Folder == ExternalNode {
				t.Error("external node present without followExternal")
			}
		}
		if g.Nodes[0].ExternalRefs != 1 {
			t.Errorf("node = %+v", g.Nodes[0])
		}
	})

	t.Run("followed", func(t *testing.T) {
		l := catalog.NewRegistry()
		l.RegisterEdge(ext)
		g := NewBuilder(testRoot, true, nil).Build(store, l)
		if len(g.Edges) != 1 || g.Edges[0].To != ExternalNode {
			t.Errorf("edges = %+v", g.Edges)
		}
	})
}

func TestStatsDAGAndComponents(t *testing.T) {
	store := catalog.NewStore()
	links := catalog.NewRegistry()
	addFile(t, store, "a/one.blend", 1)
	addFile(t, store, "b/two.blend", 1)
	addFile(t, store, "c/three.png", 1)
	addFile(t, store, "island/lonely.png", 1)

	links.RegisterEdge(edge("a/one.blend", "b/two.blend"))
	links.RegisterEdge(edge("b/two.blend", "c/three.png"))

	g := NewBuilder(testRoot, false, nil).Build(store, links)
	if !g.Stats.IsDAG {
		t.Error("chain should be a DAG")
	}
	if g.Stats.Components != 2 {
		t.Errorf("components = %d, want 2", g.Stats.Components)
	}
	if g.Stats.NodeCount != 4 || g.Stats.EdgeCount != 2 {
		t.Errorf("stats = %+v", g.Stats)
	}
	wantDensity := 2.0 / 12.0
	if g.Stats.Density != wantDensity {
		t.Errorf("density = %v, want %v", g.Stats.Density, wantDensity)
	}
}

func TestStatsCycleIsNotDAG(t *testing.T) {
	store := catalog.NewStore()
	links := catalog.NewRegistry()
	addFile(t, store, "a/one.blend", 1)
	addFile(t, store, "b/two.blend", 1)

	links.RegisterEdge(edge("a/one.blend", "b/two.blend"))
	links.RegisterEdge(edge("b/two.blend", "a/one.blend"))

	g := NewBuilder(testRoot, false, nil).Build(store, links)
	if g.Stats.IsDAG {
		t.Error("two-folder cycle reported as DAG")
	}
	if g.Stats.Components != 1 {
		t.Errorf("components = %d, want 1", g.Stats.Components)
	}
}

func TestRenderDOT(t *testing.T) {
	store := catalog.NewStore()
	links := catalog.NewRegistry()
	addFile(t, store, "scenes/a.blend", 1)
	addFile(t, store, "assets/tex.png", 1)
	links.RegisterEdge(edge("scenes/a.blend", "assets/tex.png"))

	g := NewBuilder(testRoot, false, nil).Build(store, links)
	dot := RenderDOT(g)

	for _, want := range []string{
		"digraph dependencies {",
		`"scenes" -> "assets" [label="1", weight=1];`,
		`"assets" [label="assets\n1 files"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot output missing %q:\n%s", want, dot)
		}
	}
}
