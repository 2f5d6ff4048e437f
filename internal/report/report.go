// Package report assembles a finished run into a single payload and renders
// it as deterministic JSON, YAML or a plain-text summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"blenddoc/internal/catalog"
	"blenddoc/internal/digraph"
	"blenddoc/internal/paths"
	"blenddoc/internal/traverse"
)

// RunMeta identifies the run a report describes
type RunMeta struct {
	ID             string           `json:"id" yaml:"id"`
	Root           string           `json:"root" yaml:"root"`
	StartedAt      time.Time        `json:"startedAt" yaml:"startedAt"`
	FinishedAt     time.Time        `json:"finishedAt" yaml:"finishedAt"`
	FollowExternal bool             `json:"followExternal" yaml:"followExternal"`
	Summary        traverse.Summary `json:"summary" yaml:"summary"`
}

// FileRow is one catalog record, with paths made project-relative
type FileRow struct {
	Path       string                 `json:"path" yaml:"path"`
	Folder     string                 `json:"folder" yaml:"folder"`
	Kind       string                 `json:"kind" yaml:"kind"`
	Status     string                 `json:"status" yaml:"status"`
	Extension  string                 `json:"extension,omitempty" yaml:"extension,omitempty"`
	SizeBytes  int64                  `json:"sizeBytes" yaml:"sizeBytes"`
	FailReason string                 `json:"failReason,omitempty" yaml:"failReason,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// EdgeRow is one link edge, project-relative
type EdgeRow struct {
	From         string `json:"from" yaml:"from"`
	To           string `json:"to" yaml:"to"`
	External     bool   `json:"external,omitempty" yaml:"external,omitempty"`
	Unresolved   bool   `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	CycleClosing bool   `json:"cycleClosing,omitempty" yaml:"cycleClosing,omitempty"`
}

// Failure pairs a failed file with its reason, for the report's failure list
type Failure struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Report is the complete payload rendered by the report command
type Report struct {
	Run      RunMeta        `json:"run" yaml:"run"`
	Files    []FileRow      `json:"files" yaml:"files"`
	Edges    []EdgeRow      `json:"edges,omitempty" yaml:"edges,omitempty"`
	Graph    *digraph.Graph `json:"graph,omitempty" yaml:"graph,omitempty"`
	Failures []Failure      `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Build assembles the payload. Files keep catalog insertion order; edges are
// sorted lexicographically. A nil graph omits the graph section, which is how
// --details-only renders.
func Build(meta RunMeta, store *catalog.Store, links *catalog.Registry, graph *digraph.Graph) *Report {
	r := &Report{Run: meta, Graph: graph}

	for rec := range store.All() {
		r.Files = append(r.Files, FileRow{
			Path:       paths.RelTo(rec.Path, meta.Root),
			Folder:     paths.FolderOf(rec.Path, meta.Root),
			Kind:       string(rec.Kind),
			Status:     string(rec.Status),
			Extension:  rec.Extension,
			SizeBytes:  rec.SizeBytes,
			FailReason: rec.FailReason,
			Metadata:   rec.Metadata,
		})
		if rec.Status == catalog.StatusFailed {
			r.Failures = append(r.Failures, Failure{
				Path:   paths.RelTo(rec.Path, meta.Root),
				Reason: rec.FailReason,
			})
		}
	}

	for _, e := range links.AllEdges() {
		r.Edges = append(r.Edges, EdgeRow{
			From:         paths.RelTo(e.From, meta.Root),
			To:           paths.RelTo(e.To, meta.Root),
			External:     e.External,
			Unresolved:   e.Unresolved,
			CycleClosing: e.CycleClosing,
		})
	}
	sort.Slice(r.Edges, func(i, j int) bool {
		if r.Edges[i].From != r.Edges[j].From {
			return r.Edges[i].From < r.Edges[j].From
		}
		return r.Edges[i].To < r.Edges[j].To
	})
	sort.Slice(r.Failures, func(i, j int) bool { return r.Failures[i].Path < r.Failures[j].Path })

	return r
}

// EncodeJSON renders the report as deterministic, indented JSON
func EncodeJSON(r *Report) ([]byte, error) {
	return DeterministicEncodeIndented(r, "  ")
}

// EncodeYAML renders the report as YAML
func EncodeYAML(r *Report) ([]byte, error) {
	return yaml.Marshal(r)
}

// RenderText renders a human-readable summary
func RenderText(r *Report) string {
	var b strings.Builder
	s := r.Run.Summary

	fmt.Fprintf(&b, "Project: %s\n", r.Run.Root)
	fmt.Fprintf(&b, "Run:     %s (%s)\n", r.Run.ID, r.Run.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Files:   %d seen, %d finalized, %d failed\n", s.FilesSeen, s.Finalized, s.Failed)
	fmt.Fprintf(&b, "Links:   %d edges, %d cycles broken, %d unresolved, %d external\n",
		s.Edges, s.CyclesBroken, s.UnresolvedRefs, s.ExternalRefs)

	if r.Graph != nil {
		g := r.Graph.Stats
		fmt.Fprintf(&b, "Folders: %d nodes, %d edges, density %s, dag=%t, components=%d\n",
			g.NodeCount, g.EdgeCount, FormatFloat(g.Density), g.IsDAG, g.Components)
	}

	if len(r.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  %s: %s\n", f.Path, f.Reason)
		}
	}
	return b.String()
}

// Write writes encoded report bytes, gzipping them when compress is set
func Write(w io.Writer, data []byte, compress bool) error {
	if !compress {
		_, err := w.Write(data)
		return err
	}

	gz := gzip.NewWriter(w)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
