package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"blenddoc/internal/catalog"
	"blenddoc/internal/digraph"
	"blenddoc/internal/traverse"
)

const testRoot = "/project"

func sampleReport(t *testing.T) *Report {
	t.Helper()
	store := catalog.NewStore()
	links := catalog.NewRegistry()

	scene := filepath.Join(testRoot, "scenes", "a.blend")
	tex := filepath.Join(testRoot, "assets", "tex.png")
	bad := filepath.Join(testRoot, "scenes", "bad.blend")

	store.Add(scene, catalog.KindComposite, 100, "blend")
	store.Add(tex, catalog.KindLeaf, 25, "png")
	store.Add(bad, catalog.KindComposite, 10, "blend")

	store.SetStatus(scene, catalog.StatusQueued)
	store.SetStatus(scene, catalog.StatusProcessing)
	store.SetMetadata(scene, map[string]interface{}{"objectCount": 3})
	store.SetStatus(scene, catalog.StatusFinalized)

	store.SetStatus(tex, catalog.StatusQueued)
	store.SetStatus(tex, catalog.StatusProcessing)
	store.SetStatus(tex, catalog.StatusFinalized)

	store.SetStatus(bad, catalog.StatusQueued)
	store.SetStatus(bad, catalog.StatusProcessing)
	store.Fail(bad, "Timeout")

	links.RegisterEdge(catalog.LinkEdge{From: scene, To: tex})

	meta := RunMeta{
		ID:         "run-1",
		Root:       testRoot,
		StartedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 1, 10, 0, 5, 0, time.UTC),
		Summary:    traverse.Summary{FilesSeen: 3, Finalized: 2, Failed: 1, Edges: 1},
	}
	graph := digraph.NewBuilder(testRoot, false, nil).Build(store, links)
	return Build(meta, store, links, graph)
}

func TestBuildRows(t *testing.T) {
	r := sampleReport(t)

	if len(r.Files) != 3 {
		t.Fatalf("files = %+v", r.Files)
	}
	// Insertion order preserved
	if r.Files[0].Path != filepath.Join("scenes", "a.blend") {
		t.Errorf("first file = %s", r.Files[0].Path)
	}
	if r.Files[0].Folder != "scenes" || r.Files[0].Status != "finalized" {
		t.Errorf("row = %+v", r.Files[0])
	}
	if r.Files[0].Metadata["objectCount"] != 3 {
		t.Errorf("metadata = %v", r.Files[0].Metadata)
	}

	if len(r.Edges) != 1 || r.Edges[0].From != filepath.Join("scenes", "a.blend") {
		t.Errorf("edges = %+v", r.Edges)
	}
	if len(r.Failures) != 1 || r.Failures[0].Reason != "Timeout" {
		t.Errorf("failures = %+v", r.Failures)
	}
}

func TestEncodeJSONDeterministic(t *testing.T) {
	r := sampleReport(t)

	first, err := EncodeJSON(r)
	if err != nil {
		t.Fatalf("EncodeJSON failed: %v", err)
	}
	second, err := EncodeJSON(r)
	if err != nil {
		t.Fatalf("EncodeJSON failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("JSON output not byte-identical across encodes")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["run"] == nil || decoded["files"] == nil || decoded["graph"] == nil {
		t.Errorf("payload keys = %v", decoded)
	}
}

func TestEncodeYAML(t *testing.T) {
	r := sampleReport(t)
	out, err := EncodeYAML(r)
	if err != nil {
		t.Fatalf("EncodeYAML failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if !strings.Contains(string(out), "filesSeen: 3") {
		t.Errorf("yaml missing summary:\n%s", out)
	}
}

func TestRenderText(t *testing.T) {
	r := sampleReport(t)
	text := RenderText(r)

	for _, want := range []string{
		"3 seen, 2 finalized, 1 failed",
		"Failures:",
		"Timeout",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestRenderTextWithoutGraph(t *testing.T) {
	r := sampleReport(t)
	r.Graph = nil
	if strings.Contains(RenderText(r), "Folders:") {
		t.Error("graphless report should omit the folder line")
	}
}

func TestWriteCompressed(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []byte("hello report"), true); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	gz, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatalf("output is not gzip: %v", err)
	}
	defer gz.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(gz); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hello report" {
		t.Errorf("roundtrip = %q", out.String())
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.5, "0.5"},
		{1.0 / 3.0, "0.333333"},
		{2.0, "2"},
		{0.1000001, "0.1"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
