package annotate

import (
	"os"
	"path/filepath"
	"testing"

	"blenddoc/internal/logging"
)

func writeToml(t *testing.T, dir string, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, AnnotationFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestParseAnnotation(t *testing.T) {
	dir := t.TempDir()
	writeToml(t, dir, `
name = "Textures"
description = "Shared surface textures"
owner = "@surfacing-team"
tags = ["textures", "shared"]
`)

	ann, err := ParseAnnotation(filepath.Join(dir, AnnotationFile))
	if err != nil {
		t.Fatalf("ParseAnnotation failed: %v", err)
	}
	if ann.Name != "Textures" || ann.Owner != "@surfacing-team" {
		t.Errorf("annotation = %+v", ann)
	}
	if len(ann.Tags) != 2 || ann.Tags[0] != "textures" {
		t.Errorf("tags = %v", ann.Tags)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	root := t.TempDir()
	l := NewLoader(root, logging.NewNop())
	if ann := l.ForFolder("."); ann != nil {
		t.Errorf("expected nil annotation, got %+v", ann)
	}
}

func TestLoaderMalformedFileIsIgnored(t *testing.T) {
	root := t.TempDir()
	writeToml(t, filepath.Join(root, "assets"), "name = [broken")

	l := NewLoader(root, logging.NewNop())
	if ann := l.ForFolder("assets"); ann != nil {
		t.Errorf("malformed annotation should be ignored, got %+v", ann)
	}
}

func TestLoaderCaches(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "scenes")
	writeToml(t, sub, `name = "Scenes"`)

	l := NewLoader(root, logging.NewNop())
	first := l.ForFolder("scenes")
	if first == nil || first.Name != "Scenes" {
		t.Fatalf("annotation = %+v", first)
	}

	// Removing the file must not change the already-loaded answer
	if err := os.Remove(filepath.Join(sub, AnnotationFile)); err != nil {
		t.Fatal(err)
	}
	if second := l.ForFolder("scenes"); second != first {
		t.Error("loader did not cache")
	}
}
