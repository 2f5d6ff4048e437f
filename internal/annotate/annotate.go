// Package annotate reads optional per-folder FOLDER.toml files that let
// artists document what a folder holds. Annotations are advisory: a missing
// file is normal and a malformed one is a warning, never an error.
package annotate

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"blenddoc/internal/logging"
)

// AnnotationFile is the filename looked up in every project folder
const AnnotationFile = "FOLDER.toml"

// Annotation is the parsed content of one FOLDER.toml
type Annotation struct {
	// Name is a human-readable name for the folder
	Name string `toml:"name" json:"name" yaml:"name"`

	// Description is a one-line description of the folder's contents
	Description string `toml:"description,omitempty" json:"description,omitempty" yaml:"description,omitempty"`

	// Owner is the owner reference (e.g., @lighting-team or user@email.com)
	Owner string `toml:"owner,omitempty" json:"owner,omitempty" yaml:"owner,omitempty"`

	// Tags are free-form classification tags
	Tags []string `toml:"tags,omitempty" json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ParseAnnotation parses a FOLDER.toml file at the given path
func ParseAnnotation(filePath string) (*Annotation, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", AnnotationFile, err)
	}

	var ann Annotation
	if err := toml.Unmarshal(data, &ann); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", AnnotationFile, err)
	}
	return &ann, nil
}

// Loader resolves annotations for project folders, caching by folder path so
// the digraph builder can ask once per node.
type Loader struct {
	root   string
	logger *logging.Logger
	cache  map[string]*Annotation
}

// NewLoader creates an annotation loader rooted at the canonical project root
func NewLoader(root string, logger *logging.Logger) *Loader {
	return &Loader{
		root:   root,
		logger: logger,
		cache:  make(map[string]*Annotation),
	}
}

// ForFolder returns the annotation for a project-relative folder ("." for the
// root), or nil when the folder has none. Parse failures are logged and
// treated as no annotation.
func (l *Loader) ForFolder(rel string) *Annotation {
	if ann, ok := l.cache[rel]; ok {
		return ann
	}

	filePath := filepath.Join(l.root, filepath.FromSlash(rel), AnnotationFile)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		l.cache[rel] = nil
		return nil
	}

	ann, err := ParseAnnotation(filePath)
	if err != nil {
		l.logger.Warn("ignoring malformed folder annotation", map[string]interface{}{
			"folder": rel, "error": err.Error(),
		})
		l.cache[rel] = nil
		return nil
	}
	l.cache[rel] = ann
	return ann
}
