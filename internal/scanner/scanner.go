// Package scanner enumerates the project root and produces the seed set for
// traversal: one (path, kind, size, extension) tuple per eligible file, in
// walk order. It also owns kind classification, which the traversal engine
// reuses for files discovered through references.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"blenddoc/internal/catalog"
	"blenddoc/internal/config"
	"blenddoc/internal/errors"
	"blenddoc/internal/logging"
	"blenddoc/internal/paths"
)

// leafExtensions are formats with no outgoing references we track
var leafExtensions = map[string]bool{
	// images
	"jpg": true, "jpeg": true, "png": true, "tiff": true, "tif": true,
	"exr": true, "hdr": true, "bmp": true, "gif": true, "webp": true,
	// audio
	"mp3": true, "wav": true, "flac": true, "aac": true, "ogg": true, "aiff": true,
	// text
	"txt": true, "md": true, "rst": true, "csv": true, "json": true,
	"xml": true, "yaml": true, "yml": true,
	// fonts
	"ttf": true, "otf": true, "woff": true, "woff2": true,
	// documents and simple 3D models
	"pdf": true, "obj": true, "fbx": true, "usd": true, "usda": true,
	"glb": true, "gltf": true,
}

// compositeExtensions are scene formats capable of referencing other files
var compositeExtensions = map[string]bool{
	"blend": true,
}

// Seed is one discovered file, ready to push onto the traversal stack
type Seed struct {
	Path      string // canonical absolute
	Kind      catalog.Kind
	SizeBytes int64
	Extension string
}

// Classifier maps a path to its Kind by extension. Extra leaf extensions
// come from configuration.
type Classifier struct {
	extraLeaf map[string]bool
}

// NewClassifier creates a classifier with optional extra leaf extensions
func NewClassifier(extraLeaf []string) *Classifier {
	extra := make(map[string]bool, len(extraLeaf))
	for _, e := range extraLeaf {
		extra[e] = true
	}
	return &Classifier{extraLeaf: extra}
}

// Classify returns the Kind for a path
func (c *Classifier) Classify(path string) catalog.Kind {
	ext := normalizeExt(path)
	switch {
	case compositeExtensions[ext]:
		return catalog.KindComposite
	case leafExtensions[ext] || c.extraLeaf[ext]:
		return catalog.KindLeaf
	default:
		return catalog.KindUnknown
	}
}

// Scanner walks a project root and emits seeds
type Scanner struct {
	root         string // canonical
	skipPatterns []string
	maxFileSize  int64
	classifier   *Classifier
	policy       paths.SymlinkPolicy
	logger       *logging.Logger
}

// New validates the project root and builds a scanner. A missing or
// unreadable root is the fatal PROJECT_ROOT_UNREADABLE.
func New(root string, cfg *config.Config, logger *logging.Logger) (*Scanner, error) {
	policy := paths.ParsePolicy(cfg.SymlinkPolicy)

	canonical, err := paths.Canonicalize(root, policy)
	if err != nil {
		return nil, errors.New(errors.ProjectRootUnreadable, "cannot canonicalize project root", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, errors.New(errors.ProjectRootUnreadable, "cannot stat project root", err)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ProjectRootUnreadable, "project root is not a directory: %s", canonical)
	}

	return &Scanner{
		root:         canonical,
		skipPatterns: cfg.Scan.SkipPatterns,
		maxFileSize:  cfg.Scan.MaxFileSizeBytes,
		classifier:   NewClassifier(cfg.Scan.ExtraLeafExtensions),
		policy:       policy,
		logger:       logger,
	}, nil
}

// Root returns the canonical project root
func (s *Scanner) Root() string {
	return s.root
}

// Classifier returns the scanner's kind classifier, shared with the engine
func (s *Scanner) Classifier() *Classifier {
	return s.classifier
}

// Scan walks the root and returns the seed sequence in walk order.
// Unreadable entries below the root are skipped with a warning, never fatal.
func (s *Scanner) Scan() ([]Seed, error) {
	var seeds []Seed

	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return errors.New(errors.ProjectRootUnreadable, "cannot read project root", err)
			}
			s.logger.Warn("skipping unreadable entry", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			return nil
		}

		rel := paths.RelTo(path, s.root)

		if d.IsDir() {
			if path != s.root && s.shouldSkip(rel, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.shouldSkip(rel, d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.logger.Warn("cannot stat file", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			return nil
		}
		if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
			s.logger.Debug("skipping oversized file", map[string]interface{}{
				"path": rel, "sizeBytes": info.Size(),
			})
			return nil
		}

		canonical, err := paths.Canonicalize(path, s.policy)
		if err != nil {
			s.logger.Warn("cannot canonicalize file", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			return nil
		}

		seeds = append(seeds, Seed{
			Path:      canonical,
			Kind:      s.classifier.Classify(canonical),
			SizeBytes: info.Size(),
			Extension: normalizeExt(canonical),
		})
		return nil
	})

	if walkErr != nil {
		return nil, walkErr
	}
	return seeds, nil
}

// shouldSkip matches a pattern against the project-relative path and the
// base name, so both `assets/**/*.tmp` and plain names like `.git` work.
func (s *Scanner) shouldSkip(rel string, name string) bool {
	for _, pattern := range s.skipPatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

func normalizeExt(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
