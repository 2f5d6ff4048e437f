// Package paths provides path canonicalization and project-root containment
// checks. Every path stored in the catalog goes through Canonicalize first so
// the same file is never recorded twice under different spellings.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// SymlinkPolicy controls how symlinks are treated during canonicalization.
// A reference can resolve both inside and outside the project root depending
// on whether links are followed, so the choice is explicit configuration.
type SymlinkPolicy string

const (
	// ResolveSymlinks resolves symlinks to their real paths
	ResolveSymlinks SymlinkPolicy = "resolve"
	// KeepSymlinks canonicalizes lexically without following symlinks
	KeepSymlinks SymlinkPolicy = "keep"
)

// ParsePolicy converts a string to a SymlinkPolicy, defaulting to resolve.
func ParsePolicy(s string) SymlinkPolicy {
	if SymlinkPolicy(s) == KeepSymlinks {
		return KeepSymlinks
	}
	return ResolveSymlinks
}

// Canonicalize converts a path to canonical absolute form:
// - Makes the path absolute and lexically clean
// - Under ResolveSymlinks, resolves symlinks to real paths; a path that does
//   not exist yet is kept as-is so unresolved references remain representable
func Canonicalize(path string, policy SymlinkPolicy) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	if policy == ResolveSymlinks {
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return abs, nil
			}
			return "", err
		}
		return resolved, nil
	}

	return abs, nil
}

// ResolveReference canonicalizes a referenced path. Relative references are
// resolved against the directory of the referencing file.
func ResolveReference(ref string, referrerDir string, policy SymlinkPolicy) (string, error) {
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(referrerDir, ref)
	}
	return Canonicalize(ref, policy)
}

// IsWithin checks whether a canonical path lies inside the canonical root.
// The root itself counts as inside.
func IsWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

// RelTo returns the project-relative form of a canonical path with forward
// slashes. The root itself maps to ".". Paths outside the root are returned
// unchanged (absolute).
func RelTo(path string, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// FolderOf returns the project-relative folder of a file, "." for files
// directly under the root. For files outside the root it returns the
// absolute containing directory.
func FolderOf(path string, root string) string {
	return RelTo(filepath.Dir(path), root)
}
