// Package extract produces per-file metadata and, for composite scene files,
// the list of referenced paths. The traversal engine depends only on the
// Extractor interface; the concrete dispatch by file kind lives here.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"blenddoc/internal/catalog"
	"blenddoc/internal/logging"
)

// Metadata is the opaque per-file structure stored on a finalized record.
// Its shape varies by file kind.
type Metadata = map[string]interface{}

// Extractor is the capability boundary between the traversal engine and
// file-format introspection. References are returned only for composite
// kinds and may be absolute or relative to the referencing file's directory.
type Extractor interface {
	Extract(ctx context.Context, path string, kind catalog.Kind) (Metadata, []string, error)
}

// SceneExtractor introspects a single composite scene file. The Blender
// subprocess integration implements it; tests substitute fakes.
type SceneExtractor interface {
	ExtractScene(ctx context.Context, path string) (Metadata, []string, error)
}

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "tiff": true, "tif": true,
	"bmp": true, "gif": true, "webp": true, "exr": true, "hdr": true,
}

var audioExtensions = map[string]bool{
	"mp3": true, "wav": true, "flac": true, "aac": true, "ogg": true, "aiff": true,
}

var textExtensions = map[string]bool{
	"txt": true, "md": true, "rst": true, "csv": true, "json": true,
	"xml": true, "yaml": true, "yml": true,
}

// Registry dispatches extraction by kind and extension. A nil scene
// extractor means composite files get basic metadata only and no references,
// mirroring a run without a Blender installation.
type Registry struct {
	scenes SceneExtractor
	logger *logging.Logger
}

// NewRegistry creates an extractor registry
func NewRegistry(scenes SceneExtractor, logger *logging.Logger) *Registry {
	return &Registry{scenes: scenes, logger: logger}
}

// Extract implements Extractor
func (r *Registry) Extract(ctx context.Context, path string, kind catalog.Kind) (Metadata, []string, error) {
	if kind == catalog.KindComposite {
		if r.scenes == nil {
			return Metadata{"sceneIntrospection": "unavailable"}, nil, nil
		}
		return r.scenes.ExtractScene(ctx, path)
	}

	ext := NormalizeExtension(path)
	switch {
	case imageExtensions[ext]:
		md, err := extractImage(path)
		return md, nil, err
	case audioExtensions[ext]:
		md, err := extractAudio(path, ext)
		return md, nil, err
	case textExtensions[ext]:
		md, err := extractText(path)
		return md, nil, err
	case ext == "obj":
		md, err := extractOBJ(path)
		return md, nil, err
	default:
		// Unknown leaf formats still finalize, with empty metadata
		return Metadata{}, nil, nil
	}
}

// NormalizeExtension returns the lowercase extension without the leading dot
func NormalizeExtension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
