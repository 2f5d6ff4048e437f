package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"blenddoc/internal/errors"
	"blenddoc/internal/logging"
)

// probeMarker prefixes the single stdout line carrying the probe's JSON
// payload, so it survives whatever else Blender prints while loading a file.
const probeMarker = "BLENDDOC_JSON:"

// probeScript runs inside headless Blender. It opens the blend file named
// after "--", counts datablocks, and collects linked library and unpacked
// image paths.
const probeScript = `
import bpy, json, sys

blend_path = sys.argv[sys.argv.index("--") + 1]
result = {"error": None, "objects": 0, "scenes": 0, "materials": 0,
          "meshes": 0, "vertices": 0, "libraries": [], "images": []}
try:
    bpy.ops.wm.open_mainfile(filepath=blend_path)
    result["objects"] = len(bpy.data.objects)
    result["scenes"] = len(bpy.data.scenes)
    result["materials"] = len(bpy.data.materials)
    result["meshes"] = len(bpy.data.meshes)
    result["vertices"] = sum(len(m.vertices) for m in bpy.data.meshes)
    result["libraries"] = [l.filepath for l in bpy.data.libraries if l.filepath]
    result["images"] = [i.filepath for i in bpy.data.images
                        if i.filepath and not i.packed_file]
except Exception as e:
    result["error"] = str(e)
print("BLENDDOC_JSON:" + json.dumps(result))
`

// probeResult is the JSON payload emitted by the probe script
type probeResult struct {
	Error     string   `json:"error"`
	Objects   int      `json:"objects"`
	Scenes    int      `json:"scenes"`
	Materials int      `json:"materials"`
	Meshes    int      `json:"meshes"`
	Vertices  int      `json:"vertices"`
	Libraries []string `json:"libraries"`
	Images    []string `json:"images"`
}

// BlenderExtractor introspects .blend files by running Blender headless.
// Each extraction is a synchronous subprocess call bounded by the configured
// timeout; a timeout is an extraction failure, never an engine crash.
type BlenderExtractor struct {
	exe     string
	timeout time.Duration
	logger  *logging.Logger
}

// NewBlenderExtractor locates the Blender executable (PATH lookup when
// exePath is empty) and returns a scene extractor.
func NewBlenderExtractor(exePath string, timeout time.Duration, logger *logging.Logger) (*BlenderExtractor, error) {
	if exePath == "" {
		found, err := exec.LookPath("blender")
		if err != nil {
			return nil, errors.New(errors.ExtractionFailed,
				"blender executable not found in PATH; set blender.path in config", err)
		}
		exePath = found
	}
	return &BlenderExtractor{exe: exePath, timeout: timeout, logger: logger}, nil
}

// ExtractScene implements SceneExtractor
func (b *BlenderExtractor) ExtractScene(ctx context.Context, path string) (Metadata, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.exe,
		"--background", "--factory-startup",
		"--python-expr", probeScript,
		"--", path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	b.logger.Debug("blender probe finished", map[string]interface{}{
		"path":       path,
		"durationMs": time.Since(start).Milliseconds(),
	})

	if ctx.Err() == context.DeadlineExceeded {
		return nil, nil, errors.Newf(errors.ExtractorTimeout,
			"blender did not finish within %s for %s", b.timeout, path)
	}

	md, refs, parseErr := parseProbeOutput(stdout.String())
	if parseErr != nil {
		// Prefer the subprocess failure when the payload is missing too
		if runErr != nil {
			return nil, nil, errors.New(errors.ExtractionFailed, "blender probe failed", runErr).
				WithDetails(strings.TrimSpace(stderr.String()))
		}
		return nil, nil, parseErr
	}

	return md, refs, nil
}

// parseProbeOutput finds the marker line in probe stdout and decodes it.
// Blender path conventions are normalized here: "//" prefixes mean relative
// to the blend file's directory, which is exactly how the engine resolves
// relative references, so the prefix is just stripped.
func parseProbeOutput(out string) (Metadata, []string, error) {
	var payload string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, probeMarker) {
			payload = strings.TrimPrefix(line, probeMarker)
		}
	}
	if payload == "" {
		return nil, nil, errors.Newf(errors.ExtractionFailed, "blender probe produced no payload")
	}

	var result probeResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, nil, errors.New(errors.ExtractionFailed, "cannot decode blender probe payload", err)
	}
	if result.Error != "" {
		return nil, nil, errors.Newf(errors.ExtractionFailed, "blender could not open file: %s", result.Error)
	}

	md := Metadata{
		"objectCount":      result.Objects,
		"sceneCount":       result.Scenes,
		"materialCount":    result.Materials,
		"meshCount":        result.Meshes,
		"totalVertexCount": result.Vertices,
	}

	refs := make([]string, 0, len(result.Libraries)+len(result.Images))
	for _, ref := range append(result.Libraries, result.Images...) {
		refs = append(refs, normalizeBlenderPath(ref))
	}

	return md, refs, nil
}

// normalizeBlenderPath strips Blender's blend-file-relative "//" prefix
func normalizeBlenderPath(p string) string {
	if strings.HasPrefix(p, "//") {
		return strings.TrimPrefix(p, "//")
	}
	return p
}
