package extract

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"blenddoc/internal/catalog"
	"blenddoc/internal/errors"
	"blenddoc/internal/logging"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNormalizeExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/p/scene.blend", "blend"},
		{"/p/TEX.PNG", "png"},
		{"/p/noext", ""},
		{"/p/archive.tar.gz", "gz"},
	}
	for _, tt := range tests {
		if got := NormalizeExtension(tt.path); got != tt.want {
			t.Errorf("NormalizeExtension(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExtractImagePNG(t *testing.T) {
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, dir, "tex.png", buf.Bytes())

	md, err := extractImage(path)
	if err != nil {
		t.Fatalf("extractImage failed: %v", err)
	}
	if md["width"] != 32 || md["height"] != 16 {
		t.Errorf("dimensions = %vx%v, want 32x16", md["width"], md["height"])
	}
	if md["format"] != "png" {
		t.Errorf("format = %v, want png", md["format"])
	}
}

func TestExtractImageUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	// EXR has no registered decoder; must still finalize with basic metadata
	path := writeFile(t, dir, "env.exr", []byte{0x76, 0x2f, 0x31, 0x01, 0x00})

	md, err := extractImage(path)
	if err != nil {
		t.Fatalf("unsupported format should not fail: %v", err)
	}
	if md["format"] != "exr" {
		t.Errorf("format = %v, want exr", md["format"])
	}
}

// buildWav constructs a minimal RIFF/WAVE file
func buildWav(channels uint16, sampleRate uint32, bits uint16, dataLen uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, channels)
	_ = binary.Write(&buf, binary.LittleEndian, sampleRate)
	byteRate := sampleRate * uint32(channels) * uint32(bits) / 8
	_ = binary.Write(&buf, binary.LittleEndian, byteRate)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(uint32(channels)*uint32(bits)/8))
	_ = binary.Write(&buf, binary.LittleEndian, bits)
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func TestExtractWav(t *testing.T) {
	dir := t.TempDir()
	// 2ch 44100Hz 16bit, 1 second of audio = 176400 bytes
	path := writeFile(t, dir, "sound.wav", buildWav(2, 44100, 16, 176400))

	md, err := extractWav(path)
	if err != nil {
		t.Fatalf("extractWav failed: %v", err)
	}
	if md["channels"] != 2 || md["sampleRate"] != 44100 || md["bitDepth"] != 16 {
		t.Errorf("unexpected metadata: %v", md)
	}
	if md["durationSeconds"] != 1.0 {
		t.Errorf("durationSeconds = %v, want 1.0", md["durationSeconds"])
	}
}

func TestExtractWavRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.wav", []byte("definitely not audio data"))

	_, err := extractWav(path)
	if err == nil {
		t.Fatal("garbage wav should fail")
	}
	if errors.CodeOf(err) != errors.ExtractionFailed {
		t.Errorf("code = %s, want EXTRACTION_FAILED", errors.CodeOf(err))
	}
}

func TestExtractText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", []byte("one two three\nfour five\n\n"))

	md, err := extractText(path)
	if err != nil {
		t.Fatalf("extractText failed: %v", err)
	}
	if md["lineCount"] != 3 {
		t.Errorf("lineCount = %v, want 3", md["lineCount"])
	}
	if md["wordCount"] != 5 {
		t.Errorf("wordCount = %v, want 5", md["wordCount"])
	}
}

func TestExtractOBJ(t *testing.T) {
	dir := t.TempDir()
	obj := `# cube fragment
mtllib cube.mtl
v 0 0 0
v 1 0 0
v 1 1 0
vn 0 0 1
vt 0 0
f 1 2 3
`
	path := writeFile(t, dir, "cube.obj", []byte(obj))

	md, err := extractOBJ(path)
	if err != nil {
		t.Fatalf("extractOBJ failed: %v", err)
	}
	if md["vertices"] != 3 || md["faces"] != 1 || md["normals"] != 1 || md["textureCoords"] != 1 {
		t.Errorf("unexpected counts: %v", md)
	}
	if md["materialLibs"] != 1 {
		t.Errorf("materialLibs = %v, want 1", md["materialLibs"])
	}
}

func TestRegistryDispatch(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "readme.md", []byte("hello world\n"))

	reg := NewRegistry(nil, logging.NewNop())

	md, refs, err := reg.Extract(context.Background(), txt, catalog.KindLeaf)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if refs != nil {
		t.Error("leaf extraction must not return references")
	}
	if md["wordCount"] != 2 {
		t.Errorf("wordCount = %v, want 2", md["wordCount"])
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	dir := t.TempDir()
	bin := writeFile(t, dir, "mystery.xyz", []byte{0x00, 0x01})

	reg := NewRegistry(nil, logging.NewNop())
	md, refs, err := reg.Extract(context.Background(), bin, catalog.KindUnknown)
	if err != nil {
		t.Fatalf("unknown kinds must not fail: %v", err)
	}
	if len(md) != 0 || refs != nil {
		t.Errorf("unknown kind should yield empty metadata, got %v / %v", md, refs)
	}
}

func TestRegistryCompositeWithoutSceneExtractor(t *testing.T) {
	reg := NewRegistry(nil, logging.NewNop())
	md, refs, err := reg.Extract(context.Background(), "/p/scene.blend", catalog.KindComposite)
	if err != nil {
		t.Fatalf("missing scene extractor must degrade, not fail: %v", err)
	}
	if refs != nil {
		t.Error("no references without scene introspection")
	}
	if md["sceneIntrospection"] != "unavailable" {
		t.Errorf("metadata = %v", md)
	}
}
