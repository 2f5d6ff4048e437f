package extract

import (
	"bufio"
	"os"
	"strings"

	"blenddoc/internal/errors"
)

// extractOBJ counts geometry statements in Wavefront OBJ files. Material
// library statements are counted but not followed; OBJ files are leaves.
func extractOBJ(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.ExtractionFailed, "cannot open obj", err)
	}
	defer f.Close()

	var vertices, faces, normals, texCoords, materialLibs int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "v "):
			vertices++
		case strings.HasPrefix(line, "vn "):
			normals++
		case strings.HasPrefix(line, "vt "):
			texCoords++
		case strings.HasPrefix(line, "f "):
			faces++
		case strings.HasPrefix(line, "mtllib "):
			materialLibs++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(errors.ExtractionFailed, "cannot read obj", err)
	}

	return Metadata{
		"modelType":     "obj",
		"vertices":      vertices,
		"faces":         faces,
		"normals":       normals,
		"textureCoords": texCoords,
		"materialLibs":  materialLibs,
	}, nil
}
