package extract

import (
	"bufio"
	"os"
	"strings"

	"blenddoc/internal/errors"
)

// extractText counts lines and words
func extractText(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.ExtractionFailed, "cannot open text file", err)
	}
	defer f.Close()

	lines := 0
	words := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines++
		words += len(strings.Fields(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(errors.ExtractionFailed, "cannot read text file", err)
	}

	return Metadata{
		"lineCount": lines,
		"wordCount": words,
	}, nil
}
