package extract

import (
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"

	"blenddoc/internal/errors"
)

// extractImage reads image dimensions and format without decoding pixels.
// Formats without a registered decoder (exr, hdr, webp, tiff) finalize with
// format-only metadata rather than failing.
func extractImage(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.ExtractionFailed, "cannot open image", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		if err == image.ErrFormat {
			return Metadata{"format": NormalizeExtension(path)}, nil
		}
		return nil, errors.New(errors.ExtractionFailed, "cannot decode image header", err)
	}

	return Metadata{
		"format":     format,
		"width":      cfg.Width,
		"height":     cfg.Height,
		"dimensions": fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
	}, nil
}
