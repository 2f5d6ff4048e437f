package extract

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"blenddoc/internal/errors"
)

// extractAudio parses WAV headers directly; other audio formats finalize
// with format-only metadata since their containers need format-specific
// demuxers the tool does not carry.
func extractAudio(path string, ext string) (Metadata, error) {
	if ext != "wav" {
		return Metadata{"format": ext}, nil
	}
	return extractWav(path)
}

// extractWav reads the RIFF/WAVE fmt and data chunks for channel count,
// sample rate, bit depth, and duration.
func extractWav(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.ExtractionFailed, "cannot open wav", err)
	}
	defer f.Close()

	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return nil, errors.New(errors.ExtractionFailed, "truncated wav header", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, errors.Newf(errors.ExtractionFailed, "not a RIFF/WAVE file: %s", path)
	}

	var (
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		dataSize      uint32
		haveFmt       bool
	)

	// Walk chunks until fmt and data are both seen
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			break
		}
		chunkID := string(hdr[0:4])
		chunkSize := binary.LittleEndian.Uint32(hdr[4:8])

		switch chunkID {
		case "fmt ":
			var fmtChunk [16]byte
			if _, err := io.ReadFull(f, fmtChunk[:]); err != nil {
				return nil, errors.New(errors.ExtractionFailed, "truncated fmt chunk", err)
			}
			channels = binary.LittleEndian.Uint16(fmtChunk[2:4])
			sampleRate = binary.LittleEndian.Uint32(fmtChunk[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(fmtChunk[14:16])
			haveFmt = true
			if chunkSize > 16 {
				if _, err := f.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
					break
				}
			}
		case "data":
			dataSize = chunkSize
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				break
			}
		default:
			// chunks are word-aligned
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				break
			}
		}

		if haveFmt && dataSize > 0 {
			break
		}
	}

	if !haveFmt {
		return nil, errors.Newf(errors.ExtractionFailed, "wav has no fmt chunk: %s", path)
	}

	md := Metadata{
		"format":     "wav",
		"channels":   int(channels),
		"sampleRate": int(sampleRate),
		"bitDepth":   int(bitsPerSample),
	}

	if sampleRate > 0 && channels > 0 && bitsPerSample > 0 && dataSize > 0 {
		bytesPerSecond := float64(sampleRate) * float64(channels) * float64(bitsPerSample) / 8
		duration := float64(dataSize) / bytesPerSecond
		md["durationSeconds"] = math.Round(duration*100) / 100
	}

	return md, nil
}
