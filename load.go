package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"sketchnet/neuralnet"
	"sketchnet/sketch"
)

// vectorFile is the per-category sample file name under the samples dir.
func vectorFile(dir, category string, side int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_vector_%d.json", category, side))
}

// loadVectors reads a JSON array of equal-length numeric vectors.
func loadVectors(path string, size int) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var vectors [][]float64
	if err := json.NewDecoder(bufio.NewReader(file)).Decode(&vectors); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	for i, v := range vectors {
		if len(v) != size {
			return nil, errors.Wrapf(neuralnet.ErrShape, "%s: vector %d has %d values, want %d", path, i, len(v), size)
		}
	}
	return vectors, nil
}

// loadSamples reads every category's vectors. A missing or empty category is
// an error; training cannot start without all of them.
func loadSamples(dir string, categories []string, size int) (map[string][][]float64, error) {
	side := sideOf(size)
	byCategory := make(map[string][][]float64, len(categories))
	for _, c := range categories {
		vectors, err := loadVectors(vectorFile(dir, c, side), size)
		if err != nil {
			return nil, errors.Wrapf(err, "load samples for %s", c)
		}
		if len(vectors) == 0 {
			return nil, errors.Wrapf(neuralnet.ErrEmptyData, "no samples for %s", c)
		}
		byCategory[c] = vectors
	}
	return byCategory, nil
}

func sideOf(size int) int {
	side := 0
	for side*side < size {
		side++
	}
	return side
}

// loadInput reads one vector to classify. A full-size drawing is downscaled
// when the networks take downscaled input; any other vector is passed through
// for the ensemble to check.
func loadInput(path string, inputSize int, method sketch.Method) ([]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v []float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	if len(v) != sketch.Size*sketch.Size || inputSize != sketch.VectorSize {
		return v, nil
	}
	d, err := sketch.NewDrawing(v)
	if err != nil {
		return nil, err
	}
	return sketch.Downscale(d, method)
}

// loadPNG reads a drawing image and shapes it for networks taking inputSize
// values: the full drawing or its downscaled form.
func loadPNG(path string, inputSize int, method sketch.Method) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	d, err := sketch.DecodePNG(bufio.NewReader(file))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	switch inputSize {
	case sketch.Size * sketch.Size:
		return d.Pixels(), nil
	case sketch.VectorSize:
		return sketch.Downscale(d, method)
	}
	return nil, errors.Wrapf(neuralnet.ErrShape, "%s: a drawing gives %d or %d values, networks take %d",
		path, sketch.Size*sketch.Size, sketch.VectorSize, inputSize)
}

// savePNG dumps a square intensity vector for inspection.
func savePNG(path string, pixels []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sketch.EncodePNG(file, pixels, sideOf(len(pixels))); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

type quickDrawRecord struct {
	Drawing []sketch.Stroke `json:"drawing"`
}

// convertQuickDraw rasterizes up to limit drawings (all when limit <= 0) from
// a QuickDraw ndjson stream and writes them as one JSON array of vectors.
func convertQuickDraw(r io.Reader, w io.Writer, size, limit int) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	vectors := make([][]float64, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if limit > 0 && len(vectors) >= limit {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec quickDrawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return 0, errors.Wrapf(err, "line %d", lineNo)
		}
		vec, err := sketch.Rasterize(rec.Drawing, size)
		if err != nil {
			return 0, errors.Wrapf(err, "line %d", lineNo)
		}
		vectors = append(vectors, vec)
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrap(err, "read drawings")
	}
	if err := json.NewEncoder(w).Encode(vectors); err != nil {
		return 0, errors.Wrap(err, "write vectors")
	}
	return len(vectors), nil
}
