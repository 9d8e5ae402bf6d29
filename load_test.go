package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"sketchnet/ensemble"
	"sketchnet/neuralnet"
	"sketchnet/sketch"
)

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeSamples writes n vectors of length size for every category. Category i
// lights up input i%size so the categories are distinguishable.
func writeSamples(t *testing.T, dir string, size, n int) {
	t.Helper()
	for ci, c := range ensemble.Categories {
		vectors := make([][]float64, n)
		for j := range vectors {
			v := make([]float64, size)
			v[ci%size] = 1
			v[(ci+j)%size] += 0.1
			vectors[j] = v
		}
		writeJSON(t, vectorFile(dir, c, sideOf(size)), vectors)
	}
}

func TestLoadSamples(t *testing.T) {
	dir := t.TempDir()
	writeSamples(t, dir, 4, 6)
	got, err := loadSamples(dir, ensemble.Categories, 4)
	if err != nil {
		t.Fatalf("loadSamples error: %v", err)
	}
	for _, c := range ensemble.Categories {
		if len(got[c]) != 6 {
			t.Errorf("%s: %d vectors; want 6", c, len(got[c]))
		}
	}
}

func TestLoadSamplesErrors(t *testing.T) {
	t.Run("missing category", func(t *testing.T) {
		dir := t.TempDir()
		writeSamples(t, dir, 4, 2)
		if err := os.Remove(vectorFile(dir, "fork", 2)); err != nil {
			t.Fatal(err)
		}
		if _, err := loadSamples(dir, ensemble.Categories, 4); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v; want not-exist", err)
		}
	})
	t.Run("empty category", func(t *testing.T) {
		dir := t.TempDir()
		writeSamples(t, dir, 4, 2)
		writeJSON(t, vectorFile(dir, "star", 2), [][]float64{})
		if _, err := loadSamples(dir, ensemble.Categories, 4); !errors.Is(err, neuralnet.ErrEmptyData) {
			t.Errorf("err = %v; want ErrEmptyData", err)
		}
	})
	t.Run("wrong length", func(t *testing.T) {
		dir := t.TempDir()
		writeSamples(t, dir, 4, 2)
		writeJSON(t, vectorFile(dir, "apple", 2), [][]float64{{1, 2, 3}})
		if _, err := loadSamples(dir, ensemble.Categories, 4); !errors.Is(err, neuralnet.ErrShape) {
			t.Errorf("err = %v; want ErrShape", err)
		}
	})
}

func TestVectorFile(t *testing.T) {
	if got, want := vectorFile("data", "apple", 14), filepath.Join("data", "apple_vector_14.json"); got != want {
		t.Errorf("vectorFile = %q; want %q", got, want)
	}
	if got := sideOf(196); got != 14 {
		t.Errorf("sideOf(196) = %d; want 14", got)
	}
}

func TestLoadInput(t *testing.T) {
	dir := t.TempDir()

	small := make([]float64, sketch.VectorSize)
	small[3] = 1
	writeJSON(t, filepath.Join(dir, "small.json"), small)
	got, err := loadInput(filepath.Join(dir, "small.json"), sketch.VectorSize, sketch.Average)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != sketch.VectorSize || got[3] != 1 {
		t.Errorf("loadInput(196) = %v", got)
	}

	full := make([]float64, sketch.Size*sketch.Size)
	full[0], full[1] = 1, 1
	writeJSON(t, filepath.Join(dir, "full.json"), full)
	got, err = loadInput(filepath.Join(dir, "full.json"), sketch.VectorSize, sketch.Average)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != sketch.VectorSize || got[0] != 0.5 {
		t.Errorf("loadInput(784) len %d first %v; want 196 and 0.5", len(got), got[0])
	}

	// Networks trained on full-size drawings get the drawing unchanged.
	got, err = loadInput(filepath.Join(dir, "full.json"), sketch.Size*sketch.Size, sketch.Average)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != sketch.Size*sketch.Size || got[0] != 1 || got[1] != 1 || got[2] != 0 {
		t.Errorf("loadInput(784) for 784-input networks len %d; want the drawing unchanged", len(got))
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadInput(filepath.Join(dir, "bad.json"), sketch.VectorSize, sketch.Average); err == nil {
		t.Error("loadInput of malformed JSON did not return error")
	}
}

func TestSaveAndLoadPNG(t *testing.T) {
	dir := t.TempDir()
	pixels := make([]float64, sketch.Size*sketch.Size)
	for i := 0; i < sketch.Size; i++ {
		pixels[i*sketch.Size+i] = 1
	}
	path := filepath.Join(dir, "diag.png")
	if err := savePNG(path, pixels); err != nil {
		t.Fatalf("savePNG error: %v", err)
	}
	got, err := loadPNG(path, sketch.VectorSize, sketch.MaxPool)
	if err != nil {
		t.Fatalf("loadPNG error: %v", err)
	}
	for i := 0; i < sketch.ScaledSize; i++ {
		if got[i*sketch.ScaledSize+i] != 1 {
			t.Errorf("diagonal block %d = %v; want 1", i, got[i*sketch.ScaledSize+i])
		}
	}
	if got[1] != 0 {
		t.Errorf("off-diagonal block = %v; want 0", got[1])
	}

	full, err := loadPNG(path, sketch.Size*sketch.Size, sketch.MaxPool)
	if err != nil {
		t.Fatalf("loadPNG for 784-input networks error: %v", err)
	}
	for i := range pixels {
		if full[i] != pixels[i] {
			t.Fatalf("pixel %d = %v; want %v", i, full[i], pixels[i])
		}
	}

	if _, err := loadPNG(path, 10, sketch.MaxPool); !errors.Is(err, neuralnet.ErrShape) {
		t.Errorf("loadPNG for 10-input networks err = %v; want ErrShape", err)
	}
}

func TestConvertQuickDraw(t *testing.T) {
	in := strings.Join([]string{
		`{"word":"apple","drawing":[[[0,255],[0,255]]]}`,
		``,
		`{"word":"apple","drawing":[[[10],[20]],[[100,110],[200,210]]]}`,
		`{"word":"apple","drawing":[[[5],[5]]]}`,
	}, "\n")

	var out bytes.Buffer
	n, err := convertQuickDraw(strings.NewReader(in), &out, 14, 2)
	if err != nil {
		t.Fatalf("convertQuickDraw error: %v", err)
	}
	if n != 2 {
		t.Errorf("converted %d; want 2", n)
	}
	var vectors [][]float64
	if err := json.Unmarshal(out.Bytes(), &vectors); err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 2 || len(vectors[0]) != 196 {
		t.Fatalf("vectors shape = %d x %d; want 2 x 196", len(vectors), len(vectors[0]))
	}
	if vectors[0][0] != 1 || vectors[0][195] != 1 {
		t.Errorf("first drawing corners = %v, %v; want 1, 1", vectors[0][0], vectors[0][195])
	}

	if _, err := convertQuickDraw(strings.NewReader("not json\n"), &out, 14, 0); err == nil {
		t.Error("convertQuickDraw of malformed line did not return error")
	}
}
