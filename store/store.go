// Package store persists per-category checkpoints as plain-text numeric dumps.
//
// A category's files live in their own directory:
//
//	<dir>/<category>/weightsInputHidden.txt
//	<dir>/<category>/weightsHiddenOutput.txt
//	<dir>/<category>/biasHidden.txt
//	<dir>/<category>/biasOutput.txt
//	<dir>/<category>/BestError.txt
package store

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"sketchnet/neuralnet"
)

const (
	weightsInputHiddenFile  = "weightsInputHidden.txt"
	weightsHiddenOutputFile = "weightsHiddenOutput.txt"
	biasHiddenFile          = "biasHidden.txt"
	biasOutputFile          = "biasOutput.txt"
	bestErrorFile           = "BestError.txt"
)

// FileStore reads and writes checkpoints under Dir.
type FileStore struct {
	Dir string
}

func New(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(category, name string) string {
	return filepath.Join(s.Dir, category, name)
}

// LoadBestError returns the stored best validation error for category. A
// missing or empty file yields neuralnet.NoBestError so a fresh run can start.
func (s *FileStore) LoadBestError(category string) (float64, error) {
	raw, err := os.ReadFile(s.path(category, bestErrorFile))
	if errors.Is(err, os.ErrNotExist) {
		return neuralnet.NoBestError, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read best error for %s", category)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return neuralnet.NoBestError, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse best error for %s", category)
	}
	return v, nil
}

// SaveBestError overwrites the best-error file for category.
func (s *FileStore) SaveBestError(category string, v float64) error {
	return s.writeFile(category, bestErrorFile, func(w io.Writer) error {
		_, err := io.WriteString(w, strconv.FormatFloat(v, 'g', -1, 64)+"\n")
		return err
	})
}

// SaveParams writes the four parameter tensors of category.
func (s *FileStore) SaveParams(category string, p neuralnet.Params) error {
	if _, _, _, err := p.Sizes(); err != nil {
		return errors.Wrapf(err, "save params for %s", category)
	}
	writes := []struct {
		name string
		fn   func(io.Writer) error
	}{
		{weightsInputHiddenFile, func(w io.Writer) error { return WriteMatrix(w, p.WeightsInputHidden) }},
		{weightsHiddenOutputFile, func(w io.Writer) error { return WriteMatrix(w, p.WeightsHiddenOutput) }},
		{biasHiddenFile, func(w io.Writer) error { return WriteVector(w, p.BiasHidden) }},
		{biasOutputFile, func(w io.Writer) error { return WriteVector(w, p.BiasOutput) }},
	}
	for _, wr := range writes {
		if err := s.writeFile(category, wr.name, wr.fn); err != nil {
			return err
		}
	}
	return nil
}

// SaveCheckpoint writes the parameters first and the best error last, so the
// best-error file never advertises parameters that were not written.
func (s *FileStore) SaveCheckpoint(category string, cp neuralnet.Checkpoint) error {
	if err := s.SaveParams(category, cp.Params); err != nil {
		return err
	}
	return s.SaveBestError(category, cp.BestError)
}

// LoadParams reads category's tensors, which must have the given sizes.
func (s *FileStore) LoadParams(category string, inputSize, hiddenSize, outputSize int) (neuralnet.Params, error) {
	var p neuralnet.Params
	err := s.readFile(category, weightsInputHiddenFile, func(r io.Reader) (err error) {
		p.WeightsInputHidden, err = ReadMatrix(r, hiddenSize, inputSize)
		return err
	})
	if err == nil {
		err = s.readFile(category, weightsHiddenOutputFile, func(r io.Reader) (err error) {
			p.WeightsHiddenOutput, err = ReadMatrix(r, outputSize, hiddenSize)
			return err
		})
	}
	if err == nil {
		err = s.readFile(category, biasHiddenFile, func(r io.Reader) (err error) {
			p.BiasHidden, err = ReadVector(r, hiddenSize)
			return err
		})
	}
	if err == nil {
		err = s.readFile(category, biasOutputFile, func(r io.Reader) (err error) {
			p.BiasOutput, err = ReadVector(r, outputSize)
			return err
		})
	}
	if err != nil {
		return neuralnet.Params{}, err
	}
	return p, nil
}

// LoadNetwork builds a network from category's stored parameters.
func (s *FileStore) LoadNetwork(category string, inputSize, hiddenSize, outputSize int) (*neuralnet.NeuralNetwork, error) {
	p, err := s.LoadParams(category, inputSize, hiddenSize, outputSize)
	if err != nil {
		return nil, err
	}
	return neuralnet.NewNetworkFromParams(p)
}

// LoadCheckpoint returns category's parameters together with its best error.
func (s *FileStore) LoadCheckpoint(category string, inputSize, hiddenSize, outputSize int) (neuralnet.Checkpoint, error) {
	p, err := s.LoadParams(category, inputSize, hiddenSize, outputSize)
	if err != nil {
		return neuralnet.Checkpoint{}, err
	}
	best, err := s.LoadBestError(category)
	if err != nil {
		return neuralnet.Checkpoint{}, err
	}
	return neuralnet.Checkpoint{BestError: best, Params: p}, nil
}

func (s *FileStore) readFile(category, name string, fn func(io.Reader) error) error {
	path := s.path(category, name)
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return nil
}

// writeFile renders into memory and swaps the file in with a rename.
func (s *FileStore) writeFile(category, name string, fn func(io.Writer) error) error {
	dir := filepath.Join(s.Dir, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", name)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "close %s", name)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "rename %s", name)
	}
	return nil
}

var _ neuralnet.CheckpointSink = (*FileStore)(nil)
