package store

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"sketchnet/neuralnet"
)

// WriteMatrix writes one row per line with space-separated values. Values use
// the shortest representation that parses back to the same float64.
func WriteMatrix(w io.Writer, m mat.Matrix) error {
	bw := bufio.NewWriter(w)
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteVector writes v on a single line.
func WriteVector(w io.Writer, v mat.Vector) error {
	return WriteMatrix(w, v.T())
}

// ReadMatrix reads exactly rows*cols whitespace-separated values in row-major
// order. Line breaks are not significant.
func ReadMatrix(r io.Reader, rows, cols int) (*mat.Dense, error) {
	data, err := readValues(r, rows*cols)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(rows, cols, data), nil
}

// ReadVector reads exactly n whitespace-separated values.
func ReadVector(r io.Reader, n int) (*mat.VecDense, error) {
	data, err := readValues(r, n)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(n, data), nil
}

func readValues(r io.Reader, n int) ([]float64, error) {
	if n <= 0 {
		return nil, errors.Wrapf(neuralnet.ErrShape, "cannot read %d values", n)
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)
	data := make([]float64, 0, n)
	for sc.Scan() {
		if len(data) == n {
			return nil, errors.Wrapf(neuralnet.ErrShape, "more than %d values", n)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", len(data))
		}
		data = append(data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, errors.Wrapf(neuralnet.ErrShape, "got %d values, want %d", len(data), n)
	}
	return data, nil
}
