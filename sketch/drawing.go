// Package sketch turns drawings into the fixed-length vectors the networks
// consume: 28x28 intensity grids reduced to 14x14.
package sketch

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"sketchnet/neuralnet"
)

const (
	// Size is the side of a captured drawing.
	Size = 28
	// ScaledSize is the side of a downscaled drawing.
	ScaledSize = Size / 2
	// VectorSize is the length of a network input vector.
	VectorSize = ScaledSize * ScaledSize
)

// Drawing is a Size x Size grid of intensities in [0, 1], where 1 is ink.
type Drawing struct {
	t *tensor.Dense
}

// NewDrawing copies pixels, given row by row, into a drawing.
func NewDrawing(pixels []float64) (*Drawing, error) {
	if len(pixels) != Size*Size {
		return nil, errors.Wrapf(neuralnet.ErrShape, "drawing has %d pixels, want %d", len(pixels), Size*Size)
	}
	backing := append([]float64(nil), pixels...)
	return &Drawing{t: tensor.New(tensor.WithShape(Size, Size), tensor.WithBacking(backing))}, nil
}

// FromBytes builds a drawing from a Size x Size grid of 0-255 gray levels.
func FromBytes(rows [][]byte) (*Drawing, error) {
	if len(rows) != Size {
		return nil, errors.Wrapf(neuralnet.ErrShape, "drawing has %d rows, want %d", len(rows), Size)
	}
	pixels := make([]float64, 0, Size*Size)
	for i, row := range rows {
		if len(row) != Size {
			return nil, errors.Wrapf(neuralnet.ErrShape, "row %d has %d columns, want %d", i, len(row), Size)
		}
		for _, b := range row {
			pixels = append(pixels, float64(b)/255)
		}
	}
	return NewDrawing(pixels)
}

// At returns the intensity at row y, column x.
func (d *Drawing) At(y, x int) float64 {
	v, err := d.t.At(y, x)
	if err != nil {
		panic(err)
	}
	return v.(float64)
}

// Pixels returns a row-major copy of the drawing.
func (d *Drawing) Pixels() []float64 {
	return append([]float64(nil), d.t.Data().([]float64)...)
}

// Method selects how a 2x2 block collapses into one value.
type Method int

const (
	Average Method = iota
	MaxPool
)

func (m Method) String() string {
	switch m {
	case Average:
		return "average"
	case MaxPool:
		return "max"
	}
	return "unknown"
}

// ParseMethod accepts "average" (or "") and "max".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "average":
		return Average, nil
	case "max":
		return MaxPool, nil
	}
	return 0, errors.Errorf("unknown downscale method %q", s)
}

// Downscale reduces d to ScaledSize x ScaledSize by collapsing each 2x2 block
// and returns the result row by row.
func Downscale(d *Drawing, m Method) ([]float64, error) {
	if d == nil {
		return nil, errors.New("downscale: nil drawing")
	}
	out := make([]float64, 0, VectorSize)
	for row := 0; row < ScaledSize; row++ {
		for col := 0; col < ScaledSize; col++ {
			block := [4]float64{
				d.At(2*row, 2*col), d.At(2*row, 2*col+1),
				d.At(2*row+1, 2*col), d.At(2*row+1, 2*col+1),
			}
			switch m {
			case Average:
				out = append(out, (block[0]+block[1]+block[2]+block[3])/4)
			case MaxPool:
				v := block[0]
				for _, b := range block[1:] {
					if b > v {
						v = b
					}
				}
				out = append(out, v)
			default:
				return nil, errors.Errorf("downscale: unknown method %d", int(m))
			}
		}
	}
	return out, nil
}
