package sketch

import "github.com/pkg/errors"

// canvasMax is the largest coordinate of a QuickDraw simplified drawing.
const canvasMax = 255

// Stroke is one pen stroke in QuickDraw form: the x coordinates, then the y
// coordinates.
type Stroke [2][]float64

// Rasterize marks every stroke point on a size x size grid and returns the
// grid row by row. Coordinates are scaled from 0-255 and clamped to the grid.
// Points are not joined into lines.
func Rasterize(strokes []Stroke, size int) ([]float64, error) {
	if size <= 0 {
		return nil, errors.Errorf("rasterize: size must be > 0 (got %d)", size)
	}
	grid := make([]float64, size*size)
	for i, s := range strokes {
		xs, ys := s[0], s[1]
		if len(xs) != len(ys) {
			return nil, errors.Errorf("rasterize: stroke %d has %d x and %d y coordinates", i, len(xs), len(ys))
		}
		for j := range xs {
			grid[cell(ys[j], size)*size+cell(xs[j], size)] = 1
		}
	}
	return grid, nil
}

func cell(v float64, size int) int {
	c := int(v / canvasMax * float64(size-1))
	switch {
	case c < 0:
		return 0
	case c > size-1:
		return size - 1
	}
	return c
}
