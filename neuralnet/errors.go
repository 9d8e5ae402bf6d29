package neuralnet

import "github.com/pkg/errors"

var (
	// ErrShape reports mismatched vector or matrix dimensions.
	ErrShape = errors.New("neuralnet: shape mismatch")

	// ErrEmptyData reports a training, validation or category sample set with
	// nothing in it.
	ErrEmptyData = errors.New("neuralnet: empty data")
)

func shapeErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrShape, format, args...)
}
