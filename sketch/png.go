package sketch

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/pkg/errors"

	"sketchnet/neuralnet"
)

// DecodePNG reads a dark-on-light image of any size and area-averages it down
// to a Drawing. Ink intensity is one minus the mean of the RGB channels after
// compositing onto a white background.
func DecodePNG(r io.Reader) (*Drawing, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode png")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < Size || h < Size {
		return nil, errors.Errorf("decode png: image is %dx%d, need at least %dx%d", w, h, Size, Size)
	}

	pixels := make([]float64, Size*Size)
	for y := 0; y < Size; y++ {
		y0, y1 := y*h/Size, (y+1)*h/Size
		for x := 0; x < Size; x++ {
			x0, x1 := x*w/Size, (x+1)*w/Size
			var sum float64
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					sum += ink(img.At(b.Min.X+sx, b.Min.Y+sy))
				}
			}
			pixels[y*Size+x] = sum / float64((y1-y0)*(x1-x0))
		}
	}
	return NewDrawing(pixels)
}

// ink composites c onto white. RGBA returns alpha-premultiplied channels, so
// a transparent pixel carries no ink.
func ink(c color.Color) float64 {
	r, g, b, a := c.RGBA()
	return (3*float64(a) - float64(r+g+b)) / (3 * 0xffff)
}

// EncodePNG writes a size x size grid of intensities as a grayscale image,
// ink dark on a white background.
func EncodePNG(w io.Writer, pixels []float64, size int) error {
	if size <= 0 || len(pixels) != size*size {
		return errors.Wrapf(neuralnet.ErrShape, "encode png: %d pixels for a %dx%d image", len(pixels), size, size)
	}
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := math.Min(math.Max(pixels[y*size+x], 0), 1)
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round((1 - v) * 255))})
		}
	}
	return errors.Wrap(png.Encode(w, img), "encode png")
}
