package sketch

import (
	"testing"

	"github.com/pkg/errors"

	"sketchnet/neuralnet"
)

func checkerboard() []float64 {
	pixels := make([]float64, Size*Size)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if (x+y)%2 == 0 {
				pixels[y*Size+x] = 1
			}
		}
	}
	return pixels
}

func TestNewDrawingCopies(t *testing.T) {
	pixels := checkerboard()
	d, err := NewDrawing(pixels)
	if err != nil {
		t.Fatal(err)
	}
	pixels[0] = 0.5
	if d.At(0, 0) != 1 {
		t.Errorf("At(0, 0) = %v after caller edit; want 1", d.At(0, 0))
	}
	got := d.Pixels()
	got[1] = 0.5
	if d.At(0, 1) != 0 {
		t.Errorf("At(0, 1) = %v after Pixels edit; want 0", d.At(0, 1))
	}
}

func TestNewDrawingShape(t *testing.T) {
	if _, err := NewDrawing(make([]float64, 196)); !errors.Is(err, neuralnet.ErrShape) {
		t.Errorf("NewDrawing(196) err = %v; want ErrShape", err)
	}
	if _, err := FromBytes(make([][]byte, 27)); !errors.Is(err, neuralnet.ErrShape) {
		t.Errorf("FromBytes(27 rows) err = %v; want ErrShape", err)
	}
}

func TestFromBytes(t *testing.T) {
	rows := make([][]byte, Size)
	for i := range rows {
		rows[i] = make([]byte, Size)
	}
	rows[3][4] = 255
	rows[5][6] = 51
	d, err := FromBytes(rows)
	if err != nil {
		t.Fatal(err)
	}
	if d.At(3, 4) != 1 || d.At(5, 6) != 0.2 || d.At(0, 0) != 0 {
		t.Errorf("FromBytes intensities = %v, %v, %v; want 1, 0.2, 0", d.At(3, 4), d.At(5, 6), d.At(0, 0))
	}
}

func TestDownscale(t *testing.T) {
	d, err := NewDrawing(checkerboard())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		method Method
		want   float64
	}{
		{Average, 0.5},
		{MaxPool, 1},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			got, err := Downscale(d, tt.method)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != VectorSize {
				t.Fatalf("len = %d; want %d", len(got), VectorSize)
			}
			for i, v := range got {
				if v != tt.want {
					t.Fatalf("got[%d] = %v; want %v", i, v, tt.want)
				}
			}
		})
	}
}

func TestDownscaleBlockPosition(t *testing.T) {
	pixels := make([]float64, Size*Size)
	pixels[27*Size+27] = 1 // bottom-right corner
	pixels[2*Size+5] = 0.8 // block (1, 2)
	d, err := NewDrawing(pixels)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Downscale(d, Average)
	if err != nil {
		t.Fatal(err)
	}
	if got[VectorSize-1] != 0.25 {
		t.Errorf("last block = %v; want 0.25", got[VectorSize-1])
	}
	if got[1*ScaledSize+2] != 0.2 {
		t.Errorf("block (1, 2) = %v; want 0.2", got[1*ScaledSize+2])
	}
	if _, err := Downscale(d, Method(9)); err == nil {
		t.Error("Downscale with unknown method did not return error")
	}
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"": Average, "average": Average, "max": MaxPool} {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Errorf("ParseMethod(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMethod("median"); err == nil {
		t.Error("ParseMethod(median) did not return error")
	}
}
