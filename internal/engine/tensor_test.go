package engine

import (
	"image"
	"testing"
)

func TestFrameTensorRoundTrip(t *testing.T) {
	frame := gradientFrame(17, 13)
	tensor := frameToTensor(frame, frame.Bounds())

	out := image.NewRGBA(image.Rect(0, 0, 17, 13))
	tensorToSurface(tensor, out, 0, 0, 0, 0, 17, 13)

	for y := 0; y < 13; y++ {
		for x := 0; x < 17; x++ {
			p := frame.PixOffset(x, y)
			q := out.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				if frame.Pix[p+c] != out.Pix[q+c] {
					t.Fatalf("pixel (%d,%d) channel %d: %d != %d",
						x, y, c, out.Pix[q+c], frame.Pix[p+c])
				}
			}
		}
	}
}

func TestFrameToTensorSubRect(t *testing.T) {
	frame := gradientFrame(32, 32)
	rect := image.Rect(10, 5, 22, 17)
	tensor := frameToTensor(frame, rect)
	if tensor.W != 12 || tensor.H != 12 {
		t.Fatalf("unexpected tensor shape %dx%d", tensor.W, tensor.H)
	}
	// tensor (0,0) red channel must be frame (10,5) red
	want := float32(frame.Pix[frame.PixOffset(10, 5)]) / 255
	if tensor.Data[0] != want {
		t.Fatalf("tensor origin %f, want %f", tensor.Data[0], want)
	}
}

func TestTensorToSurfaceClampsAndForcesOpaque(t *testing.T) {
	tensor := NewTensor(1, 3)
	plane := 3
	// out-of-range model output on both sides
	tensor.Data[0] = -0.5
	tensor.Data[1] = 1.5
	tensor.Data[2] = 0.5
	for i := 0; i < 3; i++ {
		tensor.Data[plane+i] = 0
		tensor.Data[2*plane+i] = 0
	}

	dst := image.NewRGBA(image.Rect(0, 0, 3, 1))
	tensorToSurface(tensor, dst, 0, 0, 0, 0, 3, 1)

	if dst.Pix[dst.PixOffset(0, 0)] != 0 {
		t.Fatalf("negative value must clamp to 0, got %d", dst.Pix[0])
	}
	if dst.Pix[dst.PixOffset(1, 0)] != 255 {
		t.Fatalf("value above 1 must clamp to 255")
	}
	if got := dst.Pix[dst.PixOffset(2, 0)]; got != 128 {
		t.Fatalf("0.5 must map to 128, got %d", got)
	}
	for x := 0; x < 3; x++ {
		if dst.Pix[dst.PixOffset(x, 0)+3] != 0xFF {
			t.Fatalf("alpha must be forced opaque at x=%d", x)
		}
	}
}

func TestTensorToSurfaceReadOffset(t *testing.T) {
	// 4x4 tensor, read the inner 2x2 starting at (1,1)
	tensor := NewTensor(4, 4)
	for i := 0; i < 16; i++ {
		tensor.Data[i] = float32(i) / 255
	}
	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	tensorToSurface(tensor, dst, 1, 1, 0, 0, 2, 2)

	wantR := []byte{5, 6, 9, 10}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := dst.Pix[dst.PixOffset(x, y)]; got != wantR[y*2+x] {
				t.Fatalf("(%d,%d): got %d, want %d", x, y, got, wantR[y*2+x])
			}
		}
	}
}
