package engine

import "image"

// Tensor is a flat channel-major (R plane, G plane, B plane) float32 buffer
// normalized to [0,1], logical shape (1, 3, H, W). Lifetime is scoped to one
// tile's processing step.
type Tensor struct {
	H, W int
	Data []float32
}

// NewTensor allocates a zeroed tensor of the given spatial size.
func NewTensor(h, w int) *Tensor {
	return &Tensor{H: h, W: w, Data: make([]float32, 3*h*w)}
}

// frameToTensor extracts rect from src into a fresh normalized CHW tensor.
// Alpha is discarded.
func frameToTensor(src *image.RGBA, rect image.Rectangle) *Tensor {
	w := rect.Dx()
	h := rect.Dy()
	t := NewTensor(h, w)
	plane := h * w
	for y := 0; y < h; y++ {
		row := src.PixOffset(rect.Min.X, rect.Min.Y+y)
		for x := 0; x < w; x++ {
			p := row + x*4
			i := y*w + x
			t.Data[i] = float32(src.Pix[p]) / 255
			t.Data[plane+i] = float32(src.Pix[p+1]) / 255
			t.Data[2*plane+i] = float32(src.Pix[p+2]) / 255
		}
	}
	return t
}

// tensorToSurface writes a w×h region of t into dst. (readX, readY) is the
// offset inside the tensor (skipping blended padding); (dstX, dstY) is the
// destination origin. Values are clamped to [0,1] before the 8-bit mapping;
// alpha is fixed to opaque.
func tensorToSurface(t *Tensor, dst *image.RGBA, readX, readY, dstX, dstY, w, h int) {
	plane := t.H * t.W
	for y := 0; y < h; y++ {
		row := dst.PixOffset(dstX, dstY+y)
		ti := (readY+y)*t.W + readX
		for x := 0; x < w; x++ {
			p := row + x*4
			i := ti + x
			dst.Pix[p] = clampByte(t.Data[i])
			dst.Pix[p+1] = clampByte(t.Data[plane+i])
			dst.Pix[p+2] = clampByte(t.Data[2*plane+i])
			dst.Pix[p+3] = 0xFF
		}
	}
}

func clampByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
