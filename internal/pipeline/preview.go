package pipeline

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultPreviewMaxDim bounds the longest edge of preview frames.
const DefaultPreviewMaxDim = 480

// scalePreview downsizes src so its longest edge is at most maxDim. Frames
// already within bounds are returned as-is.
func scalePreview(src *image.RGBA, maxDim int) *image.RGBA {
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}
	var pw, ph int
	if w >= h {
		pw = maxDim
		ph = h * maxDim / w
	} else {
		ph = maxDim
		pw = w * maxDim / h
	}
	if pw < 1 {
		pw = 1
	}
	if ph < 1 {
		ph = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, pw, ph))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
