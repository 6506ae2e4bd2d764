package pipeline

import (
	"image"
	"time"

	"golang.org/x/image/draw"
)

// CapHeightSink wraps a sink and downscales frames that exceed a maximum
// output height, preserving aspect ratio. Frames within bounds pass through
// untouched.
type CapHeightSink struct {
	inner   FrameSink
	maxH    int
	capped  bool
	scratch *image.RGBA
}

func NewCapHeightSink(inner FrameSink, maxHeight int) *CapHeightSink {
	return &CapHeightSink{inner: inner, maxH: maxHeight}
}

func (s *CapHeightSink) Start(width, height int) error {
	if s.maxH <= 0 || height <= s.maxH {
		return s.inner.Start(width, height)
	}
	s.capped = true
	w := width * s.maxH / height
	if w < 1 {
		w = 1
	}
	s.scratch = image.NewRGBA(image.Rect(0, 0, w, s.maxH))
	return s.inner.Start(w, s.maxH)
}

func (s *CapHeightSink) Add(ts, dur time.Duration, img *image.RGBA) error {
	if !s.capped {
		return s.inner.Add(ts, dur, img)
	}
	draw.ApproxBiLinear.Scale(s.scratch, s.scratch.Bounds(), img, img.Bounds(), draw.Src, nil)
	return s.inner.Add(ts, dur, s.scratch)
}

func (s *CapHeightSink) Finalize() ([]byte, error) { return s.inner.Finalize() }
