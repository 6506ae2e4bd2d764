package pipeline

import (
	"image"
	"io"
	"time"
)

// Sample is one decoded frame with its presentation timing.
type Sample struct {
	Timestamp time.Duration
	Duration  time.Duration
	Image     *image.RGBA
}

// FrameSource yields decoded frames in presentation order.
type FrameSource interface {
	// CanDecode reports whether the source recognizes its input. A false
	// return makes the run fail with an input-unsupported error before any
	// frame is processed.
	CanDecode() bool

	// TotalDuration is the media duration used for progress computation.
	TotalDuration() time.Duration

	// Next returns the next frame, or io.EOF after the last one.
	Next() (*Sample, error)

	Close() error
}

// FrameSink receives upscaled frames and assembles the output artifact.
type FrameSink interface {
	// Start is called once with the upscaled frame dimensions before the
	// first Add.
	Start(width, height int) error

	// Add appends one upscaled frame. The image is only valid during the
	// call; sinks that buffer must copy.
	Add(ts, dur time.Duration, img *image.RGBA) error

	// Finalize completes the artifact. In-memory sinks return the encoded
	// bytes; streaming sinks return nil bytes.
	Finalize() ([]byte, error)
}

// StreamThresholdBytes is the estimated output size above which callers
// should prefer a streaming sink over in-memory assembly.
const StreamThresholdBytes = 1900 << 20

// EstimateOutputBytes predicts the raw output size for frame-count frames of
// the given upscaled dimensions, used to pick between buffered and streamed
// sinks before the run starts. A positive maxHeight caps the upscaled
// dimensions the same way CapHeightSink does.
func EstimateOutputBytes(width, height, scale, frameCount, maxHeight int) int64 {
	const perFrameHeader = 16
	ow := int64(width * scale)
	oh := int64(height * scale)
	if maxHeight > 0 && oh > int64(maxHeight) {
		ow = ow * int64(maxHeight) / oh
		if ow < 1 {
			ow = 1
		}
		oh = int64(maxHeight)
	}
	frame := ow*oh*4 + perFrameHeader
	return rawHeaderSize + frame*int64(frameCount)
}

// MemSource serves pre-decoded frames from memory.
type MemSource struct {
	Samples []Sample
	Total   time.Duration
	next    int
	closed  bool
}

func (s *MemSource) CanDecode() bool { return true }

func (s *MemSource) TotalDuration() time.Duration { return s.Total }

func (s *MemSource) Next() (*Sample, error) {
	if s.next >= len(s.Samples) {
		return nil, io.EOF
	}
	sample := &s.Samples[s.next]
	s.next++
	return sample, nil
}

func (s *MemSource) Close() error {
	s.closed = true
	return nil
}

// MemSink buffers upscaled frames in memory.
type MemSink struct {
	Width, Height int
	Frames        []Sample
}

func (s *MemSink) Start(width, height int) error {
	s.Width = width
	s.Height = height
	return nil
}

func (s *MemSink) Add(ts, dur time.Duration, img *image.RGBA) error {
	cp := image.NewRGBA(img.Bounds())
	copy(cp.Pix, img.Pix)
	s.Frames = append(s.Frames, Sample{Timestamp: ts, Duration: dur, Image: cp})
	return nil
}

func (s *MemSink) Finalize() ([]byte, error) { return nil, nil }
