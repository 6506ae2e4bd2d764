package pipeline

import (
	"bytes"
	"image"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func TestRawVideoFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.raw")
	samples, _ := testSamples(3, 6, 4)

	sink, err := CreateRawFile(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sink.Start(6, 4); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, s := range samples {
		if err := sink.Add(s.Timestamp, s.Duration, s.Image); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := sink.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	src, err := OpenRawFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()
	if !src.CanDecode() {
		t.Fatalf("written container must be decodable")
	}
	if want := 3 * 40 * time.Millisecond; src.TotalDuration() != want {
		t.Fatalf("total duration %v, want %v", src.TotalDuration(), want)
	}

	for i := 0; ; i++ {
		s, err := src.Next()
		if err == io.EOF {
			if i != 3 {
				t.Fatalf("decoded %d frames, want 3", i)
			}
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if s.Timestamp != samples[i].Timestamp || s.Duration != samples[i].Duration {
			t.Fatalf("frame %d timing %v/%v", i, s.Timestamp, s.Duration)
		}
		if !bytes.Equal(s.Image.Pix, samples[i].Image.Pix) {
			t.Fatalf("frame %d pixels differ", i)
		}
	}
}

func TestRawBufferSinkMatchesFileSink(t *testing.T) {
	samples, _ := testSamples(2, 4, 4)

	var buf RawBufferSink
	if err := buf.Start(4, 4); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, s := range samples {
		if err := buf.Add(s.Timestamp, s.Duration, s.Image); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	out, err := buf.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	src := NewRawReaderSource(out)
	defer src.Close()
	if !src.CanDecode() {
		t.Fatalf("buffered container must be decodable")
	}
	first, err := src.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !bytes.Equal(first.Image.Pix, samples[0].Image.Pix) {
		t.Fatalf("first frame pixels differ")
	}
}

func TestOpenRawFileRejectsGarbage(t *testing.T) {
	src := NewRawReaderSource([]byte("GARBAGE!0000000000000000"))
	defer src.Close()
	if src.CanDecode() {
		t.Fatalf("garbage input must not decode")
	}
}

func TestScalePreviewBoundsLongestEdge(t *testing.T) {
	wide := scalePreview(testSamplesFrame(1920, 1080), 480)
	if wide.Bounds().Dx() != 480 || wide.Bounds().Dy() != 270 {
		t.Fatalf("wide preview %v", wide.Bounds())
	}
	tall := scalePreview(testSamplesFrame(200, 800), 480)
	if tall.Bounds().Dy() != 480 || tall.Bounds().Dx() != 120 {
		t.Fatalf("tall preview %v", tall.Bounds())
	}
	small := testSamplesFrame(100, 80)
	if scalePreview(small, 480) != small {
		t.Fatalf("small frames must pass through unscaled")
	}
}

func testSamplesFrame(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}
