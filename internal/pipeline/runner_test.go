package pipeline

import (
	"context"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// copyUpscaler doubles frames by pixel replication.
type copyUpscaler struct {
	scale   int
	surface *image.RGBA
	failAt  int
	calls   int
}

func (u *copyUpscaler) Scale() int { return u.scale }

func (u *copyUpscaler) Surface() *image.RGBA { return u.surface }

func (u *copyUpscaler) Upscale(frame *image.RGBA) error {
	u.calls++
	if u.failAt > 0 && u.calls >= u.failAt {
		return fmt.Errorf("synthetic inference failure")
	}
	w := frame.Bounds().Dx() * u.scale
	h := frame.Bounds().Dy() * u.scale
	u.surface = image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := frame.PixOffset(x/u.scale, y/u.scale)
			q := u.surface.PixOffset(x, y)
			copy(u.surface.Pix[q:q+4], frame.Pix[p:p+4])
		}
	}
	return nil
}

func testSamples(n int, w, h int) ([]Sample, time.Duration) {
	const frameDur = 40 * time.Millisecond
	samples := make([]Sample, n)
	for i := range samples {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for j := range img.Pix {
			img.Pix[j] = byte(i + j)
		}
		samples[i] = Sample{
			Timestamp: time.Duration(i) * frameDur,
			Duration:  frameDur,
			Image:     img,
		}
	}
	return samples, time.Duration(n) * frameDur
}

func TestRunnerProgressMonotoneEndsAt100(t *testing.T) {
	samples, total := testSamples(10, 8, 6)
	src := &MemSource{Samples: samples, Total: total}
	sink := &MemSink{}

	var reports []Progress
	r := NewRunner(&copyUpscaler{scale: 2}, RunnerConfig{
		OnProgress: func(p Progress) { reports = append(reports, p) },
		Logger:     zerolog.Nop(),
	})
	if _, err := r.Run(context.Background(), src, sink); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(reports) == 0 {
		t.Fatalf("no progress reports")
	}
	prev := -1
	for _, p := range reports {
		if p.Percent < prev {
			t.Fatalf("progress regressed: %d after %d", p.Percent, prev)
		}
		prev = p.Percent
	}
	if reports[len(reports)-1].Percent != 100 {
		t.Fatalf("final report %d, want 100", reports[len(reports)-1].Percent)
	}
	finals := 0
	for _, p := range reports {
		if p.Final {
			finals++
		}
	}
	if finals != 1 || !reports[len(reports)-1].Final {
		t.Fatalf("expected exactly the last report to be final, got %d final reports", finals)
	}
}

func TestProgressETAFromObservedRate(t *testing.T) {
	r := NewRunner(&copyUpscaler{scale: 2}, RunnerConfig{Logger: zerolog.Nop()})

	// Inside the warm-up window the rate is not trusted yet.
	p := r.progressAt(40, 500*time.Millisecond)
	if !p.Estimating || p.ETA != "" {
		t.Fatalf("expected estimating during warm-up, got %+v", p)
	}

	// Zero percent gives no rate even after warm-up.
	p = r.progressAt(0, 2*time.Second)
	if !p.Estimating || p.ETA != "" {
		t.Fatalf("expected estimating at zero percent, got %+v", p)
	}

	// 50% in 2s means another 2s remain.
	p = r.progressAt(50, 2*time.Second)
	if p.Estimating {
		t.Fatalf("expected a derived ETA past warm-up, got %+v", p)
	}
	if p.ETA != "2s" {
		t.Fatalf("ETA at 50%% after 2s: got %q, want \"2s\"", p.ETA)
	}

	// 25% in 4s means another 12s remain.
	p = r.progressAt(25, 4*time.Second)
	if p.ETA != "12s" {
		t.Fatalf("ETA at 25%% after 4s: got %q, want \"12s\"", p.ETA)
	}
}

func TestRunnerEstimatesDuringWarmup(t *testing.T) {
	samples, total := testSamples(6, 4, 4)
	src := &MemSource{Samples: samples, Total: total}

	// An in-memory run finishes well inside the warm-up window, so every
	// per-frame report must carry the estimating placeholder.
	var reports []Progress
	r := NewRunner(&copyUpscaler{scale: 2}, RunnerConfig{
		OnProgress: func(p Progress) { reports = append(reports, p) },
		Logger:     zerolog.Nop(),
	})
	if _, err := r.Run(context.Background(), src, &MemSink{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, p := range reports {
		if p.Final {
			continue
		}
		if !p.Estimating || p.ETA != "" {
			t.Fatalf("expected estimating report inside warm-up, got %+v", p)
		}
	}
}

func TestRunnerPreservesTimestampsAndScalesFrames(t *testing.T) {
	samples, total := testSamples(4, 10, 8)
	src := &MemSource{Samples: samples, Total: total}
	sink := &MemSink{}

	r := NewRunner(&copyUpscaler{scale: 2}, RunnerConfig{Logger: zerolog.Nop()})
	if _, err := r.Run(context.Background(), src, sink); err != nil {
		t.Fatalf("run: %v", err)
	}

	if sink.Width != 20 || sink.Height != 16 {
		t.Fatalf("sink started with %dx%d, want 20x16", sink.Width, sink.Height)
	}
	if len(sink.Frames) != 4 {
		t.Fatalf("sink received %d frames, want 4", len(sink.Frames))
	}
	for i, f := range sink.Frames {
		if f.Timestamp != samples[i].Timestamp || f.Duration != samples[i].Duration {
			t.Fatalf("frame %d timing changed: %v/%v", i, f.Timestamp, f.Duration)
		}
		if f.Image.Bounds().Dx() != 20 || f.Image.Bounds().Dy() != 16 {
			t.Fatalf("frame %d not upscaled: %v", i, f.Image.Bounds())
		}
	}
}

func TestRunnerEmitsPreviews(t *testing.T) {
	samples, total := testSamples(3, 1000, 500)
	src := &MemSource{Samples: samples, Total: total}

	var previews []*image.RGBA
	r := NewRunner(&copyUpscaler{scale: 2}, RunnerConfig{
		OnPreview: func(img *image.RGBA) { previews = append(previews, img) },
		Logger:    zerolog.Nop(),
	})
	if _, err := r.Run(context.Background(), src, &MemSink{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(previews) != 3 {
		t.Fatalf("got %d previews, want 3", len(previews))
	}
	for _, p := range previews {
		if p.Bounds().Dx() > DefaultPreviewMaxDim || p.Bounds().Dy() > DefaultPreviewMaxDim {
			t.Fatalf("preview exceeds max dimension: %v", p.Bounds())
		}
	}
}

func TestRunnerRejectsUndecodableSource(t *testing.T) {
	src := NewRawReaderSource([]byte("definitely not raw video"))
	r := NewRunner(&copyUpscaler{scale: 2}, RunnerConfig{Logger: zerolog.Nop()})
	_, err := r.Run(context.Background(), src, &MemSink{})
	if err == nil || !IsInputUnsupported(err) {
		t.Fatalf("expected InputUnsupported, got %v", err)
	}
}

func TestRunnerRejectsEmptySource(t *testing.T) {
	r := NewRunner(&copyUpscaler{scale: 2}, RunnerConfig{Logger: zerolog.Nop()})

	_, err := r.Run(context.Background(), &MemSource{Total: time.Second}, &MemSink{})
	if err == nil || !IsInputUnsupported(err) {
		t.Fatalf("expected InputUnsupported for empty source, got %v", err)
	}

	samples, _ := testSamples(2, 4, 4)
	_, err = r.Run(context.Background(), &MemSource{Samples: samples}, &MemSink{})
	if err == nil || !IsInputUnsupported(err) {
		t.Fatalf("expected InputUnsupported for zero duration, got %v", err)
	}
}

func TestRunnerUpscaleFailureAbortsRun(t *testing.T) {
	samples, total := testSamples(5, 4, 4)
	src := &MemSource{Samples: samples, Total: total}
	r := NewRunner(&copyUpscaler{scale: 2, failAt: 3}, RunnerConfig{Logger: zerolog.Nop()})

	_, err := r.Run(context.Background(), src, &MemSink{})
	if err == nil || !IsProcessingFailed(err) {
		t.Fatalf("expected ProcessingFailed, got %v", err)
	}
}

func TestEstimateOutputBytes(t *testing.T) {
	small := EstimateOutputBytes(640, 360, 2, 100, 0)
	if small >= StreamThresholdBytes {
		t.Fatalf("short clip should stay below the streaming threshold")
	}
	big := EstimateOutputBytes(1920, 1080, 4, 2000, 0)
	if big < StreamThresholdBytes {
		t.Fatalf("long 4x run should cross the streaming threshold")
	}

	// A height cap shrinks the estimate the same way CapHeightSink shrinks
	// the frames.
	uncapped := EstimateOutputBytes(1920, 1080, 4, 1000, 0)
	if uncapped < StreamThresholdBytes {
		t.Fatalf("uncapped 4x run should cross the streaming threshold")
	}
	capped := EstimateOutputBytes(1920, 1080, 4, 1000, 480)
	if capped >= StreamThresholdBytes {
		t.Fatalf("height-capped run should stay below the streaming threshold")
	}
	const perFrameHeader = 16
	wantFrame := int64(853*480*4 + perFrameHeader) // 7680*480/4320 = 853
	if got := (capped - rawHeaderSize) / 1000; got != wantFrame {
		t.Fatalf("capped per-frame estimate %d, want %d", got, wantFrame)
	}

	// A cap at or above the upscaled height changes nothing.
	if EstimateOutputBytes(640, 360, 2, 100, 720) != small {
		t.Fatalf("cap above output height must not change the estimate")
	}
}
