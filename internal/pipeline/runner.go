package pipeline

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Upscaler is the per-frame inference dependency (the engine in production).
type Upscaler interface {
	Upscale(frame *image.RGBA) error
	Surface() *image.RGBA
	Scale() int
}

// Progress is one pipeline progress report. Per-frame reports carry
// Final=false; the explicit terminal report after the last frame carries
// Final=true so consumers can tell it apart from frame work.
type Progress struct {
	Percent    int
	ETA        string
	Estimating bool
	Final      bool
}

// RunnerConfig carries the per-run callbacks and tunables.
type RunnerConfig struct {
	// OnProgress receives monotone progress reports; the final report is
	// always exactly 100.
	OnProgress func(Progress)

	// OnPreview receives a downscaled copy of each source frame before it
	// is upscaled.
	OnPreview func(*image.RGBA)

	PreviewMaxDim int

	Logger zerolog.Logger
}

// Runner drives the engine across all frames of a source, strictly
// sequentially: one frame is fully upscaled and written before the next is
// decoded. There is no mid-run cancellation; ctx is only consulted before
// the first frame.
type Runner struct {
	up  Upscaler
	cfg RunnerConfig
}

func NewRunner(up Upscaler, cfg RunnerConfig) *Runner {
	if cfg.PreviewMaxDim <= 0 {
		cfg.PreviewMaxDim = DefaultPreviewMaxDim
	}
	return &Runner{up: up, cfg: cfg}
}

const etaWarmup = time.Second

// Run processes every frame of src into sink and returns Finalize's result.
// An aborted run leaves the sink unfinalized.
func (r *Runner) Run(ctx context.Context, src FrameSource, sink FrameSink) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !src.CanDecode() {
		return nil, ErrInputUnsupported("source cannot be decoded")
	}
	total := src.TotalDuration()
	if total <= 0 {
		return nil, ErrInputUnsupported("source reports no duration")
	}

	first, err := src.Next()
	if err == io.EOF {
		return nil, ErrInputUnsupported("source contains no frames")
	}
	if err != nil {
		return nil, ErrInputUnsupported(err.Error())
	}

	scale := r.up.Scale()
	w := first.Image.Bounds().Dx()
	h := first.Image.Bounds().Dy()
	if err := sink.Start(w*scale, h*scale); err != nil {
		return nil, ErrProcessingFailed("sink start", err)
	}

	start := time.Now()
	frames := 0
	sample := first
	for {
		if err := r.processFrame(sample, sink, total, start); err != nil {
			return nil, err
		}
		frames++

		sample, err = src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrProcessingFailed("frame decode", err)
		}
	}

	r.report(Progress{Percent: 100, Final: true})
	r.cfg.Logger.Info().Int("frames", frames).
		Dur("elapsed", time.Since(start)).Msg("pipeline run finished")

	out, err := sink.Finalize()
	if err != nil {
		return nil, ErrProcessingFailed("sink finalize", err)
	}
	return out, nil
}

func (r *Runner) processFrame(s *Sample, sink FrameSink, total time.Duration, start time.Time) error {
	if r.cfg.OnPreview != nil {
		r.cfg.OnPreview(scalePreview(s.Image, r.cfg.PreviewMaxDim))
	}
	if err := r.up.Upscale(s.Image); err != nil {
		return ErrProcessingFailed("upscale", err)
	}
	if err := sink.Add(s.Timestamp, s.Duration, r.up.Surface()); err != nil {
		return ErrProcessingFailed("sink add", err)
	}

	pct := int(s.Timestamp * 100 / total)
	if pct > 100 {
		pct = 100
	}
	r.report(r.progressAt(pct, time.Since(start)))
	return nil
}

// progressAt derives the ETA from the observed processing rate. Before the
// warm-up window elapses the rate is too noisy, so an estimating placeholder
// is reported instead.
func (r *Runner) progressAt(pct int, elapsed time.Duration) Progress {
	p := Progress{Percent: pct}
	if elapsed < etaWarmup || pct <= 0 {
		p.Estimating = true
		return p
	}
	perMilli := float64(pct) / 100 / float64(elapsed.Milliseconds())
	remaining := (1 - float64(pct)/100) / perMilli
	p.ETA = (time.Duration(remaining) * time.Millisecond).Round(time.Second).String()
	return p
}

func (r *Runner) report(p Progress) {
	if r.cfg.OnProgress != nil {
		r.cfg.OnProgress(p)
	}
}
