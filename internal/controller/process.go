package controller

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"upscaled/internal/pipeline"
	"upscaled/pkg/types"
)

// Process runs one full upscaling pass over src into sink, publishing session
// events to pub. In-memory sinks return the finished artifact; streaming
// sinks return nil bytes.
func (c *Controller) Process(ctx context.Context, src pipeline.FrameSource, sink pipeline.FrameSink, pub EventPublisher) ([]byte, error) {
	if pub == nil {
		pub = c.pub
	}
	release, err := c.acquireRun()
	if err != nil {
		return nil, err
	}
	defer release()

	c.mu.RLock()
	ready := c.state == StateReady
	c.mu.RUnlock()
	if !ready {
		return nil, fmt.Errorf("process: controller is %s", c.State())
	}

	c.setState(StateRunning)
	pub.Publish(types.Event{Kind: types.EventRunStarted, ModelID: c.eng.Config().ModelID})

	runner := pipeline.NewRunner(c.eng, pipeline.RunnerConfig{
		OnProgress: func(p pipeline.Progress) {
			pub.Publish(types.Event{Kind: types.EventProgress, Percent: p.Percent})
			if p.Estimating {
				pub.Publish(types.Event{Kind: types.EventETA, ETA: "estimating"})
			} else if p.ETA != "" {
				pub.Publish(types.Event{Kind: types.EventETA, ETA: p.ETA})
			}
			// The terminal 100% report is not frame work.
			if !p.Final {
				atomic.AddUint64(&c.framesTotal, 1)
			}
		},
		Logger: c.log,
	})

	out, err := runner.Run(ctx, src, sink)
	if err != nil {
		c.setError(err.Error())
		pub.Publish(types.Event{Kind: types.EventError, Error: err.Error()})
		// The engine session survives a failed run; allow another attempt.
		c.setState(StateReady)
		return nil, err
	}

	atomic.AddUint64(&c.runsTotal, 1)
	c.mu.Lock()
	c.state = StateReady
	c.lastErr = ""
	c.mu.Unlock()
	pub.Publish(types.Event{Kind: types.EventFinished, OutputBytes: int64(len(out)), Output: out})
	return out, nil
}

// ProcessFile handles a file-based processing request, streaming NDJSON
// session events to w. The output sink is picked from the estimated output
// size: small runs are buffered and returned inside the finished event,
// large runs require an output path and stream to it.
func (c *Controller) ProcessFile(ctx context.Context, req types.ProcessRequest, w io.Writer, flush func()) error {
	pub := NewWriterPublisher(w, flush)

	src, err := pipeline.OpenRawFile(req.Input)
	if err != nil {
		pub.Publish(types.Event{Kind: types.EventError, Error: err.Error()})
		return err
	}
	defer src.Close()

	sink, err := c.pickSink(src, req)
	if err != nil {
		pub.Publish(types.Event{Kind: types.EventError, Error: err.Error()})
		return err
	}

	_, err = c.Process(ctx, src, sink, pub)
	return err
}

// pickSink chooses buffered or streamed output for a raw-video source.
func (c *Controller) pickSink(src *pipeline.RawFileSource, req types.ProcessRequest) (pipeline.FrameSink, error) {
	var sink pipeline.FrameSink
	switch {
	case req.Output != "":
		fs, err := pipeline.CreateRawFile(req.Output)
		if err != nil {
			return nil, err
		}
		sink = fs
	case c.estimateBytes(src, req.MaxHeight) >= pipeline.StreamThresholdBytes:
		return nil, fmt.Errorf("estimated output exceeds %d bytes; an output path is required", int64(pipeline.StreamThresholdBytes))
	default:
		sink = &pipeline.RawBufferSink{}
	}
	if req.MaxHeight > 0 {
		sink = pipeline.NewCapHeightSink(sink, req.MaxHeight)
	}
	return sink, nil
}

func (c *Controller) estimateBytes(src *pipeline.RawFileSource, maxHeight int) int64 {
	w, h, frames := src.Probe()
	return pipeline.EstimateOutputBytes(w, h, c.eng.Scale(), frames, maxHeight)
}
