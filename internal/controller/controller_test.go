package controller

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/engine"
	"upscaled/internal/modelcache"
	"upscaled/internal/pipeline"
	"upscaled/internal/registry"
	"upscaled/pkg/types"
)

type fakeWeights struct{}

func (fakeWeights) Acquire(ctx context.Context, id string, onProgress func(int, string)) ([]byte, error) {
	if onProgress != nil {
		onProgress(100, "loaded from cache")
	}
	return []byte(id), nil
}

// flatSession emits mid-gray output of the correct upscaled dimensions.
type flatSession struct{ scale int }

func (s flatSession) Run(in *engine.Tensor) (*engine.Tensor, error) {
	out := engine.NewTensor(in.H*s.scale, in.W*s.scale)
	for i := range out.Data {
		out.Data[i] = 0.5
	}
	return out, nil
}

func (flatSession) Close() error { return nil }

type flatFactory struct{}

func (flatFactory) NewSession(weights []byte, cfg engine.SessionConfig) (engine.Session, error) {
	return flatSession{scale: cfg.Scale}, nil
}

func (flatFactory) Backend() string { return "fake" }

func newTestController(pub EventPublisher) *Controller {
	return NewWithConfig(Config{
		Catalog:   registry.New("https://weights.example"),
		Store:     modelcache.NewMemStore(),
		Weights:   fakeWeights{},
		Sessions:  flatFactory{},
		Publisher: pub,
		Logger:    zerolog.Nop(),
	})
}

func kinds(events []types.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestInitializeEmitsLoadEvents(t *testing.T) {
	pub := NewMemoryPublisher()
	c := newTestController(pub)

	err := c.Initialize(context.Background(), types.SwitchRequest{Model: "realesr-animevideov3"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !c.Ready() || c.State() != StateReady {
		t.Fatalf("expected ready state, got %s", c.State())
	}

	events := pub.Events()
	if len(events) < 2 {
		t.Fatalf("expected progress and loaded events, got %v", kinds(events))
	}
	last := events[len(events)-1]
	if last.Kind != types.EventModelLoaded || last.ModelID != "realesr-animevideov3" {
		t.Fatalf("expected model_loaded last, got %+v", last)
	}
	for _, e := range events[:len(events)-1] {
		if e.Kind != types.EventModelProgress {
			t.Fatalf("unexpected event before model_loaded: %+v", e)
		}
	}
}

func TestInitializeUnknownModel(t *testing.T) {
	c := newTestController(nil)
	err := c.Initialize(context.Background(), types.SwitchRequest{Model: "no-such-model"})
	if err == nil || !modelcache.IsModelUnavailable(err) {
		t.Fatalf("expected ModelUnavailable, got %v", err)
	}
	if c.Ready() {
		t.Fatalf("controller must not be ready after failed init")
	}
}

func TestDenoiseValidation(t *testing.T) {
	c := newTestController(nil)

	lvl := 2
	err := c.Initialize(context.Background(), types.SwitchRequest{
		Model: "realesr-animevideov3", DenoiseLevel: &lvl,
	})
	if err == nil {
		t.Fatalf("expected rejection for model without denoise support")
	}

	if err := c.Initialize(context.Background(), types.SwitchRequest{
		Model: "realesr-general-x4v3", DenoiseLevel: &lvl,
	}); err != nil {
		t.Fatalf("denoise level within range rejected: %v", err)
	}

	bad := 9
	err = c.SwitchModel(context.Background(), types.SwitchRequest{
		Model: "realesr-general-x4v3", DenoiseLevel: &bad,
	})
	if err == nil {
		t.Fatalf("expected rejection for out-of-range denoise level")
	}
}

func TestCapabilities(t *testing.T) {
	pub := NewMemoryPublisher()
	c := newTestController(pub)
	backend, ok := c.Capabilities()
	if !ok || backend != "fake" {
		t.Fatalf("unexpected capability result %q %v", backend, ok)
	}
	events := pub.Events()
	if len(events) != 1 || events[0].Kind != types.EventCapability || events[0].Backend != "fake" {
		t.Fatalf("unexpected capability events %v", events)
	}
}

func testSource(frames, w, h int) *pipeline.MemSource {
	const dur = 40 * time.Millisecond
	samples := make([]pipeline.Sample, frames)
	for i := range samples {
		samples[i] = pipeline.Sample{
			Timestamp: time.Duration(i) * dur,
			Duration:  dur,
			Image:     image.NewRGBA(image.Rect(0, 0, w, h)),
		}
	}
	return &pipeline.MemSource{Samples: samples, Total: time.Duration(frames) * dur}
}

func TestProcessPublishesOrderedEvents(t *testing.T) {
	c := newTestController(nil)
	if err := c.Initialize(context.Background(), types.SwitchRequest{Model: "realesr-animevideov3-x2"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	pub := NewMemoryPublisher()
	out, err := c.Process(context.Background(), testSource(5, 8, 6), &pipeline.RawBufferSink{}, pub)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected buffered output bytes")
	}

	events := pub.Events()
	if events[0].Kind != types.EventRunStarted {
		t.Fatalf("expected run_started first, got %v", kinds(events))
	}
	last := events[len(events)-1]
	if last.Kind != types.EventFinished || last.OutputBytes != int64(len(out)) {
		t.Fatalf("expected finished with output size last, got %+v", last)
	}

	prev := -1
	sawHundred := false
	for _, e := range events {
		if e.Kind != types.EventProgress {
			continue
		}
		if e.Percent < prev {
			t.Fatalf("progress regressed: %d after %d", e.Percent, prev)
		}
		prev = e.Percent
		if e.Percent == 100 {
			sawHundred = true
		}
	}
	if !sawHundred {
		t.Fatalf("expected a final 100%% progress event, got %v", kinds(events))
	}

	if c.State() != StateReady {
		t.Fatalf("expected ready after run, got %s", c.State())
	}
	st := c.Status()
	if st.RunsTotal != 1 {
		t.Fatalf("runs total %d, want 1", st.RunsTotal)
	}
	// One count per frame; the terminal 100% report must not add one.
	if st.FramesTotal != 5 {
		t.Fatalf("frames total %d, want 5", st.FramesTotal)
	}
}

func TestProcessRejectsOverlappingRuns(t *testing.T) {
	c := newTestController(nil)
	if err := c.Initialize(context.Background(), types.SwitchRequest{Model: "realesr-animevideov3"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	release, err := c.acquireRun()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = c.Process(context.Background(), testSource(1, 4, 4), &pipeline.RawBufferSink{}, nil)
	if err == nil || !IsBusy(err) {
		t.Fatalf("expected busy error, got %v", err)
	}
	if err := c.SwitchModel(context.Background(), types.SwitchRequest{Model: "realesr-animevideov3"}); err == nil || !IsBusy(err) {
		t.Fatalf("expected busy error on switch, got %v", err)
	}
}

func TestProcessBeforeInitialize(t *testing.T) {
	c := newTestController(nil)
	_, err := c.Process(context.Background(), testSource(1, 4, 4), &pipeline.RawBufferSink{}, nil)
	if err == nil {
		t.Fatalf("expected error before initialize")
	}
}

func TestProcessFailurePublishesErrorAndRecovers(t *testing.T) {
	c := newTestController(nil)
	if err := c.Initialize(context.Background(), types.SwitchRequest{Model: "realesr-animevideov3"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	pub := NewMemoryPublisher()
	src := &pipeline.MemSource{Total: time.Second} // no frames
	if _, err := c.Process(context.Background(), src, &pipeline.RawBufferSink{}, pub); err == nil {
		t.Fatalf("expected failure for empty source")
	}

	events := pub.Events()
	last := events[len(events)-1]
	if last.Kind != types.EventError || last.Error == "" {
		t.Fatalf("expected trailing error event, got %+v", last)
	}
	if c.State() != StateReady {
		t.Fatalf("expected recovery to ready, got %s", c.State())
	}
	if _, err := c.Process(context.Background(), testSource(2, 4, 4), &pipeline.RawBufferSink{}, nil); err != nil {
		t.Fatalf("run after failure: %v", err)
	}
}

func TestClearCache(t *testing.T) {
	store := modelcache.NewMemStore()
	if err := store.Put("a", []byte{1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put("b", []byte{2, 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	c := NewWithConfig(Config{
		Catalog:  registry.New(""),
		Store:    store,
		Weights:  fakeWeights{},
		Sessions: flatFactory{},
		Logger:   zerolog.Nop(),
	})

	if st := c.Status(); len(st.CachedModels) != 2 {
		t.Fatalf("expected 2 cached entries, got %+v", st.CachedModels)
	}
	removed, err := c.ClearCache()
	if err != nil || removed != 2 {
		t.Fatalf("clear: removed=%d err=%v", removed, err)
	}
	if st := c.Status(); len(st.CachedModels) != 0 {
		t.Fatalf("cache not empty after clear: %+v", st.CachedModels)
	}
}
