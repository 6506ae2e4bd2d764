package engine

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"upscaled/pkg/types"
)

// State is the engine lifecycle:
// Uninitialized → Ready → (Switching) → Ready → Disposed.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateSwitching     State = "switching"
	StateDisposed      State = "disposed"
)

// WeightsProvider supplies binary model weights on demand (the modelcache
// loader in production, fakes in tests).
type WeightsProvider interface {
	Acquire(ctx context.Context, id string, onProgress func(percent int, message string)) ([]byte, error)
}

// Config holds engine-level tunables independent of the selected model.
type Config struct {
	GPUMode    GPUMode
	NumThreads int
}

// Engine owns exactly one live inference session and the output drawing
// surface. All operations serialize on the engine mutex, so no inference
// call can run concurrently with session replacement.
type Engine struct {
	mu      sync.Mutex
	state   State
	cfg     types.UpscaleConfig
	ecfg    Config
	weights WeightsProvider
	factory SessionFactory
	sess    Session
	surface *image.RGBA
	log     zerolog.Logger
}

func New(weights WeightsProvider, factory SessionFactory, cfg Config, log zerolog.Logger) *Engine {
	if cfg.GPUMode == "" {
		cfg.GPUMode = GPUModeAuto
	}
	return &Engine{
		state:   StateUninitialized,
		ecfg:    cfg,
		weights: weights,
		factory: factory,
		log:     log,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Config returns the active upscaler configuration.
func (e *Engine) Config() types.UpscaleConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Backend describes the compute backend sessions bind to.
func (e *Engine) Backend() string { return e.factory.Backend() }

// Scale returns the active scale factor (0 before init).
func (e *Engine) Scale() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Scale
}

// Surface exposes the output drawing surface holding the most recent
// upscaled frame. It is overwritten wholesale by the next Upscale call.
func (e *Engine) Surface() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface
}

// Init builds the inference session for cfg and transitions to Ready.
// Only legal from Uninitialized.
func (e *Engine) Init(ctx context.Context, cfg types.UpscaleConfig, onProgress func(int, string)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateUninitialized {
		return fmt.Errorf("init: engine is %s", e.state)
	}
	return e.buildSession(ctx, cfg, onProgress)
}

// SwitchModel releases the current session, adopts cfg, and rebuilds.
// Only legal from Ready. On failure the engine reverts to Uninitialized;
// there is no half-replaced session to observe.
func (e *Engine) SwitchModel(ctx context.Context, cfg types.UpscaleConfig, onProgress func(int, string)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return ErrNotInitialized("switch model")
	}
	e.state = StateSwitching
	if e.sess != nil {
		if err := e.sess.Close(); err != nil {
			e.log.Warn().Err(err).Msg("closing previous session")
		}
		e.sess = nil
	}
	return e.buildSession(ctx, cfg, onProgress)
}

// buildSession acquires weights and binds a new session. Caller holds e.mu.
func (e *Engine) buildSession(ctx context.Context, cfg types.UpscaleConfig, onProgress func(int, string)) error {
	if err := validateConfig(cfg); err != nil {
		e.state = StateUninitialized
		return err
	}
	weights, err := e.weights.Acquire(ctx, cfg.ModelID, onProgress)
	if err != nil {
		e.state = StateUninitialized
		return err
	}
	sess, err := e.factory.NewSession(weights, SessionConfig{
		Scale:        cfg.Scale,
		DenoiseLevel: cfg.DenoiseLevel,
		GPUMode:      e.ecfg.GPUMode,
		NumThreads:   e.ecfg.NumThreads,
	})
	if err != nil {
		e.state = StateUninitialized
		return err
	}
	e.sess = sess
	e.cfg = cfg
	e.state = StateReady
	e.log.Info().Str("model", cfg.ModelID).Int("scale", cfg.Scale).
		Int("tile_size", cfg.TileSize).Int("tile_padding", cfg.TilePadding).
		Str("backend", e.factory.Backend()).Msg("session ready")
	return nil
}

func validateConfig(cfg types.UpscaleConfig) error {
	if cfg.ModelID == "" {
		return fmt.Errorf("upscale config: model id is required")
	}
	if cfg.Scale < 1 {
		return fmt.Errorf("upscale config: scale must be >= 1, got %d", cfg.Scale)
	}
	if cfg.TilePadding < 0 {
		return fmt.Errorf("upscale config: tile padding must be >= 0, got %d", cfg.TilePadding)
	}
	if cfg.TileSize <= 2*cfg.TilePadding {
		return fmt.Errorf("upscale config: tile size %d must exceed twice the padding %d",
			cfg.TileSize, cfg.TilePadding)
	}
	return nil
}

// Upscale runs one frame through the session, tiling when the frame exceeds
// the configured tile size, and writes the stitched result to the output
// surface. A failure on any tile aborts the call; writes already made for
// prior tiles remain (the surface is overwritten wholesale on the next
// successful call).
func (e *Engine) Upscale(frame *image.RGBA) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return ErrNotInitialized("upscale")
	}

	w := frame.Bounds().Dx()
	h := frame.Bounds().Dy()
	scale := e.cfg.Scale
	ow, oh := w*scale, h*scale
	if e.surface == nil || e.surface.Bounds().Dx() != ow || e.surface.Bounds().Dy() != oh {
		e.surface = image.NewRGBA(image.Rect(0, 0, ow, oh))
	}

	timer := prometheus.NewTimer(upscaleDuration)
	defer timer.ObserveDuration()

	// Whole frame fits one tile: skip all tiling overhead.
	if w <= e.cfg.TileSize && h <= e.cfg.TileSize {
		if err := e.runTile(frame, tile{
			src:  frame.Bounds(),
			outW: ow,
			outH: oh,
		}); err != nil {
			return err
		}
		framesTotal.Inc()
		return nil
	}

	for _, t := range tileGrid(w, h, e.cfg.TileSize, e.cfg.TilePadding, scale) {
		if err := e.runTile(frame, t); err != nil {
			return err
		}
	}
	framesTotal.Inc()
	return nil
}

// runTile processes a single tile: extract, infer, place. Caller holds e.mu.
func (e *Engine) runTile(frame *image.RGBA, t tile) error {
	tileTimer := prometheus.NewTimer(tileDuration)
	defer tileTimer.ObserveDuration()

	in := frameToTensor(frame, t.src)
	out, err := e.sess.Run(in)
	if err != nil {
		return ErrTileProcessing(t.tx, t.ty, err)
	}
	scale := e.cfg.Scale
	if out.W != in.W*scale || out.H != in.H*scale {
		return ErrTileProcessing(t.tx, t.ty,
			fmt.Errorf("output %dx%d does not match input %dx%d at scale %d",
				out.W, out.H, in.W, in.H, scale))
	}
	tensorToSurface(out, e.surface, t.readX, t.readY, t.dst.X, t.dst.Y, t.outW, t.outH)
	tilesTotal.Inc()
	return nil
}

// Dispose releases the session and retires the engine.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDisposed {
		return nil
	}
	e.state = StateDisposed
	if e.sess != nil {
		err := e.sess.Close()
		e.sess = nil
		return err
	}
	return nil
}
