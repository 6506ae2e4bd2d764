package controller

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"upscaled/internal/engine"
	"upscaled/internal/modelcache"
	"upscaled/internal/registry"
	"upscaled/pkg/types"
)

// State represents the controller lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateRunning       State = "running"
	StateError         State = "error"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultTileSize    = types.DefaultTileSize
	defaultTilePadding = types.DefaultTilePadding
)

// Config encapsulates all tunables for Controller construction.
type Config struct {
	Catalog  *registry.Catalog
	Store    modelcache.Store
	Weights  engine.WeightsProvider
	Sessions engine.SessionFactory

	Publisher EventPublisher

	TileSize    int
	TilePadding int
	GPUMode     engine.GPUMode
	NumThreads  int

	Logger zerolog.Logger
}

// Controller owns the engine and serializes processing runs. One controller
// serves one engine: overlapping process calls are rejected with a busy error
// rather than queued.
type Controller struct {
	mu      sync.RWMutex
	state   State
	lastErr string

	catalog *registry.Catalog
	store   modelcache.Store
	eng     *engine.Engine
	pub     EventPublisher
	log     zerolog.Logger

	tileSize    int
	tilePadding int

	// busyCh guards the single processing slot.
	busyCh chan struct{}

	startTime   time.Time
	framesTotal uint64
	runsTotal   uint64
}

// NewWithConfig constructs a Controller from Config, applying defaults.
func NewWithConfig(cfg Config) *Controller {
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = defaultTileSize
	}
	if cfg.TilePadding < 0 {
		cfg.TilePadding = defaultTilePadding
	}
	c := &Controller{
		state:       StateUninitialized,
		catalog:     cfg.Catalog,
		store:       cfg.Store,
		pub:         cfg.Publisher,
		log:         cfg.Logger,
		tileSize:    cfg.TileSize,
		tilePadding: cfg.TilePadding,
		busyCh:      make(chan struct{}, 1),
		startTime:   time.Now(),
	}
	c.eng = engine.New(cfg.Weights, cfg.Sessions, engine.Config{
		GPUMode:    cfg.GPUMode,
		NumThreads: cfg.NumThreads,
	}, cfg.Logger)
	return c
}

// Ready reports whether the engine can accept processing runs.
func (c *Controller) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateReady || c.state == StateRunning
}

// State returns the controller lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ListModels returns the registry contents.
func (c *Controller) ListModels() []types.ModelDescriptor {
	return c.catalog.List()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	c.state = StateError
	c.lastErr = msg
	c.mu.Unlock()
}

// acquireRun takes the single processing slot without blocking.
func (c *Controller) acquireRun() (release func(), err error) {
	select {
	case c.busyCh <- struct{}{}:
		return func() { <-c.busyCh }, nil
	default:
		return nil, ErrBusy()
	}
}
