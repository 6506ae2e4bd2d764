package controller

import (
	"context"
	"fmt"

	"upscaled/internal/modelcache"
	"upscaled/pkg/types"
)

// Capabilities publishes the capability-check result and reports whether an
// inference backend is compiled in.
func (c *Controller) Capabilities() (backend string, ok bool) {
	backend = c.eng.Backend()
	ok = backend != "none"
	c.pub.Publish(types.Event{Kind: types.EventCapability, Backend: backend})
	return backend, ok
}

// Initialize selects the first model and brings the engine to Ready.
func (c *Controller) Initialize(ctx context.Context, req types.SwitchRequest) error {
	cfg, err := c.resolveConfig(req)
	if err != nil {
		return err
	}
	c.setState(StateLoading)
	if err := c.eng.Init(ctx, cfg, c.modelProgress(cfg.ModelID)); err != nil {
		c.setError(err.Error())
		c.publishError(err)
		return err
	}
	c.finishLoad(cfg.ModelID)
	return nil
}

// SwitchModel replaces the active model. Rejected while a run is in flight.
func (c *Controller) SwitchModel(ctx context.Context, req types.SwitchRequest) error {
	release, err := c.acquireRun()
	if err != nil {
		return err
	}
	defer release()

	cfg, err := c.resolveConfig(req)
	if err != nil {
		return err
	}
	c.setState(StateLoading)
	if err := c.eng.SwitchModel(ctx, cfg, c.modelProgress(cfg.ModelID)); err != nil {
		c.setError(err.Error())
		c.publishError(err)
		return err
	}
	c.finishLoad(cfg.ModelID)
	return nil
}

// resolveConfig builds the engine configuration from a switch request,
// validating the model id and denoise level against the registry.
func (c *Controller) resolveConfig(req types.SwitchRequest) (types.UpscaleConfig, error) {
	desc, ok := c.catalog.Describe(req.Model)
	if !ok {
		return types.UpscaleConfig{}, modelcache.ErrModelUnavailable(req.Model)
	}
	cfg := types.DefaultUpscaleConfig(desc)
	if c.tileSize > 0 {
		cfg.TileSize = c.tileSize
	}
	if c.tilePadding >= 0 {
		cfg.TilePadding = c.tilePadding
	}
	if req.TileSize > 0 {
		cfg.TileSize = req.TileSize
	}
	if req.TilePadding > 0 {
		cfg.TilePadding = req.TilePadding
	}
	if req.DenoiseLevel != nil {
		lvl := *req.DenoiseLevel
		if !desc.SupportsDenoise {
			return types.UpscaleConfig{}, fmt.Errorf("model %s does not support denoising", desc.ID)
		}
		if lvl < 0 || lvl > desc.MaxDenoiseLevel {
			return types.UpscaleConfig{}, fmt.Errorf("denoise level %d out of range 0..%d for model %s",
				lvl, desc.MaxDenoiseLevel, desc.ID)
		}
		cfg.DenoiseLevel = lvl
	}
	return cfg, nil
}

// modelProgress adapts loader progress callbacks to session events.
func (c *Controller) modelProgress(modelID string) func(int, string) {
	return func(percent int, message string) {
		c.pub.Publish(types.Event{
			Kind:    types.EventModelProgress,
			ModelID: modelID,
			Percent: percent,
			Message: message,
		})
	}
}

func (c *Controller) finishLoad(modelID string) {
	c.mu.Lock()
	c.state = StateReady
	c.lastErr = ""
	c.mu.Unlock()
	c.pub.Publish(types.Event{Kind: types.EventModelLoaded, ModelID: modelID})
	c.log.Info().Str("model", modelID).Msg("model ready")
}

func (c *Controller) publishError(err error) {
	c.pub.Publish(types.Event{Kind: types.EventError, Error: err.Error()})
}

// ClearCache drops all cached weights. The active session keeps its weights
// in memory; the next switch re-downloads.
func (c *Controller) ClearCache() (removed int, err error) {
	ids, err := c.store.Keys()
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := c.store.Delete(id); err != nil {
			return removed, err
		}
		removed++
	}
	c.log.Info().Int("removed", removed).Msg("weight cache cleared")
	return removed, nil
}

// Close disposes the engine. The weight store is owned by the caller.
func (c *Controller) Close() error {
	c.setState(StateUninitialized)
	return c.eng.Dispose()
}
