package controller

import (
	"sync/atomic"
	"time"

	"upscaled/pkg/types"
)

// Status builds a detailed status response for /status.
func (c *Controller) Status() types.StatusResponse {
	c.mu.RLock()
	resp := types.StatusResponse{
		State:          string(c.state),
		LastError:      c.lastErr,
		UptimeSeconds:  int64(time.Since(c.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		FramesTotal:    atomic.LoadUint64(&c.framesTotal),
		RunsTotal:      atomic.LoadUint64(&c.runsTotal),
	}
	c.mu.RUnlock()

	if ecfg := c.eng.Config(); ecfg.ModelID != "" {
		resp.Model = ecfg.ModelID
		resp.TileSize = ecfg.TileSize
		resp.TilePadding = ecfg.TilePadding
	}
	resp.Backend = c.eng.Backend()

	resp.CachedModels = make([]types.CachedModel, 0)
	ids, err := c.store.Keys()
	if err != nil {
		c.log.Warn().Err(err).Msg("listing cached weights")
		return resp
	}
	for _, id := range ids {
		b, ok, err := c.store.Get(id)
		if err != nil || !ok {
			continue
		}
		resp.CachedModels = append(resp.CachedModels, types.CachedModel{
			ModelID:   id,
			SizeBytes: int64(len(b)),
		})
	}
	return resp
}
