package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	framesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upscaled",
		Subsystem: "engine",
		Name:      "frames_total",
		Help:      "Frames upscaled since start",
	})

	tilesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upscaled",
		Subsystem: "engine",
		Name:      "tiles_total",
		Help:      "Tiles run through the inference session",
	})

	tileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "upscaled",
		Subsystem: "engine",
		Name:      "tile_duration_seconds",
		Help:      "Per-tile processing time (extract, infer, place)",
		Buckets:   prometheus.DefBuckets,
	})

	upscaleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "upscaled",
		Subsystem: "engine",
		Name:      "upscale_duration_seconds",
		Help:      "Per-frame upscale time",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(framesTotal, tilesTotal, tileDuration, upscaleDuration)
}
