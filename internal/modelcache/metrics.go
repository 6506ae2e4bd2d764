package modelcache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upscaled",
		Subsystem: "modelcache",
		Name:      "hits_total",
		Help:      "Weight acquisitions served from the persistent cache",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upscaled",
		Subsystem: "modelcache",
		Name:      "misses_total",
		Help:      "Weight acquisitions that required a network fetch",
	})

	downloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "upscaled",
		Subsystem: "modelcache",
		Name:      "download_bytes_total",
		Help:      "Total weight bytes fetched over the network",
	})
)

func init() {
	prometheus.MustRegister(cacheHitsTotal, cacheMissesTotal, downloadBytesTotal)
}
