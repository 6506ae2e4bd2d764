package modelcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"upscaled/pkg/types"
)

// Resolver maps model ids to descriptors and weight source URLs. The
// registry catalog satisfies this.
type Resolver interface {
	Describe(id string) (types.ModelDescriptor, bool)
	SourceURL(id string) (string, bool)
}

// ProgressFunc receives monotonically increasing download progress. Percent
// stays below 100 until the weights are fully assembled. An alias so that
// plain callbacks satisfy consumer-side interfaces.
type ProgressFunc = func(percent int, message string)

// Loader resolves a model id to its binary weights: cache lookup, streamed
// network fetch, best-effort cache write-back.
type Loader struct {
	store    Store
	resolver Resolver
	client   *http.Client
	log      zerolog.Logger
}

func NewLoader(store Store, resolver Resolver, log zerolog.Logger) *Loader {
	return &Loader{
		store:    store,
		resolver: resolver,
		client:   &http.Client{Timeout: 10 * time.Minute},
		log:      log,
	}
}

// SetClient replaces the HTTP client (tests inject counting transports).
func (l *Loader) SetClient(c *http.Client) { l.client = c }

// Acquire returns the weight bytes for id. A cache hit reports 100% at once
// and performs no network access. Otherwise the weights are stream-fetched
// with progress in 0..99 against the expected size, assembled, written back
// to the cache best-effort, and returned.
func (l *Loader) Acquire(ctx context.Context, id string, onProgress ProgressFunc) ([]byte, error) {
	if onProgress == nil {
		onProgress = func(int, string) {}
	}

	if b, ok, err := l.store.Get(id); err != nil {
		// treat a broken cache read as a miss
		l.log.Warn().Err(err).Str("model", id).Msg("cache read failed")
	} else if ok {
		cacheHitsTotal.Inc()
		onProgress(100, "loaded from cache")
		return b, nil
	}
	cacheMissesTotal.Inc()

	url, ok := l.resolver.SourceURL(id)
	if !ok {
		return nil, ErrModelUnavailable(id)
	}

	data, err := l.fetch(ctx, id, url, onProgress)
	if err != nil {
		return nil, err
	}

	if err := l.store.Put(id, data); err != nil {
		// cache write failures never surface to the caller
		l.log.Warn().Err(err).Str("model", id).Msg("cache write failed")
	}
	onProgress(100, "model ready")
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, id, url string, onProgress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ErrDownloadFailed(url, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, ErrDownloadFailed(url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ErrDownloadFailed(url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	// Expected size drives percent reporting. Content-Length wins; the
	// catalog's approximate size is the fallback. Percent is capped at 99
	// because the expected size is not guaranteed to be exact.
	expected := resp.ContentLength
	if expected <= 0 {
		if desc, ok := l.resolver.Describe(id); ok {
			expected = desc.ApproxWeightBytes
		}
	}

	var (
		chunks   [][]byte
		received int64
		lastPct  int
		buf      = make([]byte, 256*1024)
	)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			chunks = append(chunks, chunk)
			received += int64(n)
			downloadBytesTotal.Add(float64(n))
			if expected > 0 {
				pct := int(received * 100 / expected)
				if pct > 99 {
					pct = 99
				}
				if pct > lastPct {
					lastPct = pct
					onProgress(pct, fmt.Sprintf("downloading model (%d%%)", pct))
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, ErrDownloadFailed(url, rerr)
		}
	}

	// Assemble chunks into one contiguous buffer. The total is the sum of
	// chunk lengths; the expected size is advisory only.
	data := make([]byte, 0, received)
	for _, c := range chunks {
		data = append(data, c...)
	}
	l.log.Info().Str("model", id).Int64("bytes", received).Msg("weights downloaded")
	return data, nil
}
