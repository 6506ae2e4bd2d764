package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"upscaled/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.ModelDescriptor
	Status() types.StatusResponse
	Ready() bool
	Capabilities() (backend string, ok bool)
	Initialize(ctx context.Context, req types.SwitchRequest) error
	SwitchModel(ctx context.Context, req types.SwitchRequest) error
	ProcessFile(ctx context.Context, req types.ProcessRequest, w io.Writer, flush func()) error
	ClearCache() (int, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints; NDJSON streams opt out via header.
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: svc.ListModels()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/capabilities", func(w http.ResponseWriter, r *http.Request) {
		backend, ok := svc.Capabilities()
		writeJSON(w, map[string]any{"backend": backend, "available": ok})
	})

	r.Post("/initialize", func(w http.ResponseWriter, r *http.Request) {
		handleSwitch(w, r, svc.Initialize)
	})

	r.Post("/switch", func(w http.ResponseWriter, r *http.Request) {
		handleSwitch(w, r, svc.SwitchModel)
	})

	r.Post("/cache/clear", func(w http.ResponseWriter, r *http.Request) {
		removed, err := svc.ClearCache()
		if err != nil {
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, map[string]int{"removed": removed})
	})

	r.Post("/process", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeJSON[types.ProcessRequest](w, r)
		if !ok {
			return
		}
		if strings.TrimSpace(req.Input) == "" {
			writeJSONError(w, http.StatusBadRequest, "input is required")
			return
		}
		if req.Format != "" && req.Format != "rawvideo" {
			writeJSONError(w, http.StatusBadRequest, "unsupported format: "+req.Format)
			return
		}

		// Stream session events as NDJSON.
		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		writer := io.Writer(w)
		lvl := requestLogLevel(r)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(w, &eventLineWriter{})
		}
		start := time.Now()
		logStart(r, lvl, "process start")

		// Join server base context with request context so shutdown cancels
		// work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.ProcessFile(joinedCtx, req, writer, flush); err != nil {
			// Client disconnect or shutdown: nothing sensible left to write.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeJSONError(w, statusForError(err), err.Error())
			logEnd(r, lvl, statusForError(err), start, err)
			return
		}
		logEnd(r, lvl, http.StatusOK, start, nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleSwitch decodes a switch request and applies it through fn
// (Initialize or SwitchModel share the wire shape).
func handleSwitch(w http.ResponseWriter, r *http.Request, fn func(context.Context, types.SwitchRequest) error) {
	req, ok := decodeJSON[types.SwitchRequest](w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := fn(joinedCtx, req); err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

func logStart(r *http.Request, lvl LogLevel, msg string) {
	if lvl < LevelInfo || zlog == nil {
		return
	}
	z := zlog.Info().Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg(msg)
}

func logEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelInfo || zlog == nil {
		return
	}
	z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg("process end")
}
