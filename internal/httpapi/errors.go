package httpapi

import (
	"encoding/json"
	"net/http"

	"upscaled/internal/controller"
	"upscaled/internal/engine"
	"upscaled/internal/modelcache"
	"upscaled/internal/pipeline"
	"upscaled/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case modelcache.IsModelUnavailable(err):
		return http.StatusNotFound
	case modelcache.IsDownloadFailed(err):
		return http.StatusBadGateway
	case engine.IsNotInitialized(err):
		return http.StatusConflict
	case engine.IsBackendUnavailable(err):
		return http.StatusServiceUnavailable
	case pipeline.IsInputUnsupported(err):
		return http.StatusUnprocessableEntity
	case controller.IsBusy(err):
		IncrementBackpressure("run_in_flight")
		return http.StatusTooManyRequests
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
