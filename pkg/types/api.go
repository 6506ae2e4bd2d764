package types

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []ModelDescriptor `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: realesr-unknown
	Error string `json:"error" example:"model not found: realesr-unknown"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// SwitchRequest initializes the engine or replaces its active model.
type SwitchRequest struct {
	// Model identifier from the catalog.
	// example: realesr-animevideov3
	Model string `json:"model" example:"realesr-animevideov3"`
	// Optional tile size override in pixels; 0 keeps the server default.
	// example: 256
	TileSize int `json:"tile_size,omitempty" example:"256"`
	// Optional tile padding override in pixels; 0 keeps the server default.
	// example: 16
	TilePadding int `json:"tile_padding,omitempty" example:"16"`
	// Denoise level for models that support it. Omit or pass -1 to disable.
	// example: 2
	DenoiseLevel *int `json:"denoise_level,omitempty" example:"2"`
}

// ProcessRequest starts a streaming upscale run over an input video.
type ProcessRequest struct {
	// Path to the input video readable by the server.
	// example: /data/in/clip.uraw
	Input string `json:"input" example:"/data/in/clip.uraw"`
	// Path the upscaled output is written to.
	// example: /data/out/clip-x4.uraw
	Output string `json:"output" example:"/data/out/clip-x4.uraw"`
	// Output container format. Only "rawvideo" is built in; container codecs
	// are provided by external frame source/sink implementations.
	// example: rawvideo
	Format string `json:"format,omitempty" example:"rawvideo"`
	// Optional cap on output height in pixels; 0 means uncapped.
	// example: 2160
	MaxHeight int `json:"max_height,omitempty" example:"2160"`
}

// CachedModel reports one persisted weight entry for /status.
type CachedModel struct {
	// Model identifier the entry is keyed by.
	// example: realesr-animevideov3
	ModelID string `json:"model_id" example:"realesr-animevideov3"`
	// Stored weight size in bytes.
	// example: 9900000
	SizeBytes int64 `json:"size_bytes" example:"9900000"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall controller state (uninitialized, loading, ready, running, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Identifier of the currently loaded model, if any.
	// example: realesr-animevideov3
	Model string `json:"model,omitempty" example:"realesr-animevideov3"`
	// Human-readable compute backend description.
	// example: ONNX Runtime (CUDA)
	Backend string `json:"backend,omitempty" example:"ONNX Runtime (CUDA)"`
	// Active tiling parameters.
	TileSize    int `json:"tile_size,omitempty" example:"256"`
	TilePadding int `json:"tile_padding,omitempty" example:"16"`
	// Weight entries present in the persistent cache.
	CachedModels []CachedModel `json:"cached_models"`
	// Last error observed by the controller (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total frames upscaled since start.
	// example: 1440
	FramesTotal uint64 `json:"frames_total" example:"1440"`
	// Total streaming runs completed since start.
	// example: 3
	RunsTotal uint64 `json:"runs_total" example:"3"`
}

// Event kinds emitted over the session protocol, in the order a successful
// run produces them: capability, model_progress* , model_loaded, run_started,
// (progress | eta)*, finished. Any failure emits a single error event.
const (
	EventCapability    = "capability"
	EventModelProgress = "model_progress"
	EventModelLoaded   = "model_loaded"
	EventRunStarted    = "run_started"
	EventProgress      = "progress"
	EventETA           = "eta"
	EventError         = "error"
	EventFinished      = "finished"
)

// Event is one ordered status message from the session controller to its
// consumer. Kind selects which optional fields are meaningful.
type Event struct {
	// One of the Event* kind constants.
	// example: progress
	Kind string `json:"kind" example:"progress"`
	// Model the event refers to, when applicable.
	// example: realesr-animevideov3
	ModelID string `json:"model_id,omitempty" example:"realesr-animevideov3"`
	// Percent complete (0-100) for model_progress and progress events.
	// example: 42
	Percent int `json:"percent,omitempty" example:"42"`
	// Free-form status text.
	// example: loaded from cache
	Message string `json:"message,omitempty" example:"loaded from cache"`
	// Formatted remaining-time estimate for eta events.
	// example: 04:32
	ETA string `json:"eta,omitempty" example:"04:32"`
	// Compute backend description for capability events.
	// example: ONNX Runtime (CPU)
	Backend string `json:"backend,omitempty" example:"ONNX Runtime (CPU)"`
	// Size of the finished output in bytes for finished events.
	// example: 9216000
	OutputBytes int64 `json:"output_bytes,omitempty" example:"9216000"`
	// Base64-encoded output payload for finished events of buffered runs.
	// Streamed runs omit it; the output is already at its destination path.
	Output []byte `json:"output,omitempty"`
	// Error message for error events.
	Error string `json:"error,omitempty"`
}
