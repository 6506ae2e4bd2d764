package engine

// GPUMode controls compute backend selection for a session.
type GPUMode string

const (
	// GPUModeAuto prefers GPU acceleration and falls back to CPU.
	GPUModeAuto GPUMode = "auto"
	// GPUModeCUDA requires the CUDA execution provider.
	GPUModeCUDA GPUMode = "cuda"
	// GPUModeCPU forces CPU execution.
	GPUModeCPU GPUMode = "cpu"
)

// SessionConfig holds per-session tunables. Scale is the declared model
// scale factor; the session's output shape must match input dims × Scale.
type SessionConfig struct {
	Scale int
	// DenoiseLevel >= 0 binds the graph's scalar denoise input and feeds it
	// the level on every run; types.DenoiseUnset (-1) omits the input.
	DenoiseLevel int
	GPUMode      GPUMode
	// NumThreads for CPU inference (0 = auto).
	NumThreads int
}

// Session is a loaded, ready-to-run instantiation of one model's weights
// bound to a compute backend. It runs the super-resolution graph on one
// tile tensor at a time. Sessions are not safe for concurrent use; the
// Engine serializes access.
type Session interface {
	// Run executes the graph on input (1,3,H,W) and returns the upscaled
	// output (1,3,H×scale,W×scale).
	Run(input *Tensor) (*Tensor, error)

	// Close releases the session's native resources.
	Close() error
}

// SessionFactory builds sessions from raw weight bytes. The concrete
// factory is selected at build time (ONNX Runtime under the 'onnx' tag,
// fail-fast stub otherwise); tests inject fakes.
type SessionFactory interface {
	// NewSession decodes weights and binds them to the best available
	// compute backend per cfg.GPUMode.
	NewSession(weights []byte, cfg SessionConfig) (Session, error)

	// Backend describes the compute backend the factory binds sessions to,
	// e.g. "ONNX Runtime (CUDA)".
	Backend() string
}
