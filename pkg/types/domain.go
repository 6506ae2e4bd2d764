package types

// ModelDescriptor describes one entry in the static upscaling model catalog.
// Descriptors are immutable and defined at process start.
type ModelDescriptor struct {
	// Stable identifier for the model.
	// example: realesr-animevideov3
	ID string `json:"id" example:"realesr-animevideov3"`
	// Human-friendly name.
	// example: Real-ESRGAN AnimeVideo v3 (4x)
	Name string `json:"name" example:"Real-ESRGAN AnimeVideo v3 (4x)"`
	// Integer factor by which linear resolution is multiplied.
	// example: 4
	Scale int `json:"scale" example:"4"`
	// Whether the model accepts a denoise level.
	SupportsDenoise bool `json:"supports_denoise,omitempty"`
	// Highest accepted denoise level (0..MaxDenoiseLevel) when supported.
	// example: 3
	MaxDenoiseLevel int `json:"max_denoise_level,omitempty" example:"3"`
	// Weight file identifier, resolved against the configured weight base URL.
	// example: realesr-animevideov3.onnx
	WeightFile string `json:"weight_file" example:"realesr-animevideov3.onnx"`
	// Approximate weight size in bytes. Used for download progress when the
	// transport does not report a content length.
	// example: 9900000
	ApproxWeightBytes int64 `json:"approx_weight_bytes" example:"9900000"`
}

// DenoiseUnset marks an UpscaleConfig with no denoise level selected.
const DenoiseUnset = -1

// UpscaleConfig selects a model and the tiling parameters for one engine
// session. Replacing any field requires rebuilding the inference session.
type UpscaleConfig struct {
	// Model identifier from the catalog.
	// example: realesr-animevideov3
	ModelID string `json:"model_id" example:"realesr-animevideov3"`
	// Scale factor; must match the catalog entry.
	// example: 4
	Scale int `json:"scale" example:"4"`
	// Square tile edge in pixels.
	// example: 256
	TileSize int `json:"tile_size" example:"256"`
	// Extra context pixels included around each tile and cropped from output.
	// example: 16
	TilePadding int `json:"tile_padding" example:"16"`
	// Denoise level (0..3) for models that support it; DenoiseUnset otherwise.
	// example: 2
	DenoiseLevel int `json:"denoise_level" example:"2"`
}

// DefaultUpscaleConfig builds a complete UpscaleConfig for a model with the
// package defaults filled in. Callers override individual fields explicitly
// after construction; there is no partial-config merging at use sites.
func DefaultUpscaleConfig(desc ModelDescriptor) UpscaleConfig {
	return UpscaleConfig{
		ModelID:      desc.ID,
		Scale:        desc.Scale,
		TileSize:     DefaultTileSize,
		TilePadding:  DefaultTilePadding,
		DenoiseLevel: DenoiseUnset,
	}
}

// Defaults applied by DefaultUpscaleConfig.
const (
	DefaultTileSize    = 256
	DefaultTilePadding = 16
)
