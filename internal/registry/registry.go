package registry

import (
	"strings"

	"upscaled/pkg/types"
)

// builtin is the static model table. Scale, denoise range and weight file
// identifiers follow the published Real-ESRGAN releases; approximate sizes
// feed download progress when the transport omits a content length.
var builtin = []types.ModelDescriptor{
	{
		ID:                "realesr-animevideov3",
		Name:              "Real-ESRGAN AnimeVideo v3 (4x)",
		Scale:             4,
		WeightFile:        "realesr-animevideov3.onnx",
		ApproxWeightBytes: 9_900_000,
	},
	{
		ID:                "realesr-animevideov3-x2",
		Name:              "Real-ESRGAN AnimeVideo v3 (2x)",
		Scale:             2,
		WeightFile:        "realesr-animevideov3-x2.onnx",
		ApproxWeightBytes: 9_600_000,
	},
	{
		ID:                "realesrgan-x4plus",
		Name:              "Real-ESRGAN x4plus (photo)",
		Scale:             4,
		WeightFile:        "RealESRGAN_x4plus.onnx",
		ApproxWeightBytes: 67_000_000,
	},
	{
		ID:                "realesr-general-x4v3",
		Name:              "Real-ESRGAN General v3 (4x, denoise)",
		Scale:             4,
		SupportsDenoise:   true,
		MaxDenoiseLevel:   3,
		WeightFile:        "realesr-general-x4v3.onnx",
		ApproxWeightBytes: 4_800_000,
	},
}

// Catalog is the static, read-only model registry. It also resolves weight
// source URLs for the cache loader; a catalog with no base URL and no
// per-model override yields no source, which the loader reports as a
// configuration error (ModelUnavailable).
type Catalog struct {
	models  []types.ModelDescriptor
	baseURL string
	sources map[string]string // per-model absolute URL overrides
}

// New returns the built-in catalog with weight files resolved against baseURL.
func New(baseURL string) *Catalog {
	return NewWithModels(baseURL, builtin)
}

// NewWithModels builds a catalog from an explicit model table.
func NewWithModels(baseURL string, models []types.ModelDescriptor) *Catalog {
	return &Catalog{
		models:  models,
		baseURL: strings.TrimRight(baseURL, "/"),
		sources: make(map[string]string),
	}
}

// SetSource registers an absolute URL override for one model id.
func (c *Catalog) SetSource(id, url string) {
	c.sources[id] = url
}

// List returns all catalog entries.
func (c *Catalog) List() []types.ModelDescriptor {
	// return a copy to avoid external mutation
	out := make([]types.ModelDescriptor, len(c.models))
	copy(out, c.models)
	return out
}

// Describe looks up a model by id.
func (c *Catalog) Describe(id string) (types.ModelDescriptor, bool) {
	for _, m := range c.models {
		if m.ID == id {
			return m, true
		}
	}
	return types.ModelDescriptor{}, false
}

// SourceURL resolves the weight download URL for a model id. The boolean is
// false when the model is unknown or no source is configured for it.
func (c *Catalog) SourceURL(id string) (string, bool) {
	if u, ok := c.sources[id]; ok && u != "" {
		return u, true
	}
	m, ok := c.Describe(id)
	if !ok || c.baseURL == "" || m.WeightFile == "" {
		return "", false
	}
	return c.baseURL + "/" + m.WeightFile, true
}
