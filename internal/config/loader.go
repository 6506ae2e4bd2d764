package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr          string `json:"addr" yaml:"addr" toml:"addr"`
	CachePath     string `json:"cache_path" yaml:"cache_path" toml:"cache_path"`
	WeightBaseURL string `json:"weight_base_url" yaml:"weight_base_url" toml:"weight_base_url"`
	DefaultModel  string `json:"default_model" yaml:"default_model" toml:"default_model"`
	TileSize      int    `json:"tile_size" yaml:"tile_size" toml:"tile_size"`
	TilePadding   int    `json:"tile_padding" yaml:"tile_padding" toml:"tile_padding"`
	LogLevel      string `json:"log_level" yaml:"log_level" toml:"log_level"`
	GPUMode       string `json:"gpu_mode" yaml:"gpu_mode" toml:"gpu_mode"`
	Threads       int    `json:"threads" yaml:"threads" toml:"threads"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
