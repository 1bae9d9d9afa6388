// Package config provides configuration loading and structs for the Erabu server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Encoder EncoderConfig `yaml:"encoder"`
	Caption CaptionConfig `yaml:"caption"`
	Search  SearchConfig  `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CatalogConfig holds the metadata source and image directory.
type CatalogConfig struct {
	MetadataPath string `yaml:"metadata_path"`
	ImageDir     string `yaml:"image_dir"`
	Watch        bool   `yaml:"watch"`
	Workers      int    `yaml:"workers"`
}

// EncoderConfig holds embedding model settings. Provider selects the backend:
// "onnx" runs local CLIP towers, "openai" talks to an OpenAI-compatible
// embeddings endpoint, "mock" is a deterministic stand-in for development.
type EncoderConfig struct {
	Provider        string   `yaml:"provider"`
	Dimensions      int      `yaml:"dimensions"`
	TextWeight      *float64 `yaml:"text_weight"`
	VisionModelPath string   `yaml:"vision_model_path"`
	TextModelPath   string   `yaml:"text_model_path"`
	BaseURL         string   `yaml:"base_url"`
	APIKey          string   `yaml:"api_key"`
	Model           string   `yaml:"model"`
}

// CaptionConfig holds caption/rewrite model settings. Provider is "openai" or
// "mock". RewriteModel falls back to CaptionModel when empty.
type CaptionConfig struct {
	Provider     string `yaml:"provider"`
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	CaptionModel string `yaml:"caption_model"`
	RewriteModel string `yaml:"rewrite_model"`
}

// SearchConfig holds query-time settings.
type SearchConfig struct {
	TopK      int `yaml:"top_k"`
	MaxTopK   int `yaml:"max_top_k"`
	Overfetch int `yaml:"overfetch"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Catalog.MetadataPath = expandPath(cfg.Catalog.MetadataPath, configDir)
	cfg.Catalog.ImageDir = expandPath(cfg.Catalog.ImageDir, configDir)
	if cfg.Encoder.VisionModelPath != "" {
		cfg.Encoder.VisionModelPath = expandPath(cfg.Encoder.VisionModelPath, configDir)
	}
	if cfg.Encoder.TextModelPath != "" {
		cfg.Encoder.TextModelPath = expandPath(cfg.Encoder.TextModelPath, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
