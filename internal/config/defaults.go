package config

import "github.com/hyperjump/erabu/internal/encoder"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Catalog.MetadataPath == "" {
		cfg.Catalog.MetadataPath = "/usr/local/var/erabu/data/catalog.csv"
	}
	if cfg.Catalog.ImageDir == "" {
		cfg.Catalog.ImageDir = "/usr/local/var/erabu/data/images"
	}
	if cfg.Catalog.Workers == 0 {
		cfg.Catalog.Workers = 4
	}
	if cfg.Encoder.Provider == "" {
		cfg.Encoder.Provider = "mock"
	}
	if cfg.Encoder.Dimensions == 0 {
		cfg.Encoder.Dimensions = 512
	}
	// text_weight: 0 is a legal value (image-only fusion), so nil means unset.
	if cfg.Encoder.TextWeight == nil {
		w := encoder.DefaultTextWeight
		cfg.Encoder.TextWeight = &w
	}
	if cfg.Encoder.Model == "" {
		cfg.Encoder.Model = "clip-ViT-B-32"
	}
	if cfg.Caption.Provider == "" {
		cfg.Caption.Provider = "mock"
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 50
	}
	if cfg.Search.Overfetch == 0 {
		cfg.Search.Overfetch = 2
	}
}
