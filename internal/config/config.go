// Package config handles configuration loading for the eyemap server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
	Output OutputConfig `yaml:"output"`
	Jobs   JobsConfig   `yaml:"jobs"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DataConfig contains data source settings.
type DataConfig struct {
	DatasetPath string `yaml:"dataset_path"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	ArtifactSizeMB     int `yaml:"artifact_size_mb"`
	ArtifactTTLMinutes int `yaml:"artifact_ttl_minutes"`
	ColumnsCacheSize   int `yaml:"columns_cache_size"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	HexSize       float64 `yaml:"hex_size"`
	SpacingFactor float64 `yaml:"spacing_factor"`
	Margin        float64 `yaml:"margin"`
	Colormap      string  `yaml:"colormap"`
}

// OutputConfig contains artifact persistence settings.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// JobsConfig contains batch generation job settings.
type JobsConfig struct {
	SQLitePath    string `yaml:"sqlite_path"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			DatasetPath: "./data/columns",
		},
		Cache: CacheConfig{
			ArtifactSizeMB:     256,
			ArtifactTTLMinutes: 30,
			ColumnsCacheSize:   2048,
		},
		Render: RenderConfig{
			HexSize:       6,
			SpacingFactor: 1.1,
			Margin:        10,
			Colormap:      "reds",
		},
		Output: OutputConfig{
			Dir: "./output",
		},
		Jobs: JobsConfig{
			SQLitePath:    "./data/jobs.sqlite",
			MaxConcurrent: 2,
			RetentionDays: 7,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Data.DatasetPath == "" {
		cfg.Data.DatasetPath = defaults.Data.DatasetPath
	}
	if cfg.Cache.ArtifactSizeMB == 0 {
		cfg.Cache.ArtifactSizeMB = defaults.Cache.ArtifactSizeMB
	}
	if cfg.Cache.ArtifactTTLMinutes == 0 {
		cfg.Cache.ArtifactTTLMinutes = defaults.Cache.ArtifactTTLMinutes
	}
	if cfg.Cache.ColumnsCacheSize == 0 {
		cfg.Cache.ColumnsCacheSize = defaults.Cache.ColumnsCacheSize
	}
	if cfg.Render.HexSize == 0 {
		cfg.Render.HexSize = defaults.Render.HexSize
	}
	if cfg.Render.SpacingFactor == 0 {
		cfg.Render.SpacingFactor = defaults.Render.SpacingFactor
	}
	if cfg.Render.Margin == 0 {
		cfg.Render.Margin = defaults.Render.Margin
	}
	if cfg.Render.Colormap == "" {
		cfg.Render.Colormap = defaults.Render.Colormap
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaults.Output.Dir
	}
	if cfg.Jobs.SQLitePath == "" {
		cfg.Jobs.SQLitePath = defaults.Jobs.SQLitePath
	}
	if cfg.Jobs.MaxConcurrent == 0 {
		cfg.Jobs.MaxConcurrent = defaults.Jobs.MaxConcurrent
	}
	if cfg.Jobs.RetentionDays == 0 {
		cfg.Jobs.RetentionDays = defaults.Jobs.RetentionDays
	}
}
