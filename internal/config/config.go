// Package config handles configuration loading for the tissue mask server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LogLevelEnv overrides Log.Level when set.
const LogLevelEnv = "TISSUE_MASK_LOG_LEVEL"

// Config represents the server configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Mask    MaskConfig    `yaml:"mask"`
	Circle  CircleConfig  `yaml:"circle"`
	Formats FormatsConfig `yaml:"formats"`
	Cache   CacheConfig   `yaml:"cache"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is "info" or "debug".
	Level string `yaml:"level"`
}

// MaskConfig holds the mask generation defaults. Zero values are replaced
// by the defaults when the file is loaded.
type MaskConfig struct {
	Threshold         int     `yaml:"threshold"`
	MinArea           float64 `yaml:"min_area"`
	MaxArea           float64 `yaml:"max_area"`
	KernelSize        int     `yaml:"kernel_size"`
	Iterations        int     `yaml:"iterations"`
	AdaptiveBlockSize int     `yaml:"adaptive_block_size"`
	AdaptiveC         float64 `yaml:"adaptive_c"`
}

// CircleConfig holds the fiducial circle search defaults.
type CircleConfig struct {
	MinRadius int     `yaml:"min_radius"`
	MaxRadius int     `yaml:"max_radius"`
	Param1    float64 `yaml:"param1"`
	Param2    float64 `yaml:"param2"`
	MinDist   float64 `yaml:"min_dist"`
}

// FormatsConfig contains per-modality file naming conventions.
type FormatsConfig struct {
	VisiumImageFile   string `yaml:"visium_image_file"`
	VisiumMetadataDir string `yaml:"visium_metadata_dir"`
	XeniumImageFile   string `yaml:"xenium_image_file"`
}

// CacheConfig contains server cache settings.
type CacheConfig struct {
	// Datasets is how many open datasets the server keeps.
	Datasets int `yaml:"datasets"`

	// PreviewSizeMB bounds the encoded preview cache.
	PreviewSizeMB int `yaml:"preview_size_mb"`

	// PreviewTTLMinutes is how long an encoded preview stays cached.
	PreviewTTLMinutes int `yaml:"preview_ttl_minutes"`
}

// Load reads configuration from a YAML file.
//
// An empty path or a missing file yields the default configuration. The
// LogLevelEnv environment variable takes precedence over the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			cfg = &Config{}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			applyDefaults(cfg)
		}
	}

	if level := os.Getenv(LogLevelEnv); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Mask: MaskConfig{
			Threshold:         10,
			MinArea:           100,
			MaxArea:           1000000,
			KernelSize:        5,
			Iterations:        1,
			AdaptiveBlockSize: 11,
			AdaptiveC:         2,
		},
		Circle: CircleConfig{
			MinRadius: 10,
			MaxRadius: 10,
			Param1:    100,
			Param2:    30,
			MinDist:   20,
		},
		Formats: FormatsConfig{
			VisiumImageFile:   "tissue_hires_image.png",
			VisiumMetadataDir: "spatial",
			XeniumImageFile:   "morphology.ome.tif",
		},
		Cache: CacheConfig{
			Datasets:          8,
			PreviewSizeMB:     64,
			PreviewTTLMinutes: 10,
		},
	}
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Log.Level, "debug")
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}

	if cfg.Mask.Threshold == 0 {
		cfg.Mask.Threshold = defaults.Mask.Threshold
	}
	if cfg.Mask.MinArea == 0 {
		cfg.Mask.MinArea = defaults.Mask.MinArea
	}
	if cfg.Mask.MaxArea == 0 {
		cfg.Mask.MaxArea = defaults.Mask.MaxArea
	}
	if cfg.Mask.KernelSize == 0 {
		cfg.Mask.KernelSize = defaults.Mask.KernelSize
	}
	if cfg.Mask.Iterations == 0 {
		cfg.Mask.Iterations = defaults.Mask.Iterations
	}
	if cfg.Mask.AdaptiveBlockSize == 0 {
		cfg.Mask.AdaptiveBlockSize = defaults.Mask.AdaptiveBlockSize
	}
	if cfg.Mask.AdaptiveC == 0 {
		cfg.Mask.AdaptiveC = defaults.Mask.AdaptiveC
	}

	if cfg.Circle.MinRadius == 0 {
		cfg.Circle.MinRadius = defaults.Circle.MinRadius
	}
	if cfg.Circle.MaxRadius == 0 {
		cfg.Circle.MaxRadius = defaults.Circle.MaxRadius
	}
	if cfg.Circle.Param1 == 0 {
		cfg.Circle.Param1 = defaults.Circle.Param1
	}
	if cfg.Circle.Param2 == 0 {
		cfg.Circle.Param2 = defaults.Circle.Param2
	}
	if cfg.Circle.MinDist == 0 {
		cfg.Circle.MinDist = defaults.Circle.MinDist
	}

	if cfg.Formats.VisiumImageFile == "" {
		cfg.Formats.VisiumImageFile = defaults.Formats.VisiumImageFile
	}
	if cfg.Formats.VisiumMetadataDir == "" {
		cfg.Formats.VisiumMetadataDir = defaults.Formats.VisiumMetadataDir
	}
	if cfg.Formats.XeniumImageFile == "" {
		cfg.Formats.XeniumImageFile = defaults.Formats.XeniumImageFile
	}

	if cfg.Cache.Datasets == 0 {
		cfg.Cache.Datasets = defaults.Cache.Datasets
	}
	if cfg.Cache.PreviewSizeMB == 0 {
		cfg.Cache.PreviewSizeMB = defaults.Cache.PreviewSizeMB
	}
	if cfg.Cache.PreviewTTLMinutes == 0 {
		cfg.Cache.PreviewTTLMinutes = defaults.Cache.PreviewTTLMinutes
	}
}
