// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// Config is the host configuration, loaded from a TOML file. Every
// field has a usable default, so hosts can run with no file at all.
type Config struct {
	// TickRate is the update and render frequency in Hz.
	TickRate int `toml:"tick_rate"`

	// MaxTimestep clamps the per-tick delta time in seconds, so a
	// debugger pause or scheduler stall does not launch the physics.
	MaxTimestep float32 `toml:"max_timestep"`

	// SampleCount is the multisample count, 1 or 4.
	SampleCount int `toml:"sample_count"`

	// ScratchSize is the renderer's per-frame scratch ring size in
	// bytes; 0 uses the renderer default.
	ScratchSize int `toml:"scratch_size"`

	// AssetRoot is the directory asset paths resolve against.
	AssetRoot string `toml:"asset_root"`

	// Content is the path of the placed-content manifest; empty
	// uses the built-in defaults.
	Content string `toml:"content"`
}

// Defaults returns the configuration used when no file is given:
// 90 Hz, no multisampling, assets under ./assets.
func Defaults() *Config {
	return &Config{
		TickRate:    90,
		MaxTimestep: 1.0 / 30,
		SampleCount: 1,
		AssetRoot:   "assets",
	}
}

// LoadConfig loads the configuration from the given TOML file,
// applying defaults for absent fields and expanding ~ in paths. An
// empty or missing path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("engine: config path: %w", err)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("engine: reading config: %w", err)
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return cfg, fmt.Errorf("engine: config %s: %w", path, err)
	}
	if cfg.AssetRoot, err = homedir.Expand(cfg.AssetRoot); err != nil {
		return cfg, fmt.Errorf("engine: config %s: asset root: %w", path, err)
	}
	if cfg.Content, err = homedir.Expand(cfg.Content); err != nil {
		return cfg, fmt.Errorf("engine: config %s: content path: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("engine: config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (cfg *Config) Validate() error {
	if cfg.TickRate < 1 {
		return fmt.Errorf("tick rate must be at least 1, got %d", cfg.TickRate)
	}
	if cfg.MaxTimestep <= 0 {
		return fmt.Errorf("max timestep must be positive, got %g", cfg.MaxTimestep)
	}
	if cfg.SampleCount != 1 && cfg.SampleCount != 4 {
		return fmt.Errorf("sample count must be 1 or 4, got %d", cfg.SampleCount)
	}
	if cfg.ScratchSize < 0 {
		return fmt.Errorf("scratch size must not be negative, got %d", cfg.ScratchSize)
	}
	return nil
}
