// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Content is the placed-content manifest: what gets built when the
// user selects a placement, and which prototypes dress the hands.
// Loaded from a YAML file; every field has a usable default.
type Content struct {
	// BlockPrototype names the asset prototype instantiated for each
	// tower block. Empty means a procedural box with the dimensions
	// below; when set, the block footprint comes from the prototype's
	// mesh bounds instead.
	BlockPrototype string `yaml:"block_prototype"`

	// Layers is the number of tower layers; each layer holds 3 blocks.
	Layers int `yaml:"layers"`

	// Margin is the gap between blocks in a layer, in meters.
	Margin float32 `yaml:"margin"`

	// BlockWidth, BlockHeight, and BlockDepth are the procedural
	// block dimensions in meters. Depth is the long axis.
	BlockWidth  float32 `yaml:"block_width"`
	BlockHeight float32 `yaml:"block_height"`
	BlockDepth  float32 `yaml:"block_depth"`

	// HandPrototype names the asset prototype for the tracked hand
	// visualization. Empty leaves the hands as bare colliders.
	HandPrototype string `yaml:"hand_prototype"`
}

// DefaultContent returns the manifest used when no file is given.
func DefaultContent() Content {
	return Content{
		Layers:      6,
		Margin:      0.005,
		BlockWidth:  0.05,
		BlockHeight: 0.03,
		BlockDepth:  0.15,
	}
}

// LoadContent loads the manifest from the given YAML file, applying
// defaults for absent fields. An empty path returns the defaults.
func LoadContent(path string) (Content, error) {
	ct := DefaultContent()
	if strings.TrimSpace(path) == "" {
		return ct, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ct, err
	}
	if err := yaml.Unmarshal(b, &ct); err != nil {
		return ct, fmt.Errorf("content manifest: %w", err)
	}
	if err := ct.Validate(); err != nil {
		return ct, fmt.Errorf("content manifest: %w", err)
	}
	return ct, nil
}

// Validate checks the manifest for usable values.
func (ct *Content) Validate() error {
	if ct.Layers < 1 {
		return fmt.Errorf("layers must be at least 1, got %d", ct.Layers)
	}
	if ct.Margin < 0 {
		return fmt.Errorf("margin must not be negative, got %g", ct.Margin)
	}
	if ct.BlockWidth <= 0 || ct.BlockHeight <= 0 || ct.BlockDepth <= 0 {
		return fmt.Errorf("block dimensions must be positive, got %g x %g x %g",
			ct.BlockWidth, ct.BlockHeight, ct.BlockDepth)
	}
	return nil
}
