// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
)

// Object is one drawable instance in a frame: a mesh at a world
// matrix with its materials. The scene rebuilds the object list every
// tick; the renderer owns all GPU residency behind it.
type Object struct {
	// Matrix is the model (world) matrix.
	Matrix math32.Matrix4

	// Mesh is the shared geometry. The renderer keys GPU buffers by
	// mesh name and re-uploads when the pointer under a name changes.
	Mesh *asset.Mesh

	// Materials are per-submesh materials, parallel to
	// Mesh.Submeshes. A short or nil slice falls back to a default
	// opaque material.
	Materials []asset.Material

	// Skinner, when non-nil, supplies joint matrices for the skinning
	// pre-pass.
	Skinner *asset.Skinner

	// Overrides adjust material constants for this instance only.
	// Recognized keys: "alpha" scales the base color alpha,
	// "emissive" scales the emissive strength.
	Overrides map[string]float32
}

// Environment is the image-based lighting environment: an
// equirectangular irradiance texture and the basis matrix orienting
// it in world space.
type Environment struct {
	Texture *asset.Texture
	Basis   math32.Matrix4
}
