// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asset provides the content types consumed by the spatial
// renderer and scene graph: meshes, materials, textures, skinning rigs,
// and the [Library] that loads them from glTF files and compressed
// bundles and keeps them fresh on disk changes.
//
// Meshes store planar per-vertex attribute arrays ([Mesh.Position],
// [Mesh.Normal], etc) rather than interleaved bytes; the renderer
// uploads each attribute as its own vertex buffer. The set of
// attributes a mesh carries is its [Layout], and layouts have a stable
// [Layout.ID] so downstream caches can key on them.
package asset

import "errors"

var (
	// ErrNotFound is returned when a named asset is not in the library.
	ErrNotFound = errors.New("asset: not found")

	// ErrUnsupported is returned for files whose type cannot be handled.
	ErrUnsupported = errors.New("asset: unsupported file type")
)
