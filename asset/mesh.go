// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"fmt"

	"cogentcore.org/core/math32"
)

// Submesh is a contiguous index range drawn with one material.
// Materials are linked by name, resolved against the [Library]
// or the owning prototype at draw time.
type Submesh struct {
	Start    uint32
	Count    uint32
	Material string
}

// Mesh is an indexed triangle mesh with planar attribute arrays.
// Position, Normal, and TexCoord are always present; Joints and
// Weights only on skinned meshes. All attribute slices must have
// the same length.
type Mesh struct {
	// Name is the unique name the mesh is registered under.
	Name string

	Position []math32.Vector3
	Normal   []math32.Vector3
	TexCoord []math32.Vector2
	Joints   [][4]uint16
	Weights  [][4]float32

	Index []uint32

	// Submeshes partition Index by material. An empty list means
	// the whole index range draws with the default material.
	Submeshes []Submesh

	// Skeleton names the rig for skinned meshes, empty otherwise.
	Skeleton string

	// Bounds is the local-space bounding box,
	// valid after [Mesh.UpdateBounds].
	Bounds math32.Box3
}

// Layout returns the vertex layout implied by which attribute
// arrays the mesh carries.
func (ms *Mesh) Layout() *Layout {
	if ms.Skinned() {
		return SkinnedLayout()
	}
	return StaticLayout()
}

// Skinned returns true if the mesh carries joint influences.
func (ms *Mesh) Skinned() bool {
	return len(ms.Joints) > 0
}

// NumVertex returns the number of vertices.
func (ms *Mesh) NumVertex() int {
	return len(ms.Position)
}

// UpdateBounds recomputes [Mesh.Bounds] from the positions.
func (ms *Mesh) UpdateBounds() {
	ms.Bounds = math32.B3Empty()
	ms.Bounds.ExpandByPoints(ms.Position)
}

// Validate checks attribute array consistency and index ranges,
// returning a descriptive error for the first problem found.
func (ms *Mesh) Validate() error {
	nv := len(ms.Position)
	if nv == 0 {
		return fmt.Errorf("mesh %q: no vertices", ms.Name)
	}
	if len(ms.Normal) != nv {
		return fmt.Errorf("mesh %q: %d normals for %d vertices", ms.Name, len(ms.Normal), nv)
	}
	if len(ms.TexCoord) != nv {
		return fmt.Errorf("mesh %q: %d texcoords for %d vertices", ms.Name, len(ms.TexCoord), nv)
	}
	if ms.Skinned() {
		if len(ms.Joints) != nv || len(ms.Weights) != nv {
			return fmt.Errorf("mesh %q: skin attributes do not cover all %d vertices", ms.Name, nv)
		}
	}
	if len(ms.Index) == 0 || len(ms.Index)%3 != 0 {
		return fmt.Errorf("mesh %q: index count %d is not a positive multiple of 3", ms.Name, len(ms.Index))
	}
	for i, ix := range ms.Index {
		if int(ix) >= nv {
			return fmt.Errorf("mesh %q: index %d at %d out of range", ms.Name, ix, i)
		}
	}
	for _, sm := range ms.Submeshes {
		if int(sm.Start)+int(sm.Count) > len(ms.Index) {
			return fmt.Errorf("mesh %q: submesh %q exceeds index range", ms.Name, sm.Material)
		}
	}
	return nil
}

// ComputeNormals replaces the normals with area-weighted face
// normals accumulated per vertex. Used for meshes that arrive
// without normals, e.g. scene reconstruction geometry.
func (ms *Mesh) ComputeNormals() {
	ms.Normal = make([]math32.Vector3, len(ms.Position))
	for i := 0; i+2 < len(ms.Index); i += 3 {
		a, b, c := ms.Index[i], ms.Index[i+1], ms.Index[i+2]
		e1 := ms.Position[b].Sub(ms.Position[a])
		e2 := ms.Position[c].Sub(ms.Position[a])
		fn := e1.Cross(e2)
		ms.Normal[a].SetAdd(fn)
		ms.Normal[b].SetAdd(fn)
		ms.Normal[c].SetAdd(fn)
	}
	for i := range ms.Normal {
		if ms.Normal[i].Length() > 0 {
			ms.Normal[i] = ms.Normal[i].Normal()
		}
	}
}
