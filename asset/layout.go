// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import "hash/fnv"

// Semantics identifies what a vertex attribute means.
type Semantics int32

const (
	Position Semantics = iota
	Normal
	TexCoord0
	Color0
	Joints0
	Weights0
)

func (s Semantics) String() string {
	if n, ok := semanticNames[s]; ok {
		return n
	}
	return "Invalid"
}

var semanticNames = map[Semantics]string{
	Position:  "Position",
	Normal:    "Normal",
	TexCoord0: "TexCoord0",
	Color0:    "Color0",
	Joints0:   "Joints0",
	Weights0:  "Weights0",
}

// Formats is the storage format of one vertex attribute.
type Formats int32

const (
	Float32x2 Formats = iota
	Float32x3
	Float32x4
	Uint16x4
)

func (f Formats) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "Invalid"
}

var formatNames = map[Formats]string{
	Float32x2: "Float32x2",
	Float32x3: "Float32x3",
	Float32x4: "Float32x4",
	Uint16x4:  "Uint16x4",
}

// Size returns the per-vertex byte size of the format.
func (f Formats) Size() int {
	switch f {
	case Float32x2:
		return 8
	case Float32x3:
		return 12
	case Float32x4:
		return 16
	case Uint16x4:
		return 8
	}
	return 0
}

// Attribute is one entry in a [Layout]: a semantic and its format.
// Each attribute occupies its own tightly packed vertex buffer.
type Attribute struct {
	Semantic Semantics
	Format   Formats
}

// Layout is the ordered set of vertex attributes a mesh provides.
// Two meshes with the same attributes in the same order share a
// layout identity, so pipelines compiled for one serve the other.
type Layout struct {
	Attributes []Attribute
}

// ID returns a stable hash of the layout, suitable as a cache key.
// Equal layouts always produce equal IDs across runs.
func (ly *Layout) ID() uint64 {
	h := fnv.New64a()
	var b [8]byte
	for _, at := range ly.Attributes {
		b[0] = byte(at.Semantic)
		b[1] = byte(at.Semantic >> 8)
		b[2] = byte(at.Semantic >> 16)
		b[3] = byte(at.Semantic >> 24)
		b[4] = byte(at.Format)
		b[5] = byte(at.Format >> 8)
		b[6] = byte(at.Format >> 16)
		b[7] = byte(at.Format >> 24)
		h.Write(b[:])
	}
	return h.Sum64()
}

// Has returns true if the layout contains the given semantic.
func (ly *Layout) Has(sem Semantics) bool {
	for _, at := range ly.Attributes {
		if at.Semantic == sem {
			return true
		}
	}
	return false
}

// StaticLayout returns the layout of unskinned meshes:
// position, normal, and one texture coordinate channel.
func StaticLayout() *Layout {
	return &Layout{Attributes: []Attribute{
		{Position, Float32x3},
		{Normal, Float32x3},
		{TexCoord0, Float32x2},
	}}
}

// SkinnedLayout returns the layout of skinned meshes: the static
// attributes plus joint indices and weights, up to 4 influences
// per vertex.
func SkinnedLayout() *Layout {
	return &Layout{Attributes: []Attribute{
		{Position, Float32x3},
		{Normal, Float32x3},
		{TexCoord0, Float32x2},
		{Joints0, Uint16x4},
		{Weights0, Float32x4},
	}}
}
