// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import "cogentcore.org/core/math32"

// Categories orders materials into render classes. The renderer draws
// occluders first, then opaque surfaces, then transparent ones, and
// the category also selects the pipeline's depth and blend behavior.
type Categories int32

const (
	// Occluder writes depth only, no color. Used for real-world
	// geometry that should hide virtual content behind it.
	Occluder Categories = iota

	// Opaque writes depth and color with no blending.
	Opaque

	// Transparent blends over the framebuffer and does not
	// write depth.
	Transparent
)

func (c Categories) String() string {
	switch c {
	case Occluder:
		return "Occluder"
	case Opaque:
		return "Opaque"
	case Transparent:
		return "Transparent"
	}
	return "Invalid"
}

// Keys recognized in per-instance override tables. Overrides adjust a
// single drawn instance without touching the shared material.
const (
	// OverrideAlpha scales the base color alpha.
	OverrideAlpha = "alpha"

	// OverrideEmissive scales the emissive strength.
	OverrideEmissive = "emissive"
)

// Material describes how a surface is shaded. Implementations carry
// their own uniform constants; everything the renderer needs to build
// a pipeline comes through this interface, so new material types do
// not require renderer changes.
type Material interface {

	// AsMaterialBase returns the [MaterialBase] for this material,
	// which provides the core functionality of a material.
	AsMaterialBase() *MaterialBase

	// Category returns the render class of the material.
	Category() Categories

	// Shader returns the name of the shader pair that renders the
	// material, e.g. "pbr" or "occluder".
	Shader() string

	// Constants returns the per-material uniform block as float32
	// words, already padded to 16 byte alignment. May be nil for
	// materials with no constants.
	Constants() []float32

	// TextureNames returns the texture slots in binding order.
	// Empty names resolve to built-in 1x1 neutral textures.
	TextureNames() []string
}

// MaterialBase provides the core implementation of the [Material]
// interface.
type MaterialBase struct {

	// Name is the name the material is registered and resolved under.
	Name string

	// CullBack indicates to cull the back-facing surfaces.
	CullBack bool

	// CullFront indicates to cull the front-facing surfaces.
	CullFront bool
}

func (mb *MaterialBase) AsMaterialBase() *MaterialBase {
	return mb
}

// PBRMaterial is a physically based material in the metallic
// roughness parameterization.
type PBRMaterial struct {
	MaterialBase

	// BaseColorFactor multiplies the base color texture; alpha
	// below 1 together with Transparent gives blended output.
	BaseColorFactor math32.Vector4

	// EmissiveColor is emitted independent of lighting.
	EmissiveColor math32.Vector3

	// EmissiveStrength scales EmissiveColor.
	EmissiveStrength float32

	// NormalScale scales the normal map perturbation.
	NormalScale float32

	Metallic  float32
	Roughness float32

	// Transparent selects blended rendering instead of opaque.
	Transparent bool

	// Texture slot names, resolved against the library.
	BaseColorTexture         string
	NormalTexture            string
	MetallicRoughnessTexture string
	EmissiveTexture          string
}

// NewPBRMaterial returns a PBR material with neutral defaults:
// white base color, fully rough, not metallic.
func NewPBRMaterial(name string) *PBRMaterial {
	mt := &PBRMaterial{}
	mt.Name = name
	mt.BaseColorFactor = math32.Vec4(1, 1, 1, 1)
	mt.NormalScale = 1
	mt.Roughness = 1
	mt.CullBack = true
	return mt
}

func (mt *PBRMaterial) Category() Categories {
	if mt.Transparent || mt.BaseColorFactor.W < 1 {
		return Transparent
	}
	return Opaque
}

func (mt *PBRMaterial) Shader() string { return "pbr" }

func (mt *PBRMaterial) Constants() []float32 {
	return []float32{
		mt.BaseColorFactor.X, mt.BaseColorFactor.Y, mt.BaseColorFactor.Z, mt.BaseColorFactor.W,
		mt.EmissiveColor.X, mt.EmissiveColor.Y, mt.EmissiveColor.Z, mt.NormalScale,
		mt.Metallic, mt.Roughness, mt.EmissiveStrength, 0,
	}
}

func (mt *PBRMaterial) TextureNames() []string {
	return []string{
		mt.BaseColorTexture,
		mt.NormalTexture,
		mt.MetallicRoughnessTexture,
		mt.EmissiveTexture,
	}
}

// OcclusionMaterial renders depth only. Surfaces using it hide
// content behind them without contributing any color, which is how
// reconstructed room geometry masks virtual objects.
type OcclusionMaterial struct {
	MaterialBase
}

// NewOcclusionMaterial returns an occlusion material with the
// given name.
func NewOcclusionMaterial(name string) *OcclusionMaterial {
	mt := &OcclusionMaterial{}
	mt.Name = name
	return mt
}

func (mt *OcclusionMaterial) Category() Categories { return Occluder }

func (mt *OcclusionMaterial) Shader() string { return "occluder" }

func (mt *OcclusionMaterial) Constants() []float32 { return nil }

func (mt *OcclusionMaterial) TextureNames() []string { return nil }

var (
	_ Material = (*PBRMaterial)(nil)
	_ Material = (*OcclusionMaterial)(nil)
)
