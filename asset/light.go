// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import "cogentcore.org/core/math32"

// LightKinds are the supported analytic light types.
type LightKinds int32

const (
	// Directional light illuminates along a direction with no
	// attenuation, like the sun.
	Directional LightKinds = iota

	// Point light radiates from a position, attenuated by distance.
	Point

	// Spot light radiates from a position within a cone.
	Spot
)

func (lk LightKinds) String() string {
	switch lk {
	case Directional:
		return "Directional"
	case Point:
		return "Point"
	case Spot:
		return "Spot"
	}
	return "Invalid"
}

// Light is an analytic light source. Which fields apply depends on
// Kind: directional lights use Direction only, point lights Position
// and Range, spot lights all of them plus the cone angles.
type Light struct {
	Kind LightKinds

	// Color is the light color in linear RGB.
	Color math32.Vector3

	// Intensity scales Color. Directional lights read it as lux,
	// point and spot lights as candela.
	Intensity float32

	Position  math32.Vector3
	Direction math32.Vector3

	// Range cuts attenuation off; 0 means unbounded.
	Range float32

	// Cone angles in degrees, inner fully lit, fading to the outer.
	InnerConeAngle float32
	OuterConeAngle float32
}

// DirectionalLight returns a directional light shining along dir.
func DirectionalLight(color math32.Vector3, intensity float32, dir math32.Vector3) Light {
	return Light{Kind: Directional, Color: color, Intensity: intensity, Direction: dir.Normal()}
}

// PointLight returns a point light at the given position.
func PointLight(color math32.Vector3, intensity float32, pos math32.Vector3, rng float32) Light {
	return Light{Kind: Point, Color: color, Intensity: intensity, Position: pos, Range: rng}
}

// SpotLight returns a spot light at pos shining along dir with the
// given inner and outer cone angles in degrees.
func SpotLight(color math32.Vector3, intensity float32, pos, dir math32.Vector3, rng, inner, outer float32) Light {
	return Light{
		Kind: Spot, Color: color, Intensity: intensity,
		Position: pos, Direction: dir.Normal(), Range: rng,
		InnerConeAngle: inner, OuterConeAngle: outer,
	}
}
