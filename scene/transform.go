// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import "cogentcore.org/core/math32"

// Transform is a node's local transform relative to its parent:
// position, scale, and rotation composed as pos * rotation * scale.
// Scale components are always positive; poses coming from sensing
// and physics are rigid and never carry scale.
type Transform struct {
	// Pos is the translation relative to the parent.
	Pos math32.Vector3

	// Scale is the per-axis scale, always positive.
	Scale math32.Vector3

	// Quat is the rotation.
	Quat math32.Quat
}

// Defaults sets the transform to identity: zero position, unit
// scale, no rotation.
func (t *Transform) Defaults() {
	t.Pos.SetZero()
	t.Scale.Set(1, 1, 1)
	t.Quat.SetIdentity()
}

// Matrix returns the local matrix: pos * rotation * scale.
func (t *Transform) Matrix() math32.Matrix4 {
	var m math32.Matrix4
	m.SetTransform(t.Pos, t.Quat, t.Scale)
	return m
}

// SetMatrix decomposes the given unsheared TRS matrix into position,
// rotation, and scale.
func (t *Transform) SetMatrix(m *math32.Matrix4) {
	t.Pos, t.Quat, t.Scale = m.Decompose()
}

// SetPose sets position and rotation, leaving scale unchanged.
// This is the entry point for rigid poses from anchors and physics.
func (t *Transform) SetPose(pos math32.Vector3, rot math32.Quat) {
	t.Pos = pos
	t.Quat = rot
}

// SetAxisRotation sets the rotation to the given axis and angle
// in degrees.
func (t *Transform) SetAxisRotation(x, y, z, angle float32) {
	t.Quat.SetFromAxisAngle(math32.Vec3(x, y, z), math32.DegToRad(angle))
}
