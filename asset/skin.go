// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"cogentcore.org/core/base/slicesx"
	"cogentcore.org/core/math32"
)

// Joint is one bone in a [Skeleton].
type Joint struct {
	Name string

	// Parent is the index of the parent joint, -1 for roots.
	Parent int32

	// InverseBind transforms mesh space into the joint's bind space.
	InverseBind math32.Matrix4

	// Rest is the local rest pose transform.
	Rest math32.Matrix4
}

// Skeleton is an immutable joint hierarchy shared by all instances
// of a skinned model. Per-instance poses live on [Skinner].
type Skeleton struct {
	Name   string
	Joints []Joint
}

// JointByName returns the index of the named joint, or -1.
func (sk *Skeleton) JointByName(name string) int {
	for i := range sk.Joints {
		if sk.Joints[i].Name == name {
			return i
		}
	}
	return -1
}

// RestGlobals composes the rest pose local transforms down the
// hierarchy, returning model-space joint transforms.
func (sk *Skeleton) RestGlobals() []math32.Matrix4 {
	n := len(sk.Joints)
	out := make([]math32.Matrix4, n)
	done := make([]bool, n)
	var solve func(i int) math32.Matrix4
	solve = func(i int) math32.Matrix4 {
		if done[i] {
			return out[i]
		}
		jt := &sk.Joints[i]
		out[i] = jt.Rest
		done[i] = true // break malformed cycles at the rest pose
		if jt.Parent >= 0 {
			p := solve(int(jt.Parent))
			out[i].MulMatrices(&p, &jt.Rest)
		}
		return out[i]
	}
	for i := range sk.Joints {
		solve(i)
	}
	return out
}

// Skinner holds the posed joints of one skinned model instance.
// Global transforms are in model space and are driven directly,
// e.g. from hand tracking joints. The renderer re-skins only when
// [Skinner.TakeDirty] reports a change.
type Skinner struct {
	Skeleton *Skeleton

	// Global is the model-space transform per joint.
	Global []math32.Matrix4

	dirty bool
}

// NewSkinner returns a skinner over the skeleton, posed at rest.
func NewSkinner(sk *Skeleton) *Skinner {
	return &Skinner{Skeleton: sk, Global: sk.RestGlobals(), dirty: true}
}

// ResetPose returns all joints to the rest pose.
func (sn *Skinner) ResetPose() {
	sn.Global = sn.Skeleton.RestGlobals()
	sn.dirty = true
}

// SetGlobal sets the model-space transform of one joint.
func (sn *Skinner) SetGlobal(i int, m math32.Matrix4) {
	sn.Global[i] = m
	sn.dirty = true
}

// SetGlobals replaces the model-space transforms of the leading
// joints with ms; extra entries are ignored.
func (sn *Skinner) SetGlobals(ms []math32.Matrix4) {
	n := min(len(ms), len(sn.Global))
	copy(sn.Global[:n], ms[:n])
	sn.dirty = true
}

// JointMatrices returns the skinning matrices, one per joint:
// the global transform times the inverse bind matrix. The given
// slice is reused when it has capacity.
func (sn *Skinner) JointMatrices(out []math32.Matrix4) []math32.Matrix4 {
	out = slicesx.SetLength(out, len(sn.Global))
	for i := range sn.Global {
		out[i].MulMatrices(&sn.Global[i], &sn.Skeleton.Joints[i].InverseBind)
	}
	return out
}

// TakeDirty reports whether the pose changed since the last call,
// clearing the flag.
func (sn *Skinner) TakeDirty() bool {
	d := sn.dirty
	sn.dirty = false
	return d
}
