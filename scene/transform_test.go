// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
)

func TestTransformDefaults(t *testing.T) {
	var tr Transform
	tr.Defaults()
	assert.Equal(t, math32.Vector3{}, tr.Pos)
	assert.Equal(t, math32.Vec3(1, 1, 1), tr.Scale)
	assert.Equal(t, float32(1), tr.Quat.W)
}

func TestTransformMatrixRoundTrip(t *testing.T) {
	var tr Transform
	tr.Defaults()
	tr.Pos = math32.Vec3(1, -2, 3)
	tr.Scale = math32.Vec3(2, 2, 2)
	tr.SetAxisRotation(0, 1, 0, 45)

	m := tr.Matrix()
	var back Transform
	back.SetMatrix(&m)

	assert.InDelta(t, tr.Pos.X, back.Pos.X, 1e-5)
	assert.InDelta(t, tr.Pos.Y, back.Pos.Y, 1e-5)
	assert.InDelta(t, tr.Pos.Z, back.Pos.Z, 1e-5)
	assert.InDelta(t, tr.Scale.X, back.Scale.X, 1e-5)
	assert.InDelta(t, tr.Quat.Y, back.Quat.Y, 1e-5)
	assert.InDelta(t, tr.Quat.W, back.Quat.W, 1e-5)
}

func TestTransformSetAxisRotation(t *testing.T) {
	var tr Transform
	tr.Defaults()
	tr.SetAxisRotation(0, 1, 0, 90)

	m := tr.Matrix()
	v := math32.Vec3(1, 0, 0).MulMatrix4(&m)
	assert.InDelta(t, 0, v.X, 1e-6)
	assert.InDelta(t, 0, v.Y, 1e-6)
	assert.InDelta(t, -1, v.Z, 1e-6)
}

func TestTransformSetPose(t *testing.T) {
	var tr Transform
	tr.Defaults()
	var q math32.Quat
	q.SetFromAxisAngle(math32.Vec3(1, 0, 0), math32.DegToRad(30))
	tr.SetPose(math32.Vec3(4, 5, 6), q)

	assert.Equal(t, math32.Vec3(4, 5, 6), tr.Pos)
	assert.Equal(t, q, tr.Quat)
	assert.Equal(t, math32.Vec3(1, 1, 1), tr.Scale)
}
