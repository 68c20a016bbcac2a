// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package physics

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRequired(t *testing.T) {
	Shutdown()
	_, err := NewWorld(math32.Vector3{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	Initialize()
	w, err := NewWorld(math32.Vector3{})
	require.NoError(t, err)
	w.Close()
}

func newTestWorld(t *testing.T, gravity math32.Vector3) *World {
	t.Helper()
	Initialize()
	w, err := NewWorld(gravity)
	require.NoError(t, err)
	return w
}

// TestZeroGravityRoundTrip: a dynamic body with no forces acting on it
// must keep its pose exactly across steps.
func TestZeroGravityRoundTrip(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	start := Pose{Position: math32.Vec3(1, 2, 3)}
	start.Rotation.SetFromAxisAngle(math32.Vec3(0, 1, 0), math32.DegToRad(30))

	body, err := w.CreateBody(Dynamic, DefaultBodyProperties(), BoxShape(math32.Vec3(0.1, 0.1, 0.1), math32.Vec3(1, 1, 1)), start)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		w.Step(1.0 / 90)
	}
	pose, ok := w.BodyPose(body)
	require.True(t, ok)
	assert.Equal(t, start.Position, pose.Position)
	assert.Equal(t, start.Rotation, pose.Rotation)
}

func TestGravityFall(t *testing.T) {
	w := newTestWorld(t, math32.Vec3(0, -10, 0))
	body, err := w.CreateBody(Dynamic, DefaultBodyProperties(), SphereShape(0.1, math32.Vec3(1, 1, 1)), Pose{Position: math32.Vec3(0, 5, 0)})
	require.NoError(t, err)

	w.Step(0.1)
	pose, _ := w.BodyPose(body)
	assert.Less(t, pose.Position.Y, float32(5))

	// a gravity-immune body stays put
	props := DefaultBodyProperties()
	props.GravityEnabled = false
	fixed, err := w.CreateBody(Dynamic, props, SphereShape(0.1, math32.Vec3(1, 1, 1)), Pose{Position: math32.Vec3(0, 5, 0)})
	require.NoError(t, err)
	w.Step(0.1)
	fp, _ := w.BodyPose(fixed)
	assert.Equal(t, float32(5), fp.Position.Y)
}

func TestRestOnSupport(t *testing.T) {
	w := newTestWorld(t, math32.Vec3(0, -10, 0))
	_, err := w.CreateBody(Static, BodyProperties{}, BoxShape(math32.Vec3(1, 0.05, 1), math32.Vec3(1, 1, 1)), IdentityPose())
	require.NoError(t, err)

	box, err := w.CreateBody(Dynamic, DefaultBodyProperties(), BoxShape(math32.Vec3(0.1, 0.1, 0.1), math32.Vec3(1, 1, 1)), Pose{Position: math32.Vec3(0, 0.2, 0)})
	require.NoError(t, err)

	for i := 0; i < 120; i++ {
		w.Step(1.0 / 60)
	}
	pose, _ := w.BodyPose(box)
	// resting on the slab top (0.05) with half height 0.1
	assert.InDelta(t, 0.15, pose.Position.Y, 0.02)

	w.Step(1.0 / 60)
	settled, _ := w.BodyPose(box)
	assert.InDelta(t, pose.Position.Y, settled.Position.Y, 1e-4)
}

func TestKinematicHoldsPose(t *testing.T) {
	w := newTestWorld(t, math32.Vec3(0, -10, 0))
	body, err := w.CreateBody(Kinematic, BodyProperties{}, SphereShape(0.05, math32.Vec3(1, 1, 1)), Pose{Position: math32.Vec3(0, 1, 0)})
	require.NoError(t, err)

	w.Step(0.5)
	pose, _ := w.BodyPose(body)
	assert.Equal(t, float32(1), pose.Position.Y)

	driven := Pose{Position: math32.Vec3(2, 3, 4)}
	driven.Rotation.SetIdentity()
	w.SetBodyPose(body, driven)
	w.Step(0.5)
	pose, _ = w.BodyPose(body)
	assert.Equal(t, driven.Position, pose.Position)
}

func TestShapeValidation(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	unit := math32.Vec3(1, 1, 1)

	_, err := w.CreateBody(Dynamic, BodyProperties{}, BoxShape(math32.Vec3(1, 0, 1), unit), IdentityPose())
	assert.Error(t, err)

	_, err = w.CreateBody(Dynamic, BodyProperties{}, SphereShape(-1, unit), IdentityPose())
	assert.Error(t, err)

	_, err = w.CreateBody(Dynamic, BodyProperties{}, BoxShape(unit, math32.Vec3(1, -1, 1)), IdentityPose())
	assert.Error(t, err)

	// coplanar vertex cloud cannot make a hull
	flat := []math32.Vector3{
		math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0),
		math32.Vec3(0, 0, 1), math32.Vec3(1, 0, 1),
	}
	_, err = w.CreateBody(Dynamic, BodyProperties{}, ConvexHullShape(flat, []uint32{0, 1, 2, 1, 3, 2}, unit), IdentityPose())
	assert.Error(t, err)

	// out-of-range index
	tet := []math32.Vector3{
		math32.Vec3(0, 0, 0), math32.Vec3(1, 0, 0),
		math32.Vec3(0, 1, 0), math32.Vec3(0, 0, 1),
	}
	_, err = w.CreateBody(Dynamic, BodyProperties{}, ConvexHullShape(tet, []uint32{0, 1, 9}, unit), IdentityPose())
	assert.Error(t, err)

	_, err = w.CreateBody(Dynamic, BodyProperties{}, ConvexHullShape(tet, []uint32{0, 1, 2, 0, 1, 3, 0, 2, 3, 1, 2, 3}, unit), IdentityPose())
	assert.NoError(t, err)

	// the failed creations left nothing behind
	assert.Len(t, w.bodies, 1)
}

func TestDestroyBody(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	body, err := w.CreateBody(Static, BodyProperties{}, SphereShape(1, math32.Vec3(1, 1, 1)), IdentityPose())
	require.NoError(t, err)

	_, ok := w.BodyPose(body)
	assert.True(t, ok)

	w.DestroyBody(body)
	_, ok = w.BodyPose(body)
	assert.False(t, ok)

	w.DestroyBody(body) // unknown handle is ignored
}
