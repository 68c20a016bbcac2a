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

func TestCastRaySphere(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	body, err := w.CreateBody(Static, BodyProperties{}, SphereShape(1, math32.Vec3(1, 1, 1)), Pose{Position: math32.Vec3(0, 0, -5)})
	require.NoError(t, err)

	hits := w.CastRay(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -10))
	require.Len(t, hits, 1)
	assert.Equal(t, body, hits[0].Body)
	assert.InDelta(t, -4, hits[0].Position.Z, 1e-4)
	assert.InDelta(t, 4, hits[0].Distance, 1e-4)

	// segment stops short of the surface
	hits = w.CastRay(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -3.5))
	assert.Empty(t, hits)
}

func TestCastRayBox(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	_, err := w.CreateBody(Static, BodyProperties{}, BoxShape(math32.Vec3(0.5, 0.5, 0.5), math32.Vec3(2, 1, 1)), Pose{Position: math32.Vec3(3, 0, 0)})
	require.NoError(t, err)

	// scale widens the box to x extent 1, so its near face is at x=2
	hits := w.CastRay(math32.Vec3(0, 0, 0), math32.Vec3(10, 0, 0))
	require.Len(t, hits, 1)
	assert.InDelta(t, 2, hits[0].Position.X, 1e-4)
	assert.InDelta(t, 2, hits[0].Distance, 1e-4)

	// grazing ray above the top face
	hits = w.CastRay(math32.Vec3(0, 0.6, 0), math32.Vec3(10, 0.6, 0))
	assert.Empty(t, hits)
}

func TestCastRayRotatedBox(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	pose := Pose{Position: math32.Vec3(0, 0, -4)}
	pose.Rotation.SetFromAxisAngle(math32.Vec3(0, 1, 0), math32.DegToRad(45))
	_, err := w.CreateBody(Static, BodyProperties{}, BoxShape(math32.Vec3(0.5, 0.5, 0.5), math32.Vec3(1, 1, 1)), pose)
	require.NoError(t, err)

	// rotated 45 about Y, the +Z-facing corner sits at sqrt(0.5) from center
	hits := w.CastRay(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -10))
	require.Len(t, hits, 1)
	want := float32(4) - math32.Sqrt(0.5)
	assert.InDelta(t, want, hits[0].Distance, 1e-3)
}

func TestCastRayMesh(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	quad := []math32.Vector3{
		math32.Vec3(-1, -1, 0), math32.Vec3(1, -1, 0),
		math32.Vec3(1, 1, 0), math32.Vec3(-1, 1, 0),
	}
	idx := []uint32{0, 1, 2, 0, 2, 3}
	_, err := w.CreateBody(Static, BodyProperties{}, ConcaveMeshShape(quad, idx, math32.Vec3(1, 1, 1)), Pose{Position: math32.Vec3(0, 0, -2)})
	require.NoError(t, err)

	hits := w.CastRay(math32.Vec3(0.5, 0.5, 0), math32.Vec3(0.5, 0.5, -5))
	require.Len(t, hits, 1)
	assert.InDelta(t, 2, hits[0].Distance, 1e-4)
	assert.InDelta(t, -2, hits[0].Position.Z, 1e-4)

	// outside the quad
	hits = w.CastRay(math32.Vec3(2, 2, 0), math32.Vec3(2, 2, -5))
	assert.Empty(t, hits)
}

// TestCastRayMultiHit: hits come back one per body, in no particular
// order, so callers sort by distance themselves.
func TestCastRayMultiHit(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	near, err := w.CreateBody(Static, BodyProperties{}, SphereShape(0.5, math32.Vec3(1, 1, 1)), Pose{Position: math32.Vec3(0, 0, -2)})
	require.NoError(t, err)
	far, err := w.CreateBody(Static, BodyProperties{}, SphereShape(0.5, math32.Vec3(1, 1, 1)), Pose{Position: math32.Vec3(0, 0, -6)})
	require.NoError(t, err)

	hits := w.CastRay(math32.Vec3(0, 0, 0), math32.Vec3(0, 0, -10))
	require.Len(t, hits, 2)
	got := map[Body]float32{}
	for _, h := range hits {
		got[h.Body] = h.Distance
	}
	assert.InDelta(t, 1.5, got[near], 1e-4)
	assert.InDelta(t, 5.5, got[far], 1e-4)
}

func TestCastRayScaledMesh(t *testing.T) {
	w := newTestWorld(t, math32.Vector3{})
	tri := []math32.Vector3{
		math32.Vec3(-0.5, -0.5, 0), math32.Vec3(0.5, -0.5, 0), math32.Vec3(0, 0.5, 0),
	}
	_, err := w.CreateBody(Static, BodyProperties{}, ConcaveMeshShape(tri, []uint32{0, 1, 2}, math32.Vec3(4, 4, 1)), Pose{Position: math32.Vec3(0, 0, -3)})
	require.NoError(t, err)

	// x=0.9 is outside the unscaled triangle but inside the scaled one
	hits := w.CastRay(math32.Vec3(0.9, 0, 0), math32.Vec3(0.9, 0, -5))
	require.Len(t, hits, 1)
	assert.InDelta(t, 3, hits[0].Distance, 1e-4)
}
