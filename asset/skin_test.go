// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translation(x, y, z float32) math32.Matrix4 {
	var q math32.Quat
	q.SetIdentity()
	var m math32.Matrix4
	m.SetTransform(math32.Vec3(x, y, z), q, math32.Vec3(1, 1, 1))
	return m
}

func chainSkeleton() *Skeleton {
	// root at origin, child 1 unit up
	sk := &Skeleton{Name: "chain"}
	var root, child Joint
	root.Name = "root"
	root.Parent = -1
	root.Rest.SetIdentity()
	root.InverseBind.SetIdentity()
	child.Name = "child"
	child.Parent = 0
	child.Rest = translation(0, 1, 0)
	child.InverseBind = translation(0, -1, 0)
	sk.Joints = []Joint{root, child}
	return sk
}

func TestRestGlobals(t *testing.T) {
	sk := chainSkeleton()
	globals := sk.RestGlobals()
	require.Len(t, globals, 2)

	origin := math32.Vector3{}
	assert.Equal(t, origin, origin.MulMatrix4(&globals[0]))
	assert.Equal(t, math32.Vec3(0, 1, 0), origin.MulMatrix4(&globals[1]))
}

func TestSkinnerAtRest(t *testing.T) {
	sn := NewSkinner(chainSkeleton())
	assert.True(t, sn.TakeDirty())
	assert.False(t, sn.TakeDirty())

	// at rest, skinning matrices are identity
	jms := sn.JointMatrices(nil)
	require.Len(t, jms, 2)
	p := math32.Vec3(0.3, 1.5, -0.2)
	assert.Equal(t, p, p.MulMatrix4(&jms[0]))
	assert.Equal(t, p, p.MulMatrix4(&jms[1]))
}

func TestSkinnerDriven(t *testing.T) {
	sn := NewSkinner(chainSkeleton())
	sn.TakeDirty()

	// move the child joint 1 further up: vertices bound to it
	// follow by the same offset
	sn.SetGlobal(1, translation(0, 2, 0))
	assert.True(t, sn.TakeDirty())

	jms := sn.JointMatrices(nil)
	p := math32.Vec3(0, 1, 0)
	assert.Equal(t, math32.Vec3(0, 2, 0), p.MulMatrix4(&jms[1]))
}

func TestJointByName(t *testing.T) {
	sk := chainSkeleton()
	assert.Equal(t, 1, sk.JointByName("child"))
	assert.Equal(t, -1, sk.JointByName("missing"))
}
