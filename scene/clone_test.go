// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"testing"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"cogentcore.org/spatial/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneSubtree(t *testing.T) {
	var g Graph
	ms := asset.BoxMesh("crate", 1, 1, 1)
	mt := asset.NewPBRMaterial("crate")

	root := g.New("root", Nil)
	src := g.New("src", root)
	nd := g.Node(src)
	nd.Mesh = ms
	nd.Materials = []asset.Material{mt}
	nd.Overrides = map[string]float32{asset.OverrideAlpha: 0.5}
	nd.Body = &BodyDesc{
		Mode:  physics.Dynamic,
		Props: physics.DefaultBodyProperties(),
		Shape: physics.BoxShape(math32.Vec3(0.5, 0.5, 0.5), math32.Vec3(1, 1, 1)),
	}
	nd.Transform.Pos = math32.Vec3(1, 2, 3)
	child := g.New("decal", src)
	g.Node(child).Transform.Pos = math32.Vec3(0, 1, 0)

	cl := g.CloneSubtree(src, true)
	require.True(t, g.Valid(cl))
	cn := g.Node(cl)
	sn := g.Node(src)

	// the clone is a fresh root with the source's name and transform
	assert.NotEqual(t, src, cl)
	assert.True(t, g.Parent(cl).IsNil())
	assert.Equal(t, "src", cn.Name)
	assert.Equal(t, sn.Transform.Pos, cn.Transform.Pos)
	assert.Equal(t, root, g.Parent(src))

	// shared assets stay shared; the materials slice itself is fresh
	assert.Same(t, sn.Mesh, cn.Mesh)
	assert.Same(t, sn.Materials[0], cn.Materials[0])
	cn.Materials[0] = nil
	assert.NotNil(t, sn.Materials[0])

	// the override table is deep-copied
	cn.Overrides[asset.OverrideAlpha] = 0.9
	assert.Equal(t, float32(0.5), sn.Overrides[asset.OverrideAlpha])

	// the body descriptor is an independent copy
	assert.NotSame(t, sn.Body, cn.Body)
	assert.Equal(t, *sn.Body, *cn.Body)

	// children came along with their transforms
	cc, ok := g.FindChildByName(cl, "decal")
	require.True(t, ok)
	assert.Equal(t, math32.Vec3(0, 1, 0), g.Node(cc).Transform.Pos)
	assert.Equal(t, 5, g.NumLive())
}

func TestCloneSubtreeShallow(t *testing.T) {
	var g Graph
	src := g.New("src", Nil)
	g.New("child", src)

	cl := g.CloneSubtree(src, false)
	require.True(t, g.Valid(cl))
	assert.Empty(t, g.Children(cl))
	assert.Len(t, g.Children(src), 1)
}

func TestCloneStale(t *testing.T) {
	var g Graph
	e := g.New("gone", Nil)
	g.Destroy(e)
	assert.True(t, g.CloneSubtree(e, true).IsNil())
}

func TestCloneFreshSkinner(t *testing.T) {
	sk := &asset.Skeleton{Name: "rig", Joints: []asset.Joint{
		{Name: "root", Parent: -1},
		{Name: "tip", Parent: 0},
	}}
	for i := range sk.Joints {
		sk.Joints[i].Rest.SetIdentity()
		sk.Joints[i].InverseBind.SetIdentity()
	}

	var g Graph
	src := g.New("hand", Nil)
	g.Node(src).Skinner = asset.NewSkinner(sk)

	// pose the source away from rest
	var q math32.Quat
	q.SetIdentity()
	var posed math32.Matrix4
	posed.SetTransform(math32.Vec3(0, 3, 0), q, math32.Vec3(1, 1, 1))
	g.Node(src).Skinner.SetGlobal(1, posed)

	cl := g.CloneSubtree(src, false)
	cn := g.Node(cl)
	sn := g.Node(src)
	require.NotNil(t, cn.Skinner)

	// the clone has its own skinner at rest over the shared skeleton
	assert.NotSame(t, sn.Skinner, cn.Skinner)
	assert.Same(t, sn.Skinner.Skeleton, cn.Skinner.Skeleton)
	assert.Equal(t, posed, sn.Skinner.Global[1])
	var ident math32.Matrix4
	ident.SetIdentity()
	assert.Equal(t, ident, cn.Skinner.Global[1])
}
