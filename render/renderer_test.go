// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image"
	"testing"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUniformBlockSizes: the Go mirror structs must match the WGSL
// struct layouts byte for byte.
func TestUniformBlockSizes(t *testing.T) {
	assert.Equal(t, 368, passSize)
	assert.Equal(t, 144, instanceSize)
	assert.Equal(t, 48, materialSize)
	assert.Equal(t, 16, skinParamsSize)
}

// TestUploadPassConstants: a mono frame duplicates its view into the
// second slot so shaders can index either without bounds concern.
func TestUploadPassConstants(t *testing.T) {
	rd := testRenderer(t)

	vw := View{
		Projection: ReversedProjection(70, 1, 0.05),
		CameraPos:  math32.Vec3(0, 1.6, 0),
	}
	vw.ViewMatrix.SetIdentity()
	fr := &Frame{Views: []View{vw}}

	off := rd.uploadPassConstants(fr, 2)

	var want passConstants
	want.View[0], want.View[1] = vw.ViewMatrix, vw.ViewMatrix
	want.Proj[0], want.Proj[1] = vw.Projection, vw.Projection
	want.Cam[0] = math32.Vec4(0, 1.6, 0, 1)
	want.Cam[1] = want.Cam[0]
	want.Env.SetIdentity()
	want.Counts = [4]uint32{2, 1, 0, 0}
	got := rd.scratch.staging[off : int(off)+passSize]
	assert.Equal(t, wgpu.ToBytes([]passConstants{want}), got)
}

func TestUploadInstance(t *testing.T) {
	rd := testRenderer(t)

	ob := &Object{}
	ob.Matrix.SetIdentity()
	item := &drawItem{ob: ob}
	item.normal.SetIdentity()

	off := rd.uploadInstance(item, 1)
	assert.Zero(t, off%uint32(rd.scratch.Align()))

	want := instanceConstants{Model: ob.Matrix, Normal: item.normal, View: [4]uint32{1}}
	got := rd.scratch.staging[off : int(off)+instanceSize]
	assert.Equal(t, wgpu.ToBytes([]instanceConstants{want}), got)
}

func TestUploadLightsOffset(t *testing.T) {
	rd := testRenderer(t)
	rd.scratch.Alloc(10, 0) // push the head off zero

	off, n := rd.uploadLights([]asset.Light{
		asset.DirectionalLight(math32.Vec3(1, 1, 1), 1, math32.Vec3(0, -1, 0)),
	})
	assert.Equal(t, 1, n)
	assert.Zero(t, off%uint32(rd.scratch.Align()))
	assert.NotZero(t, off)
}

// TestDrawFrameValidates: an invalid frame must fail before any
// device work happens.
func TestDrawFrameValidates(t *testing.T) {
	rd := &Renderer{}
	assert.Error(t, rd.DrawFrame(&Frame{}))

	fr := &Frame{Layout: LayoutShared, Views: make([]View, 2)}
	assert.Error(t, rd.DrawFrame(fr))
}

func lookAtView(pos, target math32.Vector3) math32.Matrix4 {
	var q math32.Quat
	q.SetFromRotationMatrix(math32.NewLookAt(pos, target, math32.Vec3(0, 1, 0)))
	var cam math32.Matrix4
	cam.SetTransform(pos, q, math32.Vec3(1, 1, 1))
	view, _ := cam.Inverse()
	return *view
}

// TestRendererDraw renders two frames of a small mixed scene offscreen:
// an occluder plane, opaque blocks, a transparent ghost with an alpha
// override, and a directional plus a spot light.
func TestRendererDraw(t *testing.T) {
	t.Skip("Need software GPU on CI")

	dv, err := NewDevice(nil)
	require.NoError(t, err)
	defer dv.Release()

	lib := asset.NewLibrary(t.TempDir())
	defer lib.Close()

	rd, err := NewRenderer(dv, lib, 1<<20)
	require.NoError(t, err)
	defer rd.Close()

	size := image.Pt(256, 256)
	tex, err := dv.WGPU.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "offscreen",
		Size:          wgpu.Extent3D{Width: uint32(size.X), Height: uint32(size.Y), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        dv.Format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	require.NoError(t, err)
	defer tex.Release()
	view, err := tex.CreateView(nil)
	require.NoError(t, err)
	defer view.Release()

	block := asset.BoxMesh("block", 0.15, 0.05, 0.075)
	table := asset.PlaneMesh("table", 1.2, 0.8)
	ghost := asset.NewPBRMaterial("ghost")
	ghost.Transparent = true
	ghost.BaseColorFactor.W = 0.4

	ident := math32.Identity4()
	fr := &Frame{
		Layout: LayoutDedicated,
		Views: []View{{
			ViewMatrix: lookAtView(math32.Vec3(0, 0.6, 1.2), math32.Vec3(0, 0, 0)),
			Projection: ReversedProjection(70, 1, 0.05),
			CameraPos:  math32.Vec3(0, 0.6, 1.2),
		}},
		Targets: []Target{{Color: view, Size: size}},
		Objects: []Object{
			{Matrix: *ident, Mesh: table, Materials: []asset.Material{asset.NewOcclusionMaterial("room")}},
			{Matrix: *ident, Mesh: block, Materials: []asset.Material{asset.NewPBRMaterial("wood")}},
			{Matrix: *ident, Mesh: block, Materials: []asset.Material{ghost},
				Overrides: map[string]float32{asset.OverrideAlpha: 0.5}},
		},
		Lights: []asset.Light{
			asset.DirectionalLight(math32.Vec3(1, 1, 1), 3, math32.Vec3(-0.3, -1, -0.2)),
			asset.SpotLight(math32.Vec3(1, 0.9, 0.8), 20, math32.Vec3(0, 1, 0), math32.Vec3(0, -1, 0), 4, 25, 40),
		},
	}

	require.NoError(t, rd.DrawFrame(fr))
	// second frame reuses all residency
	require.NoError(t, rd.DrawFrame(fr))
	dv.WaitDone()
}
