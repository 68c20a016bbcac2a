// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"testing"

	"cogentcore.org/spatial/asset"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPipelineKeyIdentity: keys built from the same inputs must be
// map-equal, or the pipeline cache would recompile every frame.
func TestPipelineKeyIdentity(t *testing.T) {
	mt := asset.NewPBRMaterial("a")
	mk := func() pipelineKey {
		return pipelineKey{
			layout:   asset.StaticLayout().ID(),
			shader:   mt.Shader(),
			category: mt.Category(),
			mode:     LayoutShared,
			samples:  4,
			cull:     cullMode(mt.AsMaterialBase()),
		}
	}
	cache := map[pipelineKey]int{mk(): 1}
	assert.Len(t, cache, 1)
	cache[mk()] = 2
	assert.Len(t, cache, 1)

	other := mk()
	other.samples = 1
	cache[other] = 3
	assert.Len(t, cache, 2)
}

func TestVertexLayoutsFor(t *testing.T) {
	vbs := vertexLayoutsFor(asset.StaticLayout())
	require.Len(t, vbs, 3)
	assert.Equal(t, uint64(12), vbs[0].ArrayStride)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, vbs[0].Attributes[0].Format)
	assert.Equal(t, uint64(12), vbs[1].ArrayStride)
	assert.Equal(t, uint64(8), vbs[2].ArrayStride)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, vbs[2].Attributes[0].Format)
	for i, vb := range vbs {
		assert.Equal(t, uint32(i), vb.Attributes[0].ShaderLocation)
		assert.Equal(t, uint64(0), vb.Attributes[0].Offset)
	}

	vbs = vertexLayoutsFor(asset.SkinnedLayout())
	require.Len(t, vbs, 5)
	assert.Equal(t, wgpu.VertexFormatUint16x4, vbs[3].Attributes[0].Format)
	assert.Equal(t, uint64(8), vbs[3].ArrayStride)
	assert.Equal(t, wgpu.VertexFormatFloat32x4, vbs[4].Attributes[0].Format)
}

func TestCullMode(t *testing.T) {
	mt := asset.NewPBRMaterial("m")
	assert.Equal(t, wgpu.CullModeBack, cullMode(mt.AsMaterialBase()))
	mt.CullBack = false
	assert.Equal(t, wgpu.CullModeNone, cullMode(mt.AsMaterialBase()))
	mt.CullFront = true
	assert.Equal(t, wgpu.CullModeFront, cullMode(mt.AsMaterialBase()))
}

func TestBlendFor(t *testing.T) {
	bl := blendFor(asset.Transparent)
	require.NotNil(t, bl)
	assert.Equal(t, wgpu.BlendFactorOne, bl.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, bl.Color.DstFactor)
	assert.Equal(t, bl.Color, bl.Alpha)

	assert.Equal(t, &wgpu.BlendStateReplace, blendFor(asset.Opaque))
	assert.Equal(t, &wgpu.BlendStateReplace, blendFor(asset.Occluder))
}

func TestWriteMaskFor(t *testing.T) {
	assert.Equal(t, wgpu.ColorWriteMask(0), writeMaskFor(asset.Occluder))
	assert.Equal(t, wgpu.ColorWriteMaskAll, writeMaskFor(asset.Opaque))
	assert.Equal(t, wgpu.ColorWriteMaskAll, writeMaskFor(asset.Transparent))
}

func testItem(mt asset.Material, mesh string, start uint32) drawItem {
	return drawItem{
		mr:     &meshResource{mesh: &asset.Mesh{Name: mesh}},
		mt:     mt,
		layout: asset.StaticLayout(),
		start:  start,
	}
}

// TestSortItems: occluders come first so they seed depth, then
// opaque, then transparent; within a category items group by mesh.
func TestSortItems(t *testing.T) {
	opaque := asset.NewPBRMaterial("opaque")
	glass := asset.NewPBRMaterial("glass")
	glass.Transparent = true
	table := asset.NewOcclusionMaterial("table")

	rd := &Renderer{}
	rd.items = []drawItem{
		testItem(glass, "ghost", 0),
		testItem(opaque, "block", 36),
		testItem(opaque, "block", 0),
		testItem(table, "table", 0),
		testItem(opaque, "anchor", 0),
	}
	rd.sortItems()

	names := make([]string, len(rd.items))
	for i := range rd.items {
		names[i] = rd.items[i].mr.mesh.Name
	}
	assert.Equal(t, []string{"table", "anchor", "block", "block", "ghost"}, names)
	// equal meshes order by submesh start
	assert.Equal(t, uint32(0), rd.items[2].start)
	assert.Equal(t, uint32(36), rd.items[3].start)
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	sb, err := NewScratchBuffer(nil, 1<<16)
	require.NoError(t, err)
	return &Renderer{
		scratch:    sb,
		matOffsets: make(map[asset.Material]uint32),
	}
}

// TestUploadMaterialOverrides: the alpha override scales base color
// alpha and the emissive override scales emissive strength, leaving
// the shared material untouched.
func TestUploadMaterialOverrides(t *testing.T) {
	rd := testRenderer(t)
	mt := asset.NewPBRMaterial("m")
	mt.EmissiveStrength = 3

	off := rd.uploadMaterial(mt, map[string]float32{
		asset.OverrideAlpha:    0.25,
		asset.OverrideEmissive: 2,
	})

	var want [materialWords]float32
	copy(want[:], mt.Constants())
	want[3] = 0.25
	want[10] = 6
	assert.Equal(t, wgpu.ToBytes(want[:]), rd.scratch.staging[off:int(off)+materialSize])
	assert.Equal(t, float32(1), mt.BaseColorFactor.W)
}

func TestUploadMaterialNoConstants(t *testing.T) {
	rd := testRenderer(t)
	occ := asset.NewOcclusionMaterial("occ")
	off := rd.uploadMaterial(occ, nil)
	assert.Equal(t, make([]byte, materialSize), rd.scratch.staging[off:int(off)+materialSize])
}

// TestMaterialOffsetCaching: one upload per material per frame,
// except overridden instances, which always get their own block.
func TestMaterialOffsetCaching(t *testing.T) {
	rd := testRenderer(t)
	mt := asset.NewPBRMaterial("m")

	a := rd.materialOffset(mt, nil)
	b := rd.materialOffset(mt, nil)
	assert.Equal(t, a, b)

	ov := map[string]float32{asset.OverrideAlpha: 0.5}
	c := rd.materialOffset(mt, ov)
	d := rd.materialOffset(mt, ov)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, c, d)

	// the cached plain offset survives override uploads
	assert.Equal(t, a, rd.materialOffset(mt, nil))
}

func TestWarps(t *testing.T) {
	assert.Equal(t, 1, warps(1, 64))
	assert.Equal(t, 1, warps(64, 64))
	assert.Equal(t, 2, warps(65, 64))
	assert.Equal(t, 0, warps(0, 64))
}
