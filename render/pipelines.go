// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"embed"
	"fmt"

	"cogentcore.org/spatial/asset"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// pipelineKey identifies one compiled render pipeline variant. Equal
// keys always resolve to the identical pipeline object. The vertex
// layout, shader, and category carry the real variation; cull mode is
// folded in because materials select it per instance, and the view
// layout and sample count because pipelines bake them.
type pipelineKey struct {
	layout   uint64
	shader   string
	category asset.Categories
	mode     Layouts
	samples  int
	cull     wgpu.CullMode
}

// shaderModule returns the compiled module for a material shader
// name, compiling the embedded WGSL on first use.
func (rd *Renderer) shaderModule(name string) (*wgpu.ShaderModule, error) {
	if md, ok := rd.shaders[name]; ok {
		return md, nil
	}
	src, err := shaderFS.ReadFile("shaders/" + name + ".wgsl")
	if err != nil {
		return nil, fmt.Errorf("render: no shader %q", name)
	}
	md, err := rd.dv.WGPU.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(src)},
	})
	if err != nil {
		return nil, fmt.Errorf("render: compiling shader %q: %w", name, err)
	}
	rd.shaders[name] = md
	return md, nil
}

// pipelineFor returns the render pipeline for drawing the given
// vertex layout with the given material, compiling on a cache miss.
func (rd *Renderer) pipelineFor(ly *asset.Layout, mt asset.Material, mode Layouts, samples int) (*wgpu.RenderPipeline, error) {
	key := pipelineKey{
		layout:   ly.ID(),
		shader:   mt.Shader(),
		category: mt.Category(),
		mode:     mode,
		samples:  samples,
		cull:     cullMode(mt.AsMaterialBase()),
	}
	if pl, ok := rd.pipelines[key]; ok {
		return pl, nil
	}
	pl, err := rd.buildPipeline(key, ly, mt)
	if err != nil {
		return nil, err
	}
	rd.pipelines[key] = pl
	return pl, nil
}

func (rd *Renderer) buildPipeline(key pipelineKey, ly *asset.Layout, mt asset.Material) (*wgpu.RenderPipeline, error) {
	md, err := rd.shaderModule(key.shader)
	if err != nil {
		return nil, err
	}
	layout := rd.pbrPipeLayout
	if key.shader == shaderOccluder {
		layout = rd.occluderPipeLayout
	}
	pd := &wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s:%v:%v:x%d", key.shader, key.category, key.mode, key.samples),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     md,
			EntryPoint: "vs_main",
			Buffers:    vertexLayoutsFor(ly),
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  key.cull,
		},
		DepthStencil: rd.depthStencilFor(mt),
		Multisample: wgpu.MultisampleState{
			Count:                  uint32(key.samples),
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
		Fragment: &wgpu.FragmentState{
			Module:     md,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    rd.dv.Format,
				Blend:     blendFor(key.category),
				WriteMask: writeMaskFor(key.category),
			}},
		},
	}
	pl, err := rd.dv.WGPU.CreateRenderPipeline(pd)
	if err != nil {
		return nil, fmt.Errorf("render: creating pipeline %s: %w", pd.Label, err)
	}
	return pl, nil
}

// depthStencilFor returns the depth/stencil state for the material,
// cached per material identity. All categories test reversed-Z with
// Greater; transparent surfaces read depth but do not write it.
func (rd *Renderer) depthStencilFor(mt asset.Material) *wgpu.DepthStencilState {
	if ds, ok := rd.depthStencil[mt]; ok {
		return ds
	}
	noop := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}
	ds := &wgpu.DepthStencilState{
		Format:            rd.dv.DepthFormat,
		DepthWriteEnabled: mt.Category() != asset.Transparent,
		DepthCompare:      wgpu.CompareFunctionGreater,
		StencilFront:      noop,
		StencilBack:       noop,
		StencilReadMask:   0xFFFFFFFF,
		StencilWriteMask:  0xFFFFFFFF,
	}
	rd.depthStencil[mt] = ds
	return ds
}

func cullMode(mb *asset.MaterialBase) wgpu.CullMode {
	switch {
	case mb.CullBack:
		return wgpu.CullModeBack
	case mb.CullFront:
		return wgpu.CullModeFront
	}
	return wgpu.CullModeNone
}

// blendFor returns the blend state per category: transparent surfaces
// composite premultiplied over the framebuffer, everything else
// replaces.
func blendFor(ct asset.Categories) *wgpu.BlendState {
	if ct == asset.Transparent {
		over := wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		}
		return &wgpu.BlendState{Color: over, Alpha: over}
	}
	return &wgpu.BlendStateReplace
}

// writeMaskFor masks all color writes for occluders, which contribute
// depth only.
func writeMaskFor(ct asset.Categories) wgpu.ColorWriteMask {
	if ct == asset.Occluder {
		return wgpu.ColorWriteMask(0)
	}
	return wgpu.ColorWriteMaskAll
}

// vertexLayoutsFor converts a mesh layout into vertex buffer layouts:
// one tightly packed buffer per attribute, shader locations in
// attribute order.
func vertexLayoutsFor(ly *asset.Layout) []wgpu.VertexBufferLayout {
	vbs := make([]wgpu.VertexBufferLayout, len(ly.Attributes))
	for i, at := range ly.Attributes {
		vbs[i] = wgpu.VertexBufferLayout{
			ArrayStride: uint64(at.Format.Size()),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{{
				Format:         vertexFormat(at.Format),
				Offset:         0,
				ShaderLocation: uint32(i),
			}},
		}
	}
	return vbs
}

func vertexFormat(f asset.Formats) wgpu.VertexFormat {
	switch f {
	case asset.Float32x2:
		return wgpu.VertexFormatFloat32x2
	case asset.Float32x3:
		return wgpu.VertexFormatFloat32x3
	case asset.Float32x4:
		return wgpu.VertexFormatFloat32x4
	case asset.Uint16x4:
		return wgpu.VertexFormatUint16x4
	}
	return wgpu.VertexFormatFloat32x3
}
