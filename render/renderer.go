// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render draws frames described by [Frame] onto
// caller-provided texture views through WebGPU. It renders physically
// based and depth-only materials with reversed-Z depth, runs GPU
// skinning as a compute pre-pass, and supports mono and stereo view
// layouts. The [Renderer] owns all GPU residency for assets and is
// driven by a single frame-loop goroutine; everything it draws
// arrives as plain data in the frame, so no other thread ever touches
// the device.
package render

import (
	"fmt"
	"image"
	"sort"
	"unsafe"

	"cogentcore.org/core/base/slicesx"
	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"github.com/cogentcore/webgpu/wgpu"
)

// Embedded shader names. Material Shader() values resolve against
// these files under shaders/.
const (
	shaderPBR      = "pbr"
	shaderOccluder = "occluder"
	shaderSkin     = "skin"
)

// skinWorkgroup is the compute workgroup size of the skinning
// shader. Must match @workgroup_size in skin.wgsl.
const skinWorkgroup = 64

// materialWords is the fixed per-material uniform block size in
// float32 words. [asset.Material.Constants] beyond it are truncated.
const materialWords = 12

// passConstants is the per-pass uniform block shared by every draw
// in a frame. Both view slots are always populated so shaders can
// index by view without bounds concern.
type passConstants struct {
	View   [MaxViews]math32.Matrix4
	Proj   [MaxViews]math32.Matrix4
	Cam    [MaxViews]math32.Vector4
	Env    math32.Matrix4
	Counts [4]uint32 // x light count, y view count
}

// instanceConstants is the per-draw uniform block. Normal holds the
// inverse model matrix; the shader transposes it when transforming
// normals.
type instanceConstants struct {
	Model  math32.Matrix4
	Normal math32.Matrix4
	View   [4]uint32 // x view index
}

// skinParams is the skinning dispatch uniform block.
type skinParams struct {
	Count [4]uint32 // x vertex count
}

var (
	passSize       = int(unsafe.Sizeof(passConstants{}))
	instanceSize   = int(unsafe.Sizeof(instanceConstants{}))
	materialSize   = materialWords * 4
	skinParamsSize = int(unsafe.Sizeof(skinParams{}))
)

// Renderer draws [Frame] values onto caller-provided targets. It
// owns all GPU residency: mesh and texture uploads keyed by asset
// name, skinning outputs keyed by skinner, compiled pipelines, and a
// per-frame scratch ring for uniform data. A renderer is bound to
// one [Device] and is not safe for concurrent use; the frame loop is
// its single caller.
type Renderer struct {
	dv      *Device
	lib     *asset.Library
	scratch *ScratchBuffer

	// compiled state, keyed by shader name and pipeline variant
	shaders      map[string]*wgpu.ShaderModule
	pipelines    map[pipelineKey]*wgpu.RenderPipeline
	depthStencil map[asset.Material]*wgpu.DepthStencilState
	skinPipeline *wgpu.ComputePipeline

	// bind group layouts, fixed at construction
	passLayout    *wgpu.BindGroupLayout
	drawLayout    *wgpu.BindGroupLayout
	textureLayout *wgpu.BindGroupLayout
	skinLayout    *wgpu.BindGroupLayout

	pbrPipeLayout      *wgpu.PipelineLayout
	occluderPipeLayout *wgpu.PipelineLayout
	skinPipeLayout     *wgpu.PipelineLayout

	sampler *wgpu.Sampler

	// fallbacks for empty texture slots
	white      *textureResource
	flatNormal *textureResource

	// asset residency
	meshes   map[string]*meshResource
	skins    map[*asset.Skinner]*skinResource
	textures map[string]*textureResource
	envRes   *textureResource

	// bind groups
	passGroup *wgpu.BindGroup
	passEnv   *wgpu.TextureView
	drawGroup *wgpu.BindGroup
	matGroups map[asset.Material]*wgpu.BindGroup
	matGroupTex map[asset.Material][4]*textureResource

	// per-frame working state
	items      []drawItem
	skinJobs   []skinJob
	matOffsets map[asset.Material]uint32
	frameBind  []*wgpu.BindGroup
	joints     []math32.Matrix4
	whole      [1]asset.Submesh
	inter      []intermediates

	defMat *asset.PBRMaterial
}

// drawItem is one submesh draw after mesh and material resolution.
// Items are rebuilt and sorted every frame.
type drawItem struct {
	ob     *Object
	normal math32.Matrix4
	mr     *meshResource
	sr     *skinResource // non-nil when drawing skinned outputs
	mt     asset.Material
	layout *asset.Layout
	start  uint32
	count  uint32
	matOff uint32
}

// skinJob is one pending skinning dispatch.
type skinJob struct {
	sn *asset.Skinner
	mr *meshResource
	sr *skinResource
}

// NewRenderer returns a renderer on the given device resolving
// texture names against the given library. scratchSize is the
// per-frame uniform ring size in bytes; 0 uses
// [DefaultScratchSize].
func NewRenderer(dv *Device, lib *asset.Library, scratchSize int) (*Renderer, error) {
	scratch, err := NewScratchBuffer(dv, scratchSize)
	if err != nil {
		return nil, err
	}
	rd := &Renderer{
		dv:           dv,
		lib:          lib,
		scratch:      scratch,
		shaders:      make(map[string]*wgpu.ShaderModule),
		pipelines:    make(map[pipelineKey]*wgpu.RenderPipeline),
		depthStencil: make(map[asset.Material]*wgpu.DepthStencilState),
		meshes:       make(map[string]*meshResource),
		skins:        make(map[*asset.Skinner]*skinResource),
		textures:     make(map[string]*textureResource),
		matGroups:    make(map[asset.Material]*wgpu.BindGroup),
		matGroupTex:  make(map[asset.Material][4]*textureResource),
		matOffsets:   make(map[asset.Material]uint32),
		defMat:       asset.NewPBRMaterial("default"),
	}
	if err := rd.initLayouts(); err != nil {
		rd.Close()
		return nil, err
	}
	if err := rd.initStatics(); err != nil {
		rd.Close()
		return nil, err
	}
	return rd, nil
}

func (rd *Renderer) initLayouts() error {
	var err error
	rd.passLayout, err = rd.dv.WGPU.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "pass",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeReadOnlyStorage,
					HasDynamicOffset: true,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("render: creating pass layout: %w", err)
	}
	uniform := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
			},
		}
	}
	rd.drawLayout, err = rd.dv.WGPU.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "draw",
		Entries: []wgpu.BindGroupLayoutEntry{uniform(0), uniform(1)},
	})
	if err != nil {
		return fmt.Errorf("render: creating draw layout: %w", err)
	}
	texEntries := make([]wgpu.BindGroupLayoutEntry, 0, 5)
	for i := 0; i < 4; i++ {
		texEntries = append(texEntries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	texEntries = append(texEntries, wgpu.BindGroupLayoutEntry{
		Binding:    4,
		Visibility: wgpu.ShaderStageFragment,
		Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
	})
	rd.textureLayout, err = rd.dv.WGPU.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "textures",
		Entries: texEntries,
	})
	if err != nil {
		return fmt.Errorf("render: creating texture layout: %w", err)
	}
	storage := func(binding uint32, tp wgpu.BufferBindingType, dynamic bool) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:             tp,
				HasDynamicOffset: dynamic,
			},
		}
	}
	rd.skinLayout, err = rd.dv.WGPU.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "skin",
		Entries: []wgpu.BindGroupLayoutEntry{
			storage(0, wgpu.BufferBindingTypeUniform, true),
			storage(1, wgpu.BufferBindingTypeReadOnlyStorage, true),
			storage(2, wgpu.BufferBindingTypeReadOnlyStorage, false),
			storage(3, wgpu.BufferBindingTypeReadOnlyStorage, false),
			storage(4, wgpu.BufferBindingTypeReadOnlyStorage, false),
			storage(5, wgpu.BufferBindingTypeReadOnlyStorage, false),
			storage(6, wgpu.BufferBindingTypeReadOnlyStorage, false),
			storage(7, wgpu.BufferBindingTypeStorage, false),
			storage(8, wgpu.BufferBindingTypeStorage, false),
			storage(9, wgpu.BufferBindingTypeStorage, false),
		},
	})
	if err != nil {
		return fmt.Errorf("render: creating skin layout: %w", err)
	}
	rd.pbrPipeLayout, err = rd.dv.WGPU.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "pbr",
		BindGroupLayouts: []*wgpu.BindGroupLayout{rd.passLayout, rd.drawLayout, rd.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("render: creating pbr pipeline layout: %w", err)
	}
	rd.occluderPipeLayout, err = rd.dv.WGPU.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "occluder",
		BindGroupLayouts: []*wgpu.BindGroupLayout{rd.passLayout, rd.drawLayout},
	})
	if err != nil {
		return fmt.Errorf("render: creating occluder pipeline layout: %w", err)
	}
	rd.skinPipeLayout, err = rd.dv.WGPU.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "skin",
		BindGroupLayouts: []*wgpu.BindGroupLayout{rd.skinLayout},
	})
	if err != nil {
		return fmt.Errorf("render: creating skin pipeline layout: %w", err)
	}
	return nil
}

func (rd *Renderer) initStatics() error {
	var err error
	rd.sampler, err = rd.dv.WGPU.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "linear",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("render: creating sampler: %w", err)
	}
	rd.white, err = rd.solidTexture("white", 255, 255, 255, 255)
	if err != nil {
		return err
	}
	// tangent-space up, so unmapped materials shade unperturbed
	rd.flatNormal, err = rd.solidTexture("flat-normal", 128, 128, 255, 255)
	if err != nil {
		return err
	}
	rd.drawGroup, err = rd.dv.WGPU.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "draw",
		Layout: rd.drawLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: rd.scratch.Buffer(), Offset: 0, Size: uint64(instanceSize)},
			{Binding: 1, Buffer: rd.scratch.Buffer(), Offset: 0, Size: uint64(materialSize)},
		},
	})
	if err != nil {
		return fmt.Errorf("render: creating draw bind group: %w", err)
	}
	return nil
}

// DrawFrame records and submits all passes of one frame. Uniform
// data goes through the scratch ring; the single submission covers
// skinning dispatches and every render pass in target order.
func (rd *Renderer) DrawFrame(fr *Frame) error {
	if err := fr.Validate(); err != nil {
		return err
	}
	if err := rd.buildItems(fr); err != nil {
		return err
	}
	lightOff, lightCount := rd.uploadLights(fr.Lights)
	passOff := rd.uploadPassConstants(fr, lightCount)
	envRes, err := rd.environmentFor(fr.Env)
	if err != nil {
		return err
	}
	pg, err := rd.passBindGroup(envRes)
	if err != nil {
		return err
	}
	enc, err := rd.dv.WGPU.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("render: creating command encoder: %w", err)
	}
	defer enc.Release()
	defer rd.releaseFrameBind()
	if err := rd.skinPass(enc); err != nil {
		return err
	}
	for pi, ps := range framePasses(fr) {
		if err := rd.drawPass(enc, fr, pi, ps, pg, passOff, lightOff); err != nil {
			return err
		}
	}
	if err := rd.scratch.Flush(); err != nil {
		return err
	}
	cmd, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("render: finishing command encoder: %w", err)
	}
	rd.dv.Queue.Submit(cmd)
	cmd.Release()
	rd.sweepSkins()
	return nil
}

// buildItems expands frame objects into sorted draw items, uploads
// material constants, and queues skinning work. Mesh residency is
// resolved here so draw recording cannot fail on uploads.
func (rd *Renderer) buildItems(fr *Frame) error {
	rd.items = rd.items[:0]
	rd.skinJobs = rd.skinJobs[:0]
	clear(rd.matOffsets)
	for i := range fr.Objects {
		ob := &fr.Objects[i]
		if ob.Mesh == nil || len(ob.Mesh.Index) == 0 {
			continue
		}
		mr, err := rd.meshFor(ob.Mesh)
		if err != nil {
			return err
		}
		ly := ob.Mesh.Layout()
		var sr *skinResource
		if ob.Skinner != nil && ob.Mesh.Skinned() {
			var created bool
			sr, created, err = rd.skinFor(ob.Skinner, ob.Mesh)
			if err != nil {
				return err
			}
			if created || ob.Skinner.TakeDirty() {
				rd.skinJobs = append(rd.skinJobs, skinJob{sn: ob.Skinner, mr: mr, sr: sr})
			}
			// skinned outputs draw through the static layout
			ly = asset.StaticLayout()
		}
		var normal math32.Matrix4
		if inv, err := ob.Matrix.Inverse(); err == nil {
			normal = *inv
		} else {
			normal = ob.Matrix
		}
		subs := ob.Mesh.Submeshes
		if len(subs) == 0 {
			rd.whole[0] = asset.Submesh{Count: uint32(len(ob.Mesh.Index))}
			subs = rd.whole[:]
		}
		for si := range subs {
			var mt asset.Material = rd.defMat
			if si < len(ob.Materials) && ob.Materials[si] != nil {
				mt = ob.Materials[si]
			}
			rd.items = append(rd.items, drawItem{
				ob:     ob,
				normal: normal,
				mr:     mr,
				sr:     sr,
				mt:     mt,
				layout: ly,
				start:  subs[si].Start,
				count:  subs[si].Count,
				matOff: rd.materialOffset(mt, ob.Overrides),
			})
		}
	}
	rd.sortItems()
	return nil
}

// sortItems orders draws by category, then pipeline identity, then
// mesh, minimizing state changes. Occluders sort first so they seed
// depth before opaque shading; transparents sort last.
func (rd *Renderer) sortItems() {
	sort.Slice(rd.items, func(i, j int) bool {
		a, b := &rd.items[i], &rd.items[j]
		if ca, cb := a.mt.Category(), b.mt.Category(); ca != cb {
			return ca < cb
		}
		if sa, sb := a.mt.Shader(), b.mt.Shader(); sa != sb {
			return sa < sb
		}
		if la, lb := a.layout.ID(), b.layout.ID(); la != lb {
			return la < lb
		}
		if a.mr.mesh.Name != b.mr.mesh.Name {
			return a.mr.mesh.Name < b.mr.mesh.Name
		}
		return a.start < b.start
	})
}

// materialOffset uploads the material uniform block, reusing one
// upload per material per frame. Instances with overrides always get
// their own block.
func (rd *Renderer) materialOffset(mt asset.Material, ov map[string]float32) uint32 {
	if ov == nil {
		if off, ok := rd.matOffsets[mt]; ok {
			return off
		}
	}
	off := rd.uploadMaterial(mt, ov)
	if ov == nil {
		rd.matOffsets[mt] = off
	}
	return off
}

func (rd *Renderer) uploadMaterial(mt asset.Material, ov map[string]float32) uint32 {
	off, dst := rd.scratch.Alloc(materialSize, 0)
	words := mt.Constants()
	if words == nil {
		clear(dst)
		return uint32(off)
	}
	var w [materialWords]float32
	copy(w[:], words)
	if ov != nil {
		if a, ok := ov[asset.OverrideAlpha]; ok {
			w[3] *= a
		}
		if e, ok := ov[asset.OverrideEmissive]; ok {
			w[10] *= e
		}
	}
	copy(dst, wgpu.ToBytes(w[:]))
	return uint32(off)
}

func (rd *Renderer) uploadInstance(item *drawItem, view uint32) uint32 {
	ic := instanceConstants{
		Model:  item.ob.Matrix,
		Normal: item.normal,
		View:   [4]uint32{view},
	}
	off, dst := rd.scratch.Alloc(instanceSize, 0)
	copy(dst, wgpu.ToBytes([]instanceConstants{ic}))
	return uint32(off)
}

func (rd *Renderer) uploadPassConstants(fr *Frame, lightCount int) uint32 {
	var pc passConstants
	for i := range fr.Views {
		pc.View[i] = fr.Views[i].ViewMatrix
		pc.Proj[i] = fr.Views[i].Projection
		cp := fr.Views[i].CameraPos
		pc.Cam[i] = math32.Vec4(cp.X, cp.Y, cp.Z, 1)
	}
	if len(fr.Views) == 1 {
		pc.View[1], pc.Proj[1], pc.Cam[1] = pc.View[0], pc.Proj[0], pc.Cam[0]
	}
	pc.Env.SetIdentity()
	if fr.Env != nil {
		pc.Env = fr.Env.Basis
	}
	pc.Counts[0] = uint32(lightCount)
	pc.Counts[1] = uint32(len(fr.Views))
	off, dst := rd.scratch.Alloc(passSize, 0)
	copy(dst, wgpu.ToBytes([]passConstants{pc}))
	return uint32(off)
}

func (rd *Renderer) uploadLights(lights []asset.Light) (uint32, int) {
	off, dst := rd.scratch.Alloc(lightsSize, 0)
	var packed [MaxLights * lightWords]float32
	n := packLights(packed[:], lights)
	copy(dst, wgpu.ToBytes(packed[:n*lightWords]))
	return uint32(off), n
}

// environmentFor returns the resident environment texture, or the
// white fallback when the frame has none.
func (rd *Renderer) environmentFor(env *Environment) (*textureResource, error) {
	if env == nil || env.Texture == nil {
		return rd.white, nil
	}
	if rd.envRes != nil && rd.envRes.src == env.Texture {
		return rd.envRes, nil
	}
	if rd.envRes != nil {
		rd.envRes.release()
		rd.envRes = nil
	}
	tr, err := rd.uploadTexture(env.Texture)
	if err != nil {
		return nil, err
	}
	rd.envRes = tr
	return tr, nil
}

// passBindGroup returns the group 0 bind group, rebuilt only when
// the environment texture changes.
func (rd *Renderer) passBindGroup(envRes *textureResource) (*wgpu.BindGroup, error) {
	if rd.passGroup != nil && rd.passEnv == envRes.view {
		return rd.passGroup, nil
	}
	if rd.passGroup != nil {
		rd.passGroup.Release()
		rd.passGroup = nil
	}
	bg, err := rd.dv.WGPU.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "pass",
		Layout: rd.passLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: rd.scratch.Buffer(), Offset: 0, Size: uint64(passSize)},
			{Binding: 1, Buffer: rd.scratch.Buffer(), Offset: 0, Size: uint64(lightsSize)},
			{Binding: 2, TextureView: envRes.view},
			{Binding: 3, Sampler: rd.sampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render: creating pass bind group: %w", err)
	}
	rd.passGroup = bg
	rd.passEnv = envRes.view
	return bg, nil
}

// materialBindGroup returns the group 2 texture bind group for the
// material, rebuilding when any slot resolves to a different
// resident texture.
func (rd *Renderer) materialBindGroup(mt asset.Material) (*wgpu.BindGroup, error) {
	names := mt.TextureNames()
	var res [4]*textureResource
	for i := 0; i < 4; i++ {
		fallback := rd.white
		if i == 1 {
			fallback = rd.flatNormal
		}
		name := ""
		if i < len(names) {
			name = names[i]
		}
		tr, err := rd.textureFor(name, fallback)
		if err != nil {
			return nil, err
		}
		res[i] = tr
	}
	if bg, ok := rd.matGroups[mt]; ok && rd.matGroupTex[mt] == res {
		return bg, nil
	}
	if bg, ok := rd.matGroups[mt]; ok {
		bg.Release()
		delete(rd.matGroups, mt)
	}
	bg, err := rd.dv.WGPU.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  mt.AsMaterialBase().Name,
		Layout: rd.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: res[0].view},
			{Binding: 1, TextureView: res[1].view},
			{Binding: 2, TextureView: res[2].view},
			{Binding: 3, TextureView: res[3].view},
			{Binding: 4, Sampler: rd.sampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("render: creating material bind group: %w", err)
	}
	rd.matGroups[mt] = bg
	rd.matGroupTex[mt] = res
	return bg, nil
}

// skinPass records one compute pass covering every queued skinning
// job. Joint matrices ride the scratch ring; each job binds its mesh
// inputs and skinner outputs through a transient bind group.
func (rd *Renderer) skinPass(enc *wgpu.CommandEncoder) error {
	if len(rd.skinJobs) == 0 {
		return nil
	}
	if err := rd.ensureSkinPipeline(); err != nil {
		return err
	}
	cp := enc.BeginComputePass(nil)
	cp.SetPipeline(rd.skinPipeline)
	for _, jb := range rd.skinJobs {
		nv := jb.sr.mesh.NumVertex()
		rd.joints = jb.sn.JointMatrices(rd.joints)
		jsize := len(rd.joints) * int(unsafe.Sizeof(math32.Matrix4{}))
		joff, jdst := rd.scratch.Alloc(jsize, 0)
		copy(jdst, wgpu.ToBytes(rd.joints))
		poff, pdst := rd.scratch.Alloc(skinParamsSize, 0)
		copy(pdst, wgpu.ToBytes([]skinParams{{Count: [4]uint32{uint32(nv)}}}))
		bg, err := rd.dv.WGPU.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "skin:" + jb.sr.mesh.Name,
			Layout: rd.skinLayout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: rd.scratch.Buffer(), Offset: 0, Size: uint64(skinParamsSize)},
				{Binding: 1, Buffer: rd.scratch.Buffer(), Offset: 0, Size: uint64(jsize)},
				{Binding: 2, Buffer: jb.mr.vertex[0], Size: wgpu.WholeSize},
				{Binding: 3, Buffer: jb.mr.vertex[1], Size: wgpu.WholeSize},
				{Binding: 4, Buffer: jb.mr.vertex[2], Size: wgpu.WholeSize},
				{Binding: 5, Buffer: jb.mr.vertex[3], Size: wgpu.WholeSize},
				{Binding: 6, Buffer: jb.mr.vertex[4], Size: wgpu.WholeSize},
				{Binding: 7, Buffer: jb.sr.out[0], Size: wgpu.WholeSize},
				{Binding: 8, Buffer: jb.sr.out[1], Size: wgpu.WholeSize},
				{Binding: 9, Buffer: jb.sr.out[2], Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			cp.End()
			cp.Release()
			return fmt.Errorf("render: creating skin bind group: %w", err)
		}
		rd.frameBind = append(rd.frameBind, bg)
		cp.SetBindGroup(0, bg, []uint32{uint32(poff), uint32(joff)})
		cp.DispatchWorkgroups(uint32(warps(nv, skinWorkgroup)), 1, 1)
	}
	cp.End()
	cp.Release()
	rd.skinJobs = rd.skinJobs[:0]
	return nil
}

func (rd *Renderer) ensureSkinPipeline() error {
	if rd.skinPipeline != nil {
		return nil
	}
	md, err := rd.shaderModule(shaderSkin)
	if err != nil {
		return err
	}
	pl, err := rd.dv.WGPU.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "skin",
		Layout: rd.skinPipeLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     md,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("render: creating skin pipeline: %w", err)
	}
	rd.skinPipeline = pl
	return nil
}

// drawPass records one render pass onto the target of ps, drawing
// every item once per view with per-view viewports.
func (rd *Renderer) drawPass(enc *wgpu.CommandEncoder, fr *Frame, pi int, ps framePass, pg *wgpu.BindGroup, passOff, lightOff uint32) error {
	it, samples, err := rd.intermediatesFor(pi, ps.target)
	if err != nil {
		return err
	}
	rp := enc.BeginRenderPass(rd.passDescriptor(ps.target, it))
	fail := func(err error) error {
		rp.End()
		rp.Release()
		return err
	}
	rp.SetBindGroup(0, pg, []uint32{passOff, lightOff})
	for _, vi := range ps.views {
		vp := fr.Views[vi].Viewport
		if vp.Empty() {
			vp = image.Rectangle{Max: ps.target.Size}
		}
		rp.SetViewport(float32(vp.Min.X), float32(vp.Min.Y), float32(vp.Dx()), float32(vp.Dy()), 0, 1)
		for i := range rd.items {
			item := &rd.items[i]
			pl, err := rd.pipelineFor(item.layout, item.mt, fr.Layout, samples)
			if err != nil {
				return fail(err)
			}
			rp.SetPipeline(pl)
			rp.SetBindGroup(1, rd.drawGroup, []uint32{rd.uploadInstance(item, uint32(vi)), item.matOff})
			if item.mt.Category() != asset.Occluder {
				texg, err := rd.materialBindGroup(item.mt)
				if err != nil {
					return fail(err)
				}
				rp.SetBindGroup(2, texg, nil)
			}
			if item.sr != nil {
				for b, buf := range item.sr.out {
					rp.SetVertexBuffer(uint32(b), buf, 0, wgpu.WholeSize)
				}
			} else {
				for b, buf := range item.mr.vertex {
					rp.SetVertexBuffer(uint32(b), buf, 0, wgpu.WholeSize)
				}
			}
			rp.SetIndexBuffer(item.mr.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
			rp.DrawIndexed(item.count, 1, item.start, 0, 0)
		}
	}
	rp.End()
	rp.Release()
	return nil
}

// passDescriptor builds the render pass descriptor for the target.
// Color clears to transparent black for compositor passthrough;
// depth clears to 0 for the reversed-Z convention. Multisampled
// passes render into the intermediate color and resolve into the
// target.
func (rd *Renderer) passDescriptor(tg *Target, it *intermediates) *wgpu.RenderPassDescriptor {
	color := wgpu.RenderPassColorAttachment{
		View:       tg.Color,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{},
	}
	if it.colorView != nil {
		color.View = it.colorView
		color.ResolveTarget = tg.Color
	}
	depthView := tg.Depth
	if it.depthView != nil {
		depthView = it.depthView
	}
	return &wgpu.RenderPassDescriptor{
		Label:            "frame",
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 0,
		},
	}
}

// intermediates is the renderer-owned attachment state of one pass
// slot: the depth texture when the target does not provide one, and
// the multisampled color texture when sampling is on.
type intermediates struct {
	size     image.Point
	samples  int
	extDepth bool

	color     *wgpu.Texture
	colorView *wgpu.TextureView
	depth     *wgpu.Texture
	depthView *wgpu.TextureView
}

func (it *intermediates) stale(size image.Point, samples int, extDepth bool) bool {
	return it.size != size || it.samples != samples || it.extDepth != extDepth
}

func (it *intermediates) release() {
	if it.colorView != nil {
		it.colorView.Release()
		it.colorView = nil
	}
	if it.color != nil {
		it.color.Release()
		it.color = nil
	}
	if it.depthView != nil {
		it.depthView.Release()
		it.depthView = nil
	}
	if it.depth != nil {
		it.depth.Release()
		it.depth = nil
	}
	*it = intermediates{}
}

// intermediatesFor returns the attachments for pass slot pi sized to
// the target, recreating them when the size, sample count, or depth
// ownership changed. Depth resolve is not available, so multisampled
// passes always use the internal depth texture.
func (rd *Renderer) intermediatesFor(pi int, tg *Target) (*intermediates, int, error) {
	if len(rd.inter) <= pi {
		rd.inter = slicesx.SetLength(rd.inter, pi+1)
	}
	it := &rd.inter[pi]
	samples := tg.Samples
	if samples < 1 {
		samples = 1
	}
	extDepth := tg.Depth != nil && samples == 1
	if !it.stale(tg.Size, samples, extDepth) {
		return it, samples, nil
	}
	it.release()
	it.size = tg.Size
	it.samples = samples
	it.extDepth = extDepth
	mk := func(label string, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
		tex, err := rd.dv.WGPU.CreateTexture(&wgpu.TextureDescriptor{
			Label: label,
			Size: wgpu.Extent3D{
				Width:              uint32(tg.Size.X),
				Height:             uint32(tg.Size.Y),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   uint32(samples),
			Dimension:     wgpu.TextureDimension2D,
			Format:        format,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("render: creating %s attachment: %w", label, err)
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			return nil, nil, fmt.Errorf("render: creating %s view: %w", label, err)
		}
		return tex, view, nil
	}
	var err error
	if samples > 1 {
		it.color, it.colorView, err = mk("msaa-color", rd.dv.Format)
		if err != nil {
			it.release()
			return nil, 0, err
		}
	}
	if !extDepth {
		it.depth, it.depthView, err = mk("depth", rd.dv.DepthFormat)
		if err != nil {
			it.release()
			return nil, 0, err
		}
	}
	return it, samples, nil
}

func (rd *Renderer) releaseFrameBind() {
	for _, bg := range rd.frameBind {
		bg.Release()
	}
	rd.frameBind = rd.frameBind[:0]
}

// warps returns the dispatch count covering n items at the given
// workgroup size.
func warps(n, threads int) int {
	return (n + threads - 1) / threads
}

// Close releases every GPU resource the renderer owns. The device is
// the caller's and stays open.
func (rd *Renderer) Close() {
	for _, pl := range rd.pipelines {
		pl.Release()
	}
	clear(rd.pipelines)
	if rd.skinPipeline != nil {
		rd.skinPipeline.Release()
		rd.skinPipeline = nil
	}
	for _, md := range rd.shaders {
		md.Release()
	}
	clear(rd.shaders)
	clear(rd.depthStencil)
	for _, bg := range rd.matGroups {
		bg.Release()
	}
	clear(rd.matGroups)
	clear(rd.matGroupTex)
	if rd.passGroup != nil {
		rd.passGroup.Release()
		rd.passGroup = nil
	}
	if rd.drawGroup != nil {
		rd.drawGroup.Release()
		rd.drawGroup = nil
	}
	rd.releaseFrameBind()
	for _, mr := range rd.meshes {
		mr.release()
	}
	clear(rd.meshes)
	for _, sr := range rd.skins {
		sr.release()
	}
	clear(rd.skins)
	for _, tr := range rd.textures {
		tr.release()
	}
	clear(rd.textures)
	if rd.envRes != nil {
		rd.envRes.release()
		rd.envRes = nil
	}
	if rd.white != nil {
		rd.white.release()
		rd.white = nil
	}
	if rd.flatNormal != nil {
		rd.flatNormal.release()
		rd.flatNormal = nil
	}
	for i := range rd.inter {
		rd.inter[i].release()
	}
	rd.inter = nil
	for _, pl := range []*wgpu.PipelineLayout{rd.pbrPipeLayout, rd.occluderPipeLayout, rd.skinPipeLayout} {
		if pl != nil {
			pl.Release()
		}
	}
	rd.pbrPipeLayout, rd.occluderPipeLayout, rd.skinPipeLayout = nil, nil, nil
	for _, bl := range []*wgpu.BindGroupLayout{rd.passLayout, rd.drawLayout, rd.textureLayout, rd.skinLayout} {
		if bl != nil {
			bl.Release()
		}
	}
	rd.passLayout, rd.drawLayout, rd.textureLayout, rd.skinLayout = nil, nil, nil, nil
	if rd.sampler != nil {
		rd.sampler.Release()
		rd.sampler = nil
	}
	if rd.scratch != nil {
		rd.scratch.Release()
		rd.scratch = nil
	}
}
