// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"image"

	"cogentcore.org/spatial/asset"
	"github.com/cogentcore/webgpu/wgpu"
)

// meshResource is the GPU residency of one mesh: a tightly packed
// vertex buffer per attribute plus the index buffer. Resources are
// keyed by mesh name; when hot reload swaps the mesh pointer under a
// name, the buffers are released and uploaded again.
type meshResource struct {
	mesh   *asset.Mesh
	vertex []*wgpu.Buffer
	index  *wgpu.Buffer
}

func (mr *meshResource) release() {
	for _, buf := range mr.vertex {
		if buf != nil {
			buf.Release()
		}
	}
	mr.vertex = nil
	if mr.index != nil {
		mr.index.Release()
		mr.index = nil
	}
}

// meshFor returns the resident resource for the mesh, uploading on
// first use or when the pointer registered under the name changed.
func (rd *Renderer) meshFor(ms *asset.Mesh) (*meshResource, error) {
	mr := rd.meshes[ms.Name]
	if mr != nil && mr.mesh == ms {
		return mr, nil
	}
	if mr != nil {
		mr.release()
	}
	mr, err := rd.uploadMesh(ms)
	if err != nil {
		return nil, err
	}
	rd.meshes[ms.Name] = mr
	return mr, nil
}

func (rd *Renderer) uploadMesh(ms *asset.Mesh) (*meshResource, error) {
	mr := &meshResource{mesh: ms}
	usage := wgpu.BufferUsageVertex
	if ms.Skinned() {
		// skinned attributes are compute inputs
		usage |= wgpu.BufferUsageStorage
	}
	for _, at := range ms.Layout().Attributes {
		var data []byte
		switch at.Semantic {
		case asset.Position:
			data = wgpu.ToBytes(ms.Position)
		case asset.Normal:
			data = wgpu.ToBytes(ms.Normal)
		case asset.TexCoord0:
			data = wgpu.ToBytes(ms.TexCoord)
		case asset.Joints0:
			data = wgpu.ToBytes(ms.Joints)
		case asset.Weights0:
			data = wgpu.ToBytes(ms.Weights)
		default:
			mr.release()
			return nil, fmt.Errorf("render: mesh %q: unsupported attribute %v", ms.Name, at.Semantic)
		}
		buf, err := rd.dv.WGPU.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    ms.Name + ":" + at.Semantic.String(),
			Contents: data,
			Usage:    usage,
		})
		if err != nil {
			mr.release()
			return nil, fmt.Errorf("render: mesh %q: creating %v buffer: %w", ms.Name, at.Semantic, err)
		}
		mr.vertex = append(mr.vertex, buf)
	}
	ix, err := rd.dv.WGPU.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    ms.Name + ":Index",
		Contents: wgpu.ToBytes(ms.Index),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		mr.release()
		return nil, fmt.Errorf("render: mesh %q: creating index buffer: %w", ms.Name, err)
	}
	mr.index = ix
	return mr, nil
}

// skinResource holds one skinner's skinned output streams: position,
// normal, and texcoord buffers the main pass draws with the static
// vertex layout. Outputs are per skinner, not per mesh, so two hands
// sharing one rig mesh do not fight over a buffer.
type skinResource struct {
	mesh *asset.Mesh
	out  [3]*wgpu.Buffer
	used bool
}

func (sr *skinResource) release() {
	for i, buf := range sr.out {
		if buf != nil {
			buf.Release()
			sr.out[i] = nil
		}
	}
}

// skinFor returns the skinned output buffers for the skinner,
// creating them on first use or when the skinner moved to a
// different mesh. created reports a fresh allocation, which forces a
// skinning dispatch regardless of the dirty flag.
func (rd *Renderer) skinFor(sn *asset.Skinner, ms *asset.Mesh) (sr *skinResource, created bool, err error) {
	sr = rd.skins[sn]
	if sr != nil && sr.mesh == ms {
		sr.used = true
		return sr, false, nil
	}
	if sr != nil {
		sr.release()
	}
	sr = &skinResource{mesh: ms, used: true}
	nv := ms.NumVertex()
	sizes := [3]int{nv * 12, nv * 12, nv * 8}
	names := [3]string{"SkinnedPosition", "SkinnedNormal", "SkinnedTexCoord"}
	for i := range sr.out {
		buf, err := rd.dv.WGPU.CreateBuffer(&wgpu.BufferDescriptor{
			Label: ms.Name + ":" + names[i],
			Size:  uint64(sizes[i]),
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageVertex,
		})
		if err != nil {
			sr.release()
			return nil, false, fmt.Errorf("render: mesh %q: creating %s buffer: %w", ms.Name, names[i], err)
		}
		sr.out[i] = buf
	}
	rd.skins[sn] = sr
	return sr, true, nil
}

// sweepSkins releases outputs whose skinner did not draw this frame
// and clears the marks for the next one. Skinners churn with entity
// lifetime, unlike meshes, so their residency is swept per frame.
func (rd *Renderer) sweepSkins() {
	for sn, sr := range rd.skins {
		if !sr.used {
			sr.release()
			delete(rd.skins, sn)
			continue
		}
		sr.used = false
	}
}

// textureResource is one resident texture with its full mip chain.
type textureResource struct {
	src  *asset.Texture
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

func (tr *textureResource) release() {
	if tr.view != nil {
		tr.view.Release()
		tr.view = nil
	}
	if tr.tex != nil {
		tr.tex.Release()
		tr.tex = nil
	}
}

// textureFor resolves a material texture slot name against the asset
// library. Empty or unknown names fall back to the given default, and
// a pointer change under a name re-uploads.
func (rd *Renderer) textureFor(name string, fallback *textureResource) (*textureResource, error) {
	var tx *asset.Texture
	if name != "" && rd.lib != nil {
		tx = rd.lib.Texture(name)
	}
	if tx == nil {
		return fallback, nil
	}
	tr := rd.textures[tx.Name]
	if tr != nil && tr.src == tx {
		return tr, nil
	}
	if tr != nil {
		tr.release()
	}
	tr, err := rd.uploadTexture(tx)
	if err != nil {
		return nil, err
	}
	rd.textures[tx.Name] = tr
	return tr, nil
}

func (rd *Renderer) uploadTexture(tx *asset.Texture) (*textureResource, error) {
	format := wgpu.TextureFormatRGBA8Unorm
	if tx.SRGB {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}
	sz := tx.Image().Rect.Size()
	tex, err := rd.dv.WGPU.CreateTexture(&wgpu.TextureDescriptor{
		Label: tx.Name,
		Size: wgpu.Extent3D{
			Width:              uint32(sz.X),
			Height:             uint32(sz.Y),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: uint32(tx.NumLevels()),
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: texture %q: %w", tx.Name, err)
	}
	for i, mip := range tx.Mips {
		msz := mip.Rect.Size()
		rd.dv.Queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Aspect:   wgpu.TextureAspectAll,
				Texture:  tex,
				MipLevel: uint32(i),
				Origin:   wgpu.Origin3D{},
			},
			mip.Pix,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(mip.Stride),
				RowsPerImage: uint32(msz.Y),
			},
			&wgpu.Extent3D{
				Width:              uint32(msz.X),
				Height:             uint32(msz.Y),
				DepthOrArrayLayers: 1,
			},
		)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("render: texture %q view: %w", tx.Name, err)
	}
	return &textureResource{src: tx, tex: tex, view: view}, nil
}

// solidTexture uploads a 1x1 texture of the given color, used as the
// fallback for empty texture slots.
func (rd *Renderer) solidTexture(label string, r, g, b, a uint8) (*textureResource, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = r, g, b, a
	tx := asset.NewTexture(label, img)
	tx.SRGB = false
	return rd.uploadTexture(tx)
}
