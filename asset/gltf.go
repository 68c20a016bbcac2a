// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cogentcore.org/core/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Prototype is a loaded model: its meshes, materials, textures, and
// skeletons, plus a node table that the scene instantiates. Asset
// names inside a prototype are prefixed with the prototype name so
// multiple models can coexist in one library.
type Prototype struct {
	Name      string
	Meshes    []*Mesh
	Materials []Material
	Textures  []*Texture
	Skeletons []*Skeleton
	Nodes     []PrototypeNode
}

// PrototypeNode is one node of a prototype hierarchy, with its local
// transform and optional mesh and skeleton references by index.
type PrototypeNode struct {
	Name string

	// Parent is the index of the parent node, -1 for roots.
	Parent int32

	Translation math32.Vector3
	Rotation    math32.Quat
	Scale       math32.Vector3

	// Mesh indexes [Prototype.Meshes], -1 for none.
	Mesh int32

	// Skeleton indexes [Prototype.Skeletons], -1 for unskinned.
	Skeleton int32
}

// MeshByName returns the prototype mesh with the given name,
// or nil if not found.
func (pt *Prototype) MeshByName(name string) *Mesh {
	for _, ms := range pt.Meshes {
		if ms.Name == name {
			return ms
		}
	}
	return nil
}

// OpenModel loads a glTF model from the given .gltf or .glb file.
// External buffers and images resolve relative to the file.
func OpenModel(path string) (*Prototype, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset: open model %q: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return decodeModel(name, filepath.Dir(path), doc)
}

func decodeModel(name, dir string, doc *gltf.Document) (*Prototype, error) {
	pt := &Prototype{Name: name}

	for i, tx := range doc.Textures {
		if tx.Source == nil {
			pt.Textures = append(pt.Textures, WhiteTexture())
			continue
		}
		img := doc.Images[*tx.Source]
		data, err := imageData(dir, doc, img)
		if err != nil {
			return nil, fmt.Errorf("asset: model %q texture %d: %w", name, i, err)
		}
		txName := img.Name
		if txName == "" {
			txName = fmt.Sprintf("tex%d", i)
		}
		tex, err := ReadTexture(name+"/"+txName, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("asset: model %q texture %d: %w", name, i, err)
		}
		tex.GenerateMips()
		pt.Textures = append(pt.Textures, tex)
	}

	for i, gm := range doc.Materials {
		pt.Materials = append(pt.Materials, decodeMaterial(name, i, gm, pt.Textures))
	}

	for i, gm := range doc.Meshes {
		msName := gm.Name
		if msName == "" {
			msName = fmt.Sprintf("mesh%d", i)
		}
		ms, err := decodeMesh(name+"/"+msName, doc, gm, pt.Materials)
		if err != nil {
			return nil, fmt.Errorf("asset: model %q: %w", name, err)
		}
		pt.Meshes = append(pt.Meshes, ms)
	}

	for i, gs := range doc.Skins {
		sk, err := decodeSkin(name, i, doc, gs)
		if err != nil {
			return nil, fmt.Errorf("asset: model %q: %w", name, err)
		}
		pt.Skeletons = append(pt.Skeletons, sk)
	}

	decodeNodes(pt, doc)
	return pt, nil
}

// imageData returns the raw encoded bytes of a glTF image, from its
// buffer view, data URI, or external file.
func imageData(dir string, doc *gltf.Document, img *gltf.Image) ([]byte, error) {
	if img.BufferView != nil {
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		if int(bv.ByteOffset+bv.ByteLength) > len(buf.Data) {
			return nil, fmt.Errorf("image buffer view out of range")
		}
		return buf.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
	}
	if img.URI == "" {
		return nil, fmt.Errorf("image has no source")
	}
	if strings.HasPrefix(img.URI, "data:") {
		_, b64, ok := strings.Cut(img.URI, ";base64,")
		if !ok {
			return nil, fmt.Errorf("unsupported data URI encoding")
		}
		return base64.StdEncoding.DecodeString(b64)
	}
	return os.ReadFile(filepath.Join(dir, filepath.FromSlash(img.URI)))
}

func decodeMaterial(proto string, i int, gm *gltf.Material, textures []*Texture) Material {
	mtName := gm.Name
	if mtName == "" {
		mtName = fmt.Sprintf("mat%d", i)
	}
	mt := NewPBRMaterial(proto + "/" + mtName)
	mt.CullBack = !gm.DoubleSided
	mt.EmissiveColor = math32.Vec3(gm.EmissiveFactor[0], gm.EmissiveFactor[1], gm.EmissiveFactor[2])
	if mt.EmissiveColor != (math32.Vector3{}) {
		mt.EmissiveStrength = 1
	}
	mt.Transparent = gm.AlphaMode == gltf.AlphaBlend
	if nt := gm.NormalTexture; nt != nil {
		if nt.Index != nil {
			mt.NormalTexture = textureName(textures, *nt.Index)
		}
		if nt.Scale != nil {
			mt.NormalScale = *nt.Scale
		}
	}
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			f := *pbr.BaseColorFactor
			mt.BaseColorFactor = math32.Vec4(f[0], f[1], f[2], f[3])
		}
		mt.Metallic = deref(pbr.MetallicFactor, 1)
		mt.Roughness = deref(pbr.RoughnessFactor, 1)
		if pbr.BaseColorTexture != nil {
			mt.BaseColorTexture = textureName(textures, pbr.BaseColorTexture.Index)
		}
		if pbr.MetallicRoughnessTexture != nil {
			mt.MetallicRoughnessTexture = textureName(textures, pbr.MetallicRoughnessTexture.Index)
		}
	}
	return mt
}

func textureName(textures []*Texture, i uint32) string {
	if int(i) >= len(textures) {
		return ""
	}
	return textures[i].Name
}

func deref(p *float32, def float32) float32 {
	if p != nil {
		return *p
	}
	return def
}

func decodeMesh(name string, doc *gltf.Document, gm *gltf.Mesh, materials []Material) (*Mesh, error) {
	ms := &Mesh{Name: name}
	needNormals := false

	for pi, prim := range gm.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			return nil, fmt.Errorf("mesh %q primitive %d: only triangles are supported", name, pi)
		}
		if prim.Indices == nil {
			return nil, fmt.Errorf("mesh %q primitive %d: unindexed geometry", name, pi)
		}

		base := uint32(len(ms.Position))

		posAcc, ok := prim.Attributes["POSITION"]
		if !ok {
			return nil, fmt.Errorf("mesh %q primitive %d: no POSITION", name, pi)
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posAcc], nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
		}
		for _, p := range positions {
			ms.Position = append(ms.Position, math32.Vec3(p[0], p[1], p[2]))
		}

		if acc, ok := prim.Attributes["NORMAL"]; ok {
			normals, err := modeler.ReadNormal(doc, doc.Accessors[acc], nil)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
			}
			for _, n := range normals {
				ms.Normal = append(ms.Normal, math32.Vec3(n[0], n[1], n[2]))
			}
		} else {
			needNormals = true
			ms.Normal = append(ms.Normal, make([]math32.Vector3, len(positions))...)
		}

		if acc, ok := prim.Attributes["TEXCOORD_0"]; ok {
			uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[acc], nil)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
			}
			for _, uv := range uvs {
				ms.TexCoord = append(ms.TexCoord, math32.Vec2(uv[0], uv[1]))
			}
		} else {
			ms.TexCoord = append(ms.TexCoord, make([]math32.Vector2, len(positions))...)
		}

		jAcc, hasJoints := prim.Attributes["JOINTS_0"]
		wAcc, hasWeights := prim.Attributes["WEIGHTS_0"]
		if hasJoints && hasWeights {
			joints, err := modeler.ReadJoints(doc, doc.Accessors[jAcc], nil)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
			}
			weights, err := modeler.ReadWeights(doc, doc.Accessors[wAcc], nil)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
			}
			ms.Joints = append(ms.Joints, joints...)
			ms.Weights = append(ms.Weights, weights...)
		}

		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", name, pi, err)
		}
		start := uint32(len(ms.Index))
		for _, ix := range indices {
			ms.Index = append(ms.Index, base+ix)
		}

		matName := ""
		if prim.Material != nil && int(*prim.Material) < len(materials) {
			matName = materials[*prim.Material].AsMaterialBase().Name
		}
		ms.Submeshes = append(ms.Submeshes, Submesh{Start: start, Count: uint32(len(indices)), Material: matName})
	}

	// a mesh mixing skinned and unskinned primitives cannot be
	// represented; drop the partial skin data
	if len(ms.Joints) > 0 && len(ms.Joints) != len(ms.Position) {
		ms.Joints = nil
		ms.Weights = nil
	}

	if needNormals {
		ms.ComputeNormals()
	}
	ms.UpdateBounds()
	if err := ms.Validate(); err != nil {
		return nil, err
	}
	return ms, nil
}

func decodeSkin(proto string, i int, doc *gltf.Document, gs *gltf.Skin) (*Skeleton, error) {
	skName := gs.Name
	if skName == "" {
		skName = fmt.Sprintf("skin%d", i)
	}
	sk := &Skeleton{Name: proto + "/" + skName}

	var ibms [][4][4]float32
	if gs.InverseBindMatrices != nil {
		raw, err := modeler.ReadAccessor(doc, doc.Accessors[*gs.InverseBindMatrices], nil)
		if err != nil {
			return nil, fmt.Errorf("skin %q: %w", skName, err)
		}
		var ok bool
		ibms, ok = raw.([][4][4]float32)
		if !ok {
			return nil, fmt.Errorf("skin %q: unsupported inverse bind matrix format", skName)
		}
	}

	// node index -> joint index, for resolving parents within the rig
	jointOf := make(map[uint32]int32, len(gs.Joints))
	for ji, ni := range gs.Joints {
		jointOf[ni] = int32(ji)
	}
	parentOf := make(map[uint32]uint32)
	for ni, gn := range doc.Nodes {
		for _, ci := range gn.Children {
			parentOf[ci] = uint32(ni)
		}
	}

	for ji, ni := range gs.Joints {
		gn := doc.Nodes[ni]
		jt := Joint{Name: gn.Name, Parent: -1}
		if pi, ok := parentOf[ni]; ok {
			if pj, ok := jointOf[pi]; ok {
				jt.Parent = pj
			}
		}
		if ji < len(ibms) {
			jt.InverseBind = matFromColumns(ibms[ji])
		} else {
			jt.InverseBind.SetIdentity()
		}
		jt.Rest = nodeLocal(gn)
		sk.Joints = append(sk.Joints, jt)
	}
	return sk, nil
}

func decodeNodes(pt *Prototype, doc *gltf.Document) {
	parentOf := make(map[int]int32)
	for ni, gn := range doc.Nodes {
		for _, ci := range gn.Children {
			parentOf[int(ci)] = int32(ni)
		}
	}

	for ni, gn := range doc.Nodes {
		pn := PrototypeNode{Name: gn.Name, Parent: -1, Mesh: -1, Skeleton: -1}
		if p, ok := parentOf[ni]; ok {
			pn.Parent = p
		}
		local := nodeLocal(gn)
		pn.Translation, pn.Rotation, pn.Scale = local.Decompose()
		if gn.Mesh != nil && int(*gn.Mesh) < len(pt.Meshes) {
			pn.Mesh = int32(*gn.Mesh)
		}
		if gn.Skin != nil && int(*gn.Skin) < len(pt.Skeletons) {
			pn.Skeleton = int32(*gn.Skin)
			if pn.Mesh >= 0 {
				pt.Meshes[pn.Mesh].Skeleton = pt.Skeletons[pn.Skeleton].Name
			}
		}
		pt.Nodes = append(pt.Nodes, pn)
	}
}

// nodeLocal returns the local transform of a glTF node. The decoder
// fills in the format defaults, so the TRS fields are always usable;
// an explicit matrix wins when it is not identity.
func nodeLocal(gn *gltf.Node) math32.Matrix4 {
	var ident [16]float32
	ident[0], ident[5], ident[10], ident[15] = 1, 1, 1, 1
	var m math32.Matrix4
	if gn.Matrix != ident && gn.Matrix != ([16]float32{}) {
		for i, v := range gn.Matrix {
			m[i] = v
		}
		return m
	}
	pos := math32.Vec3(gn.Translation[0], gn.Translation[1], gn.Translation[2])
	rot := math32.Quat{X: gn.Rotation[0], Y: gn.Rotation[1], Z: gn.Rotation[2], W: gn.Rotation[3]}
	if rot == (math32.Quat{}) {
		rot.SetIdentity()
	}
	scale := math32.Vec3(gn.Scale[0], gn.Scale[1], gn.Scale[2])
	if scale == (math32.Vector3{}) {
		scale = math32.Vec3(1, 1, 1)
	}
	m.SetTransform(pos, rot, scale)
	return m
}

// matFromColumns converts a glTF column-major matrix to a Matrix4.
func matFromColumns(cols [4][4]float32) math32.Matrix4 {
	var m math32.Matrix4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			m[c*4+r] = cols[c][r]
		}
	}
	return m
}
