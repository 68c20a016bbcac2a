// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a single red triangle with no normals or uvs, positions and
// indices in an embedded data URI buffer
const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"name": "tri", "mesh": 0, "translation": [0, 1, 0]}],
  "meshes": [{"name": "triangle", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{"name": "flat", "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1], "metallicFactor": 0, "roughnessFactor": 0.5}, "doubleSided": true}],
  "buffers": [{"uri": "data:application/octet-stream;base64,%s", "byteLength": %d}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ]
}`

func writeTriangleModel(t *testing.T, dir string) string {
	t.Helper()
	bin := new(bytes.Buffer)
	for _, v := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		require.NoError(t, binary.Write(bin, binary.LittleEndian, v))
	}
	for _, ix := range []uint16{0, 1, 2} {
		require.NoError(t, binary.Write(bin, binary.LittleEndian, ix))
	}
	b64 := base64.StdEncoding.EncodeToString(bin.Bytes())
	doc := fmt.Sprintf(triangleGLTF, b64, bin.Len())

	path := filepath.Join(dir, "tri.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestOpenModel(t *testing.T) {
	pt, err := OpenModel(writeTriangleModel(t, t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "tri", pt.Name)

	require.Len(t, pt.Meshes, 1)
	ms := pt.Meshes[0]
	assert.Equal(t, "tri/triangle", ms.Name)
	require.Equal(t, 3, ms.NumVertex())
	assert.Equal(t, math32.Vec3(1, 0, 0), ms.Position[1])
	assert.Equal(t, []uint32{0, 1, 2}, ms.Index)
	assert.False(t, ms.Skinned())
	assert.Equal(t, float32(1), ms.Bounds.Max.X)

	// normals are generated when the file carries none
	require.Len(t, ms.Normal, 3)
	assert.InDelta(t, 1, ms.Normal[0].Z, 1e-6)

	require.Len(t, ms.Submeshes, 1)
	assert.Equal(t, Submesh{Start: 0, Count: 3, Material: "tri/flat"}, ms.Submeshes[0])

	require.Len(t, pt.Materials, 1)
	mt, ok := pt.Materials[0].(*PBRMaterial)
	require.True(t, ok)
	assert.Equal(t, "tri/flat", mt.Name)
	assert.Equal(t, math32.Vec4(1, 0, 0, 1), mt.BaseColorFactor)
	assert.Equal(t, float32(0), mt.Metallic)
	assert.InDelta(t, 0.5, mt.Roughness, 1e-6)
	assert.False(t, mt.CullBack) // doubleSided

	require.Len(t, pt.Nodes, 1)
	nd := pt.Nodes[0]
	assert.Equal(t, "tri", nd.Name)
	assert.Equal(t, int32(-1), nd.Parent)
	assert.Equal(t, math32.Vec3(0, 1, 0), nd.Translation)
	assert.InDelta(t, 1, nd.Rotation.W, 1e-6)
	assert.Equal(t, math32.Vec3(1, 1, 1), nd.Scale)
	assert.Equal(t, int32(0), nd.Mesh)
	assert.Equal(t, int32(-1), nd.Skeleton)

	assert.Same(t, ms, pt.MeshByName("tri/triangle"))
	assert.Nil(t, pt.MeshByName("missing"))
}

func TestOpenModelMissing(t *testing.T) {
	_, err := OpenModel(filepath.Join(t.TempDir(), "absent.glb"))
	assert.Error(t, err)
}
