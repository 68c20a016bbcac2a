// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asset

import "cogentcore.org/core/math32"

// BoxMesh returns a box mesh centered on the origin with the given
// full size along each dimension, one quad per face.
func BoxMesh(name string, width, height, depth float32) *Mesh {
	ms := &Mesh{Name: name}
	hx, hy, hz := width/2, height/2, depth/2
	setPlane(ms, math32.X, math32.Y, -1, width, height, -hx, -hy, -hz) // back
	setPlane(ms, math32.X, math32.Y, 1, width, height, -hx, -hy, hz)   // front
	setPlane(ms, math32.Z, math32.Y, -1, depth, height, -hz, -hy, -hx) // left
	setPlane(ms, math32.Z, math32.Y, 1, depth, height, -hz, -hy, hx)   // right
	setPlane(ms, math32.X, math32.Z, -1, width, depth, -hx, -hz, -hy)  // bottom
	setPlane(ms, math32.X, math32.Z, 1, width, depth, -hx, -hz, hy)    // top
	ms.UpdateBounds()
	return ms
}

// PlaneMesh returns a single quad in the XZ plane centered on the
// origin, facing +Y.
func PlaneMesh(name string, width, depth float32) *Mesh {
	ms := &Mesh{Name: name}
	setPlane(ms, math32.X, math32.Z, 1, width, depth, -width/2, -depth/2, 0)
	ms.UpdateBounds()
	return ms
}

// SphereMesh returns a UV sphere with the given radius and segment
// counts. widthSegs is clamped to at least 3 and heightSegs to at
// least 2.
func SphereMesh(name string, radius float32, widthSegs, heightSegs int) *Mesh {
	widthSegs = max(widthSegs, 3)
	heightSegs = max(heightSegs, 2)

	ms := &Mesh{Name: name}
	for y := 0; y <= heightSegs; y++ {
		v := float32(y) / float32(heightSegs)
		theta := v * math32.Pi
		for x := 0; x <= widthSegs; x++ {
			u := float32(x) / float32(widthSegs)
			phi := u * 2 * math32.Pi
			n := math32.Vec3(
				-math32.Cos(phi)*math32.Sin(theta),
				math32.Cos(theta),
				math32.Sin(phi)*math32.Sin(theta),
			)
			ms.Position = append(ms.Position, n.MulScalar(radius))
			ms.Normal = append(ms.Normal, n)
			ms.TexCoord = append(ms.TexCoord, math32.Vec2(u, v))
		}
	}
	stride := widthSegs + 1
	for y := 0; y < heightSegs; y++ {
		for x := 0; x < widthSegs; x++ {
			a := uint32(y*stride + x)
			b := a + uint32(stride)
			if y != 0 {
				ms.Index = append(ms.Index, a, b, a+1)
			}
			if y != heightSegs-1 {
				ms.Index = append(ms.Index, a+1, b, b+1)
			}
		}
	}
	ms.UpdateBounds()
	return ms
}

// TriangleSoup returns a mesh from raw triangle data, computing
// normals from the faces. Texture coordinates are zero; the result
// is intended for collision and occlusion geometry, not texturing.
func TriangleSoup(name string, positions []math32.Vector3, indices []uint32) *Mesh {
	ms := &Mesh{Name: name}
	ms.Position = make([]math32.Vector3, len(positions))
	copy(ms.Position, positions)
	ms.Index = make([]uint32, len(indices))
	copy(ms.Index, indices)
	ms.TexCoord = make([]math32.Vector2, len(positions))
	ms.ComputeNormals()
	ms.UpdateBounds()
	return ms
}

// setPlane appends one quad to the mesh in the plane spanned by the
// waxis and haxis dimensions, at offset zoff along the remaining
// dimension, with the normal pointing along ndir on that dimension.
// Winding is chosen so the front face matches the normal.
func setPlane(ms *Mesh, waxis, haxis math32.Dims, ndir, width, height, woff, hoff, zoff float32) {
	daxis := math32.Dims(3 - int(waxis) - int(haxis))

	var norm math32.Vector3
	norm.SetDim(daxis, ndir)

	start := uint32(len(ms.Position))
	for h := 0; h <= 1; h++ {
		for w := 0; w <= 1; w++ {
			var pt math32.Vector3
			pt.SetDim(waxis, woff+float32(w)*width)
			pt.SetDim(haxis, hoff+float32(h)*height)
			pt.SetDim(daxis, zoff)
			ms.Position = append(ms.Position, pt)
			ms.Normal = append(ms.Normal, norm)
			ms.TexCoord = append(ms.TexCoord, math32.Vec2(float32(w), 1-float32(h)))
		}
	}

	// with both spans increasing, the (0,1,2) triangle faces along
	// waxis cross haxis: +ndir only when the axes are in cyclic order
	facing := float32(-1)
	if haxis == (waxis+1)%3 {
		facing = 1
	}
	if facing == ndir {
		ms.Index = append(ms.Index, start, start+1, start+2, start+1, start+3, start+2)
	} else {
		ms.Index = append(ms.Index, start, start+2, start+1, start+1, start+2, start+3)
	}
}
