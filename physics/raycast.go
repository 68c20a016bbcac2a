// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package physics

import (
	"cogentcore.org/core/math32"
)

// castBody intersects the world-space segment [from, to] against one
// body's shape. Returns the world-space hit position, the segment
// parameter t in [0, 1], and whether there was a hit. Of multiple
// intersections with the shape, the nearest is returned.
func castBody(rb *rigidBody, from, to math32.Vector3) (math32.Vector3, float32, bool) {
	inv := rb.pose.Rotation.Inverse()
	lfrom := from.Sub(rb.pose.Position).MulQuat(inv)
	lto := to.Sub(rb.pose.Position).MulQuat(inv)

	// Dividing the segment by the shape scale moves the test into the
	// unscaled shape frame without changing the parameter t.
	o := lfrom.Div(rb.shape.Scale)
	d := lto.Div(rb.shape.Scale).Sub(o)

	var t float32
	var ok bool
	switch rb.shape.Kind {
	case Box:
		t, ok = segBox(o, d, rb.shape.HalfExtent)
	case Sphere:
		t, ok = segSphere(o, d, rb.shape.Radius)
	case ConvexHull, ConcaveMesh:
		t, ok = segMesh(o, d, rb.shape.Vertices, rb.shape.Indices)
	}
	if !ok {
		return math32.Vector3{}, 0, false
	}
	pos := from.Add(to.Sub(from).MulScalar(t))
	return pos, t, true
}

// segBox is the slab test against an axis-aligned box with the given
// half extents. Returns the entry parameter in [0, 1].
func segBox(o, d, he math32.Vector3) (float32, bool) {
	tmin := float32(0)
	tmax := float32(1)
	for dim := 0; dim < 3; dim++ {
		od := o.Dim(math32.Dims(dim))
		dd := d.Dim(math32.Dims(dim))
		hd := he.Dim(math32.Dims(dim))
		if math32.Abs(dd) < degenerateEps {
			if od < -hd || od > hd {
				return 0, false
			}
			continue
		}
		t1 := (-hd - od) / dd
		t2 := (hd - od) / dd
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// segSphere intersects against a sphere of the given radius at the
// origin. Returns the nearest parameter in [0, 1].
func segSphere(o, d math32.Vector3, r float32) (float32, bool) {
	a := d.Dot(d)
	if a < degenerateEps {
		return 0, false
	}
	b := 2 * o.Dot(d)
	c := o.Dot(o) - r*r
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math32.Sqrt(disc)
	t := (-b - sq) / (2 * a)
	if t < 0 {
		t = (-b + sq) / (2 * a)
	}
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// segMesh runs Moller-Trumbore against every triangle, keeping the
// nearest hit. Both triangle faces count as hits.
func segMesh(o, d math32.Vector3, verts []math32.Vector3, idxs []uint32) (float32, bool) {
	best := float32(2)
	for i := 0; i+2 < len(idxs); i += 3 {
		a := verts[idxs[i]]
		b := verts[idxs[i+1]]
		c := verts[idxs[i+2]]
		t, ok := segTriangle(o, d, a, b, c)
		if ok && t < best {
			best = t
		}
	}
	if best > 1 {
		return 0, false
	}
	return best, true
}

// segTriangle is Moller-Trumbore for one triangle, without backface
// culling. Returns the parameter in [0, 1].
func segTriangle(o, d, a, b, c math32.Vector3) (float32, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := d.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < degenerateEps {
		return 0, false
	}
	invDet := 1 / det
	tv := o.Sub(a)
	u := tv.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, false
	}
	q := tv.Cross(e1)
	v := d.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * invDet
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}
