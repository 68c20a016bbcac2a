// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package physics defines the narrow contract between the scene's
// physics bridge and a rigid-body solver: shape descriptors, body
// modes and properties, poses, and the [Solver] interface. It also
// provides [World], a built-in reference solver sufficient for
// placement hit testing and kinematic pose mirroring; production use
// plugs a full engine in behind [Solver].
package physics

import (
	"cogentcore.org/core/math32"
)

// ShapeKind selects the variant of a [Shape].
type ShapeKind int32

const (
	// Box is an axis-aligned box in body-local space, given by half extents.
	Box ShapeKind = iota

	// Sphere is a sphere around the body-local origin.
	Sphere

	// ConvexHull is the convex hull of a vertex cloud. The triangle
	// indices of the source mesh ride along so the reference solver can
	// cast rays against it without hull construction.
	ConvexHull

	// ConcaveMesh is an arbitrary triangle mesh, for static collision
	// geometry such as sensed environment surfaces.
	ConcaveMesh
)

func (sk ShapeKind) String() string {
	switch sk {
	case Box:
		return "Box"
	case Sphere:
		return "Sphere"
	case ConvexHull:
		return "ConvexHull"
	}
	return "ConcaveMesh"
}

// Shape is a tagged-union collision shape descriptor. Only the fields
// for the active [ShapeKind] are meaningful. Scale is applied to the
// shape at body creation time; bodies themselves carry position and
// orientation only.
type Shape struct {
	Kind ShapeKind

	// HalfExtent is the box half size on each axis (Box only).
	HalfExtent math32.Vector3

	// Radius is the sphere radius (Sphere only).
	Radius float32

	// Vertices and Indices are the source triangle mesh
	// (ConvexHull and ConcaveMesh only).
	Vertices []math32.Vector3
	Indices  []uint32

	// Scale is the body-local scale baked into the shape.
	Scale math32.Vector3
}

// BoxShape returns a box [Shape] with the given half extents and scale.
func BoxShape(halfExtent, scale math32.Vector3) Shape {
	return Shape{Kind: Box, HalfExtent: halfExtent, Scale: scale}
}

// SphereShape returns a sphere [Shape] with the given radius and scale.
func SphereShape(radius float32, scale math32.Vector3) Shape {
	return Shape{Kind: Sphere, Radius: radius, Scale: scale}
}

// ConvexHullShape returns a convex hull [Shape] over the given vertex
// cloud. Indices are the source mesh triangles, used for ray casting.
func ConvexHullShape(vertices []math32.Vector3, indices []uint32, scale math32.Vector3) Shape {
	return Shape{Kind: ConvexHull, Vertices: vertices, Indices: indices, Scale: scale}
}

// ConcaveMeshShape returns a concave triangle mesh [Shape].
func ConcaveMeshShape(vertices []math32.Vector3, indices []uint32, scale math32.Vector3) Shape {
	return Shape{Kind: ConcaveMesh, Vertices: vertices, Indices: indices, Scale: scale}
}

// BodyMode is the simulation motion mode of a body.
type BodyMode int32

const (
	// Static bodies never move and collide with everything.
	Static BodyMode = iota

	// Dynamic bodies are fully simulated; the solver owns their pose.
	Dynamic

	// Kinematic bodies are driven externally each tick and push
	// dynamic bodies out of the way without being pushed back.
	Kinematic
)

func (bm BodyMode) String() string {
	switch bm {
	case Static:
		return "Static"
	case Dynamic:
		return "Dynamic"
	}
	return "Kinematic"
}

// BodyProperties are the mass and surface properties of a body.
type BodyProperties struct {
	// Mass in kilograms. Zero means the solver computes an inertial
	// mass from the shape volume.
	Mass float32

	// Friction coefficient, nominally in [0, 1].
	Friction float32

	// Restitution (bounciness), nominally in [0, 1].
	Restitution float32

	// GravityEnabled reports whether gravity acts on the body.
	// Only meaningful for [Dynamic] bodies.
	GravityEnabled bool
}

// DefaultBodyProperties returns the properties used when an entity's
// descriptor does not override them.
func DefaultBodyProperties() BodyProperties {
	return BodyProperties{Friction: 0.5, GravityEnabled: true}
}

// Pose is a rigid transform: position and orientation only.
// Simulated bodies never carry scale; scale is baked into shapes.
type Pose struct {
	Position math32.Vector3
	Rotation math32.Quat
}

// IdentityPose returns the pose at the origin with no rotation.
func IdentityPose() Pose {
	var q math32.Quat
	q.SetIdentity()
	return Pose{Rotation: q}
}
