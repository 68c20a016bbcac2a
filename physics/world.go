// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package physics

import (
	"fmt"

	"cogentcore.org/core/math32"
)

// World is the built-in reference [Solver]. It integrates dynamic
// bodies under gravity with semi-implicit Euler, holds kinematic and
// static bodies at their externally set poses, rests falling bodies on
// the static geometry beneath them, and casts rays analytically
// against all shapes. It does not resolve body-body contacts, torque,
// friction, or restitution; those belong to a production solver
// plugged in behind [Solver].
type World struct {
	gravity math32.Vector3
	bodies  map[Body]*rigidBody
	next    Body
}

type rigidBody struct {
	mode     BodyMode
	props    BodyProperties
	shape    Shape
	pose     Pose
	velocity math32.Vector3
}

// NewWorld returns a reference solver with the given gravity vector.
// Returns [ErrNotInitialized] if [Initialize] has not been called.
func NewWorld(gravity math32.Vector3) (*World, error) {
	if err := checkInitialized(); err != nil {
		return nil, err
	}
	return &World{gravity: gravity, bodies: map[Body]*rigidBody{}}, nil
}

var _ Solver = (*World)(nil)

// CreateBody implements [Solver.CreateBody].
func (w *World) CreateBody(mode BodyMode, props BodyProperties, shape Shape, initial Pose) (Body, error) {
	if err := validateShape(shape); err != nil {
		return NoBody, err
	}
	w.next++
	w.bodies[w.next] = &rigidBody{mode: mode, props: props, shape: shape, pose: initial}
	return w.next, nil
}

// DestroyBody implements [Solver.DestroyBody].
func (w *World) DestroyBody(body Body) {
	delete(w.bodies, body)
}

// BodyPose implements [Solver.BodyPose].
func (w *World) BodyPose(body Body) (Pose, bool) {
	rb, ok := w.bodies[body]
	if !ok {
		return Pose{}, false
	}
	return rb.pose, true
}

// SetBodyPose implements [Solver.SetBodyPose].
func (w *World) SetBodyPose(body Body, pose Pose) {
	rb, ok := w.bodies[body]
	if !ok {
		return
	}
	rb.pose = pose
	if rb.mode == Dynamic {
		rb.velocity.SetZero()
	}
}

// Step implements [Solver.Step].
func (w *World) Step(dt float32) {
	if dt <= 0 {
		return
	}
	for _, rb := range w.bodies {
		if rb.mode != Dynamic {
			continue
		}
		if rb.props.GravityEnabled {
			rb.velocity.SetAdd(w.gravity.MulScalar(dt))
		}
		if rb.velocity == (math32.Vector3{}) {
			continue
		}
		rb.pose.Position.SetAdd(rb.velocity.MulScalar(dt))
		w.restOnSupport(rb)
	}
}

// supportMargin is how far below a body's lowest point the rest test
// probes for supporting geometry.
const supportMargin = 0.01

// restOnSupport stops a falling body on the first static or kinematic
// surface directly beneath its center.
func (w *World) restOnSupport(rb *rigidBody) {
	if rb.velocity.Y >= 0 {
		return
	}
	hh := rb.shape.halfHeight()
	from := rb.pose.Position
	to := from
	to.Y -= hh + supportMargin
	best := math32.Inf(-1)
	supported := false
	for _, other := range w.bodies {
		if other == rb || other.mode == Dynamic {
			continue
		}
		pos, _, ok := castBody(other, from, to)
		if !ok {
			continue
		}
		if pos.Y > best {
			best = pos.Y
			supported = true
		}
	}
	if supported {
		rb.pose.Position.Y = best + hh
		rb.velocity.Y = 0
	}
}

// CastRay implements [Solver.CastRay]. Hits are unordered.
func (w *World) CastRay(from, to math32.Vector3) []RayHit {
	seglen := to.Sub(from).Length()
	if seglen == 0 {
		return nil
	}
	var hits []RayHit
	for id, rb := range w.bodies {
		pos, t, ok := castBody(rb, from, to)
		if !ok {
			continue
		}
		hits = append(hits, RayHit{Body: id, Position: pos, Distance: t * seglen})
	}
	return hits
}

// Close implements [Solver.Close].
func (w *World) Close() {
	w.bodies = nil
}

// halfHeight is the vertical distance from the shape origin to its
// lowest point, with scale applied.
func (sh Shape) halfHeight() float32 {
	switch sh.Kind {
	case Box:
		return sh.HalfExtent.Y * sh.Scale.Y
	case Sphere:
		return sh.Radius * sh.Scale.Y
	}
	low := float32(0)
	for _, v := range sh.Vertices {
		if v.Y < low {
			low = v.Y
		}
	}
	return -low * sh.Scale.Y
}

const degenerateEps = 1e-6

func validateShape(sh Shape) error {
	if sh.Scale.X <= 0 || sh.Scale.Y <= 0 || sh.Scale.Z <= 0 {
		return fmt.Errorf("physics: non-positive shape scale %v", sh.Scale)
	}
	switch sh.Kind {
	case Box:
		if sh.HalfExtent.X <= 0 || sh.HalfExtent.Y <= 0 || sh.HalfExtent.Z <= 0 {
			return fmt.Errorf("physics: non-positive box half extent %v", sh.HalfExtent)
		}
	case Sphere:
		if sh.Radius <= 0 {
			return fmt.Errorf("physics: non-positive sphere radius %g", sh.Radius)
		}
	case ConvexHull:
		if err := validateHull(sh.Vertices); err != nil {
			return err
		}
		if err := validateIndices(sh.Vertices, sh.Indices); err != nil {
			return err
		}
	case ConcaveMesh:
		if len(sh.Vertices) < 3 {
			return fmt.Errorf("physics: concave mesh needs at least 3 vertices, got %d", len(sh.Vertices))
		}
		if err := validateIndices(sh.Vertices, sh.Indices); err != nil {
			return err
		}
	}
	return nil
}

// validateHull rejects vertex clouds whose hull would be degenerate:
// fewer than four points, or all points collinear or coplanar.
func validateHull(verts []math32.Vector3) error {
	if len(verts) < 4 {
		return fmt.Errorf("physics: degenerate convex hull: %d vertices", len(verts))
	}
	v0 := verts[0]
	var e1 math32.Vector3
	found := false
	for _, v := range verts[1:] {
		e1 = v.Sub(v0)
		if e1.Length() > degenerateEps {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("physics: degenerate convex hull: all vertices coincident")
	}
	var n math32.Vector3
	found = false
	for _, v := range verts[1:] {
		n = e1.Cross(v.Sub(v0))
		if n.Length() > degenerateEps {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("physics: degenerate convex hull: all vertices collinear")
	}
	n = n.Normal()
	for _, v := range verts[1:] {
		if math32.Abs(n.Dot(v.Sub(v0))) > degenerateEps {
			return nil
		}
	}
	return fmt.Errorf("physics: degenerate convex hull: all vertices coplanar")
}

func validateIndices(verts []math32.Vector3, idxs []uint32) error {
	if len(idxs) == 0 || len(idxs)%3 != 0 {
		return fmt.Errorf("physics: triangle index count %d is not a positive multiple of 3", len(idxs))
	}
	for _, ix := range idxs {
		if int(ix) >= len(verts) {
			return fmt.Errorf("physics: triangle index %d out of range for %d vertices", ix, len(verts))
		}
	}
	return nil
}
