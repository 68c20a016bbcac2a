// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"errors"
	"testing"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSolver is a scripted [physics.Solver] that records what the
// bridge does to it.
type recordingSolver struct {
	next      physics.Body
	poses     map[physics.Body]physics.Pose
	modes     map[physics.Body]physics.BodyMode
	shapes    map[physics.Body]physics.Shape
	pushed    map[physics.Body]physics.Pose
	stepped   float32
	rayHits   []physics.RayHit
	createErr error
	closed    bool
}

func newRecordingSolver() *recordingSolver {
	return &recordingSolver{
		poses:  make(map[physics.Body]physics.Pose),
		modes:  make(map[physics.Body]physics.BodyMode),
		shapes: make(map[physics.Body]physics.Shape),
		pushed: make(map[physics.Body]physics.Pose),
	}
}

func (rs *recordingSolver) CreateBody(mode physics.BodyMode, props physics.BodyProperties, shape physics.Shape, initial physics.Pose) (physics.Body, error) {
	if rs.createErr != nil {
		return physics.NoBody, rs.createErr
	}
	rs.next++
	rs.poses[rs.next] = initial
	rs.modes[rs.next] = mode
	rs.shapes[rs.next] = shape
	return rs.next, nil
}

func (rs *recordingSolver) DestroyBody(body physics.Body) {
	delete(rs.poses, body)
	delete(rs.modes, body)
	delete(rs.shapes, body)
}

func (rs *recordingSolver) BodyPose(body physics.Body) (physics.Pose, bool) {
	p, ok := rs.poses[body]
	return p, ok
}

func (rs *recordingSolver) SetBodyPose(body physics.Body, pose physics.Pose) {
	if _, ok := rs.poses[body]; !ok {
		return
	}
	rs.poses[body] = pose
	rs.pushed[body] = pose
}

func (rs *recordingSolver) Step(dt float32) { rs.stepped += dt }

func (rs *recordingSolver) CastRay(from, to math32.Vector3) []physics.RayHit {
	return rs.rayHits
}

func (rs *recordingSolver) Close() { rs.closed = true }

// body returns the solver handle of the single body in the given mode.
func (rs *recordingSolver) body(t *testing.T, mode physics.BodyMode) physics.Body {
	t.Helper()
	for b, m := range rs.modes {
		if m == mode {
			return b
		}
	}
	t.Fatalf("no body in mode %v", mode)
	return physics.NoBody
}

func boxDesc(mode physics.BodyMode) *BodyDesc {
	return &BodyDesc{
		Mode:  mode,
		Props: physics.DefaultBodyProperties(),
		Shape: physics.BoxShape(math32.Vec3(0.5, 0.5, 0.5), math32.Vec3(1, 1, 1)),
	}
}

func TestBridgeAddRemove(t *testing.T) {
	rs := newRecordingSolver()
	br := NewBridge(rs)
	var g Graph

	// a node without a descriptor is a no-op
	plain := g.New("plain", Nil)
	br.AddEntity(&g, plain)
	assert.False(t, br.Registered(plain))

	e := g.New("box", Nil)
	g.Node(e).Body = boxDesc(physics.Dynamic)
	br.AddEntity(&g, e)
	assert.True(t, br.Registered(e))
	assert.Len(t, rs.shapes, 1)

	// re-registration is refused, not duplicated
	br.AddEntity(&g, e)
	assert.Len(t, rs.shapes, 1)

	br.RemoveEntity(e)
	assert.False(t, br.Registered(e))
	assert.Empty(t, rs.shapes)
	br.RemoveEntity(e)
}

func TestBridgeCreateFailure(t *testing.T) {
	rs := newRecordingSolver()
	rs.createErr = errors.New("degenerate shape")
	br := NewBridge(rs)
	var g Graph

	e := g.New("bad", Nil)
	g.Node(e).Body = boxDesc(physics.Dynamic)
	br.AddEntity(&g, e)
	assert.False(t, br.Registered(e))
	assert.Empty(t, rs.shapes)
}

func TestBridgeScaleApplied(t *testing.T) {
	rs := newRecordingSolver()
	br := NewBridge(rs)
	var g Graph

	root := g.New("root", Nil)
	g.Node(root).Transform.Scale = math32.Vec3(2, 2, 2)
	e := g.New("box", root)
	g.Node(e).Transform.Pos = math32.Vec3(0, 1, 0)
	g.Node(e).Body = boxDesc(physics.Static)

	br.AddEntity(&g, e)
	require.True(t, br.Registered(e))

	b := rs.body(t, physics.Static)
	assert.InDelta(t, 2, rs.shapes[b].Scale.X, 1e-5)
	assert.InDelta(t, 2, rs.shapes[b].Scale.Y, 1e-5)

	// the scaled parent carries the child's world position out
	assert.InDelta(t, 2, rs.poses[b].Position.Y, 1e-5)
}

func TestBridgeUpdatePushPull(t *testing.T) {
	rs := newRecordingSolver()
	br := NewBridge(rs)
	var g Graph

	kin := g.New("hand", Nil)
	g.Node(kin).Body = &BodyDesc{
		Mode:  physics.Kinematic,
		Shape: physics.SphereShape(0.1, math32.Vec3(1, 1, 1)),
	}
	br.AddEntity(&g, kin)

	dyn := g.New("block", Nil)
	g.Node(dyn).Transform.Scale = math32.Vec3(2, 2, 2)
	g.Node(dyn).Body = boxDesc(physics.Dynamic)
	br.AddEntity(&g, dyn)

	// the graph drives the kinematic node
	g.Node(kin).Transform.Pos = math32.Vec3(1, 2, 3)

	// script the dynamic body settling elsewhere
	settled := physics.IdentityPose()
	settled.Position = math32.Vec3(0, 5, 0)
	rs.poses[rs.body(t, physics.Dynamic)] = settled

	br.Update(&g, 1.0/90)
	assert.InDelta(t, 1.0/90, rs.stepped, 1e-6)

	// only the kinematic pose was pushed
	require.Len(t, rs.pushed, 1)
	assert.Equal(t, math32.Vec3(1, 2, 3), rs.pushed[rs.body(t, physics.Kinematic)].Position)

	// the dynamic pose was pulled onto the node, scale preserved
	wm := g.WorldMatrix(dyn)
	pos, _, scale := wm.Decompose()
	assert.InDelta(t, 5, pos.Y, 1e-4)
	assert.InDelta(t, 2, scale.X, 1e-4)

	// the kinematic node was not overwritten by the pull
	assert.Equal(t, math32.Vec3(1, 2, 3), g.Node(kin).Transform.Pos)
}

func TestBridgeStaleEntityCleanup(t *testing.T) {
	rs := newRecordingSolver()
	br := NewBridge(rs)
	var g Graph

	e := g.New("box", Nil)
	g.Node(e).Body = boxDesc(physics.Dynamic)
	br.AddEntity(&g, e)
	require.True(t, br.Registered(e))

	g.Destroy(e)
	br.Update(&g, 1.0/90)
	assert.False(t, br.Registered(e))
	assert.Empty(t, rs.shapes)
}

func TestBridgeHitMapping(t *testing.T) {
	rs := newRecordingSolver()
	br := NewBridge(rs)
	var g Graph

	e := g.New("box", Nil)
	g.Node(e).Body = boxDesc(physics.Static)
	br.AddEntity(&g, e)
	b := rs.body(t, physics.Static)

	// hits on unknown bodies are dropped, known ones map back
	rs.rayHits = []physics.RayHit{
		{Body: 999, Position: math32.Vec3(9, 9, 9), Distance: 1},
		{Body: b, Position: math32.Vec3(0, 1, 0), Distance: 2},
	}
	hits := br.HitTestWithSegment(math32.Vec3(0, 3, 0), math32.Vec3(0, -3, 0))
	require.Len(t, hits, 1)
	assert.Equal(t, e, hits[0].Entity)
	assert.Equal(t, math32.Vec3(0, 1, 0), hits[0].Position)
	assert.Equal(t, float32(2), hits[0].Distance)
}

func TestBridgeClose(t *testing.T) {
	rs := newRecordingSolver()
	br := NewBridge(rs)
	var g Graph

	a := g.New("a", Nil)
	g.Node(a).Body = boxDesc(physics.Static)
	br.AddEntity(&g, a)
	b := g.New("b", Nil)
	g.Node(b).Body = boxDesc(physics.Dynamic)
	br.AddEntity(&g, b)

	br.Close()
	assert.True(t, rs.closed)
	assert.Empty(t, rs.shapes)
	assert.False(t, br.Registered(a))
	assert.False(t, br.Registered(b))
}
