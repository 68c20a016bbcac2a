// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"log/slog"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/physics"
)

// EntityHit is one hit from [Bridge.HitTestWithSegment], mapping a
// solver hit back to the entity whose body was struck. Hits are
// unordered; callers that need the nearest hit sort by Distance.
type EntityHit struct {
	Entity   Entity
	Position math32.Vector3
	Distance float32
}

// Bridge connects graph nodes to a physics solver. It registers
// bodies from node descriptors, pushes driven poses into the solver,
// steps it, and pulls simulated poses back onto the nodes.
//
// The bridge lives on the update thread with everything else in this
// package and is not safe for concurrent use.
type Bridge struct {
	solver   physics.Solver
	bodies   map[Entity]physics.Body
	modes    map[Entity]physics.BodyMode
	entities map[physics.Body]Entity
}

// NewBridge returns a bridge over the given solver.
func NewBridge(solver physics.Solver) *Bridge {
	return &Bridge{
		solver:   solver,
		bodies:   make(map[Entity]physics.Body),
		modes:    make(map[Entity]physics.BodyMode),
		entities: make(map[physics.Body]Entity),
	}
}

// Registered reports whether the entity currently has a solver body.
func (br *Bridge) Registered(e Entity) bool {
	_, ok := br.bodies[e]
	return ok
}

// AddEntity registers the entity's body descriptor with the solver at
// the node's current world pose, with the world scale applied to the
// shape. A node without a descriptor is a no-op, as is a node that is
// already registered. A solver rejection (degenerate shape) is logged
// and the entity proceeds unregistered.
func (br *Bridge) AddEntity(g *Graph, e Entity) {
	nd := g.Node(e)
	if nd == nil || nd.Body == nil {
		return
	}
	if _, ok := br.bodies[e]; ok {
		slog.Error("scene: entity already has a body", "entity", nd.Name)
		return
	}

	wm := g.WorldMatrix(e)
	pos, rot, scale := wm.Decompose()
	shape := nd.Body.Shape
	shape.Scale = shape.Scale.Mul(scale)

	body, err := br.solver.CreateBody(nd.Body.Mode, nd.Body.Props, shape, physics.Pose{Position: pos, Rotation: rot})
	if err != nil {
		slog.Error("scene: create body", "entity", nd.Name, "err", err)
		return
	}
	br.bodies[e] = body
	br.modes[e] = nd.Body.Mode
	br.entities[body] = e
}

// RemoveEntity destroys the entity's solver body, if any.
func (br *Bridge) RemoveEntity(e Entity) {
	body, ok := br.bodies[e]
	if !ok {
		return
	}
	br.solver.DestroyBody(body)
	delete(br.bodies, e)
	delete(br.modes, e)
	delete(br.entities, body)
}

// Update advances simulation by dt: driven (static and kinematic)
// body poses are pushed from the graph into the solver, the solver
// steps, and simulated (dynamic) poses are pulled back onto the
// nodes. Pulled poses preserve each node's scale, since bodies carry
// none. Entities destroyed since the last tick are unregistered.
func (br *Bridge) Update(g *Graph, dt float32) {
	for e, body := range br.bodies {
		if !g.Valid(e) {
			br.RemoveEntity(e)
			continue
		}
		if br.modes[e] == physics.Dynamic {
			continue
		}
		wm := g.WorldMatrix(e)
		pos, rot, _ := wm.Decompose()
		br.solver.SetBodyPose(body, physics.Pose{Position: pos, Rotation: rot})
	}

	br.solver.Step(dt)

	for e, body := range br.bodies {
		if br.modes[e] != physics.Dynamic {
			continue
		}
		pose, ok := br.solver.BodyPose(body)
		if !ok {
			continue
		}
		cur := g.WorldMatrix(e)
		_, _, scale := cur.Decompose()
		var wm math32.Matrix4
		wm.SetTransform(pose.Position, pose.Rotation, scale)
		g.SetWorldMatrix(e, wm)
	}
}

// HitTestWithSegment casts the segment through the solver and maps
// the hits back to entities. The result is unordered.
func (br *Bridge) HitTestWithSegment(from, to math32.Vector3) []EntityHit {
	var hits []EntityHit
	for _, rh := range br.solver.CastRay(from, to) {
		e, ok := br.entities[rh.Body]
		if !ok {
			continue
		}
		hits = append(hits, EntityHit{Entity: e, Position: rh.Position, Distance: rh.Distance})
	}
	return hits
}

// Close unregisters everything and releases the solver.
func (br *Bridge) Close() {
	for e := range br.bodies {
		br.RemoveEntity(e)
	}
	br.solver.Close()
}
