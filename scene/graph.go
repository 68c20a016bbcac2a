// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"cogentcore.org/spatial/physics"
)

// Entity is a handle to a node in a [Graph]. The zero value is [Nil],
// which never refers to a live node. Handles to destroyed nodes go
// stale: every operation on a stale handle is inert, and lookups
// report not-found.
type Entity struct {
	index int32
	gen   uint32
}

// Nil is the invalid entity handle.
var Nil = Entity{}

// IsNil reports whether the handle is the zero handle.
func (e Entity) IsNil() bool {
	return e == Nil
}

func (e Entity) String() string {
	if e.IsNil() {
		return "Entity(nil)"
	}
	return fmt.Sprintf("Entity(%d.%d)", e.index, e.gen)
}

// BodyDesc describes the physical presence of a node: the collision
// shape and motion mode it registers with the physics bridge. The
// descriptor is plain scene data; registration with a solver is a
// separate step (see [Bridge.AddEntity]) and is never copied by clone.
type BodyDesc struct {
	Mode  physics.BodyMode
	Props physics.BodyProperties

	// Shape is the unscaled collision shape. The bridge applies the
	// node's world scale when the body is registered.
	Shape physics.Shape
}

// Node is the data stored in one graph slot. Pointers returned by
// [Graph.Node] are valid only until the next call that adds or
// destroys nodes.
type Node struct {
	// Name identifies the node for lookups; names need not be unique.
	Name string

	// Transform is the local transform relative to the parent.
	Transform Transform

	// Mesh is the renderable geometry, nil for grouping nodes.
	// Meshes are shared assets and are never deep-copied.
	Mesh *asset.Mesh `copier:"-"`

	// Materials are the resolved materials, parallel to the mesh's
	// submeshes. Materials are shared assets.
	Materials []asset.Material `copier:"-"`

	// Skinner drives the mesh's skeleton; nil for rigid geometry.
	Skinner *asset.Skinner `copier:"-"`

	// Body is the physics descriptor, nil for non-physical nodes.
	Body *BodyDesc `copier:"-"`

	// Visible gates rendering of this node and its whole subtree.
	Visible bool

	// Overrides are per-entity material constant overrides, keyed by
	// constant name. They let clones tint or fade without touching
	// the shared material.
	Overrides map[string]float32

	parent   Entity
	children []Entity
	gen      uint32
	live     bool
}

// Graph is a generational arena of scene nodes. Nodes refer to each
// other only through [Entity] handles, so there are no pointer cycles
// and stale references are safe. A node always has exactly one parent
// or none; parentless nodes are roots.
//
// Graph is not safe for concurrent use; all access happens on the
// update thread.
type Graph struct {
	slots []Node
	free  []int32
}

// New allocates a node with the given name under the given parent.
// Pass [Nil] to create a root. The node starts visible with an
// identity transform.
func (g *Graph) New(name string, parent Entity) Entity {
	var idx int32
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		g.slots = append(g.slots, Node{})
		idx = int32(len(g.slots) - 1)
	}
	nd := &g.slots[idx]
	gen := nd.gen + 1
	*nd = Node{Name: name, Visible: true, gen: gen, live: true}
	nd.Transform.Defaults()

	e := Entity{index: idx, gen: gen}
	if g.Valid(parent) {
		nd.parent = parent
		pn := &g.slots[parent.index]
		pn.children = append(pn.children, e)
	}
	return e
}

// Valid reports whether the handle refers to a live node.
func (g *Graph) Valid(e Entity) bool {
	return !e.IsNil() && int(e.index) < len(g.slots) &&
		g.slots[e.index].live && g.slots[e.index].gen == e.gen
}

// Node returns the node data for the handle, or nil if the handle is
// stale. The pointer is valid only until the next call that adds or
// destroys nodes.
func (g *Graph) Node(e Entity) *Node {
	if !g.Valid(e) {
		return nil
	}
	return &g.slots[e.index]
}

// Parent returns the parent handle, or [Nil] for roots and stale
// handles.
func (g *Graph) Parent(e Entity) Entity {
	if nd := g.Node(e); nd != nil {
		return nd.parent
	}
	return Nil
}

// Children returns the node's ordered child handles. The slice is
// owned by the graph; callers must not modify it.
func (g *Graph) Children(e Entity) []Entity {
	if nd := g.Node(e); nd != nil {
		return nd.children
	}
	return nil
}

// NumLive returns the number of live nodes.
func (g *Graph) NumLive() int {
	n := 0
	for i := range g.slots {
		if g.slots[i].live {
			n++
		}
	}
	return n
}

// Roots returns all parentless live nodes in slot order.
func (g *Graph) Roots() []Entity {
	var roots []Entity
	for i := range g.slots {
		if g.slots[i].live && g.slots[i].parent.IsNil() {
			roots = append(roots, Entity{index: int32(i), gen: g.slots[i].gen})
		}
	}
	return roots
}

// AddChild moves child under parent, detaching it from any current
// parent first, so the child always has exactly one parent. Adding a
// node under itself or under one of its own descendants is an error
// and leaves the graph unchanged.
func (g *Graph) AddChild(parent, child Entity) error {
	if !g.Valid(parent) || !g.Valid(child) {
		return fmt.Errorf("scene: AddChild with stale handle %v <- %v", parent, child)
	}
	if parent == child {
		return fmt.Errorf("scene: cannot parent %v to itself", child)
	}
	for p := parent; !p.IsNil(); p = g.slots[p.index].parent {
		if p == child {
			return fmt.Errorf("scene: cannot parent %v under its descendant %v", child, parent)
		}
	}
	g.RemoveFromParent(child)
	g.slots[child.index].parent = parent
	pn := &g.slots[parent.index]
	pn.children = append(pn.children, child)
	return nil
}

// RemoveFromParent detaches the node from its parent, making it a
// root. A root or stale handle is a no-op.
func (g *Graph) RemoveFromParent(child Entity) {
	nd := g.Node(child)
	if nd == nil || nd.parent.IsNil() {
		return
	}
	pn := &g.slots[nd.parent.index]
	for i, c := range pn.children {
		if c == child {
			pn.children = append(pn.children[:i], pn.children[i+1:]...)
			break
		}
	}
	nd.parent = Nil
}

// Destroy frees the node and its whole subtree. Handles into the
// subtree become stale. A stale handle is a no-op.
func (g *Graph) Destroy(e Entity) {
	if !g.Valid(e) {
		return
	}
	g.RemoveFromParent(e)
	g.destroySlot(e)
}

func (g *Graph) destroySlot(e Entity) {
	nd := &g.slots[e.index]
	for _, c := range nd.children {
		g.destroySlot(c)
	}
	gen := nd.gen
	*nd = Node{gen: gen}
	g.free = append(g.free, e.index)
}

// VisitBreadthFirst visits the node and its subtree breadth-first.
// Returning false from fn prunes the visit below that node.
func (g *Graph) VisitBreadthFirst(root Entity, fn func(e Entity) bool) {
	if !g.Valid(root) {
		return
	}
	queue := []Entity{root}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if !fn(e) {
			continue
		}
		queue = append(queue, g.slots[e.index].children...)
	}
}

// FindChildByName searches the subtree below e breadth-first for a
// node with the given name. Returns false if not found.
func (g *Graph) FindChildByName(e Entity, name string) (Entity, bool) {
	found := Nil
	g.VisitBreadthFirst(e, func(c Entity) bool {
		if !found.IsNil() {
			return false
		}
		if c != e && g.slots[c.index].Name == name {
			found = c
			return false
		}
		return true
	})
	return found, !found.IsNil()
}

// CollectMatching returns all live nodes for which pred returns true,
// in slot order.
func (g *Graph) CollectMatching(pred func(e Entity) bool) []Entity {
	var out []Entity
	for i := range g.slots {
		if !g.slots[i].live {
			continue
		}
		e := Entity{index: int32(i), gen: g.slots[i].gen}
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// WorldMatrix returns the node's world matrix: the product of local
// matrices up the parent chain. Computed on read; nothing is cached
// or mutated. A stale handle yields identity.
func (g *Graph) WorldMatrix(e Entity) math32.Matrix4 {
	var m math32.Matrix4
	nd := g.Node(e)
	if nd == nil {
		m.SetIdentity()
		return m
	}
	m = nd.Transform.Matrix()
	for p := nd.parent; !p.IsNil(); p = g.slots[p.index].parent {
		pm := g.slots[p.index].Transform.Matrix()
		pm.SetMul(&m)
		m = pm
	}
	return m
}

// SetWorldMatrix sets the node's local transform so that its world
// matrix equals m, back-solving against the parent's world matrix.
// For roots this just decomposes m.
func (g *Graph) SetWorldMatrix(e Entity, m math32.Matrix4) {
	nd := g.Node(e)
	if nd == nil {
		return
	}
	if nd.parent.IsNil() {
		nd.Transform.SetMatrix(&m)
		return
	}
	pw := g.WorldMatrix(nd.parent)
	inv, err := pw.Inverse()
	if err != nil {
		errors.Log(err)
		return
	}
	var lm math32.Matrix4
	lm.MulMatrices(inv, &m)
	nd.Transform.SetMatrix(&lm)
}

// WorldScale returns the node's world scale, decomposed from the
// world matrix.
func (g *Graph) WorldScale(e Entity) math32.Vector3 {
	wm := g.WorldMatrix(e)
	_, _, scale := wm.Decompose()
	return scale
}
