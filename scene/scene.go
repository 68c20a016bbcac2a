// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scene holds the entity graph and the update-thread
// orchestrator of the spatial experience: it drains the event queue,
// applies anchor policies, steps physics through the bridge, and
// rebuilds the draw list the renderer consumes.
//
// Everything in this package runs on the engine's update thread; the
// event queue is the only way in from other threads.
package scene

import (
	"context"
	"fmt"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"cogentcore.org/spatial/events"
	"cogentcore.org/spatial/physics"
	"cogentcore.org/spatial/render"
	"github.com/google/uuid"
)

// Sensing is the platform sensing provider: it delivers anchor,
// input, and session events into the sink and mints world anchors on
// request. Implementations live in the sensing package; production
// platforms supply their own.
type Sensing interface {
	// Start begins the session, delivering events to the sink until
	// Stop. A start failure is fatal to the experience.
	Start(ctx context.Context) error

	// Stop ends the session. Safe to call more than once.
	Stop()

	// SetSink registers the function receiving all session events.
	// Must be called before Start.
	SetSink(fn func(ev events.Event))

	// RequestWorldAnchor asks the platform to create a persistent
	// world anchor at the given pose. The anchor arrives later as a
	// WorldAnchorEvent with the returned ID.
	RequestWorldAnchor(pose math32.Matrix4) (uuid.UUID, error)
}

// Phases is the placement lifecycle of the experience.
type Phases int32

const (
	// SelectingPlacement is the initial phase: table-like surfaces
	// are highlighted as candidates and input picks one.
	SelectingPlacement Phases = iota

	// Playing is the terminal phase: content is placed and the
	// simulation runs. There is no transition back.
	Playing
)

func (p Phases) String() string {
	if p == SelectingPlacement {
		return "SelectingPlacement"
	}
	return "Playing"
}

// Scene is the update-thread orchestrator: the entity graph plus the
// anchor maps, placement state, and collaborator handles that turn
// sensing events into placed, simulated, drawable content.
type Scene struct {
	Graph Graph

	// Queue is the cross-thread event queue. Producers on any thread
	// send into it; Update drains it. This is the only cross-thread
	// surface of the scene.
	Queue events.Queue

	// Assets resolves meshes, materials, and textures by name.
	Assets *asset.Library

	// Bridge connects nodes to the physics solver.
	Bridge *Bridge

	// Sensing is the platform sensing provider.
	Sensing Sensing

	// Content is the placed-content manifest.
	Content Content

	// Lights are the scene's analytic lights, drawn every frame.
	Lights []asset.Light

	phase        Phases
	worldAnchors map[uuid.UUID]Entity
	planeAnchors map[uuid.UUID]Entity
	meshAnchors  map[uuid.UUID]Entity
	candidates   map[uuid.UUID]Entity
	pending      map[uuid.UUID]math32.Matrix4
	hands        map[events.Hands]*handRig

	env     *render.Environment
	objects []render.Object
	time    float32
	failure error
}

// NewScene returns a scene over the given collaborators. The asset
// library's reload notifications and the sensing provider's events
// are wired into the scene queue.
func NewScene(assets *asset.Library, solver physics.Solver, sensing Sensing, content Content) *Scene {
	sc := &Scene{
		Assets:       assets,
		Bridge:       NewBridge(solver),
		Sensing:      sensing,
		Content:      content,
		worldAnchors: make(map[uuid.UUID]Entity),
		planeAnchors: make(map[uuid.UUID]Entity),
		meshAnchors:  make(map[uuid.UUID]Entity),
		candidates:   make(map[uuid.UUID]Entity),
		pending:      make(map[uuid.UUID]math32.Matrix4),
		hands:        make(map[events.Hands]*handRig),
	}
	if assets != nil {
		assets.Notify = &sc.Queue
	}
	if sensing != nil {
		sensing.SetSink(func(ev events.Event) {
			sc.Queue.Push(ev)
		})
	}
	return sc
}

// Close stops the sensing session and releases the physics solver.
// The graph and assets remain readable.
func (sc *Scene) Close() {
	if sc.Sensing != nil {
		sc.Sensing.Stop()
	}
	sc.Bridge.Close()
}

// Phase returns the current placement phase.
func (sc *Scene) Phase() Phases {
	return sc.phase
}

// Err returns the terminal session failure, or nil. A non-nil error
// means the sensing session died and the experience cannot continue.
func (sc *Scene) Err() error {
	return sc.failure
}

// Environment returns the retained lighting environment, or nil if
// no light probe has delivered an image yet.
func (sc *Scene) Environment() *render.Environment {
	return sc.env
}

// DrawList returns the flattened, visibility-filtered object list
// rebuilt by the last Update. Valid until the next Update.
func (sc *Scene) DrawList() []render.Object {
	return sc.objects
}

// Update advances the scene by dt seconds: drains and dispatches the
// event queue, runs per-node behaviors, steps physics through the
// bridge, and rebuilds the draw list.
func (sc *Scene) Update(dt float32) {
	sc.time += dt

	for _, ev := range sc.Queue.DrainAll() {
		sc.handleEvent(ev)
	}

	sc.updateBehaviors(dt)
	sc.Bridge.Update(&sc.Graph, dt)
	sc.rebuildDrawList()
}

func (sc *Scene) handleEvent(ev events.Event) {
	switch ev := ev.(type) {
	case events.WorldAnchorEvent:
		sc.handleWorldAnchor(ev)
	case events.PlaneAnchorEvent:
		sc.handlePlaneAnchor(ev)
	case events.MeshAnchorEvent:
		sc.handleMeshAnchor(ev)
	case events.HandAnchorEvent:
		sc.handleHandAnchor(ev)
	case events.LightAnchorEvent:
		sc.handleLightAnchor(ev)
	case events.InputEvent:
		sc.handleInput(ev)
	case events.AssetEvent:
		sc.refreshAssets()
	case events.SessionEvent:
		if ev.Err != nil {
			sc.failure = ev.Err
		}
	}
}

// updateBehaviors runs the per-tick node behaviors: candidate markers
// pulse while a placement is being selected.
func (sc *Scene) updateBehaviors(dt float32) {
	if sc.phase != SelectingPlacement {
		return
	}
	alpha := 0.55 + 0.35*math32.Sin(sc.time*4)
	for _, e := range sc.candidates {
		if nd := sc.Graph.Node(e); nd != nil {
			if nd.Overrides == nil {
				nd.Overrides = make(map[string]float32)
			}
			nd.Overrides[asset.OverrideAlpha] = alpha
		}
	}
}

// rebuildDrawList flattens the graph into the renderer's object
// list, skipping invisible subtrees.
func (sc *Scene) rebuildDrawList() {
	sc.objects = sc.objects[:0]
	for _, root := range sc.Graph.Roots() {
		sc.Graph.VisitBreadthFirst(root, func(e Entity) bool {
			nd := sc.Graph.Node(e)
			if !nd.Visible {
				return false
			}
			if nd.Mesh != nil {
				sc.objects = append(sc.objects, render.Object{
					Matrix:    sc.Graph.WorldMatrix(e),
					Mesh:      nd.Mesh,
					Materials: nd.Materials,
					Skinner:   nd.Skinner,
					Overrides: nd.Overrides,
				})
			}
			return true
		})
	}
}

// refreshAssets re-resolves every node's mesh and materials by name
// after an asset reload, so nodes pick up the replacement decodes.
// The renderer notices the changed pointers and re-uploads.
func (sc *Scene) refreshAssets() {
	for _, e := range sc.Graph.CollectMatching(func(Entity) bool { return true }) {
		nd := sc.Graph.Node(e)
		if nd.Mesh != nil {
			if ms := sc.Assets.Mesh(nd.Mesh.Name); ms != nil && ms != nd.Mesh {
				nd.Mesh = ms
			}
		}
		for i, mt := range nd.Materials {
			if mt == nil {
				continue
			}
			name := mt.AsMaterialBase().Name
			if rm := sc.Assets.Material(name); rm != nil && rm != mt {
				nd.Materials[i] = rm
			}
		}
	}
}

// destroyEntity removes the subtree's solver bodies and frees the
// nodes.
func (sc *Scene) destroyEntity(e Entity) {
	sc.Graph.VisitBreadthFirst(e, func(c Entity) bool {
		sc.Bridge.RemoveEntity(c)
		return true
	})
	sc.Graph.Destroy(e)
}

// Instantiate builds the named prototype's node hierarchy under
// parent, resolving meshes and materials through the library.
// Returns the new subtree root.
func (sc *Scene) Instantiate(proto string, parent Entity) (Entity, error) {
	pt := sc.Assets.Prototype(proto)
	if pt == nil {
		return Nil, fmt.Errorf("scene: %w: prototype %q", asset.ErrNotFound, proto)
	}

	root := sc.Graph.New(proto, parent)
	ents := make([]Entity, len(pt.Nodes))
	for i, pn := range pt.Nodes {
		e := sc.Graph.New(pn.Name, Nil)
		ents[i] = e
		nd := sc.Graph.Node(e)
		nd.Transform.Pos = pn.Translation
		nd.Transform.Quat = pn.Rotation
		nd.Transform.Scale = pn.Scale
		if pn.Mesh >= 0 {
			ms := pt.Meshes[pn.Mesh]
			nd.Mesh = ms
			nd.Materials = sc.resolveMaterials(ms)
		}
		if pn.Skeleton >= 0 && pn.Mesh >= 0 {
			nd.Skinner = asset.NewSkinner(pt.Skeletons[pn.Skeleton])
		}
	}
	for i, pn := range pt.Nodes {
		p := root
		if pn.Parent >= 0 {
			p = ents[pn.Parent]
		}
		if err := sc.Graph.AddChild(p, ents[i]); err != nil {
			return Nil, err
		}
	}
	return root, nil
}

// resolveMaterials looks up the mesh's submesh materials by name.
// Unresolvable slots stay nil and render with the default material.
func (sc *Scene) resolveMaterials(ms *asset.Mesh) []asset.Material {
	if len(ms.Submeshes) == 0 {
		return nil
	}
	mats := make([]asset.Material, len(ms.Submeshes))
	for i, sm := range ms.Submeshes {
		mats[i] = sc.Assets.Material(sm.Material)
	}
	return mats
}
