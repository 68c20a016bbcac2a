// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"log/slog"
	"strings"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"cogentcore.org/spatial/events"
	"cogentcore.org/spatial/physics"
	"cogentcore.org/spatial/render"
)

// Material names the scene registers on first use.
const (
	occluderMaterialName = "occluder"
	markerMaterialName   = "placement-marker"
)

// occluderMaterial returns the shared invisible occlusion material
// applied to sensed environment geometry.
func (sc *Scene) occluderMaterial() asset.Material {
	if mt := sc.Assets.Material(occluderMaterialName); mt != nil {
		return mt
	}
	mt := asset.NewOcclusionMaterial(occluderMaterialName)
	sc.Assets.AddMaterial(mt)
	return mt
}

// markerMaterial returns the shared translucent highlight applied to
// candidate placement surfaces.
func (sc *Scene) markerMaterial() asset.Material {
	if mt := sc.Assets.Material(markerMaterialName); mt != nil {
		return mt
	}
	mt := asset.NewPBRMaterial(markerMaterialName)
	mt.BaseColorFactor = math32.Vec4(0.3, 0.8, 1.0, 0.6)
	mt.Transparent = true
	sc.Assets.AddMaterial(mt)
	return mt
}

func (sc *Scene) handleWorldAnchor(ev events.WorldAnchorEvent) {
	switch ev.Phase {
	case events.Added:
		e, ok := sc.worldAnchors[ev.ID]
		if !ok {
			e = sc.Graph.New("world-anchor", Nil)
			sc.worldAnchors[ev.ID] = e
		}
		sc.Graph.SetWorldMatrix(e, ev.Transform)
		if _, ok := sc.pending[ev.ID]; ok {
			delete(sc.pending, ev.ID)
			sc.buildTower(e)
		}
	case events.Updated:
		if e, ok := sc.worldAnchors[ev.ID]; ok {
			sc.Graph.SetWorldMatrix(e, ev.Transform)
		}
	case events.Removed:
		if e, ok := sc.worldAnchors[ev.ID]; ok {
			sc.destroyEntity(e)
			delete(sc.worldAnchors, ev.ID)
		}
	}
}

func (sc *Scene) handlePlaneAnchor(ev events.PlaneAnchorEvent) {
	if ev.Phase == events.Removed {
		if e, ok := sc.planeAnchors[ev.ID]; ok {
			sc.destroyEntity(e)
			delete(sc.planeAnchors, ev.ID)
		}
		delete(sc.candidates, ev.ID)
		return
	}

	e, ok := sc.planeAnchors[ev.ID]
	if !ok {
		e = sc.Graph.New("plane-anchor", Nil)
		sc.planeAnchors[ev.ID] = e
	}
	sc.Graph.SetWorldMatrix(e, ev.Transform)
	sc.refreshAnchorGeometry(e, "plane/"+ev.ID.String(), ev.Vertices, ev.Indices)

	// table-like horizontal planes become placement candidates while
	// the experience is still selecting; a reclassified plane drops
	// back out
	if sc.phase == SelectingPlacement && ev.Alignment == events.Horizontal && ev.Class == events.Table {
		sc.candidates[ev.ID] = e
		if nd := sc.Graph.Node(e); nd != nil {
			nd.Materials = []asset.Material{sc.markerMaterial()}
		}
	} else {
		delete(sc.candidates, ev.ID)
	}
}

func (sc *Scene) handleMeshAnchor(ev events.MeshAnchorEvent) {
	if ev.Phase == events.Removed {
		if e, ok := sc.meshAnchors[ev.ID]; ok {
			sc.destroyEntity(e)
			delete(sc.meshAnchors, ev.ID)
		}
		return
	}

	e, ok := sc.meshAnchors[ev.ID]
	if !ok {
		e = sc.Graph.New("mesh-anchor", Nil)
		sc.meshAnchors[ev.ID] = e
	}
	sc.Graph.SetWorldMatrix(e, ev.Transform)
	sc.refreshAnchorGeometry(e, "mesh/"+ev.ID.String(), ev.Vertices, ev.Indices)
}

// refreshAnchorGeometry replaces the node's renderable and collision
// geometry with the given anchor-local triangle soup. The render mesh
// gets the invisible occluder material; the collision shape is a
// regenerated concave mesh.
func (sc *Scene) refreshAnchorGeometry(e Entity, meshName string, verts []math32.Vector3, idxs []uint32) {
	nd := sc.Graph.Node(e)
	if nd == nil || len(verts) == 0 || len(idxs) == 0 {
		return
	}
	nd.Mesh = asset.TriangleSoup(meshName, verts, idxs)
	nd.Materials = []asset.Material{sc.occluderMaterial()}

	sc.Bridge.RemoveEntity(e)
	nd.Body = &BodyDesc{
		Mode:  physics.Static,
		Props: physics.DefaultBodyProperties(),
		Shape: physics.ConcaveMeshShape(verts, idxs, math32.Vec3(1, 1, 1)),
	}
	sc.Bridge.AddEntity(&sc.Graph, e)
}

// handRig is the per-hand entity set: the anchor root, the skinned
// visualization if a hand prototype is configured, and the kinematic
// proximity colliders that follow key joints.
type handRig struct {
	root     Entity
	skinned  Entity
	wrist    Entity
	indexTip Entity
	hidden   bool
}

func (sc *Scene) handleHandAnchor(ev events.HandAnchorEvent) {
	rig, ok := sc.hands[ev.Hand]
	if !ok {
		rig = sc.buildHandRig(ev.Hand)
		sc.hands[ev.Hand] = rig
	}
	nd := sc.Graph.Node(rig.root)
	if nd == nil {
		return
	}

	// a lost hand is hidden, never destroyed, so reacquisition is
	// just a visibility flip
	if ev.Phase == events.Removed || !ev.Tracked {
		if !rig.hidden {
			rig.hidden = true
			nd.Visible = false
			sc.Bridge.RemoveEntity(rig.wrist)
			sc.Bridge.RemoveEntity(rig.indexTip)
		}
		return
	}
	if rig.hidden {
		rig.hidden = false
		nd.Visible = true
		sc.Bridge.AddEntity(&sc.Graph, rig.wrist)
		sc.Bridge.AddEntity(&sc.Graph, rig.indexTip)
	}

	sc.Graph.SetWorldMatrix(rig.root, ev.Transform)
	if skn := sc.Graph.Node(rig.skinned); skn != nil && skn.Skinner != nil {
		skn.Skinner.SetGlobals(ev.Joints)
	}
	sc.placeJointCollider(rig.wrist, ev.Joints, events.HandJointWrist)
	sc.placeJointCollider(rig.indexTip, ev.Joints, events.HandJointIndexTip)
}

func (sc *Scene) placeJointCollider(e Entity, joints []math32.Matrix4, joint int) {
	if joint >= len(joints) {
		return
	}
	if nd := sc.Graph.Node(e); nd != nil {
		nd.Transform.SetMatrix(&joints[joint])
	}
}

// buildHandRig creates the entity set for one hand: the root the
// anchor drives, the optional skinned visualization, and the wrist
// and fingertip colliders.
func (sc *Scene) buildHandRig(hand events.Hands) *handRig {
	root := sc.Graph.New("hand/"+strings.ToLower(hand.String()), Nil)
	rig := &handRig{root: root, skinned: Nil}

	if sc.Content.HandPrototype != "" {
		sub, err := sc.Instantiate(sc.Content.HandPrototype, root)
		if err != nil {
			slog.Error("scene: hand prototype", "hand", hand, "err", err)
		} else {
			sc.Graph.VisitBreadthFirst(sub, func(e Entity) bool {
				if !rig.skinned.IsNil() {
					return false
				}
				if sc.Graph.Node(e).Skinner != nil {
					rig.skinned = e
					return false
				}
				return true
			})
		}
	}

	rig.wrist = sc.newJointCollider(root, "wrist", 0.03)
	rig.indexTip = sc.newJointCollider(root, "index-tip", 0.01)
	return rig
}

// newJointCollider adds an invisible kinematic sphere collider under
// the given rig root.
func (sc *Scene) newJointCollider(parent Entity, name string, radius float32) Entity {
	e := sc.Graph.New(name, parent)
	nd := sc.Graph.Node(e)
	nd.Body = &BodyDesc{
		Mode:  physics.Kinematic,
		Props: physics.DefaultBodyProperties(),
		Shape: physics.SphereShape(radius, math32.Vec3(1, 1, 1)),
	}
	sc.Bridge.AddEntity(&sc.Graph, e)
	return e
}

func (sc *Scene) handleLightAnchor(ev events.LightAnchorEvent) {
	// removal keeps the last irradiance map active
	if ev.Phase == events.Removed {
		return
	}
	if ev.Pixels != nil {
		tex := asset.NewTexture("environment", ev.Pixels)
		tex.GenerateMips()
		sc.Assets.AddTexture(tex)
		sc.env = &render.Environment{Texture: tex, Basis: ev.Transform}
		return
	}
	if sc.env != nil {
		sc.env.Basis = ev.Transform
	}
}
