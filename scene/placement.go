// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"fmt"
	"log/slog"
	"sort"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"cogentcore.org/spatial/events"
	"cogentcore.org/spatial/physics"
)

const (
	// selectionRayLength is how far a selection ray reaches, in meters.
	selectionRayLength = 5

	// blocksPerLayer is the number of blocks in one tower layer.
	blocksPerLayer = 3

	blockMeshName     = "block"
	blockMaterialName = "block"
	towerRootName     = "tower-root"
)

// handleInput resolves placement selection. Only the release of a
// pinch or pointer while selecting does anything: the input ray is
// cast into the collision world, and the nearest hit on a candidate
// surface places the tower there.
func (sc *Scene) handleInput(ev events.InputEvent) {
	if sc.phase != SelectingPlacement || ev.Phase != events.Ended {
		return
	}
	to := ev.Origin.Add(ev.Direction.MulScalar(selectionRayLength))
	hits := sc.Bridge.HitTestWithSegment(ev.Origin, to)
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	for _, hit := range hits {
		if sc.isCandidate(hit.Entity) {
			sc.place(hit.Position)
			return
		}
	}
}

func (sc *Scene) isCandidate(e Entity) bool {
	for _, c := range sc.candidates {
		if c == e {
			return true
		}
	}
	return false
}

// place transitions the scene to Playing and anchors the tower at the
// given world position. The transition is one way: candidates revert
// to plain occluders and stop accumulating.
//
// The tower is parented to a sensing world anchor so it stays put
// across tracking corrections. If the anchor request fails the tower
// is built immediately on an unanchored root instead, which drifts
// with tracking but keeps the experience alive.
func (sc *Scene) place(at math32.Vector3) {
	sc.phase = Playing
	sc.clearCandidates()

	for id, e := range sc.worldAnchors {
		sc.destroyEntity(e)
		delete(sc.worldAnchors, id)
	}
	clear(sc.pending)

	var q math32.Quat
	q.SetIdentity()
	var pose math32.Matrix4
	pose.SetTransform(at, q, math32.Vec3(1, 1, 1))

	id, err := sc.Sensing.RequestWorldAnchor(pose)
	if err != nil {
		slog.Error("scene: world anchor request failed, building unanchored", "err", err)
		e := sc.Graph.New(towerRootName, Nil)
		sc.Graph.SetWorldMatrix(e, pose)
		sc.buildTower(e)
		return
	}
	sc.pending[id] = pose
}

// clearCandidates reverts every candidate surface to the invisible
// occluder look and empties the candidate set.
func (sc *Scene) clearCandidates() {
	occ := sc.occluderMaterial()
	for id, e := range sc.candidates {
		if nd := sc.Graph.Node(e); nd != nil {
			nd.Materials = []asset.Material{occ}
			delete(nd.Overrides, asset.OverrideAlpha)
		}
		delete(sc.candidates, id)
	}
}

// buildTower stacks the block tower under parent: Layers layers of
// three dynamic blocks each, alternating 90 degrees per layer. Blocks
// instantiate the configured prototype when one is loaded, otherwise
// a procedural box.
func (sc *Scene) buildTower(parent Entity) {
	width := sc.Content.BlockWidth
	height := sc.Content.BlockHeight
	depth := sc.Content.BlockDepth

	proto := ""
	if sc.Content.BlockPrototype != "" {
		if pt := sc.Assets.Prototype(sc.Content.BlockPrototype); pt != nil {
			proto = sc.Content.BlockPrototype
			if sz, ok := prototypeSize(pt); ok {
				width, height, depth = sz.X, sz.Y, sz.Z
			}
		} else {
			slog.Error("scene: block prototype not loaded, using procedural blocks",
				"prototype", sc.Content.BlockPrototype)
		}
	}

	var mesh *asset.Mesh
	var mats []asset.Material
	if proto == "" {
		mesh = sc.Assets.Mesh(blockMeshName)
		if mesh == nil {
			mesh = asset.BoxMesh(blockMeshName, width, height, depth)
			sc.Assets.AddMesh(mesh)
		}
		mats = []asset.Material{sc.blockMaterial()}
	}

	half := math32.Vec3(width/2, height/2, depth/2)
	step := width + sc.Content.Margin
	for layer := 0; layer < sc.Content.Layers; layer++ {
		for i := 0; i < blocksPerLayer; i++ {
			name := fmt.Sprintf("block/%d/%d", layer, i)
			var e Entity
			if proto != "" {
				var err error
				e, err = sc.Instantiate(proto, parent)
				if err != nil {
					slog.Error("scene: block instantiate", "err", err)
					return
				}
			} else {
				e = sc.Graph.New(name, parent)
			}
			nd := sc.Graph.Node(e)
			nd.Name = name
			if proto == "" {
				nd.Mesh = mesh
				nd.Materials = mats
			}

			off := float32(i-1) * step
			y := (float32(layer) + 0.5) * height
			if layer%2 == 0 {
				nd.Transform.Pos = math32.Vec3(off, y, 0)
			} else {
				nd.Transform.Pos = math32.Vec3(0, y, off)
				nd.Transform.SetAxisRotation(0, 1, 0, 90)
			}
			nd.Body = &BodyDesc{
				Mode:  physics.Dynamic,
				Props: physics.DefaultBodyProperties(),
				Shape: physics.BoxShape(half, math32.Vec3(1, 1, 1)),
			}
			sc.Bridge.AddEntity(&sc.Graph, e)
		}
	}
}

// prototypeSize returns the bounding size of the prototype's first
// mesh with non-degenerate bounds.
func prototypeSize(pt *asset.Prototype) (math32.Vector3, bool) {
	for _, ms := range pt.Meshes {
		sz := ms.Bounds.Size()
		if sz.X > 0 && sz.Y > 0 && sz.Z > 0 {
			return sz, true
		}
	}
	return math32.Vector3{}, false
}

// blockMaterial returns the shared material for procedural blocks.
func (sc *Scene) blockMaterial() asset.Material {
	if mt := sc.Assets.Material(blockMaterialName); mt != nil {
		return mt
	}
	mt := asset.NewPBRMaterial(blockMaterialName)
	mt.BaseColorFactor = math32.Vec4(0.82, 0.68, 0.45, 1)
	mt.Roughness = 0.8
	sc.Assets.AddMaterial(mt)
	return mt
}
