// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scene

import (
	"log/slog"

	"cogentcore.org/spatial/asset"
	"github.com/jinzhu/copier"
)

// CloneSubtree clones the node, and with recursive its whole subtree,
// as a new root. Clones get fresh identities. Shared assets (meshes,
// materials) are referenced, not copied; the material override table
// is deep-copied so the clone can be customized independently; the
// physics descriptor is copied but any live solver registration of
// the source is not. A skinned source gets its own skinner at the
// rest pose. Returns [Nil] for a stale handle.
func (g *Graph) CloneSubtree(e Entity, recursive bool) Entity {
	if !g.Valid(e) {
		return Nil
	}
	return g.cloneNode(e, Nil, recursive)
}

func (g *Graph) cloneNode(src, parent Entity, recursive bool) Entity {
	// copy the source data out first: allocation may move the slots
	sn := g.slots[src.index]
	children := append([]Entity(nil), sn.children...)

	ce := g.New(sn.Name, parent)
	cn := &g.slots[ce.index]
	if err := copier.CopyWithOption(cn, &sn, copier.Option{CaseSensitive: true, DeepCopy: true}); err != nil {
		slog.Error("scene: clone", "node", sn.Name, "err", err)
	}

	cn.Mesh = sn.Mesh
	cn.Materials = append([]asset.Material(nil), sn.Materials...)
	if sn.Skinner != nil {
		cn.Skinner = asset.NewSkinner(sn.Skinner.Skeleton)
	}
	if sn.Body != nil {
		bd := *sn.Body
		cn.Body = &bd
	}

	if recursive {
		for _, c := range children {
			g.cloneNode(c, ce, recursive)
		}
	}
	return ce
}
