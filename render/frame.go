// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"image"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/asset"
	"github.com/cogentcore/webgpu/wgpu"
)

// Layouts selects how a frame's views map onto its targets.
type Layouts int32

const (
	// LayoutDedicated gives every view its own target texture,
	// drawn in its own render pass.
	LayoutDedicated Layouts = iota

	// LayoutShared packs all views side by side into one target,
	// drawn in a single pass with per-view viewports.
	LayoutShared

	// LayoutLayered draws each view into one layer of an array
	// texture; the compositor supplies one attachment view per
	// layer, so the renderer treats it as a pass per view.
	LayoutLayered
)

func (l Layouts) String() string {
	switch l {
	case LayoutDedicated:
		return "Dedicated"
	case LayoutShared:
		return "Shared"
	case LayoutLayered:
		return "Layered"
	}
	return fmt.Sprintf("Layouts(%d)", int32(l))
}

// MaxViews is the most views a frame can carry. Stereo presentation
// uses two, everything else one.
const MaxViews = 2

// View is one eye's worth of camera state.
type View struct {
	// ViewMatrix transforms world space into view space.
	ViewMatrix math32.Matrix4

	// Projection is the reversed-Z projection matrix, as produced
	// by [ReversedProjection].
	Projection math32.Matrix4

	// Viewport is the pixel rectangle this view covers in its
	// target. An empty rectangle means the full target.
	Viewport image.Rectangle

	// CameraPos is the camera position in world space, for shading.
	CameraPos math32.Vector3
}

// Target is one output the compositor hands the renderer: attachment
// views plus enough metadata to size intermediates. The compositor
// owns the underlying textures.
type Target struct {
	// Color is the color attachment view.
	Color *wgpu.TextureView

	// Depth is the depth attachment view. When nil, or when the
	// target is multisampled, the renderer supplies its own depth
	// intermediate.
	Depth *wgpu.TextureView

	// Size is the pixel size of the attachment.
	Size image.Point

	// Samples is the multisample count; 0 and 1 both mean no
	// multisampling.
	Samples int
}

// Frame is everything one DrawFrame call consumes. The compositor
// fills in the views and targets, the engine the scene content.
type Frame struct {
	// Layout selects the view-to-target mapping.
	Layout Layouts

	// Views holds 1 to [MaxViews] camera views.
	Views []View

	// Targets holds the output attachments: exactly one for
	// [LayoutShared], one per view otherwise.
	Targets []Target

	// Objects is the draw list.
	Objects []Object

	// Lights are the active analytic lights, capped at [MaxLights].
	Lights []asset.Light

	// Env is the image-based lighting environment; nil falls back
	// to the built-in white probe.
	Env *Environment
}

// Validate checks view and target counts against the layout.
func (fr *Frame) Validate() error {
	if len(fr.Views) == 0 || len(fr.Views) > MaxViews {
		return fmt.Errorf("render: frame has %d views, want 1 to %d", len(fr.Views), MaxViews)
	}
	want := len(fr.Views)
	if fr.Layout == LayoutShared {
		want = 1
	}
	if len(fr.Targets) != want {
		return fmt.Errorf("render: %v frame with %d views has %d targets, want %d",
			fr.Layout, len(fr.Views), len(fr.Targets), want)
	}
	for i := range fr.Targets {
		tg := &fr.Targets[i]
		if tg.Color == nil {
			return fmt.Errorf("render: target %d has no color attachment", i)
		}
		if tg.Size.X <= 0 || tg.Size.Y <= 0 {
			return fmt.Errorf("render: target %d has size %v", i, tg.Size)
		}
	}
	return nil
}

// framePass is one render pass: a target and the views drawn into it.
type framePass struct {
	target *Target
	views  []int
}

// framePasses expands the frame layout into passes: one pass with all
// views for a shared target, one pass per view otherwise.
func framePasses(fr *Frame) []framePass {
	if fr.Layout == LayoutShared {
		views := make([]int, len(fr.Views))
		for i := range views {
			views[i] = i
		}
		return []framePass{{target: &fr.Targets[0], views: views}}
	}
	ps := make([]framePass, len(fr.Views))
	for i := range ps {
		ps[i] = framePass{target: &fr.Targets[i], views: []int{i}}
	}
	return ps
}

// ReversedProjection returns an infinite reversed-Z perspective
// projection: the near plane maps to depth 1 and depth falls toward 0
// with distance, so the depth attachment clears to 0 and tests with
// Greater. This spends float precision where the scene content is.
func ReversedProjection(fovDegrees, aspect, near float32) math32.Matrix4 {
	f := 1 / math32.Tan(math32.DegToRad(fovDegrees)/2)
	var m math32.Matrix4
	m[0] = f / aspect
	m[5] = f
	m[11] = -1
	m[14] = near
	return m
}
