// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package events provides the engine's cross-thread event system:
// typed sensing, input, and asset lifecycle events, and the [Queue]
// that carries them from producer threads onto the update thread.
package events

import (
	"fmt"
	"image"
	"time"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
)

// Kinds is the type of an engine event, which determines the payload
// type and which update-thread handler receives it.
type Kinds int32

const (
	// UnknownKind is the zero value, never sent.
	UnknownKind Kinds = iota

	// WorldAnchor events report a tracked world-space pose.
	WorldAnchor

	// PlaneAnchor events report a detected planar surface with
	// classification and boundary geometry.
	PlaneAnchor

	// MeshAnchor events report reconstructed environment geometry
	// as a triangle mesh.
	MeshAnchor

	// HandAnchor events report a hand skeleton's joint poses.
	HandAnchor

	// LightAnchor events report an environment lighting estimate.
	LightAnchor

	// SpatialInput events report ray-based pointer / pinch input.
	SpatialInput

	// AssetInvalidated events report that an asset file changed on disk.
	AssetInvalidated

	// SessionState events report sensing session start / stop / failure.
	SessionState
)

var kindNames = map[Kinds]string{
	UnknownKind:      "Unknown",
	WorldAnchor:      "WorldAnchor",
	PlaneAnchor:      "PlaneAnchor",
	MeshAnchor:       "MeshAnchor",
	HandAnchor:       "HandAnchor",
	LightAnchor:      "LightAnchor",
	SpatialInput:     "SpatialInput",
	AssetInvalidated: "AssetInvalidated",
	SessionState:     "SessionState",
}

func (k Kinds) String() string {
	if nm, ok := kindNames[k]; ok {
		return nm
	}
	return fmt.Sprintf("Kinds(%d)", int32(k))
}

// Phases is the lifecycle phase of an anchor event.
type Phases int32

const (
	// Added means the anchor was observed for the first time.
	Added Phases = iota

	// Updated means an existing anchor's pose or payload changed.
	Updated

	// Removed means the anchor is no longer tracked.
	Removed
)

func (p Phases) String() string {
	switch p {
	case Added:
		return "Added"
	case Updated:
		return "Updated"
	case Removed:
		return "Removed"
	}
	return fmt.Sprintf("Phases(%d)", int32(p))
}

// Event is the interface satisfied by everything that can go through
// a [Queue]. Handlers switch on the concrete type, so Kind exists for
// logging and dispatch tables rather than downcasting.
type Event interface {
	Kind() Kinds
}

// Anchor is the common portion of every anchor event: a stable
// identifier, a lifecycle phase, and the origin-from-anchor transform.
// Kind-specific payloads embed it.
type Anchor struct {
	// ID is the sensing subsystem's stable identifier for this anchor.
	ID uuid.UUID

	// Phase is the lifecycle phase of this event.
	Phase Phases

	// Transform is the origin-from-anchor matrix at the time of the event.
	Transform math32.Matrix4
}

func (a Anchor) String() string {
	return fmt.Sprintf("%v %v", a.Phase, a.ID)
}

// WorldAnchorEvent reports a tracked world-space pose, such as the
// anchor the scene requests for content placement.
type WorldAnchorEvent struct {
	Anchor
}

func (ev WorldAnchorEvent) Kind() Kinds { return WorldAnchor }

// PlaneAlignments is the gross orientation of a detected plane.
type PlaneAlignments int32

const (
	Horizontal PlaneAlignments = iota
	Vertical
	Slanted
)

// PlaneClasses is the semantic classification of a detected plane.
type PlaneClasses int32

const (
	UnknownPlane PlaneClasses = iota
	Floor
	Wall
	Ceiling
	Table
	Seat
	Window
	Door
)

// PlaneAnchorEvent reports a detected planar surface. The boundary
// geometry is a triangulated polygon in anchor-local space, suitable
// for building an invisible collision mesh.
type PlaneAnchorEvent struct {
	Anchor

	Alignment PlaneAlignments
	Class     PlaneClasses

	// Vertices and Indices triangulate the plane's boundary polygon,
	// in anchor-local coordinates.
	Vertices []math32.Vector3
	Indices  []uint32
}

func (ev PlaneAnchorEvent) Kind() Kinds { return PlaneAnchor }

// MeshAnchorEvent reports a chunk of reconstructed environment
// geometry in anchor-local coordinates.
type MeshAnchorEvent struct {
	Anchor

	Vertices []math32.Vector3
	Indices  []uint32
}

func (ev MeshAnchorEvent) Kind() Kinds { return MeshAnchor }

// Hands identifies the handedness of a hand anchor or input event.
type Hands int32

const (
	NoHand Hands = iota
	Left
	Right
)

func (h Hands) String() string {
	switch h {
	case Left:
		return "Left"
	case Right:
		return "Right"
	}
	return "NoHand"
}

// Hand skeleton joint indices. The full skeleton has [HandJointCount]
// joints in a fixed order; only the ones the engine addresses directly
// are named here.
const (
	// HandJointWrist is the root joint of the hand skeleton.
	HandJointWrist = 0

	// HandJointIndexTip is the tip of the index finger, which carries
	// the fingertip proximity collider.
	HandJointIndexTip = 9

	// HandJointCount is the number of joints in a hand skeleton.
	HandJointCount = 27
)

// HandAnchorEvent reports a hand skeleton's joint poses. Joints are
// anchor-local matrices in skeleton order; Tracked is false when the
// sensing subsystem has lost the hand but the anchor persists.
type HandAnchorEvent struct {
	Anchor

	Hand    Hands
	Tracked bool
	Joints  []math32.Matrix4
}

func (ev HandAnchorEvent) Kind() Kinds { return HandAnchor }

// LightAnchorEvent reports an environment lighting estimate: an
// equirectangular irradiance image plus the basis transform orienting
// it in world space. Pixels may be nil when the probe carried no image
// data; consumers retain the last event that had any.
type LightAnchorEvent struct {
	Anchor

	Pixels *image.RGBA
}

func (ev LightAnchorEvent) Kind() Kinds { return LightAnchor }

// InputPhases is the phase of a spatial input event.
type InputPhases int32

const (
	Began InputPhases = iota
	Moved
	Ended
	Cancelled
)

func (p InputPhases) String() string {
	switch p {
	case Began:
		return "Began"
	case Moved:
		return "Moved"
	case Ended:
		return "Ended"
	}
	return "Cancelled"
}

// InputEvent reports one ray-based pointer, pinch, or touch sample.
type InputEvent struct {
	Phase InputPhases
	Hand  Hands

	// Origin and Direction define the selection ray in world space,
	// when the input modality provides one. Direction is unit length.
	Origin    math32.Vector3
	Direction math32.Vector3

	// Pinch reports whether the event came from a pinch gesture.
	Pinch bool

	Time time.Time
}

func (ev InputEvent) Kind() Kinds { return SpatialInput }

func (ev InputEvent) String() string {
	return fmt.Sprintf("%v %v input at %v", ev.Hand, ev.Phase, ev.Origin)
}

// AssetEvent reports that an asset file changed on disk and any cached
// decode of it is stale.
type AssetEvent struct {
	Path string
}

func (ev AssetEvent) Kind() Kinds { return AssetInvalidated }

// SessionEvent reports a sensing session transition. A non-nil Err
// means the session failed and the spatial experience cannot continue.
type SessionEvent struct {
	Running bool
	Err     error
}

func (ev SessionEvent) Kind() Kinds { return SessionState }
