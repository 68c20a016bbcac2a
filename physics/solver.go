// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package physics

import (
	"errors"
	"sync"

	"cogentcore.org/core/math32"
)

// Body is an opaque handle to a simulated rigid body. Zero is never a
// valid body.
type Body uint64

// NoBody is the zero, invalid [Body] handle.
const NoBody Body = 0

// RayHit is one intersection from [Solver.CastRay]: the body hit, the
// world-space hit position, and the distance from the ray origin.
// Hits are not ordered by the solver; callers sort as needed.
type RayHit struct {
	Body     Body
	Position math32.Vector3
	Distance float32
}

// Solver is the rigid-body engine behind the physics bridge. All
// methods are called only from the update thread; implementations need
// no internal locking for them. [Initialize] must have been called
// before any Solver is constructed.
type Solver interface {
	// CreateBody adds a body with the given motion mode, properties,
	// shape, and initial pose, returning its handle. Shape construction
	// can fail (for example a degenerate convex hull); such failures are
	// recoverable and leave the simulation unchanged.
	CreateBody(mode BodyMode, props BodyProperties, shape Shape, initial Pose) (Body, error)

	// DestroyBody removes a body. Unknown handles are ignored.
	DestroyBody(body Body)

	// BodyPose returns the current pose of a body.
	// Returns false if the handle is unknown.
	BodyPose(body Body) (Pose, bool)

	// SetBodyPose moves a body to the given pose. For kinematic and
	// static bodies this is the per-tick drive; for dynamic bodies it
	// teleports them.
	SetBodyPose(body Body, pose Pose)

	// Step advances the simulation by dt seconds, synchronously.
	Step(dt float32)

	// CastRay intersects the segment from from to to against all bodies
	// and returns the hits, unordered.
	CastRay(from, to math32.Vector3) []RayHit

	// Close releases the solver's resources. The solver must not be
	// used afterward.
	Close()
}

var (
	globalMu    sync.Mutex
	initialized bool
)

// ErrNotInitialized is returned when a world is constructed before
// [Initialize] has been called.
var ErrNotInitialized = errors.New("physics: Initialize has not been called")

// Initialize prepares process-wide solver state. It must be called
// exactly once, before any solver is constructed; external solver
// integrations hook their global allocator and factory setup here.
// Calling it again after [Shutdown] is permitted.
func Initialize() {
	globalMu.Lock()
	initialized = true
	globalMu.Unlock()
}

// Shutdown tears down process-wide solver state, once, at process
// exit. All worlds must be closed first.
func Shutdown() {
	globalMu.Lock()
	initialized = false
	globalMu.Unlock()
}

func checkInitialized() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if !initialized {
		return ErrNotInitialized
	}
	return nil
}
