// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sensing provides sensing session providers: sources of
// anchor, input, and session events feeding the scene's event queue.
// [Script] replays a fixed cue list for tests and desktop demos;
// [Remote] bridges a live device over a WebSocket. Production
// platforms supply their own provider in-process.
package sensing

import (
	"context"
	"errors"
	"sync"
	"time"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/events"
	"github.com/google/uuid"
)

// Cue is one scripted event with its delivery offset from Start.
type Cue struct {
	At    time.Duration
	Event events.Event
}

// Script is a sensing provider that replays a fixed cue list. It
// drives tests and the desktop demo, standing in for a headset's
// sensing stack. A script can be started once.
type Script struct {
	// Cues are delivered in listed order at their offsets.
	Cues []Cue

	// Immediate delivers every cue synchronously inside Start,
	// ignoring offsets. Tests use this for determinism.
	Immediate bool

	sink     func(ev events.Event)
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewScript returns a script over the given cues.
func NewScript(cues ...Cue) *Script {
	return &Script{Cues: cues}
}

func (sp *Script) SetSink(fn func(ev events.Event)) {
	sp.sink = fn
}

// Start reports the session as running and begins cue delivery. With
// Immediate set, every cue lands before Start returns; otherwise a
// playback goroutine delivers them on schedule until the context is
// canceled or Stop is called.
func (sp *Script) Start(ctx context.Context) error {
	if sp.sink == nil {
		return errors.New("sensing: script has no sink")
	}
	sp.stop = make(chan struct{})
	sp.done = make(chan struct{})
	sp.sink(events.SessionEvent{Running: true})
	if sp.Immediate {
		for _, cue := range sp.Cues {
			sp.sink(cue.Event)
		}
		close(sp.done)
		return nil
	}
	go sp.play(ctx)
	return nil
}

func (sp *Script) play(ctx context.Context) {
	defer close(sp.done)
	start := time.Now()
	for _, cue := range sp.Cues {
		d := cue.At - time.Since(start)
		if d < 0 {
			d = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-sp.stop:
			return
		case <-time.After(d):
			sp.sink(cue.Event)
		}
	}
}

// Stop ends playback and waits for the playback goroutine to exit.
// Safe to call more than once; a no-op before Start.
func (sp *Script) Stop() {
	if sp.stop == nil {
		return
	}
	sp.stopOnce.Do(func() {
		close(sp.stop)
	})
	<-sp.done
}

// RequestWorldAnchor mints an anchor ID and immediately echoes the
// Added event, the way a platform with instant anchor persistence
// would.
func (sp *Script) RequestWorldAnchor(pose math32.Matrix4) (uuid.UUID, error) {
	if sp.sink == nil {
		return uuid.Nil, errors.New("sensing: script has no sink")
	}
	id := uuid.New()
	sp.sink(events.WorldAnchorEvent{
		Anchor: events.Anchor{ID: id, Phase: events.Added, Transform: pose},
	})
	return id, nil
}

// TablePlane returns a table-classified horizontal plane anchor
// event: a width x depth rectangle centered on the anchor origin,
// triangulated for collision. Scripts use it to stage a placement
// surface.
func TablePlane(id uuid.UUID, transform math32.Matrix4, width, depth float32) events.PlaneAnchorEvent {
	hw, hd := width/2, depth/2
	return events.PlaneAnchorEvent{
		Anchor:    events.Anchor{ID: id, Phase: events.Added, Transform: transform},
		Alignment: events.Horizontal,
		Class:     events.Table,
		Vertices: []math32.Vector3{
			math32.Vec3(-hw, 0, -hd),
			math32.Vec3(hw, 0, -hd),
			math32.Vec3(hw, 0, hd),
			math32.Vec3(-hw, 0, hd),
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
