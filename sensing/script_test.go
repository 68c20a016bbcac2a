// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sensing

import (
	"context"
	"sync"
	"testing"
	"time"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector is a thread safe event sink for provider tests.
type collector struct {
	mu  sync.Mutex
	evs []events.Event
}

func (cl *collector) sink(ev events.Event) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.evs = append(cl.evs, ev)
}

func (cl *collector) all() []events.Event {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	out := make([]events.Event, len(cl.evs))
	copy(out, cl.evs)
	return out
}

func (cl *collector) len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.evs)
}

func TestScriptNoSink(t *testing.T) {
	sp := NewScript()
	assert.Error(t, sp.Start(context.Background()))
}

func TestScriptImmediate(t *testing.T) {
	id := uuid.New()
	var tf math32.Matrix4
	tf.SetIdentity()
	sp := NewScript(
		Cue{Event: TablePlane(id, tf, 1.2, 0.8)},
		Cue{Event: events.InputEvent{Phase: events.Began}},
	)
	sp.Immediate = true

	var cl collector
	sp.SetSink(cl.sink)
	require.NoError(t, sp.Start(context.Background()))
	defer sp.Stop()

	evs := cl.all()
	require.Len(t, evs, 3)
	ss, ok := evs[0].(events.SessionEvent)
	require.True(t, ok)
	assert.True(t, ss.Running)
	pl, ok := evs[1].(events.PlaneAnchorEvent)
	require.True(t, ok)
	assert.Equal(t, id, pl.ID)
	_, ok = evs[2].(events.InputEvent)
	assert.True(t, ok)
}

func TestScriptSchedule(t *testing.T) {
	sp := NewScript(
		Cue{At: 0, Event: events.InputEvent{Phase: events.Began}},
		Cue{At: 5 * time.Millisecond, Event: events.InputEvent{Phase: events.Ended}},
	)
	var cl collector
	sp.SetSink(cl.sink)
	require.NoError(t, sp.Start(context.Background()))
	defer sp.Stop()

	assert.Eventually(t, func() bool { return cl.len() == 3 }, time.Second, time.Millisecond)
	evs := cl.all()
	assert.Equal(t, events.Began, evs[1].(events.InputEvent).Phase)
	assert.Equal(t, events.Ended, evs[2].(events.InputEvent).Phase)
}

// TestScriptStop: stopping mid-playback must not wait out the
// remaining cues, and stopping twice is safe.
func TestScriptStop(t *testing.T) {
	sp := NewScript(Cue{At: time.Hour, Event: events.InputEvent{}})
	var cl collector
	sp.SetSink(cl.sink)
	require.NoError(t, sp.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		sp.Stop()
		sp.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, 1, cl.len())
}

func TestScriptStopBeforeStart(t *testing.T) {
	sp := NewScript()
	sp.Stop()
}

func TestScriptRequestWorldAnchor(t *testing.T) {
	sp := NewScript()
	var cl collector
	sp.SetSink(cl.sink)

	var pose math32.Matrix4
	pose.SetIdentity()
	pose[12] = 1.5
	id, err := sp.RequestWorldAnchor(pose)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	evs := cl.all()
	require.Len(t, evs, 1)
	wa, ok := evs[0].(events.WorldAnchorEvent)
	require.True(t, ok)
	assert.Equal(t, id, wa.ID)
	assert.Equal(t, events.Added, wa.Phase)
	assert.Equal(t, pose, wa.Transform)
}

func TestTablePlane(t *testing.T) {
	id := uuid.New()
	var tf math32.Matrix4
	tf.SetIdentity()
	ev := TablePlane(id, tf, 2, 1)

	assert.Equal(t, events.Table, ev.Class)
	assert.Equal(t, events.Horizontal, ev.Alignment)
	require.Len(t, ev.Vertices, 4)
	require.Len(t, ev.Indices, 6)
	for _, v := range ev.Vertices {
		assert.Zero(t, v.Y)
		assert.LessOrEqual(t, math32.Abs(v.X), float32(1))
		assert.LessOrEqual(t, math32.Abs(v.Z), float32(0.5))
	}
}
