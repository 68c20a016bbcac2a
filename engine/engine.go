// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine runs the frame loop: a single locked OS thread that
// drains sensing events through the scene, steps the simulation, and
// hands draw lists to the renderer between the compositor's frame
// boundaries. The scene's event queue is the only way into the loop
// from other threads.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"cogentcore.org/spatial/events"
	"cogentcore.org/spatial/render"
	"cogentcore.org/spatial/scene"
)

// Compositor owns the swapchain or device compositor surface the
// engine draws into. BeginFrame hands back the frame skeleton with
// views and targets filled in; ok false skips the tick's draw, for
// minimized windows or a compositor not ready to present.
type Compositor interface {
	BeginFrame() (fr *render.Frame, ok bool)

	// EndFrame presents the drawn frame.
	EndFrame(fr *render.Frame)
}

// InputSource is an extra event producer beyond the sensing session,
// such as window input in the desktop harness. The engine points its
// sink at the scene queue.
type InputSource interface {
	SetSink(fn func(ev events.Event))
}

// Engine ties the scene, renderer, and compositor into a frame loop.
type Engine struct {
	Scene      *scene.Scene
	Renderer   *render.Renderer
	Compositor Compositor
	Config     *Config
}

// New returns an engine over the given collaborators. Renderer and
// compositor may be nil for headless simulation. A nil config uses
// [Defaults].
func New(sc *scene.Scene, rd *render.Renderer, cp Compositor, cfg *Config) *Engine {
	if cfg == nil {
		cfg = Defaults()
	}
	return &Engine{Scene: sc, Renderer: rd, Compositor: cp, Config: cfg}
}

// AttachInput wires an input source into the scene queue. Call
// before Run.
func (eg *Engine) AttachInput(src InputSource) {
	sc := eg.Scene
	src.SetSink(func(ev events.Event) {
		sc.Queue.Push(ev)
	})
}

// Run starts the sensing session and then runs the frame loop on the
// calling goroutine, locked to its OS thread, until the context is
// canceled or the session fails. The scene is closed on the way out;
// a nil return means a clean cancellation.
func (eg *Engine) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if sn := eg.Scene.Sensing; sn != nil {
		if err := sn.Start(ctx); err != nil {
			return fmt.Errorf("engine: starting sensing session: %w", err)
		}
	}
	defer eg.Scene.Close()

	tk := time.NewTicker(time.Second / time.Duration(eg.Config.TickRate))
	defer tk.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tk.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			if dt > eg.Config.MaxTimestep {
				dt = eg.Config.MaxTimestep
			}
			if err := eg.tick(dt); err != nil {
				return err
			}
		}
	}
}

// tick advances the scene once and draws the resulting frame.
func (eg *Engine) tick(dt float32) error {
	eg.Scene.Update(dt)
	if err := eg.Scene.Err(); err != nil {
		return fmt.Errorf("engine: sensing session failed: %w", err)
	}
	if eg.Compositor == nil || eg.Renderer == nil {
		return nil
	}
	fr, ok := eg.Compositor.BeginFrame()
	if !ok {
		return nil
	}
	fr.Objects = eg.Scene.DrawList()
	fr.Lights = eg.Scene.Lights
	fr.Env = eg.Scene.Environment()
	if err := eg.Renderer.DrawFrame(fr); err != nil {
		return fmt.Errorf("engine: drawing frame: %w", err)
	}
	eg.Compositor.EndFrame(fr)
	return nil
}
