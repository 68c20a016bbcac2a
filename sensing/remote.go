// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sensing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"cogentcore.org/core/math32"
	"cogentcore.org/spatial/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Remote is a sensing provider bridged from a live device over a
// WebSocket: the device streams JSON-encoded anchor and input events
// and accepts world anchor requests back. The bridge does not
// reconnect; a broken link surfaces as a session failure and the
// experience ends, the same as losing tracking hardware.
type Remote struct {
	// URL is the event endpoint, e.g. ws://headset.local:8765/events.
	URL string

	// Dialer overrides [websocket.DefaultDialer].
	Dialer *websocket.Dialer

	sink   func(ev events.Event)
	conn   *websocket.Conn
	done   chan struct{}
	closed atomic.Bool
}

// NewRemote returns a bridge to the given WebSocket endpoint.
func NewRemote(url string) *Remote {
	return &Remote{URL: url}
}

func (rm *Remote) SetSink(fn func(ev events.Event)) {
	rm.sink = fn
}

// Start dials the endpoint and begins decoding events onto the sink.
// The read loop runs until Stop or a connection error; errors after a
// successful start arrive as a failed SessionEvent.
func (rm *Remote) Start(ctx context.Context) error {
	if rm.sink == nil {
		return errors.New("sensing: remote has no sink")
	}
	dialer := rm.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, rm.URL, nil)
	if err != nil {
		return fmt.Errorf("sensing: dialing %s: %w", rm.URL, err)
	}
	rm.conn = conn
	rm.done = make(chan struct{})
	rm.sink(events.SessionEvent{Running: true})
	go rm.read()
	return nil
}

func (rm *Remote) read() {
	defer close(rm.done)
	for {
		var msg wireMessage
		if err := rm.conn.ReadJSON(&msg); err != nil {
			if rm.closed.Load() {
				return
			}
			rm.sink(events.SessionEvent{Err: fmt.Errorf("sensing: remote session: %w", err)})
			return
		}
		ev, err := msg.decode()
		if err != nil {
			slog.Error("sensing: remote event", "kind", msg.Kind, "err", err)
			continue
		}
		rm.sink(ev)
	}
}

// Stop closes the connection and waits for the read loop to exit.
// Safe to call more than once; a no-op before Start.
func (rm *Remote) Stop() {
	if rm.conn == nil {
		return
	}
	if rm.closed.CompareAndSwap(false, true) {
		// best effort close handshake before tearing the socket down
		rm.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		rm.conn.Close()
	}
	<-rm.done
}

// RequestWorldAnchor mints an anchor ID and asks the device to
// persist an anchor at the pose. The device answers with a world
// anchor event carrying the same ID once tracking commits it.
func (rm *Remote) RequestWorldAnchor(pose math32.Matrix4) (uuid.UUID, error) {
	if rm.conn == nil {
		return uuid.Nil, errors.New("sensing: remote session not started")
	}
	id := uuid.New()
	msg := wireMessage{Kind: "anchor_request", ID: id.String(), Transform: packMatrix(pose)}
	if err := rm.conn.WriteJSON(&msg); err != nil {
		return uuid.Nil, fmt.Errorf("sensing: requesting world anchor: %w", err)
	}
	return id, nil
}

// wireMessage is the JSON envelope of the device protocol. One
// message carries one event; which fields apply depends on Kind.
type wireMessage struct {
	Kind  string `json:"kind"`
	ID    string `json:"id,omitempty"`
	Phase string `json:"phase,omitempty"`

	// Transform is the origin-from-anchor matrix, column major.
	Transform *[16]float32 `json:"transform,omitempty"`

	Alignment string `json:"alignment,omitempty"`
	Class     string `json:"class,omitempty"`

	// Vertices is packed x y z triples; Indices triangulates them.
	Vertices []float32 `json:"vertices,omitempty"`
	Indices  []uint32  `json:"indices,omitempty"`

	Hand    string `json:"hand,omitempty"`
	Tracked bool   `json:"tracked,omitempty"`

	// Joints is packed 16-float column major matrices in skeleton
	// order.
	Joints []float32 `json:"joints,omitempty"`

	Origin    *[3]float32 `json:"origin,omitempty"`
	Direction *[3]float32 `json:"direction,omitempty"`
	Pinch     bool        `json:"pinch,omitempty"`

	Running bool   `json:"running,omitempty"`
	Error   string `json:"error,omitempty"`
}

func packMatrix(m math32.Matrix4) *[16]float32 {
	var tf [16]float32
	for i := range tf {
		tf[i] = m[i]
	}
	return &tf
}

func (msg *wireMessage) anchor() (events.Anchor, error) {
	id, err := uuid.Parse(msg.ID)
	if err != nil {
		return events.Anchor{}, fmt.Errorf("anchor id %q: %w", msg.ID, err)
	}
	a := events.Anchor{ID: id}
	switch msg.Phase {
	case "added", "":
		a.Phase = events.Added
	case "updated":
		a.Phase = events.Updated
	case "removed":
		a.Phase = events.Removed
	default:
		return events.Anchor{}, fmt.Errorf("unknown anchor phase %q", msg.Phase)
	}
	a.Transform.SetIdentity()
	if msg.Transform != nil {
		for i, v := range msg.Transform {
			a.Transform[i] = v
		}
	}
	return a, nil
}

func (msg *wireMessage) vectors() []math32.Vector3 {
	vs := make([]math32.Vector3, len(msg.Vertices)/3)
	for i := range vs {
		vs[i] = math32.Vec3(msg.Vertices[3*i], msg.Vertices[3*i+1], msg.Vertices[3*i+2])
	}
	return vs
}

// decode converts the envelope into its typed event.
func (msg *wireMessage) decode() (events.Event, error) {
	switch msg.Kind {
	case "world":
		a, err := msg.anchor()
		if err != nil {
			return nil, err
		}
		return events.WorldAnchorEvent{Anchor: a}, nil

	case "plane":
		a, err := msg.anchor()
		if err != nil {
			return nil, err
		}
		ev := events.PlaneAnchorEvent{Anchor: a, Vertices: msg.vectors(), Indices: msg.Indices}
		switch msg.Alignment {
		case "horizontal", "":
			ev.Alignment = events.Horizontal
		case "vertical":
			ev.Alignment = events.Vertical
		case "slanted":
			ev.Alignment = events.Slanted
		default:
			return nil, fmt.Errorf("unknown plane alignment %q", msg.Alignment)
		}
		class, ok := planeClasses[msg.Class]
		if !ok {
			return nil, fmt.Errorf("unknown plane class %q", msg.Class)
		}
		ev.Class = class
		return ev, nil

	case "mesh":
		a, err := msg.anchor()
		if err != nil {
			return nil, err
		}
		return events.MeshAnchorEvent{Anchor: a, Vertices: msg.vectors(), Indices: msg.Indices}, nil

	case "hand":
		a, err := msg.anchor()
		if err != nil {
			return nil, err
		}
		ev := events.HandAnchorEvent{Anchor: a, Tracked: msg.Tracked}
		switch msg.Hand {
		case "left":
			ev.Hand = events.Left
		case "right":
			ev.Hand = events.Right
		default:
			return nil, fmt.Errorf("unknown hand %q", msg.Hand)
		}
		if len(msg.Joints)%16 != 0 {
			return nil, fmt.Errorf("joint data of %d floats is not matrices", len(msg.Joints))
		}
		ev.Joints = make([]math32.Matrix4, len(msg.Joints)/16)
		for i := range ev.Joints {
			for j := 0; j < 16; j++ {
				ev.Joints[i][j] = msg.Joints[16*i+j]
			}
		}
		return ev, nil

	case "input":
		ev := events.InputEvent{Pinch: msg.Pinch, Time: time.Now()}
		switch msg.Phase {
		case "began":
			ev.Phase = events.Began
		case "moved":
			ev.Phase = events.Moved
		case "ended":
			ev.Phase = events.Ended
		case "cancelled":
			ev.Phase = events.Cancelled
		default:
			return nil, fmt.Errorf("unknown input phase %q", msg.Phase)
		}
		switch msg.Hand {
		case "left":
			ev.Hand = events.Left
		case "right":
			ev.Hand = events.Right
		case "":
			ev.Hand = events.NoHand
		default:
			return nil, fmt.Errorf("unknown hand %q", msg.Hand)
		}
		if msg.Origin != nil {
			ev.Origin = math32.Vec3(msg.Origin[0], msg.Origin[1], msg.Origin[2])
		}
		if msg.Direction != nil {
			ev.Direction = math32.Vec3(msg.Direction[0], msg.Direction[1], msg.Direction[2]).Normal()
		}
		return ev, nil

	case "session":
		ev := events.SessionEvent{Running: msg.Running}
		if msg.Error != "" {
			ev.Err = errors.New(msg.Error)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
}

var planeClasses = map[string]events.PlaneClasses{
	"":        events.UnknownPlane,
	"unknown": events.UnknownPlane,
	"floor":   events.Floor,
	"wall":    events.Wall,
	"ceiling": events.Ceiling,
	"table":   events.Table,
	"seat":    events.Seat,
	"window":  events.Window,
	"door":    events.Door,
}
