// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package events

import "sync"

// Queue is the mutex-guarded FIFO inbox between the asynchronous
// sensing / input producers and the single update thread. Producers
// call [Queue.Push] or [Queue.PushAll] from any goroutine; the update
// thread calls [Queue.DrainAll] once per tick.
//
// The zero value is ready to use.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// Push appends one event to the queue. Safe for concurrent use.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// PushAll appends a batch of events in order. Safe for concurrent use.
// The batch is appended atomically: no other producer's events land
// between two elements of evs.
func (q *Queue) PushAll(evs []Event) {
	if len(evs) == 0 {
		return
	}
	q.mu.Lock()
	q.events = append(q.events, evs...)
	q.mu.Unlock()
}

// DrainAll atomically removes and returns the entire backlog in FIFO
// order. It returns nil when the queue is empty and never blocks
// producers beyond the brief swap. The returned slice is owned by the
// caller; the queue starts a fresh backing array.
func (q *Queue) DrainAll() []Event {
	q.mu.Lock()
	evs := q.events
	q.events = nil
	q.mu.Unlock()
	return evs
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	n := len(q.events)
	q.mu.Unlock()
	return n
}
