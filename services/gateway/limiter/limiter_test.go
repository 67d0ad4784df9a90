// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package limiter

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startedTask is a task whose Run signals on a channel and then blocks
// until released, so tests control slot occupancy precisely.
type startedTask struct {
	id      string
	started chan struct{}
}

func newStartedTask(id string) (*startedTask, Task) {
	st := &startedTask{id: id, started: make(chan struct{})}
	return st, Task{ClientID: id, Run: func() { close(st.started) }}
}

func waitStarted(t *testing.T, st *startedTask) {
	t.Helper()
	select {
	case <-st.started:
	case <-time.After(time.Second):
		t.Fatalf("task %s was not started", st.id)
	}
}

func assertNotStarted(t *testing.T, st *startedTask) {
	t.Helper()
	select {
	case <-st.started:
		t.Fatalf("task %s started but should be queued", st.id)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubmit_AdmitsUpToLimit(t *testing.T) {
	q := New(3)

	var tasks []*startedTask
	for i := 0; i < 3; i++ {
		st, task := newStartedTask(fmt.Sprintf("c%d", i))
		tasks = append(tasks, st)
		q.Submit(task)
	}

	for _, st := range tasks {
		waitStarted(t, st)
	}
	assert.Equal(t, 3, q.InFlight())
	assert.Equal(t, 0, q.Queued())
}

func TestSubmit_QueuesBeyondLimit(t *testing.T) {
	q := New(2)

	for i := 0; i < 2; i++ {
		st, task := newStartedTask(fmt.Sprintf("c%d", i))
		q.Submit(task)
		waitStarted(t, st)
	}

	extra, task := newStartedTask("extra")
	q.Submit(task)

	assertNotStarted(t, extra)
	assert.Equal(t, 2, q.InFlight())
	assert.Equal(t, 1, q.Queued())

	// Releasing any slot admits the queued task, and only it.
	q.Release("c0")
	waitStarted(t, extra)
	assert.Equal(t, 2, q.InFlight())
	assert.Equal(t, 0, q.Queued())
}

func TestRelease_PromotesInArrivalOrder(t *testing.T) {
	q := New(1)

	first, task := newStartedTask("first")
	q.Submit(task)
	waitStarted(t, first)

	var mu sync.Mutex
	var order []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("q%d", i)
		q.Submit(Task{ClientID: id, Run: func() {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			q.Release(id)
		}})
	}
	require.Equal(t, 5, q.Queued())

	q.Release("first")

	// Each queued task releases its own slot, so the whole queue drains.
	require.Eventually(t, func() bool {
		return q.Queued() == 0 && q.InFlight() == 0
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"q0", "q1", "q2", "q3", "q4"}, order)
}

func TestRelease_UnknownIDIsNoOp(t *testing.T) {
	q := New(1)

	st, task := newStartedTask("a")
	q.Submit(task)
	waitStarted(t, st)

	q.Release("ghost")
	assert.Equal(t, 1, q.InFlight())

	// Double release of the same slot must not free a second slot.
	q.Release("a")
	q.Release("a")
	assert.Equal(t, 0, q.InFlight())
}

func TestSubmit_ConcurrentNeverExceedsLimit(t *testing.T) {
	const limit = 4
	q := New(limit)

	var mu sync.Mutex
	running, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		id := fmt.Sprintf("c%d", i)
		q.Submit(Task{ClientID: id, Run: func() {
			defer wg.Done()
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			q.Release(id)
		}})
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, limit, "in-flight count exceeded the ceiling")
	assert.Equal(t, 0, q.InFlight())
	assert.Equal(t, 0, q.Queued())
}

type countingObserver struct {
	mu                                   sync.Mutex
	acquired, released, queued, dequeued int
}

func (o *countingObserver) SlotAcquired() { o.mu.Lock(); o.acquired++; o.mu.Unlock() }
func (o *countingObserver) SlotReleased() { o.mu.Lock(); o.released++; o.mu.Unlock() }
func (o *countingObserver) TaskQueued()   { o.mu.Lock(); o.queued++; o.mu.Unlock() }
func (o *countingObserver) TaskDequeued() { o.mu.Lock(); o.dequeued++; o.mu.Unlock() }

func TestObserver_SeesLifecycle(t *testing.T) {
	obs := &countingObserver{}
	q := New(1, WithObserver(obs))

	st, task := newStartedTask("a")
	q.Submit(task)
	waitStarted(t, st)

	queued, queuedTask := newStartedTask("b")
	q.Submit(queuedTask)
	assertNotStarted(t, queued)

	q.Release("a")
	waitStarted(t, queued)
	q.Release("b")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 2, obs.acquired)
	assert.Equal(t, 2, obs.released)
	assert.Equal(t, 1, obs.queued)
	assert.Equal(t, 1, obs.dequeued)
}
