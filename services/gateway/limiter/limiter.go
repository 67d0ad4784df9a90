// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package limiter bounds the number of concurrently in-flight calls to the
// Cakery API.
//
// # Description
//
// The Cakery API is rate sensitive, so the gateway never has more than
// RATE_LIMIT upstream calls running at once. Submissions beyond the ceiling
// wait in a FIFO queue; each completed call releases its slot and promotes
// the queue head through the same admission decision. Among queued tasks
// admission order equals arrival order. Tasks admitted without queueing are
// not ordered relative to queued ones.
//
// # Thread Safety
//
// The in-flight set and the queue are mutated only under the queue mutex.
// Serializing the admission decision is what upholds the concurrency
// ceiling and FIFO order; it is a correctness requirement, not tuning.
package limiter

import "sync"

// DefaultRateLimit is the Cakery API concurrency ceiling.
const DefaultRateLimit = 60

// Task is one unit of admitted work.
//
// Run is started on its own goroutine once the task is admitted. The task
// owner must call Release with the same client identity when the work is
// done, whatever the outcome; a slot that is never released starves the
// queue.
type Task struct {
	ClientID string
	Run      func()
}

// Observer receives admission lifecycle notifications, for metrics.
// Implementations must be safe for concurrent use. All methods are called
// while the queue lock is held, so they must not call back into the queue.
type Observer interface {
	SlotAcquired()
	SlotReleased()
	TaskQueued()
	TaskDequeued()
}

// AdmissionQueue enforces the concurrency ceiling with FIFO overflow.
type AdmissionQueue struct {
	mu       sync.Mutex
	limit    int
	inFlight map[string]struct{}
	queue    []Task
	observer Observer
}

// Option configures an AdmissionQueue.
type Option func(*AdmissionQueue)

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(q *AdmissionQueue) { q.observer = o }
}

// New creates an AdmissionQueue with the given concurrency ceiling.
// A non-positive limit falls back to DefaultRateLimit.
func New(limit int, opts ...Option) *AdmissionQueue {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	q := &AdmissionQueue{
		limit:    limit,
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit admits the task immediately when a slot is free, otherwise
// appends it to the tail of the FIFO queue.
func (q *AdmissionQueue) Submit(t Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.inFlight) < q.limit {
		q.admitLocked(t)
		return
	}

	q.queue = append(q.queue, t)
	if q.observer != nil {
		q.observer.TaskQueued()
	}
}

// Release frees the slot held by the given client identity and promotes
// queued tasks while slots remain free.
//
// # Description
//
// Releasing an identity that holds no slot is a no-op; completion and
// disconnect cleanup may race, and the slot count must never go negative.
// Right after a single release at most one promotion happens, but when
// several completions race each Release re-enters the same decision, so
// the loop admits as many heads as there are free slots.
func (q *AdmissionQueue) Release(clientID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inFlight[clientID]; !ok {
		return
	}
	delete(q.inFlight, clientID)
	if q.observer != nil {
		q.observer.SlotReleased()
	}

	for len(q.queue) > 0 && len(q.inFlight) < q.limit {
		head := q.queue[0]
		q.queue = q.queue[1:]
		if q.observer != nil {
			q.observer.TaskDequeued()
		}
		q.admitLocked(head)
	}
}

// admitLocked records the slot and starts the task. Caller holds q.mu.
func (q *AdmissionQueue) admitLocked(t Task) {
	q.inFlight[t.ClientID] = struct{}{}
	if q.observer != nil {
		q.observer.SlotAcquired()
	}
	go t.Run()
}

// InFlight returns the current number of occupied slots.
func (q *AdmissionQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

// Queued returns the current queue depth.
func (q *AdmissionQueue) Queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
