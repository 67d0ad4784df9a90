// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator drives the per-client request state machine.
//
// # Description
//
// Each accepted request moves through Created → Admitted → Terminal →
// Closed. The orchestrator registers the client, pushes the immediate
// processing message, hands the request to the admission queue, and on
// upstream completion translates the outcome, optionally persists the
// reservation, pushes the single terminal message and tears the client
// down. Sequencing is fixed: the terminal push happens before the slot
// release, which happens before the queue promotion.
//
// The orchestrator is the only writer of the registry and the admission
// queue; handlers talk to shared state exclusively through it.
//
// # Failure Semantics
//
// Registration and redemption failures are returned synchronously, before
// anything is written to the channel. Once the request is submitted to
// the admission queue the HTTP handshake has signaled acceptance, so all
// later failures are delivered only as a terminal error message on the
// channel, never as an HTTP error status.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/happycake/gateway/services/gateway/cakery"
	"github.com/happycake/gateway/services/gateway/datatypes"
	"github.com/happycake/gateway/services/gateway/limiter"
	"github.com/happycake/gateway/services/gateway/observability"
	"github.com/happycake/gateway/services/gateway/registry"
	"github.com/happycake/gateway/services/gateway/store"
	"github.com/happycake/gateway/services/gateway/uploads"
)

// =============================================================================
// Stream
// =============================================================================

// Stream is the one-way, append-only push channel to a single client.
//
// # Thread Safety
//
// Implementations must serialize Send calls; the processing push and the
// terminal push come from different goroutines.
type Stream interface {
	// Send pushes one message frame. A failed Send (client gone, broken
	// pipe, closed stream) must be reported as an error, never panic;
	// the caller treats it as undeliverable and moves on.
	Send(msg datatypes.MessageForClient) error

	// Close detaches the stream from its transport. A Send after Close
	// must fail without touching the transport; the handler owning the
	// response writer may already have returned. Idempotent.
	Close()
}

// =============================================================================
// Orchestrator
// =============================================================================

// DefaultGracePeriod bounds how long a channel stays open after its
// terminal message when the remote side never closes it.
const DefaultGracePeriod = 3 * time.Second

// Config holds orchestrator tuning knobs.
type Config struct {
	// GracePeriod overrides DefaultGracePeriod; tests set it low.
	GracePeriod time.Duration
}

// Deps are the orchestrator's collaborators. Registry, Queue and Gateway
// are required; Store, Uploads and Metrics may be nil, which disables
// persistence, upload cleanup and instrumentation respectively.
type Deps struct {
	Registry *registry.Registry
	Queue    *limiter.AdmissionQueue
	Gateway  cakery.Gateway
	Store    store.ReservationStore
	Uploads  uploads.ArtifactStore
	Metrics  *observability.GatewayMetrics
	Logger   *slog.Logger
}

// Orchestrator composes the registry, admission queue, upstream gateway
// and collaborators into the per-client lifecycle.
type Orchestrator struct {
	registry *registry.Registry
	queue    *limiter.AdmissionQueue
	gateway  cakery.Gateway
	store    store.ReservationStore
	uploads  uploads.ArtifactStore
	metrics  *observability.GatewayMetrics
	logger   *slog.Logger
	grace    time.Duration
}

// New creates an orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Orchestrator{
		registry: deps.Registry,
		queue:    deps.Queue,
		gateway:  deps.Gateway,
		store:    deps.Store,
		uploads:  deps.Uploads,
		metrics:  deps.Metrics,
		logger:   logger,
		grace:    grace,
	}
}

// =============================================================================
// Operations
// =============================================================================

// StockCheck runs the full lifecycle for a new stock-check client.
//
// # Description
//
// Generates the client identity, registers it and drives the state
// machine. Blocks until the terminal message has been handled and the
// grace period elapsed, or until the client disconnects.
//
// # Outputs
//
//   - error: Non-nil only for registration failures, reported before
//     anything is written to the stream.
func (o *Orchestrator) StockCheck(ctx context.Context, stream Stream) error {
	client := &registry.StockCheckClient{ID: uuid.New().String()}
	if err := o.registry.Register(client); err != nil {
		return err
	}
	o.run(ctx, client, cakery.KindStockCheck, stream)
	return nil
}

// RegisterReservation records a reservation intent under the given
// client identity. The caller redirects the client to the one-time
// confirmation link embedding that identity.
func (o *Orchestrator) RegisterReservation(clientID string, body datatypes.ReservationBody) error {
	return o.registry.Register(&registry.ReservationClient{
		ID:     clientID,
		Status: registry.StatusInitialized,
		Body:   body,
	})
}

// ConfirmReservation redeems a reservation link and runs the lifecycle.
//
// # Description
//
// The registry lookup enforces single redemption: of two racing
// confirmation attempts exactly one proceeds, the other gets
// registry.ErrAlreadyProcessing without disturbing the winner.
//
// # Outputs
//
//   - error: registry.ErrUnknownClient or registry.ErrAlreadyProcessing,
//     reported before anything is written to the stream.
func (o *Orchestrator) ConfirmReservation(ctx context.Context, clientID string, stream Stream) error {
	client, err := o.registry.Get(clientID)
	if err != nil {
		return err
	}
	rc, ok := client.(*registry.ReservationClient)
	if !ok {
		return registry.ErrUnknownClient
	}
	o.run(ctx, rc, cakery.KindReservation, stream)
	return nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// run drives one client from the processing push to the closed channel.
// Blocks the calling handler goroutine for the lifetime of the channel.
func (o *Orchestrator) run(ctx context.Context, client registry.Client, kind cakery.RequestKind, stream Stream) {
	clientID := client.ClientID()

	// The stream's writer dies with this handler invocation. Detach on
	// every exit so a terminal push racing a disconnect cannot write
	// into a recycled response.
	defer stream.Close()

	if o.metrics != nil {
		o.metrics.ActiveStreams.Inc()
		defer o.metrics.ActiveStreams.Dec()
	}

	if err := stream.Send(datatypes.MessageForClient{
		Status:  datatypes.StatusProcessing,
		Message: datatypes.KeepSSEOpen,
	}); err != nil {
		o.logger.Warn("processing push failed", "client_id", clientID, "error", err)
	}

	done := make(chan struct{})

	// Disconnect and completion are racing signals; removal is idempotent
	// so whichever fires second is a no-op.
	go func() {
		select {
		case <-ctx.Done():
			o.registry.Remove(clientID)
			if o.metrics != nil {
				o.metrics.ClientDisconnectsTotal.Inc()
			}
			o.logger.Info("client disconnected before terminal message", "client_id", clientID)
		case <-done:
		}
	}()

	o.queue.Submit(limiter.Task{ClientID: clientID, Run: func() {
		defer close(done)
		o.process(client, kind, stream)
	}})

	select {
	case <-done:
	case <-ctx.Done():
		// The admitted upstream call keeps running; its result just has
		// no channel to land on.
		return
	}

	// Bound the channel lifetime in case the remote side never closes.
	select {
	case <-time.After(o.grace):
	case <-ctx.Done():
	}
}

// process performs the admitted upstream call and the terminal sequence:
// translate, persist, push terminal, deregister, release slot.
func (o *Orchestrator) process(client registry.Client, kind cakery.RequestKind, stream Stream) {
	clientID := client.ClientID()

	// Deliberately not the request context: client cancellation must not
	// abort an already-admitted upstream call.
	callCtx := context.Background()

	var outcome cakery.Outcome
	var callErr error
	switch kind {
	case cakery.KindStockCheck:
		outcome, callErr = o.gateway.GetCakes(callCtx)
	case cakery.KindReservation:
		rc := client.(*registry.ReservationClient)
		outcome, callErr = o.gateway.PostOrder(callCtx, rc.Body.Cake)
	}
	o.observeUpstream(kind, outcome, callErr)

	msg := cakery.Translate(kind, outcome, callErr)

	if kind == cakery.KindReservation && msg.Status == datatypes.StatusSuccess {
		msg = o.persist(client.(*registry.ReservationClient), msg)
	}

	if err := stream.Send(msg); err != nil {
		o.logger.Warn("terminal message not delivered",
			"client_id", clientID, "status", msg.Status, "error", err)
	}
	if o.metrics != nil {
		o.metrics.TerminalMessagesTotal.WithLabelValues(string(msg.Status)).Inc()
	}

	o.registry.Remove(clientID)
	o.queue.Release(clientID)
}

// persist stores the finalized reservation; msg.Message carries the
// upstream-issued order identifier.
//
// On failure the client is told the reservation failed even though the
// upstream order was accepted, and the upload artifact is dropped. The
// order upstream stays as it is; reconciliation is a manual process.
func (o *Orchestrator) persist(rc *registry.ReservationClient, msg datatypes.MessageForClient) datatypes.MessageForClient {
	if o.store == nil {
		return msg
	}

	err := o.store.SaveReservation(context.Background(), rc.Body, msg.Message)
	if err == nil {
		return msg
	}
	o.logger.Error("reservation persistence failed",
		"client_id", rc.ID, "order_id", msg.Message, "error", err)

	if rc.Body.Image != "" && o.uploads != nil {
		if derr := o.uploads.Delete(rc.Body.Image); derr != nil {
			o.logger.Error("upload cleanup failed",
				"client_id", rc.ID, "image", rc.Body.Image, "error", derr)
		}
	}

	return datatypes.MessageForClient{
		Status:  datatypes.StatusError,
		Message: persistenceText(err),
	}
}

// persistenceText maps a persistence failure to the client-facing text.
// Errors outside the known database sentinels fall back to the generic
// check-the-logs message.
func persistenceText(err error) string {
	switch {
	case errors.Is(err, store.ErrUnavailable):
		return store.ErrUnavailable.Error()
	case errors.Is(err, store.ErrQuery):
		return store.ErrQuery.Error()
	default:
		return fmt.Sprintf("%s. Please check logs", datatypes.CakeryDead)
	}
}

// observeUpstream records the upstream call outcome.
func (o *Orchestrator) observeUpstream(kind cakery.RequestKind, outcome cakery.Outcome, callErr error) {
	if o.metrics == nil {
		return
	}
	label := "ok"
	switch {
	case callErr != nil:
		label = "transport_error"
	case outcome.StatusCode != 200:
		label = "error"
	}
	o.metrics.UpstreamResponsesTotal.WithLabelValues(string(kind), label).Inc()
}
