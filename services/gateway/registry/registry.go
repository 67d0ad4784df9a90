// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry tracks live client requests awaiting an asynchronous
// result.
//
// # Description
//
// Because the gateway answers over SSE, a request's HTTP handshake and its
// result are decoupled in time. The registry is the correlation table that
// maps a generated client identity to its pending request so the result can
// be delivered to the right channel. It also enforces the one-time nature
// of reservation links: a reservation entry is redeemable exactly once.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The check-and-flip in Get is a
// single step under the registry lock, so two concurrent redemption
// attempts for the same identity cannot both succeed.
package registry

import (
	"errors"
	"sync"

	"github.com/happycake/gateway/services/gateway/datatypes"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUnknownClient is returned by Get for an unregistered identity.
	// The text is client-facing and matched verbatim by the frontend.
	ErrUnknownClient = errors.New(datatypes.ErrUnknownClient)

	// ErrAlreadyProcessing is returned by Get when a reservation entry
	// has already been redeemed.
	ErrAlreadyProcessing = errors.New(datatypes.ErrAlreadyProcessing)

	// ErrDuplicateClient is returned by Register when the identity is
	// already present. Identities are UUIDs, so this indicates a bug in
	// the caller rather than a client mistake.
	ErrDuplicateClient = errors.New("client is already registered")
)

// =============================================================================
// Client Variants
// =============================================================================

// ReservationStatus tracks whether a reservation link has been redeemed.
type ReservationStatus string

const (
	// StatusInitialized marks a reservation that has not been redeemed.
	StatusInitialized ReservationStatus = "initialized"

	// StatusProcessed marks a reservation whose confirmation stream has
	// been opened. A second redemption attempt fails.
	StatusProcessed ReservationStatus = "processed"
)

// Client is a registered pending request. The two variants carry exactly
// the state their kind needs; code that handles a Client type-switches
// over them, so a new variant is a compile-visible change.
type Client interface {
	// ClientID returns the opaque identity token of the request.
	ClientID() string
}

// StockCheckClient is a pending stock-check request. It carries no
// payload beyond its identity.
type StockCheckClient struct {
	ID string
}

// ClientID implements Client.
func (c *StockCheckClient) ClientID() string { return c.ID }

// ReservationClient is a pending cake reservation. It holds the validated
// reservation payload between the intent request and the one-time
// confirmation stream.
type ReservationClient struct {
	ID     string
	Status ReservationStatus
	Body   datatypes.ReservationBody
}

// ClientID implements Client.
func (c *ReservationClient) ClientID() string { return c.ID }

// =============================================================================
// Registry
// =============================================================================

// Registry is the in-memory table of live client entries.
type Registry struct {
	mu      sync.Mutex
	clients map[string]Client
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register inserts a client entry.
//
// # Outputs
//
//   - error: ErrDuplicateClient if the identity is already present.
func (r *Registry) Register(c Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c.ClientID()]; ok {
		return ErrDuplicateClient
	}
	r.clients[c.ClientID()] = c
	return nil
}

// Get looks up a client entry by identity.
//
// # Description
//
// For stock-check entries this is a plain lookup. For reservation entries
// Get additionally enforces single redemption: a processed entry yields
// ErrAlreadyProcessing, an initialized entry is flipped to processed and
// returned. The check and the flip happen under one lock acquisition, so
// of two racing redemption attempts exactly one succeeds.
//
// # Outputs
//
//   - Client: The entry, still owned by the registry.
//   - error: ErrUnknownClient or ErrAlreadyProcessing.
func (r *Registry) Get(id string) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, ErrUnknownClient
	}

	if rc, ok := c.(*ReservationClient); ok {
		if rc.Status == StatusProcessed {
			return nil, ErrAlreadyProcessing
		}
		rc.Status = StatusProcessed
	}
	return c, nil
}

// Remove deletes the entry if present. Removal is idempotent because
// completion and client disconnect are racing signals that both trigger
// deregistration.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
