// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the gateway service.
//
// This file contains the client-facing message types pushed over the SSE
// channel and the fixed strings the HTTP surface returns on rejection.
package datatypes

// =============================================================================
// Client Message Types
// =============================================================================

// MessageStatus is the status discriminator of a message pushed to a client.
type MessageStatus string

const (
	// StatusProcessing signals that the request was accepted and the client
	// should keep the channel open. May repeat before the terminal message.
	StatusProcessing MessageStatus = "processing"

	// StatusSuccess is the terminal status for a completed request.
	StatusSuccess MessageStatus = "success"

	// StatusError is the terminal status for a failed request.
	StatusError MessageStatus = "error"
)

// MessageForClient is one frame pushed over a client's SSE channel.
//
// # Description
//
// Exactly one message with StatusSuccess or StatusError is delivered per
// client lifetime; StatusProcessing frames may precede it. The struct is
// serialized as a single SSE data line: `data: {"status":...,"message":...}`.
type MessageForClient struct {
	Status  MessageStatus `json:"status"`
	Message string        `json:"message"`
}

// KeepSSEOpen is the payload of the initial processing message.
const KeepSSEOpen = "keep SSE open"

// =============================================================================
// Synchronous Rejection Strings
// =============================================================================

// Client-facing strings for requests rejected before a channel opens.
// These are wire contract, not internal error text; the frontend matches
// on them verbatim.
const (
	// ErrMissingHeaders is returned when the streaming capability
	// negotiation header (Accept: text/event-stream) is absent or wrong.
	ErrMissingHeaders = "Missing request headers"

	// ErrUnknownClient is returned when a confirmation request names a
	// client identity that is not registered.
	ErrUnknownClient = "Unknown client request"

	// ErrAlreadyProcessing is returned when a reservation link is
	// redeemed a second time.
	ErrAlreadyProcessing = "Request is already under processing"
)

// ErrorList is the envelope for synchronous rejections: HTTP 400 with a
// list of human-readable messages.
type ErrorList struct {
	Errors []string `json:"errors"`
}
