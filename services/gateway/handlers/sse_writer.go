// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/happycake/gateway/services/gateway/datatypes"
	"github.com/happycake/gateway/services/gateway/orchestrator"
)

// =============================================================================
// SSE Stream
// =============================================================================

// SSEStream writes client messages over a Server-Sent Events response.
//
// # Description
//
// SSEStream implements orchestrator.Stream on top of an
// http.ResponseWriter. Each message is one SSE frame:
//
//	data: {"status":"...","message":"..."}
//
// The SSE headers and the 200 status line are committed lazily on the
// first Send, so a handler can still answer with a JSON error status if
// the request is rejected before anything streams.
//
// The underlying ResponseWriter is only valid while the handler that
// created the stream is running; gin recycles it afterwards. Close must
// be called before the handler returns so that a Send arriving later
// (a terminal message racing a disconnect) fails without touching the
// recycled writer.
//
// # Thread Safety
//
// Thread-safe via mutex. The processing push, the terminal push and
// Close come from different goroutines.
//
// # Limitations
//
//   - Requires http.Flusher support
//   - Cannot be reused across requests
type SSEStream struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	started bool
	closed  bool
}

// NewSSEStream creates an SSEStream for the given ResponseWriter.
//
// # Inputs
//
//   - w: HTTP ResponseWriter. Must implement http.Flusher.
//
// # Outputs
//
//   - *SSEStream: Ready to send messages.
//   - error: Non-nil if the ResponseWriter doesn't support flushing.
func NewSSEStream(w http.ResponseWriter) (*SSEStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &SSEStream{writer: w, flusher: flusher}, nil
}

// Send writes one message frame and flushes it.
//
// # Description
//
// Commits the SSE headers on the first call, serializes the message and
// writes it in SSE format. A write failure (client gone) is returned to
// the caller; subsequent Sends keep returning errors rather than panic.
//
// # Outputs
//
//   - error: Non-nil if serialization or the write failed.
func (s *SSEStream) Send(msg datatypes.MessageForClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("stream is closed")
	}

	if !s.started {
		h := s.writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.writer.WriteHeader(http.StatusOK)
		s.started = true
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if _, err := fmt.Fprintf(s.writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Close detaches the stream from the ResponseWriter. Later Sends return
// an error without writing. Idempotent.
func (s *SSEStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ orchestrator.Stream = (*SSEStream)(nil)
