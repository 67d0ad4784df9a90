// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the gateway.
//
// # Description
//
// The metrics cover the two resources the gateway exists to protect: the
// Cakery API concurrency budget (in-flight slots, queue depth) and the
// per-client SSE channels (active streams, terminal outcomes). Metrics
// are exposed on /metrics.
//
// # Thread Safety
//
// All operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "happycake"
	gatewaySubsystem = "gateway"
)

// GatewayMetrics holds all Prometheus metrics for the gateway service.
type GatewayMetrics struct {
	// InFlightUpstream tracks occupied Cakery admission slots.
	InFlightUpstream prometheus.Gauge

	// QueueDepth tracks requests waiting for an admission slot.
	QueueDepth prometheus.Gauge

	// ActiveStreams tracks open SSE channels.
	ActiveStreams prometheus.Gauge

	// UpstreamResponsesTotal counts Cakery call outcomes.
	// Labels: endpoint (cakes, orders), outcome (ok, error, transport_error)
	UpstreamResponsesTotal *prometheus.CounterVec

	// TerminalMessagesTotal counts terminal messages pushed to clients.
	// Labels: status (success, error)
	TerminalMessagesTotal *prometheus.CounterVec

	// ClientDisconnectsTotal counts clients that closed the channel
	// before their terminal message was delivered.
	ClientDisconnectsTotal prometheus.Counter
}

// NewGatewayMetrics creates and registers the gateway metrics.
//
// # Inputs
//
//   - reg: Registerer to attach to. Pass prometheus.NewRegistry() in
//     tests to avoid duplicate-registration panics.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)

	return &GatewayMetrics{
		InFlightUpstream: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "upstream_in_flight",
			Help:      "Occupied Cakery API admission slots.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "admission_queue_depth",
			Help:      "Requests waiting for a Cakery API admission slot.",
		}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "active_streams",
			Help:      "Open SSE channels to clients.",
		}),
		UpstreamResponsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "upstream_responses_total",
			Help:      "Cakery API call outcomes.",
		}, []string{"endpoint", "outcome"}),
		TerminalMessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "terminal_messages_total",
			Help:      "Terminal messages pushed to clients.",
		}, []string{"status"}),
		ClientDisconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "client_disconnects_total",
			Help:      "Clients that disconnected before their terminal message.",
		}),
	}
}

// =============================================================================
// limiter.Observer implementation
// =============================================================================

// SlotAcquired records an occupied admission slot.
func (m *GatewayMetrics) SlotAcquired() { m.InFlightUpstream.Inc() }

// SlotReleased records a freed admission slot.
func (m *GatewayMetrics) SlotReleased() { m.InFlightUpstream.Dec() }

// TaskQueued records a request entering the overflow queue.
func (m *GatewayMetrics) TaskQueued() { m.QueueDepth.Inc() }

// TaskDequeued records a request promoted out of the overflow queue.
func (m *GatewayMetrics) TaskDequeued() { m.QueueDepth.Dec() }
