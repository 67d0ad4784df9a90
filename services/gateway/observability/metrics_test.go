// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewGatewayMetrics_RegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg)
	if m == nil {
		t.Fatal("expected metrics instance")
	}
}

func TestObserverHooks_MoveGauges(t *testing.T) {
	m := NewGatewayMetrics(prometheus.NewRegistry())

	m.SlotAcquired()
	m.SlotAcquired()
	m.SlotReleased()
	if got := testutil.ToFloat64(m.InFlightUpstream); got != 1 {
		t.Errorf("in-flight gauge: got %v, want 1", got)
	}

	m.TaskQueued()
	m.TaskDequeued()
	if got := testutil.ToFloat64(m.QueueDepth); got != 0 {
		t.Errorf("queue depth gauge: got %v, want 0", got)
	}
}

func TestCounters_Label(t *testing.T) {
	m := NewGatewayMetrics(prometheus.NewRegistry())

	m.UpstreamResponsesTotal.WithLabelValues("cakes", "ok").Inc()
	m.TerminalMessagesTotal.WithLabelValues("error").Inc()

	if got := testutil.ToFloat64(m.UpstreamResponsesTotal.WithLabelValues("cakes", "ok")); got != 1 {
		t.Errorf("upstream counter: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TerminalMessagesTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("terminal counter: got %v, want 1", got)
	}
}
