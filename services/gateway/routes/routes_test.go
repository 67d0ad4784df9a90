// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/happycake/gateway/services/gateway/cakery"
	"github.com/happycake/gateway/services/gateway/datatypes"
	"github.com/happycake/gateway/services/gateway/limiter"
	"github.com/happycake/gateway/services/gateway/orchestrator"
	"github.com/happycake/gateway/services/gateway/registry"
	"github.com/happycake/gateway/services/gateway/store"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGateway struct{}

func (stubGateway) GetCakes(_ context.Context) (cakery.Outcome, error) {
	return cakery.Outcome{StatusCode: 200, Data: []byte(`[]`)}, nil
}

func (stubGateway) PostOrder(_ context.Context, _ string) (cakery.Outcome, error) {
	return cakery.Outcome{StatusCode: 200, Data: []byte(`{"order_id":"o-1"}`)}, nil
}

type stubStore struct{}

func (stubStore) SaveReservation(_ context.Context, _ datatypes.ReservationBody, _ string) error {
	return nil
}

func (stubStore) DeliveriesToday(_ context.Context) ([]store.Delivery, error) {
	return nil, nil
}

func (stubStore) Close() error { return nil }

func newRouter() *gin.Engine {
	orch := orchestrator.New(orchestrator.Deps{
		Registry: registry.New(),
		Queue:    limiter.New(2),
		Gateway:  stubGateway{},
		Store:    stubStore{},
	}, orchestrator.Config{})

	router := gin.New()
	SetupRoutes(router, Deps{
		Orchestrator: orch,
		Reservations: stubStore{},
		Registry:     prometheus.NewRegistry(),
	})
	return router
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersEndpoints(t *testing.T) {
	router := newRouter()

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/cake-stock"},
		{"POST", "/reserve"},
		{"GET", "/reserve/:id"},
		{"GET", "/deliveries-today"},
	}

	routes := router.Routes()
	for _, want := range expected {
		found := false
		for _, r := range routes {
			if r.Method == want.method && r.Path == want.path {
				found = true
				break
			}
		}
		assert.Truef(t, found, "route %s %s not registered", want.method, want.path)
	}
}

func TestSetupRoutes_HealthResponds(t *testing.T) {
	router := newRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestSetupRoutes_MetricsResponds(t *testing.T) {
	router := newRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_StreamingEndpointsGated(t *testing.T) {
	router := newRouter()

	for _, path := range []string{"/cake-stock", "/reserve/some-id"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)

		assert.Equalf(t, http.StatusBadRequest, w.Code, "path %s", path)
		assert.Contains(t, w.Body.String(), datatypes.ErrMissingHeaders)
	}
}
