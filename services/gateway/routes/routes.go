// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/happycake/gateway/services/gateway/handlers"
	"github.com/happycake/gateway/services/gateway/middleware"
	"github.com/happycake/gateway/services/gateway/orchestrator"
	"github.com/happycake/gateway/services/gateway/store"
	"github.com/happycake/gateway/services/gateway/uploads"
)

// Deps bundles what the route handlers need.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Reservations store.ReservationStore
	Uploads      uploads.ArtifactStore
	Registry     prometheus.Gatherer
	Logger       *slog.Logger
}

// SetupRoutes wires the gateway endpoints onto the router.
//
// The two SSE endpoints sit behind the Accept-header gate; the header
// check runs before any client lookup.
func SetupRoutes(router *gin.Engine, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router.GET("/health", handlers.HealthCheck)
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			deps.Registry, promhttp.HandlerOpts{})))
	}

	router.GET("/cake-stock", middleware.RequireSSE(),
		handlers.HandleCakeStock(deps.Orchestrator, logger))
	router.POST("/reserve",
		handlers.HandleReserveCake(deps.Orchestrator, deps.Uploads, logger))
	router.GET("/reserve/:id", middleware.RequireSSE(),
		handlers.HandleReserveCakeSSE(deps.Orchestrator, logger))
	router.GET("/deliveries-today",
		handlers.HandleDeliveriesToday(deps.Reservations, logger))
}
