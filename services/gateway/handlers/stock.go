// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the HTTP handlers of the gateway service.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/happycake/gateway/services/gateway/datatypes"
	"github.com/happycake/gateway/services/gateway/orchestrator"
)

// HandleCakeStock streams the cake stock over SSE.
//
// # Description
//
// Opens the SSE channel and hands the request to the orchestrator, which
// pushes the immediate processing message, queues the upstream call and
// delivers exactly one terminal message. The handler blocks for the
// lifetime of the channel.
//
// # Inputs
//
//   - orch: Orchestrator driving the client lifecycle.
//   - logger: Structured logger.
//
// # Outputs
//
// Returns a gin.HandlerFunc. Responds 200 with an SSE body, or 500 with
// an error list if the connection cannot stream.
func HandleCakeStock(orch *orchestrator.Orchestrator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stream, err := NewSSEStream(c.Writer)
		if err != nil {
			logger.Error("sse stream setup failed", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorList{
				Errors: []string{"Streaming unsupported"},
			})
			return
		}

		if err := orch.StockCheck(c.Request.Context(), stream); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorList{
				Errors: []string{err.Error()},
			})
		}
	}
}
