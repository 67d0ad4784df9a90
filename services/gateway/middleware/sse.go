// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware contains gin middleware for the gateway service.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/happycake/gateway/services/gateway/datatypes"
)

// sseAccept is the Accept value every streaming endpoint requires.
const sseAccept = "text/event-stream"

// RequireSSE rejects requests that did not negotiate SSE.
//
// # Description
//
// Streaming endpoints hold the connection open and push frames; a client
// that did not send Accept: text/event-stream would hang on a response
// format it cannot parse. The check runs before any client lookup, so a
// missing header wins over an unknown identifier.
//
// # Outputs
//
// Returns a gin.HandlerFunc. Aborts with 400 and the error list body on
// a missing or different Accept header.
func RequireSSE() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Accept") != sseAccept {
			c.AbortWithStatusJSON(http.StatusBadRequest, datatypes.ErrorList{
				Errors: []string{datatypes.ErrMissingHeaders},
			})
			return
		}
		c.Next()
	}
}
