// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/happycake/gateway/services/gateway/datatypes"
	"github.com/happycake/gateway/services/gateway/store"
)

// HandleDeliveriesToday lists the reservations whose birthday is today.
//
// # Description
//
// Reads straight from the reservation store; the admission queue is not
// involved. An empty day yields an empty JSON array, not null.
//
// # Outputs
//
// Returns a gin.HandlerFunc. Responds 200 with the delivery list, or
// 400 with the database error text.
func HandleDeliveriesToday(reservations store.ReservationStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deliveries, err := reservations.DeliveriesToday(c.Request.Context())
		if err != nil {
			logger.Error("deliveries lookup failed", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorList{
				Errors: []string{storeErrorText(err)},
			})
			return
		}
		if deliveries == nil {
			deliveries = []store.Delivery{}
		}
		c.JSON(http.StatusOK, deliveries)
	}
}

// storeErrorText maps a store error to its client-facing text.
func storeErrorText(err error) string {
	switch {
	case errors.Is(err, store.ErrUnavailable):
		return store.ErrUnavailable.Error()
	case errors.Is(err, store.ErrQuery):
		return store.ErrQuery.Error()
	default:
		return store.ErrQuery.Error()
	}
}
