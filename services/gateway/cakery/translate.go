// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cakery

import (
	"encoding/json"
	"fmt"

	"github.com/happycake/gateway/services/gateway/datatypes"
)

// RequestKind selects which Cakery endpoint a client request targets.
type RequestKind string

const (
	// KindStockCheck reads the cake stock.
	KindStockCheck RequestKind = "cakes"

	// KindReservation places a cake order.
	KindReservation RequestKind = "orders"
)

// Translate maps one Cakery call outcome to the client's terminal message.
//
// # Description
//
// Pure function; produces exactly one terminal message per outcome:
//
//	status 200        → success, payload (stock JSON or order id)
//	status 500        → error, upstream-supplied message
//	status 429        → error, fixed overloaded message
//	other status      → error, fixed dead message plus the observed code
//	transport failure → error, fixed dead message pointing at the logs
//
// A 200 whose payload cannot be decoded is treated like an unexpected
// status: the upstream answered, but not with anything deliverable.
//
// # Inputs
//
//   - kind: Which endpoint was called; decides how the 200 payload reads.
//   - outcome: The HTTP outcome. Ignored when callErr is non-nil.
//   - callErr: Transport-level failure, nil when a response arrived.
func Translate(kind RequestKind, outcome Outcome, callErr error) datatypes.MessageForClient {
	if callErr != nil {
		return datatypes.MessageForClient{
			Status:  datatypes.StatusError,
			Message: fmt.Sprintf("%s. Please check logs", datatypes.CakeryDead),
		}
	}

	switch outcome.StatusCode {
	case 200:
		return translateSuccess(kind, outcome)
	case 500:
		return datatypes.MessageForClient{
			Status:  datatypes.StatusError,
			Message: outcome.Message,
		}
	case 429:
		return datatypes.MessageForClient{
			Status:  datatypes.StatusError,
			Message: datatypes.CakeryOverloaded,
		}
	default:
		return datatypes.MessageForClient{
			Status:  datatypes.StatusError,
			Message: fmt.Sprintf("%s. It returned %d", datatypes.CakeryDead, outcome.StatusCode),
		}
	}
}

func translateSuccess(kind RequestKind, outcome Outcome) datatypes.MessageForClient {
	if kind == KindStockCheck {
		return datatypes.MessageForClient{
			Status:  datatypes.StatusSuccess,
			Message: string(outcome.Data),
		}
	}

	var order datatypes.CakeOrder
	if err := json.Unmarshal(outcome.Data, &order); err != nil || order.OrderID == "" {
		return datatypes.MessageForClient{
			Status:  datatypes.StatusError,
			Message: fmt.Sprintf("%s. It returned %d", datatypes.CakeryDead, outcome.StatusCode),
		}
	}
	return datatypes.MessageForClient{
		Status:  datatypes.StatusSuccess,
		Message: order.OrderID,
	}
}
