// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Wire types for the Cakery API, the external inventory-and-ordering
// service the gateway calls on behalf of clients.
package datatypes

import "encoding/json"

// Cake is one stock item as reported by the Cakery API.
type Cake struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// CakeOrder is the payload of a successful order response.
type CakeOrder struct {
	OrderID string `json:"order_id"`
}

// CakeryRequestBody is the body of a stock read call. Every Cakery call
// carries the shared secret key in the request body.
type CakeryRequestBody struct {
	Key string `json:"key"`
}

// CakeryOrderBody is the body of an order write call.
type CakeryOrderBody struct {
	Key  string `json:"key"`
	Cake string `json:"cake"`
}

// CakeryResponseBody is the common response envelope of the Cakery API.
// Data holds the payload on success; Message carries the error text on
// application-level failures.
type CakeryResponseBody struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Fixed translations for Cakery outcomes that have no usable message.
const (
	// CakeryOverloaded is the terminal message for a 429 response.
	CakeryOverloaded = "Cakery API is overloaded"

	// CakeryDead prefixes terminal messages for unexpected status codes
	// ("<CakeryDead>. It returned <code>") and transport failures
	// ("<CakeryDead>. Please check logs").
	CakeryDead = "Cakery API is dead"
)
