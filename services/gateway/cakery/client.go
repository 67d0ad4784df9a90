// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cakery talks to the Cakery API, the external inventory and
// ordering service, and translates its outcomes into client messages.
//
// The client makes exactly one attempt per call. Retrying is deliberately
// absent at every layer: a failed attempt surfaces to the end client, and
// a fresh end-to-end request is the only way to try again.
package cakery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// =============================================================================
// Outcome
// =============================================================================

// Outcome is the result of one Cakery API call that produced an HTTP
// response, whatever its status code. Transport-level failures are
// returned as errors instead and carry no Outcome.
type Outcome struct {
	StatusCode int
	Data       json.RawMessage
	Message    string
}

// =============================================================================
// Gateway Interface
// =============================================================================

// Gateway is the single-call abstraction over the Cakery API.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the admission queue
// runs up to RATE_LIMIT calls at once.
type Gateway interface {
	// GetCakes reads the current cake stock.
	GetCakes(ctx context.Context) (Outcome, error)

	// PostOrder places an order for the given cake.
	PostOrder(ctx context.Context, cake string) (Outcome, error)
}

// =============================================================================
// HTTP Client
// =============================================================================

// Config holds the Cakery API connection settings.
//
// # Fields
//
//   - BaseURL: Cakery API root, e.g. "https://api.cakery.dev/".
//   - AuthorizationKey: Bearer-style value for the Authorization header.
//   - RequestBodyKey: Shared secret sent in every request body.
//   - HTTPClient: Optional; a default with a 60s timeout is used when nil.
//   - Logger: Optional; slog.Default() when nil.
type Config struct {
	BaseURL          string
	AuthorizationKey string
	RequestBodyKey   string
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	baseURL    string
	authKey    string
	bodyKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Cakery API client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		authKey:    cfg.AuthorizationKey,
		bodyKey:    cfg.RequestBodyKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetCakes implements Gateway. The Cakery API expects the shared key in
// the body even on reads.
func (c *Client) GetCakes(ctx context.Context) (Outcome, error) {
	body := struct {
		Key string `json:"key"`
	}{Key: c.bodyKey}
	return c.call(ctx, http.MethodGet, "cakes", body)
}

// PostOrder implements Gateway.
func (c *Client) PostOrder(ctx context.Context, cake string) (Outcome, error) {
	body := struct {
		Key  string `json:"key"`
		Cake string `json:"cake"`
	}{Key: c.bodyKey, Cake: cake}
	return c.call(ctx, http.MethodPost, "orders", body)
}

// call performs one request and decodes the {data, message} envelope.
//
// Any HTTP response, including 4xx and 5xx, yields an Outcome; only
// failures below the HTTP layer yield an error. A response body that is
// not the expected envelope leaves the Outcome payload empty rather than
// failing the call, since the status code alone is enough to translate.
func (c *Client) call(ctx context.Context, method, path string, body any) (Outcome, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Outcome{}, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Authorization", c.authKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/html; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("cakery call failed", "path", path, "error", err)
		return Outcome{}, fmt.Errorf("cakery %s: %w", path, err)
	}
	defer resp.Body.Close()

	outcome := Outcome{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("cakery response body unreadable", "path", path, "error", err)
		return outcome, nil
	}

	var envelope struct {
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.logger.Warn("cakery response is not the expected envelope",
			"path", path, "status", resp.StatusCode)
		return outcome, nil
	}
	outcome.Data = envelope.Data
	outcome.Message = envelope.Message
	return outcome, nil
}

var _ Gateway = (*Client)(nil)
