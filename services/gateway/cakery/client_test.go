// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cakery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_GetCakes(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"name":"cake 1","quantity":1}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:          server.URL + "/",
		AuthorizationKey: "secret-auth",
		RequestBodyKey:   "secret-key",
	})

	outcome, err := client.GetCakes(context.Background())
	if err != nil {
		t.Fatalf("GetCakes: %v", err)
	}

	if gotPath != "/cakes" {
		t.Errorf("path: got %q, want /cakes", gotPath)
	}
	if gotAuth != "secret-auth" {
		t.Errorf("authorization header: got %q", gotAuth)
	}
	if gotBody["key"] != "secret-key" {
		t.Errorf("body key: got %q", gotBody["key"])
	}
	if outcome.StatusCode != 200 {
		t.Errorf("status: got %d", outcome.StatusCode)
	}
	if string(outcome.Data) != `[{"name":"cake 1","quantity":1}]` {
		t.Errorf("data: got %s", outcome.Data)
	}
}

func TestClient_PostOrder(t *testing.T) {
	var gotMethod string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"data":{"order_id":"987654321"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/", RequestBodyKey: "k"})

	outcome, err := client.PostOrder(context.Background(), "Chocolate Dream")
	if err != nil {
		t.Fatalf("PostOrder: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method: got %q", gotMethod)
	}
	if gotBody["cake"] != "Chocolate Dream" {
		t.Errorf("cake: got %q", gotBody["cake"])
	}
	if gotBody["key"] != "k" {
		t.Errorf("key: got %q", gotBody["key"])
	}

	var order struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(outcome.Data, &order); err != nil || order.OrderID != "987654321" {
		t.Errorf("order id: got %s (err %v)", outcome.Data, err)
	}
}

func TestClient_ApplicationErrorIsNotATransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"oven on fire"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/"})

	outcome, err := client.GetCakes(context.Background())
	if err != nil {
		t.Fatalf("expected no transport error, got %v", err)
	}
	if outcome.StatusCode != 500 {
		t.Errorf("status: got %d", outcome.StatusCode)
	}
	if outcome.Message != "oven on fire" {
		t.Errorf("message: got %q", outcome.Message)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(Config{BaseURL: server.URL + "/"})

	if _, err := client.GetCakes(context.Background()); err == nil {
		t.Fatal("expected a transport error")
	}
}

func TestClient_MalformedEnvelopeKeepsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>nope</html>"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/"})

	outcome, err := client.GetCakes(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome.StatusCode != 502 {
		t.Errorf("status: got %d", outcome.StatusCode)
	}
	if outcome.Data != nil || outcome.Message != "" {
		t.Errorf("expected empty payload, got %s / %q", outcome.Data, outcome.Message)
	}
}
