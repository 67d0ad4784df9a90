// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/happycake/gateway/pkg/logging"
	"github.com/happycake/gateway/services/gateway/cakery"
	"github.com/happycake/gateway/services/gateway/limiter"
	"github.com/happycake/gateway/services/gateway/observability"
	"github.com/happycake/gateway/services/gateway/orchestrator"
	"github.com/happycake/gateway/services/gateway/registry"
	"github.com/happycake/gateway/services/gateway/routes"
	"github.com/happycake/gateway/services/gateway/store"
	"github.com/happycake/gateway/services/gateway/uploads"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

const serviceName = "gateway-service"

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "happycake-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := envOr("GATEWAY_PORT", "3001")

	logger := logging.New(logging.Config{Service: serviceName})
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	rateLimit := limiter.DefaultRateLimit
	if raw := os.Getenv("RATE_LIMIT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			slog.Warn("RATE_LIMIT is invalid, using default",
				"value", raw, "default", limiter.DefaultRateLimit)
		} else {
			rateLimit = parsed
		}
	}

	reservations, err := store.Open(envOr("SQLITE_PATH", "file:gateway.db"), logger)
	if err != nil {
		log.Fatalf("failed to open the reservation store: %v", err)
	}
	defer reservations.Close()

	artifacts, err := uploads.Open(uploads.Config{
		Dir:    envOr("UPLOADS_DIR", "uploads"),
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to open the upload store: %v", err)
	}
	defer artifacts.Close()

	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewGatewayMetrics(promRegistry)

	queue := limiter.New(rateLimit, limiter.WithObserver(metrics))

	gateway := cakery.NewClient(cakery.Config{
		BaseURL:          envOr("CAKERY_URL", "http://localhost:3002"),
		AuthorizationKey: os.Getenv("AUTHORIZATION_KEY"),
		RequestBodyKey:   os.Getenv("REQUEST_BODY_KEY"),
		Logger:           logger,
	})

	orch := orchestrator.New(orchestrator.Deps{
		Registry: registry.New(),
		Queue:    queue,
		Gateway:  gateway,
		Store:    reservations,
		Uploads:  artifacts,
		Metrics:  metrics,
		Logger:   logger,
	}, orchestrator.Config{})

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.MaxMultipartMemory = uploads.MaxUploadBytes

	routes.SetupRoutes(router, routes.Deps{
		Orchestrator: orch,
		Reservations: reservations,
		Uploads:      artifacts,
		Registry:     promRegistry,
		Logger:       logger,
	})

	slog.Info("starting the gateway server", "port", port, "rate_limit", rateLimit)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
