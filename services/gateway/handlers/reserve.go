// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/happycake/gateway/services/gateway/datatypes"
	"github.com/happycake/gateway/services/gateway/orchestrator"
	"github.com/happycake/gateway/services/gateway/uploads"
)

// imageFieldName is the multipart field carrying the optional cake image.
const imageFieldName = "image"

// HandleReserveCake accepts a reservation and issues a one-time
// confirmation link.
//
// # Description
//
// Parses the reservation from a JSON or multipart body, validates it,
// stores the optional cake image, registers the reservation intent under
// a fresh client identity and redirects to the confirmation endpoint.
// Nothing is sent upstream here; the redirected GET does that.
//
// # Inputs
//
//   - orch: Orchestrator holding the client registry.
//   - artifacts: Upload artifact store. May be nil to disable images.
//   - logger: Structured logger.
//
// # Outputs
//
// Returns a gin.HandlerFunc. Responds 303 with Location /reserve/<id>,
// or 400 with the validation error list.
func HandleReserveCake(orch *orchestrator.Orchestrator, artifacts uploads.ArtifactStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body datatypes.ReservationBody
		if err := bindReservation(c, &body); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorList{
				Errors: []string{datatypes.ReservationErrNoData},
			})
			return
		}

		if errs := body.Validate(); len(errs) > 0 {
			c.JSON(http.StatusBadRequest, datatypes.ErrorList{Errors: errs})
			return
		}

		clientID := uuid.New().String()

		if name, errMsg := saveImage(c, artifacts, clientID, logger); errMsg != "" {
			c.JSON(http.StatusBadRequest, datatypes.ErrorList{Errors: []string{errMsg}})
			return
		} else if name != "" {
			body.Image = name
		}

		if err := orch.RegisterReservation(clientID, body); err != nil {
			logger.Error("reservation registration failed", "client_id", clientID, "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorList{
				Errors: []string{err.Error()},
			})
			return
		}

		logger.Info("reservation created", "client_id", clientID, "cake", body.Cake)
		c.Redirect(http.StatusSeeOther, "/reserve/"+clientID)
	}
}

// HandleReserveCakeSSE redeems a confirmation link and streams the
// reservation result.
//
// # Description
//
// Looks the client up by the identifier in the path. The lookup is a
// single-redemption gate: an unknown identifier or a second redemption
// is rejected with 400 before anything streams. The winning request gets
// the full SSE lifecycle.
func HandleReserveCakeSSE(orch *orchestrator.Orchestrator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.Param("id")

		stream, err := NewSSEStream(c.Writer)
		if err != nil {
			logger.Error("sse stream setup failed", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorList{
				Errors: []string{"Streaming unsupported"},
			})
			return
		}

		if err := orch.ConfirmReservation(c.Request.Context(), clientID, stream); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorList{
				Errors: []string{err.Error()},
			})
		}
	}
}

// bindReservation fills body from a multipart form or a JSON document.
func bindReservation(c *gin.Context, body *datatypes.ReservationBody) error {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return c.ShouldBind(body)
	}
	return c.ShouldBindJSON(body)
}

// saveImage processes the optional multipart image. Returns the stored
// artifact name, or a client-facing error message when the upload is
// rejected. Both are empty when no image was sent.
func saveImage(c *gin.Context, artifacts uploads.ArtifactStore, clientID string, logger *slog.Logger) (string, string) {
	header, err := c.FormFile(imageFieldName)
	if err != nil || header == nil {
		return "", ""
	}
	if artifacts == nil {
		return "", ""
	}
	if header.Size > uploads.MaxUploadBytes {
		return "", uploads.ErrImageFile.Error()
	}

	file, err := header.Open()
	if err != nil {
		logger.Error("upload open failed", "client_id", clientID, "error", err)
		return "", uploads.ErrImageFile.Error()
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, uploads.MaxUploadBytes+1))
	if err != nil || int64(len(data)) > uploads.MaxUploadBytes {
		return "", uploads.ErrImageFile.Error()
	}

	name, err := artifacts.ProcessUpload(clientID, header.Filename, data)
	if err != nil {
		return "", err.Error()
	}
	return name, ""
}
