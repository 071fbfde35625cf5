// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package http

import (
	"net/http"

	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/gofiber/fiber/v2"
)

// Respond writes the envelope with its own status code.
func Respond(c *fiber.Ctx, envelope model.Envelope) error {
	if envelope.StatusCode == 0 {
		envelope.StatusCode = http.StatusOK
	}

	return c.Status(envelope.StatusCode).JSON(envelope)
}

// OK sends an HTTP 200 envelope carrying data.
func OK(c *fiber.Ctx, data any) error {
	return Respond(c, model.Envelope{Data: data, StatusCode: http.StatusOK})
}

// NoContent sends an HTTP 204 status code without any body.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

// BadRequest sends an HTTP 400 envelope. data usually holds the offending fields.
func BadRequest(c *fiber.Ctx, code, message string, data any) error {
	return Respond(c, model.Envelope{Data: data, StatusCode: http.StatusBadRequest, Code: code, Message: message})
}

// Unauthorized sends an HTTP 401 envelope.
func Unauthorized(c *fiber.Ctx, code, message string) error {
	return Respond(c, model.Envelope{StatusCode: http.StatusUnauthorized, Code: code, Message: message})
}

// NotFound sends an HTTP 404 envelope.
func NotFound(c *fiber.Ctx, code, message string) error {
	return Respond(c, model.Envelope{StatusCode: http.StatusNotFound, Code: code, Message: message})
}

// UnprocessableEntity sends an HTTP 422 envelope.
func UnprocessableEntity(c *fiber.Ctx, code, message string, data any) error {
	return Respond(c, model.Envelope{Data: data, StatusCode: http.StatusUnprocessableEntity, Code: code, Message: message})
}

// TooManyRequests sends an HTTP 429 envelope.
func TooManyRequests(c *fiber.Ctx, code, message string) error {
	return Respond(c, model.Envelope{StatusCode: http.StatusTooManyRequests, Code: code, Message: message})
}

// InternalServerError sends an HTTP 500 envelope.
func InternalServerError(c *fiber.Ctx, code, message string) error {
	return Respond(c, model.Envelope{StatusCode: http.StatusInternalServerError, Code: code, Message: message})
}

// AuthFailure sends the authentication failure body with the given status.
func AuthFailure(c *fiber.Ctx, status int, data model.AuthFailureData) error {
	return c.Status(status).JSON(model.AuthResponse{Error: true, Data: data})
}

// AuthSuccess sends the authenticated principal.
func AuthSuccess(c *fiber.Ctx, data any) error {
	return c.Status(http.StatusOK).JSON(model.AuthResponse{Error: false, Data: data})
}
