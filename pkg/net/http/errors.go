// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package http

import (
	"errors"
	"net/http"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/gofiber/fiber/v2"
)

// WithError returns an error with the given status code and message.
// Causes kept in Err never reach the response body.
func WithError(c *fiber.Ctx, err error) error {
	var (
		authErr          pkg.AuthenticationFailure
		notFoundErr      pkg.EntityNotFoundError
		knownFieldsErr   pkg.ValidationKnownFieldsError
		validationErr    pkg.ValidationError
		unprocessableErr pkg.UnprocessableOperationError
		unauthorizedErr  pkg.UnauthorizedError
		metadataErr      pkg.MetadataError
		connectionErr    pkg.ConnectionError
		executionErr     pkg.ExecutionError
		internalErr      pkg.InternalServerError
		responseErr      pkg.ResponseError
	)

	switch {
	case errors.As(err, &authErr):
		status := authErr.StatusCode
		if status == 0 {
			status = http.StatusBadRequest
		}

		return AuthFailure(c, status, model.AuthFailureData{
			Mensaje:      authErr.Message,
			Campo:        authErr.Field,
			CodigoEstado: status,
		})
	case errors.As(err, &notFoundErr):
		return NotFound(c, notFoundErr.Code, notFoundErr.Message)
	case errors.As(err, &knownFieldsErr):
		return BadRequest(c, knownFieldsErr.Code, knownFieldsErr.Message, knownFieldsErr.Fields)
	case errors.As(err, &validationErr):
		var data any
		if validationErr.Field != "" {
			data = pkg.FieldValidations{validationErr.Field: validationErr.Message}
		}

		return UnprocessableEntity(c, validationErr.Code, validationErr.Message, data)
	case errors.As(err, &unprocessableErr):
		return UnprocessableEntity(c, unprocessableErr.Code, unprocessableErr.Message, nil)
	case errors.As(err, &unauthorizedErr):
		return Unauthorized(c, unauthorizedErr.Code, unauthorizedErr.Message)
	case errors.As(err, &metadataErr):
		return InternalServerError(c, metadataErr.Code, metadataErr.Message)
	case errors.As(err, &connectionErr):
		return InternalServerError(c, connectionErr.Code, connectionErr.Message)
	case errors.As(err, &executionErr):
		return InternalServerError(c, executionErr.Code, executionErr.Message)
	case errors.As(err, &internalErr):
		return InternalServerError(c, internalErr.Code, internalErr.Message)
	case errors.As(err, &responseErr):
		return Respond(c, model.Envelope{StatusCode: responseErr.Code, Message: responseErr.Message})
	default:
		var iErr pkg.InternalServerError
		_ = errors.As(pkg.ValidateInternalError(err, ""), &iErr)

		return InternalServerError(c, iErr.Code, iErr.Message)
	}
}
