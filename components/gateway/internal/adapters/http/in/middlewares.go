// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package in

import (
	"github.com/LerianStudio/procedure-gateway/pkg/constant"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/LerianStudio/lib-commons/v3/commons/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

// SecurityHeaders returns a Fiber middleware that sets standard HTTP security
// headers on every response.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "0")
		c.Set("Cache-Control", "no-store")

		return c.Next()
	}
}

// RecoverMiddleware keeps a panicking handler from crashing the server process.
func RecoverMiddleware() fiber.Handler {
	return recover.New()
}

// WithTracking puts the request id, logger and tracer in the request context
// so services can call libCommons.NewTrackingFromContext.
// An inbound X-Request-Id is kept; otherwise a new one is generated.
func WithTracking(logger log.Logger) fiber.Handler {
	tracer := otel.Tracer(constant.ApplicationName)

	return func(c *fiber.Ctx) error {
		requestID := c.Get(constant.HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		c.Set(constant.HeaderRequestID, requestID)

		ctx := libCommons.ContextWithHeaderID(c.UserContext(), requestID)
		ctx = libCommons.ContextWithLogger(ctx, logger)
		ctx = libCommons.ContextWithTracer(ctx, tracer)

		c.SetUserContext(ctx)

		return c.Next()
	}
}
