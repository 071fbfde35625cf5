// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package in

import (
	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/services"
	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/net/http"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler struct contains the use case for login, logout and session lookups.
type AuthHandler struct {
	Service *services.UseCase
	Cookie  SessionCookieConfig
}

// Login authenticates a user against the tenant directory.
func (h *AuthHandler) Login(p any, c *fiber.Ctx) error {
	ctx := c.UserContext()

	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "handler.login")
	defer span.End()

	input := p.(*model.LoginInput)

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.username", input.Usuario),
	)

	session, err := h.Service.AuthenticateUser(ctx, input, c.Get(fiber.HeaderUserAgent))
	if err != nil {
		pkg.HandleSpanBusinessErrorEvent(span, "Login failed", err)

		return http.WithError(c, err)
	}

	h.Cookie.set(c, session.ID)

	logger.Infof("User %s logged in", input.Usuario)

	return http.AuthSuccess(c, session.Principal)
}

// Logout ends the current session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	_, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "handler.logout")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	if err := h.Service.Logout(ctx, h.Cookie.sessionID(c)); err != nil {
		pkg.HandleSpanError(span, "Failed to log out", err)

		return http.WithError(c, err)
	}

	h.Cookie.clear(c)

	return http.NoContent(c)
}

// Me returns the principal of the current session.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := h.Service.CurrentPrincipal(c.UserContext())
	if err != nil {
		return http.WithError(c, err)
	}

	return http.AuthSuccess(c, principal)
}
