// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package in

import (
	"strings"
	"time"

	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/services"
	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/net/http"
	"github.com/LerianStudio/procedure-gateway/pkg/tenant"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	tmCore "github.com/LerianStudio/lib-commons/v3/commons/tenant-manager/core"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
)

// SessionCookieConfig describes the cookie carrying the session id.
type SessionCookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

func (s SessionCookieConfig) name() string {
	if s.Name != "" {
		return s.Name
	}

	return constant.DefaultSessionCookieName
}

// sessionID reads the session cookie, falling back to a bearer token for API clients.
func (s SessionCookieConfig) sessionID(c *fiber.Ctx) string {
	if id := c.Cookies(s.name()); id != "" {
		return id
	}

	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > len("Bearer ") && strings.EqualFold(auth[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}

	return ""
}

func (s SessionCookieConfig) set(c *fiber.Ctx, id string) {
	c.Cookie(&fiber.Cookie{
		Name:     s.name(),
		Value:    id,
		Path:     constant.SessionCookiePath,
		MaxAge:   int(s.TTL.Seconds()),
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s SessionCookieConfig) clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.name(),
		Value:    "",
		Path:     constant.SessionCookiePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// WithSession resolves the request's session and puts its tenant pool and
// principal in the request context. The pool is held until the handler chain
// returns. Requests without a valid session get 401.
func WithSession(uc *services.UseCase, cookie SessionCookieConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

		ctx, span := tracer.Start(ctx, "middleware.session")

		span.SetAttributes(attribute.String("app.request.request_id", reqId))

		id := cookie.sessionID(c)
		if id == "" {
			err := pkg.ValidateBusinessError(constant.ErrSessionNotFound, "Session")

			pkg.HandleSpanBusinessErrorEvent(span, "Request without session", err)
			span.End()

			return http.WithError(c, err)
		}

		session, handle, err := uc.ResolveSession(ctx, id)
		if err != nil {
			logger.Warnf("Session rejected: %v", err)

			pkg.HandleSpanBusinessErrorEvent(span, "Session rejected", err)
			span.End()

			return http.WithError(c, err)
		}

		span.SetAttributes(attribute.String("app.request.tenant_fingerprint", handle.Fingerprint))
		span.End()

		defer handle.Release()

		ctx = tenant.ContextWithHandle(c.UserContext(), handle)
		ctx = model.ContextWithPrincipal(ctx, session.Principal)
		ctx = tmCore.SetTenantIDInContext(ctx, handle.Fingerprint)

		c.SetUserContext(ctx)
		c.Locals(sessionIDLocal, id)

		return c.Next()
	}
}

// sessionIDLocal holds the resolved session id for downstream handlers.
const sessionIDLocal = "session_id"
