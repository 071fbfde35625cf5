// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package in

import (
	"context"
	"errors"
	"time"

	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/redis"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/net/http"

	"github.com/LerianStudio/lib-commons/v3/commons/log"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
)

const readinessCheckTimeout = 2 * time.Second

// Pinger is satisfied by the default database repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus reports whether the audit broker can take events.
type BrokerStatus interface {
	Ready() (bool, string)
}

// ReadinessDeps holds the dependency connections checked by /ready.
// The audit broker is checked only when audit publishing is enabled.
type ReadinessDeps struct {
	DefaultDB   Pinger
	Redis       redis.ClientProvider
	AuditBroker BrokerStatus
}

// RouteConfig holds the HTTP settings of the gateway.
type RouteConfig struct {
	Version   string
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Cookie    SessionCookieConfig
	BodyLimit int
}

// NewRoutes creates a new fiber router with the specified handlers and middleware.
func NewRoutes(lg log.Logger, cfg RouteConfig, authHandler *AuthHandler, procedureHandler *ProcedureHandler, deps *ReadinessDeps) *fiber.App {
	f := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return http.Respond(c, model.Envelope{StatusCode: e.Code, Message: e.Message})
			}

			return http.WithError(c, err)
		},
	})

	f.Use(RecoverMiddleware())
	f.Use(SecurityHeaders())
	f.Use(CORSMiddleware(cfg.CORS))
	f.Use(otelfiber.Middleware(otelfiber.WithNext(isHealthRequest)))
	f.Use(WithTracking(lg))
	f.Use(RateLimiterMiddleware(cfg.RateLimit))

	session := WithSession(authHandler.Service, cfg.Cookie)

	// Auth routes
	f.Post("/v1/auth/login", http.WithBody(new(model.LoginInput), authHandler.Login))
	f.Post("/v1/auth/logout", authHandler.Logout)
	f.Get("/v1/auth/me", session, authHandler.Me)

	// Generic invocation routes
	f.Post("/v1/procedures/execute", session, http.WithRawBody(procedureHandler.ExecuteProcedure))
	f.Post("/v1/schema", session, http.WithRawBody(procedureHandler.GetSchema))
	f.Post("/v1/records", session, http.WithBody(new(model.RegisterRecordsInput), procedureHandler.RegisterRecords))

	// Health
	f.Get("/health", ping)

	// Readiness - checks all dependency connections
	f.Get("/ready", readinessHandler(deps))

	// Version
	f.Get("/version", version(cfg.Version))

	return f
}

func isHealthRequest(c *fiber.Ctx) bool {
	return isHealthPath(c.Path())
}

func ping(c *fiber.Ctx) error {
	return c.SendString("healthy")
}

func version(v string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"name":        constant.ApplicationName,
			"version":     v,
			"requestDate": time.Now().UTC(),
		})
	}
}

// dependencyResult represents the health status of a single dependency in the readiness check.
type dependencyResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// readinessHandler returns 200 when every dependency is ready and 503 otherwise.
func readinessHandler(deps *ReadinessDeps) fiber.Handler {
	if deps == nil {
		deps = &ReadinessDeps{}
	}

	return func(c *fiber.Ctx) error {
		httpStatus := fiber.StatusOK
		results := make(map[string]*dependencyResult)

		results["database"] = checkDatabase(c.UserContext(), deps.DefaultDB)
		results["redis"] = checkRedis(c.UserContext(), deps.Redis)

		if deps.AuditBroker != nil {
			results["rabbitmq"] = checkAuditBroker(deps.AuditBroker)
		}

		for _, result := range results {
			if result.Status != "ready" {
				httpStatus = fiber.StatusServiceUnavailable

				break
			}
		}

		overallStatus := "ready"
		if httpStatus == fiber.StatusServiceUnavailable {
			overallStatus = "not_ready"
		}

		return c.Status(httpStatus).JSON(fiber.Map{
			"status":       overallStatus,
			"dependencies": results,
		})
	}
}

// checkDatabase pings the default connection with a timeout.
func checkDatabase(ctx context.Context, db Pinger) *dependencyResult {
	if db == nil {
		return &dependencyResult{Status: "not_ready", Message: "connection not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, readinessCheckTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return &dependencyResult{Status: "not_ready", Message: "ping failed"}
	}

	return &dependencyResult{Status: "ready"}
}

// checkRedis pings the Redis/Valkey connection with a timeout.
func checkRedis(ctx context.Context, conn redis.ClientProvider) *dependencyResult {
	if conn == nil {
		return &dependencyResult{Status: "not_ready", Message: "connection not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, readinessCheckTimeout)
	defer cancel()

	client, err := conn.GetClient(ctx)
	if err != nil {
		return &dependencyResult{Status: "not_ready", Message: "failed to get client"}
	}

	if _, err = client.Ping(ctx).Result(); err != nil {
		return &dependencyResult{Status: "not_ready", Message: "ping failed"}
	}

	return &dependencyResult{Status: "ready"}
}

// checkAuditBroker reads the state kept by the broker watcher; it does no I/O.
func checkAuditBroker(broker BrokerStatus) *dependencyResult {
	if ready, reason := broker.Ready(); !ready {
		return &dependencyResult{Status: "not_ready", Message: reason}
	}

	return &dependencyResult{Status: "ready"}
}
