// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package in

import (
	"fmt"
	"strings"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds the configuration for the three-tier rate limiter:
//   - GlobalMax: catch-all limit for general API requests
//   - AuthMax: login attempts, the brute-force surface
//   - InvokeMax: generic invocations that reach tenant databases
type RateLimitConfig struct {
	Enabled   bool
	GlobalMax int
	AuthMax   int
	InvokeMax int
	Window    time.Duration
	Storage   RateLimitStorage
}

// healthPaths are never rate limited.
var healthPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/version": true,
}

// invokePaths reach a tenant database on every call.
var invokePaths = map[string]bool{
	"/v1/procedures/execute": true,
	"/v1/schema":             true,
	"/v1/records":            true,
}

func isHealthPath(path string) bool {
	return healthPaths[path]
}

func isAuthPath(path string) bool {
	return path == "/v1/auth/login"
}

func isInvokePath(path string) bool {
	return invokePaths[strings.TrimSuffix(path, "/")]
}

// RateLimiterMiddleware enforces independent tiers keyed by client IP.
// Exhausting one tier does not affect the others. When cfg.Enabled is false it is a passthrough.
func RateLimiterMiddleware(cfg RateLimitConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	limitReached := newRateLimitReachedHandler(cfg.Window)

	tier := func(name string, max int) fiber.Handler {
		return limiter.New(limiter.Config{
			Max:        max,
			Expiration: cfg.Window,
			Storage:    cfg.Storage,
			KeyGenerator: func(c *fiber.Ctx) string {
				return name + ":" + c.IP()
			},
			LimitReached: limitReached,
		})
	}

	globalLimiter := tier("global", cfg.GlobalMax)
	authLimiter := tier("auth", cfg.AuthMax)
	invokeLimiter := tier("invoke", cfg.InvokeMax)

	return func(c *fiber.Ctx) error {
		path := c.Path()

		switch {
		case isHealthPath(path):
			return c.Next()
		case isAuthPath(path):
			return authLimiter(c)
		case isInvokePath(path):
			return invokeLimiter(c)
		default:
			return globalLimiter(c)
		}
	}
}

// newRateLimitReachedHandler answers 429 with a Retry-After of one window.
func newRateLimitReachedHandler(window time.Duration) fiber.Handler {
	retryAfterSeconds := fmt.Sprintf("%d", int(window.Seconds()))

	return func(c *fiber.Ctx) error {
		if c.GetRespHeader(fiber.HeaderRetryAfter) == "" {
			c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		}

		return http.TooManyRequests(c, constant.ErrRateLimitExceeded.Error(),
			"Rate limit exceeded. Please retry after "+retryAfterSeconds+" seconds.")
	}
}
