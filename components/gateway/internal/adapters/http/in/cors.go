// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package in

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORSConfig holds explicit CORS configuration loaded from environment variables.
// Origins, methods, and headers are comma-separated strings.
type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// CORSMiddleware returns a Fiber middleware that configures CORS from explicit origins.
// Credentials are allowed only for an explicit origin list, since the session
// travels in a cookie and fiber rejects credentials with a wildcard origin.
func CORSMiddleware(cfg CORSConfig) fiber.Handler {
	origins := sanitizeOrigins(cfg.AllowedOrigins)

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     sanitizeCommaSeparated(cfg.AllowedMethods),
		AllowHeaders:     sanitizeCommaSeparated(cfg.AllowedHeaders),
		AllowCredentials: allowsCredentials(origins),
		Next:             corsSkipPath,
	})
}

// corsSkipPath returns true for infrastructure paths that never serve browsers.
func corsSkipPath(c *fiber.Ctx) bool {
	switch c.Path() {
	case "/health", "/ready", "/version":
		return true
	}

	return false
}

func allowsCredentials(origins string) bool {
	if origins == "" {
		return false
	}

	for _, o := range strings.Split(origins, ",") {
		if o == "*" {
			return false
		}
	}

	return true
}

// sanitizeOrigins splits a comma-separated origin string, drops empty segments
// and keeps only well-formed scheme://host origins. The wildcard "*" is kept as is.
func sanitizeOrigins(input string) string {
	parts := strings.Split(input, ",")

	var clean []string

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if p == "*" {
			clean = append(clean, p)
			continue
		}

		if isValidOrigin(p) {
			clean = append(clean, p)
		}
	}

	return strings.Join(clean, ",")
}

// isValidOrigin checks for scheme "://" host [ ":" port ] with nothing else.
func isValidOrigin(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return false
	}

	if parsed.Path != "" && parsed.Path != "/" {
		return false
	}

	if parsed.RawQuery != "" || parsed.Fragment != "" || parsed.User != nil {
		return false
	}

	return true
}

// sanitizeCommaSeparated trims each segment and drops empty ones.
func sanitizeCommaSeparated(input string) string {
	parts := strings.Split(input, ",")

	var clean []string

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			clean = append(clean, p)
		}
	}

	return strings.Join(clean, ",")
}
