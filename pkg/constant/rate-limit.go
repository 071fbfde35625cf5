// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

import "time"

// Rate Limiting Defaults
const (
	// RateLimitDefaultGlobalMax is the default maximum number of requests per
	// window for the global (catch-all) rate limit tier.
	RateLimitDefaultGlobalMax = 300

	// RateLimitDefaultAuthMax is the default maximum number of login attempts
	// per window for a single client.
	RateLimitDefaultAuthMax = 10

	// RateLimitDefaultInvokeMax is the default maximum number of generic
	// invocations per window for a single client.
	RateLimitDefaultInvokeMax = 120

	// RateLimitDefaultWindow is the default window duration for all tiers.
	RateLimitDefaultWindow = 60 * time.Second
)

// Rate Limiting Upper Bounds
const (
	RateLimitMaxGlobal = 10000
	RateLimitMaxAuth   = 1000
	RateLimitMaxInvoke = 5000
)
