// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

import "time"

const (
	// EntityDescriptorKeyPrefix namespaces cached entity descriptors.
	EntityDescriptorKeyPrefix = "entity_descriptor"

	// SessionKeyPrefix namespaces authenticated sessions.
	SessionKeyPrefix = "session"

	// DefaultDescriptorCacheTTL is zero: descriptors are resolved per request unless configured.
	DefaultDescriptorCacheTTL = 0 * time.Second

	// DefaultSessionTTL bounds an idle authenticated session.
	DefaultSessionTTL = 8 * time.Hour

	// RedisOperationTimeout bounds a single storage round trip from middleware.
	RedisOperationTimeout = 2 * time.Second
)
