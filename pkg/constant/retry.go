// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package constant

import "time"

// RabbitMQ Producer Retry Configuration
const (
	// ProducerMaxRetries is the maximum number of publish retry attempts before giving up.
	ProducerMaxRetries = 3

	// ProducerInitialBackoff is the initial delay before the first retry attempt.
	ProducerInitialBackoff = 200 * time.Millisecond

	// ProducerMaxBackoff is the upper bound for the producer retry backoff delay.
	ProducerMaxBackoff = 5 * time.Second

	// ProducerBackoffFactor is the multiplier applied to the backoff on each successive retry.
	ProducerBackoffFactor = 2.0
)

// AuditRoutingKeyPrefix prefixes routing keys of authentication audit events.
const AuditRoutingKeyPrefix = "gateway.auth."

// DefaultAuditExchange receives authentication audit events when no exchange is configured.
const DefaultAuditExchange = "gateway.audit"

// AuditBrokerCheckInterval is the fallback period between audit broker checks when no close notification arrives.
const AuditBrokerCheckInterval = 10 * time.Second
