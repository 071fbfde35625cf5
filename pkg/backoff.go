// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
)

// Backoff describes an exponential retry schedule with a ceiling.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// ProducerBackoff is the schedule used when publishing audit events.
var ProducerBackoff = Backoff{
	Initial: constant.ProducerInitialBackoff,
	Max:     constant.ProducerMaxBackoff,
	Factor:  constant.ProducerBackoffFactor,
}

// TenantConnectBackoff is the schedule used when opening a tenant pool.
var TenantConnectBackoff = Backoff{
	Initial: constant.TenantConnectInitialBackoff,
	Max:     constant.TenantConnectMaxBackoff,
	Factor:  constant.TenantConnectBackoffFactor,
}

// FullJitter returns a random duration in [0, baseDelay], capped at b.Max.
// Uses crypto/rand for unbiased distribution.
func (b Backoff) FullJitter(baseDelay time.Duration) time.Duration {
	if baseDelay <= 0 {
		return 0
	}

	ceiling := baseDelay
	if b.Max > 0 && ceiling > b.Max {
		ceiling = b.Max
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(ceiling)))
	if err != nil {
		return ceiling / 2
	}

	return time.Duration(n.Int64())
}

// Next multiplies the current delay by b.Factor, capped at b.Max.
func (b Backoff) Next(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * b.Factor)
	if b.Max > 0 && next > b.Max {
		return b.Max
	}

	return next
}
