// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package pkg

import (
	"errors"
	"fmt"
	"sync"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"

	"github.com/LerianStudio/lib-commons/v3/commons/log"
	"github.com/sony/gobreaker"
)

// CircuitBreakerManager manages one circuit breaker per tenant pool.
type CircuitBreakerManager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	mu       sync.RWMutex
	logger   log.Logger
}

// NewCircuitBreakerManager creates a new circuit breaker manager
func NewCircuitBreakerManager(logger log.Logger) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		logger:   logger,
	}
}

// GetOrCreate returns the breaker for key, creating it on first use.
func (cbm *CircuitBreakerManager) GetOrCreate(key string) *gobreaker.CircuitBreaker {
	cbm.mu.RLock()
	breaker, exists := cbm.breakers[key]
	cbm.mu.RUnlock()

	if exists {
		return breaker
	}

	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists = cbm.breakers[key]; exists {
		return breaker
	}

	breaker = gobreaker.NewCircuitBreaker(cbm.settings(key))
	cbm.breakers[key] = breaker

	cbm.logger.Infof("Created circuit breaker for tenant: %s", key)

	return breaker
}

func (cbm *CircuitBreakerManager) settings(key string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        fmt.Sprintf("tenant-%s", key),
		MaxRequests: constant.CircuitBreakerMaxRequests,
		Interval:    constant.CircuitBreakerInterval,
		Timeout:     constant.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures >= constant.CircuitBreakerThreshold ||
				(counts.Requests >= 10 && failureRatio >= 0.5)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				cbm.logger.Errorf("Circuit Breaker [%s] OPENED (%s -> %s), requests will fast-fail", name, from, to)
			case gobreaker.StateHalfOpen:
				cbm.logger.Infof("Circuit Breaker [%s] HALF-OPEN, testing tenant recovery", name)
			case gobreaker.StateClosed:
				cbm.logger.Infof("Circuit Breaker [%s] CLOSED, tenant is healthy", name)
			}
		},
	}
}

// ErrCircuitOpen is returned by Execute when the breaker rejects the call without running it.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Execute runs fn through the breaker for key.
// Rejections wrap ErrCircuitOpen so callers can tell them apart from fn failures.
func (cbm *CircuitBreakerManager) Execute(key string, fn func() (any, error)) (any, error) {
	breaker := cbm.GetOrCreate(key)

	result, err := breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		cbm.logger.Warnf("Circuit breaker [%s] rejected request: %v", key, err)

		return nil, fmt.Errorf("tenant %s: %w: %w", key, ErrCircuitOpen, err)
	}

	return result, err
}

// GetState returns the current state of a circuit breaker
func (cbm *CircuitBreakerManager) GetState(key string) string {
	cbm.mu.RLock()
	breaker, exists := cbm.breakers[key]
	cbm.mu.RUnlock()

	if !exists {
		return "not_initialized"
	}

	switch breaker.State() {
	case gobreaker.StateClosed:
		return constant.CircuitBreakerStateClosed
	case gobreaker.StateOpen:
		return constant.CircuitBreakerStateOpen
	case gobreaker.StateHalfOpen:
		return constant.CircuitBreakerStateHalfOpen
	default:
		return "unknown"
	}
}

// IsHealthy returns false only while the breaker for key is open.
func (cbm *CircuitBreakerManager) IsHealthy(key string) bool {
	return cbm.GetState(key) != constant.CircuitBreakerStateOpen
}

// Remove forgets the breaker for key. Called when the tenant pool is evicted.
func (cbm *CircuitBreakerManager) Remove(key string) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	delete(cbm.breakers, key)
}
