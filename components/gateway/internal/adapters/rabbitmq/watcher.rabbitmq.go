// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/multitenant"

	"github.com/LerianStudio/lib-commons/v3/commons/log"
	libRabbitmq "github.com/LerianStudio/lib-commons/v3/commons/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BrokerWatcher keeps the audit broker connection usable between logins.
// It wakes when the broker closes the connection, or every interval when no
// notification arrives, and reconnects through EnsureChannel. Its state feeds
// the readiness endpoint and the audit_broker_* metrics.
type BrokerWatcher struct {
	conn     *libRabbitmq.RabbitMQConnection
	logger   log.Logger
	metrics  *multitenant.Metrics
	interval time.Duration

	alive     func() bool
	reconnect func() error
	notify    func() <-chan *amqp.Error

	// owned by the run goroutine
	watched *amqp.Connection
	closed  <-chan *amqp.Error

	mu      sync.Mutex
	lastErr error
	started bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewBrokerWatcher returns a stopped watcher for conn. A nil metrics falls back
// to no-op instruments and a non-positive interval to AuditBrokerCheckInterval.
func NewBrokerWatcher(conn *libRabbitmq.RabbitMQConnection, logger log.Logger, metrics *multitenant.Metrics, interval time.Duration) *BrokerWatcher {
	if metrics == nil {
		metrics = multitenant.NoopMetrics()
	}

	if interval <= 0 {
		interval = constant.AuditBrokerCheckInterval
	}

	w := &BrokerWatcher{
		conn:     conn,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	w.alive = w.connectionAlive
	w.reconnect = conn.EnsureChannel
	w.notify = w.closeNotifications

	return w
}

// Start launches the watch loop. Calling it more than once has no effect.
func (w *BrokerWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}

	w.started = true

	pkg.GoNamed(w.logger, "audit-broker-watcher", w.run)
}

// Stop ends the watch loop and waits for it to return. It is safe to call on a
// watcher that was never started and to call more than once.
func (w *BrokerWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	if started {
		<-w.done
	}
}

// Ready reports whether audit events can be published right now, with a short
// reason when they cannot.
func (w *BrokerWatcher) Ready() (bool, string) {
	if w.alive() {
		return true, ""
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lastErr != nil {
		return false, "reconnect failed"
	}

	return false, "connection is closed"
}

// Check reconnects when the connection is down and records the outcome.
func (w *BrokerWatcher) Check(ctx context.Context) {
	if w.alive() {
		w.record(ctx, nil)

		return
	}

	w.logger.Warn("Audit broker connection is down, reconnecting")

	err := w.reconnect()

	outcome := "success"
	if err != nil {
		outcome = "failure"

		w.logger.Errorf("Audit broker reconnect failed, next attempt in %v: %v", w.interval, err)
	} else {
		w.logger.Info("Audit broker reconnected")
	}

	w.metrics.AuditBrokerReconnectsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	w.record(ctx, err)
}

func (w *BrokerWatcher) record(ctx context.Context, err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	up := int64(1)
	if err != nil {
		up = 0
	}

	w.metrics.AuditBrokerUp.Record(ctx, up)
}

func (w *BrokerWatcher) run() {
	defer close(w.done)

	ctx := context.Background()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)

	for {
		select {
		case <-w.stop:
			return
		case amqpErr, ok := <-w.notify():
			w.closed = nil

			if ok && amqpErr != nil {
				w.logger.Warnf("Audit broker closed the connection: %v", amqpErr)
			}

			w.Check(ctx)
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// connectionAlive reports whether both the connection and its channel are open.
func (w *BrokerWatcher) connectionAlive() bool {
	if w.conn == nil || !w.conn.Connected {
		return false
	}

	if w.conn.Connection == nil || w.conn.Connection.IsClosed() {
		return false
	}

	return w.conn.Channel != nil && !w.conn.Channel.IsClosed()
}

// closeNotifications subscribes once per amqp connection. It returns nil, which
// blocks forever in a select, when there is no open connection or the current
// one already delivered its close notification.
func (w *BrokerWatcher) closeNotifications() <-chan *amqp.Error {
	if w.conn == nil {
		return nil
	}

	current := w.conn.Connection
	if current == nil || current.IsClosed() {
		return nil
	}

	if current != w.watched {
		w.watched = current
		w.closed = current.NotifyClose(make(chan *amqp.Error, 1))
	}

	return w.closed
}
