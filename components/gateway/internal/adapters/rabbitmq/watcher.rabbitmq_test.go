// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package rabbitmq

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/multitenant"

	libLog "github.com/LerianStudio/lib-commons/v3/commons/log"
	libRabbitmq "github.com/LerianStudio/lib-commons/v3/commons/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeBroker struct {
	up         atomic.Bool
	reconnects atomic.Int32
	failWith   error
}

func (b *fakeBroker) reconnect() error {
	b.reconnects.Add(1)

	if b.failWith != nil {
		return b.failWith
	}

	b.up.Store(true)

	return nil
}

func newTestWatcher(t *testing.T, broker *fakeBroker, interval time.Duration) (*BrokerWatcher, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := multitenant.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	w := NewBrokerWatcher(&libRabbitmq.RabbitMQConnection{}, &libLog.NoneLogger{}, metrics, interval)
	w.alive = broker.up.Load
	w.reconnect = broker.reconnect

	return w, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}

	return out
}

func reconnectCount(t *testing.T, reader *sdkmetric.ManualReader, outcome string) int64 {
	t.Helper()

	sum, ok := collect(t, reader)["audit_broker_reconnects_total"].(metricdata.Sum[int64])
	if !ok {
		return 0
	}

	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value("outcome"); found && v.AsString() == outcome {
			return dp.Value
		}
	}

	return 0
}

func brokerUp(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()

	gauge, ok := collect(t, reader)["audit_broker_up"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)

	return gauge.DataPoints[0].Value
}

func TestBrokerWatcher_Check(t *testing.T) {
	t.Parallel()

	t.Run("healthy connection is left alone", func(t *testing.T) {
		t.Parallel()

		broker := &fakeBroker{}
		broker.up.Store(true)

		w, reader := newTestWatcher(t, broker, time.Hour)
		w.Check(context.Background())

		assert.Zero(t, broker.reconnects.Load())
		assert.Equal(t, int64(1), brokerUp(t, reader))

		ready, msg := w.Ready()
		assert.True(t, ready)
		assert.Empty(t, msg)
	})

	t.Run("down connection is reconnected", func(t *testing.T) {
		t.Parallel()

		broker := &fakeBroker{}

		w, reader := newTestWatcher(t, broker, time.Hour)

		ready, msg := w.Ready()
		assert.False(t, ready)
		assert.Equal(t, "connection is closed", msg)

		w.Check(context.Background())

		assert.Equal(t, int32(1), broker.reconnects.Load())
		assert.Equal(t, int64(1), reconnectCount(t, reader, "success"))
		assert.Equal(t, int64(1), brokerUp(t, reader))

		ready, _ = w.Ready()
		assert.True(t, ready)
	})

	t.Run("failed reconnect marks the broker down", func(t *testing.T) {
		t.Parallel()

		broker := &fakeBroker{failWith: errors.New("dial tcp: connection refused")}

		w, reader := newTestWatcher(t, broker, time.Hour)
		w.Check(context.Background())
		w.Check(context.Background())

		assert.Equal(t, int32(2), broker.reconnects.Load())
		assert.Equal(t, int64(2), reconnectCount(t, reader, "failure"))
		assert.Zero(t, reconnectCount(t, reader, "success"))
		assert.Equal(t, int64(0), brokerUp(t, reader))

		ready, msg := w.Ready()
		assert.False(t, ready)
		assert.Equal(t, "reconnect failed", msg)
	})
}

func TestBrokerWatcher_ReconnectsOnCloseNotification(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{}
	broker.up.Store(true)

	closes := make(chan *amqp.Error, 1)

	w, reader := newTestWatcher(t, broker, time.Hour)
	w.notify = func() <-chan *amqp.Error { return closes }

	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool {
		_, ok := collect(t, reader)["audit_broker_up"]
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.Zero(t, broker.reconnects.Load())

	broker.up.Store(false)
	closes <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker shutdown"}

	require.Eventually(t, func() bool {
		return broker.reconnects.Load() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return reconnectCount(t, reader, "success") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBrokerWatcher_RetriesOnInterval(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{failWith: errors.New("still down")}

	w, _ := newTestWatcher(t, broker, 10*time.Millisecond)
	w.notify = func() <-chan *amqp.Error { return nil }

	w.Start()

	require.Eventually(t, func() bool {
		return broker.reconnects.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	w.Stop()

	stopped := broker.reconnects.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, broker.reconnects.Load())
}

func TestBrokerWatcher_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("stop without start returns", func(t *testing.T) {
		t.Parallel()

		w, _ := newTestWatcher(t, &fakeBroker{}, time.Hour)

		done := make(chan struct{})

		go func() {
			w.Stop()
			w.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Stop blocked on a watcher that never started")
		}
	})

	t.Run("start is idempotent", func(t *testing.T) {
		t.Parallel()

		broker := &fakeBroker{}
		broker.up.Store(true)

		w, _ := newTestWatcher(t, broker, time.Hour)
		w.notify = func() <-chan *amqp.Error { return nil }

		w.Start()
		w.Start()
		w.Stop()
	})
}

func TestNewBrokerWatcher_Defaults(t *testing.T) {
	t.Parallel()

	w := NewBrokerWatcher(&libRabbitmq.RabbitMQConnection{}, &libLog.NoneLogger{}, nil, 0)

	assert.Equal(t, constant.AuditBrokerCheckInterval, w.interval)
	require.NotNil(t, w.metrics)
	assert.NotNil(t, w.metrics.AuditBrokerReconnectsTotal)
}

func TestBrokerWatcher_ConnectionAlive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		conn *libRabbitmq.RabbitMQConnection
	}{
		{name: "nil connection", conn: nil},
		{name: "not connected flag", conn: &libRabbitmq.RabbitMQConnection{Connected: false}},
		{name: "connected without amqp connection", conn: &libRabbitmq.RabbitMQConnection{Connected: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := &BrokerWatcher{conn: tt.conn}

			assert.False(t, w.connectionAlive())
			assert.Nil(t, w.closeNotifications())
		})
	}
}
