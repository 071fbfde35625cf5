// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	libRabbitmq "github.com/LerianStudio/lib-commons/v3/commons/rabbitmq"
	tmcore "github.com/LerianStudio/lib-commons/v3/commons/tenant-manager/core"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// sleepFunc is the function used for sleeping between retries.
// Overridable in tests for deterministic behavior.
var sleepFunc = time.Sleep

// tenantHeader carries the tenant fingerprint of the event.
const tenantHeader = "X-Tenant-ID"

// ProducerRepository publishes authentication audit events.
//
//go:generate mockgen --destination=producer.rabbitmq.mock.go --package=rabbitmq . ProducerRepository
type ProducerRepository interface {
	PublishAuthenticationEvent(ctx context.Context, event model.AuthenticationEvent) error
}

type publishFunc func(exchange, key string, msg amqp.Publishing) error

// ProducerRabbitMQRepository is a rabbitmq implementation of the producer
type ProducerRabbitMQRepository struct {
	conn          *libRabbitmq.RabbitMQConnection
	exchange      string
	ensureChannel func() error
	publish       publishFunc
}

// Compile-time interface satisfaction check.
var _ ProducerRepository = (*ProducerRabbitMQRepository)(nil)

// NewProducerRabbitMQ returns a new instance of ProducerRabbitMQRepository using the given rabbitmq connection.
// Connection is established lazily on first use to avoid panic during initialization.
func NewProducerRabbitMQ(c *libRabbitmq.RabbitMQConnection, exchange string) *ProducerRabbitMQRepository {
	prmq := &ProducerRabbitMQRepository{
		conn:          c,
		exchange:      exchange,
		ensureChannel: c.EnsureChannel,
	}

	prmq.publish = func(exchange, key string, msg amqp.Publishing) error {
		return prmq.conn.Channel.Publish(exchange, key, false, false, msg)
	}

	if _, err := c.GetNewConnect(); err != nil {
		c.Logger.Errorf("Failed to connect to RabbitMQ during initialization: %v", err)
		c.Logger.Warn("RabbitMQ connection will be retried on first audit event")
	} else {
		c.Logger.Info("RabbitMQ audit producer connected successfully")
	}

	return prmq
}

// buildProducerHeaders returns the AMQP headers for a message published in ctx.
// The tenant header is set only for a non-empty tenant id.
func buildProducerHeaders(ctx context.Context, tenantID string) amqp.Table {
	_, _, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	headers := amqp.Table{
		constant.HeaderRequestID: reqId,
		"x-retry-count":          0,
	}

	if tenantID != "" {
		headers[tenantHeader] = tenantID
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		headers[k] = v
	}

	return headers
}

// RoutingKey returns the routing key of an event: gateway.auth.<stage>.<outcome>.
func RoutingKey(event model.AuthenticationEvent) string {
	return constant.AuditRoutingKeyPrefix + string(event.Stage) + "." + event.Outcome
}

// PublishAuthenticationEvent publishes event with retry.
// On each attempt it calls EnsureChannel() to restore the channel if the connection
// dropped, then publishes. Retries up to ProducerMaxRetries with exponential backoff
// and full jitter to prevent thundering herd after a broker restart.
func (prmq *ProducerRabbitMQRepository) PublishAuthenticationEvent(ctx context.Context, event model.AuthenticationEvent) error {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, spanProducer := tracer.Start(ctx, "repository.rabbitmq.publish_authentication_event")
	defer spanProducer.End()

	key := RoutingKey(event)

	spanProducer.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.exchange", prmq.exchange),
		attribute.String("app.request.key", key),
	)

	message, err := json.Marshal(event)
	if err != nil {
		pkg.HandleSpanError(spanProducer, "Failed to marshal authentication event", err)

		return err
	}

	headers := buildProducerHeaders(ctx, event.TenantFingerprint)
	if event.TenantFingerprint == "" {
		if tenantID := tmcore.GetTenantIDFromContext(ctx); tenantID != "" {
			headers[tenantHeader] = tenantID
		}
	}

	backoff := pkg.ProducerBackoff.Initial

	var publishErr error

	for attempt := 0; attempt <= constant.ProducerMaxRetries; attempt++ {
		if chanErr := prmq.ensureChannel(); chanErr != nil {
			logger.Errorf("EnsureChannel failed (attempt %d/%d): %v", attempt+1, constant.ProducerMaxRetries+1, chanErr)

			spanProducer.SetAttributes(attribute.Int("app.request.rabbitmq.retry_attempt", attempt))

			if attempt == constant.ProducerMaxRetries {
				pkg.HandleSpanError(spanProducer, "Failed to ensure RabbitMQ channel after all retries", chanErr)

				return chanErr
			}

			sleepFunc(pkg.ProducerBackoff.FullJitter(backoff))

			backoff = pkg.ProducerBackoff.Next(backoff)

			continue
		}

		publishErr = prmq.publish(prmq.exchange, key, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Timestamp:    event.OccurredAt,
			MessageId:    event.EventID,
			Body:         message,
		})
		if publishErr == nil {
			logger.Infof("Authentication event %s published to %s", event.EventID, key)

			return nil
		}

		logger.Errorf("Publish failed (attempt %d/%d): %v", attempt+1, constant.ProducerMaxRetries+1, publishErr)

		spanProducer.SetAttributes(attribute.Int("app.request.rabbitmq.retry_attempt", attempt))

		if attempt == constant.ProducerMaxRetries {
			pkg.HandleSpanError(spanProducer, "Failed to publish message after all retries", publishErr)

			return publishErr
		}

		sleepFunc(pkg.ProducerBackoff.FullJitter(backoff))

		backoff = pkg.ProducerBackoff.Next(backoff)
	}

	return publishErr
}
