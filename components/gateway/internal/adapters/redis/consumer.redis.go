// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	tmValkey "github.com/LerianStudio/lib-commons/v3/commons/tenant-manager/valkey"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// ClientProvider hands out the shared Redis client.
// *libRedis.RedisConnection satisfies it.
type ClientProvider interface {
	GetClient(ctx context.Context) (goredis.UniversalClient, error)
}

// RedisRepository provides an interface for redis.
// Keys are namespaced by the tenant carried in context.
//
//go:generate mockgen --destination=consumer.redis.mock.go --package=redis . RedisRepository
type RedisRepository interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// RedisConsumerRepository is a Redis implementation of the Redis consumer.
type RedisConsumerRepository struct {
	conn ClientProvider
}

// Compile-time interface satisfaction check.
var _ RedisRepository = (*RedisConsumerRepository)(nil)

// NewConsumerRedis returns a new instance of RedisRepository using the given Redis connection.
func NewConsumerRedis(rc ClientProvider) (*RedisConsumerRepository, error) {
	r := &RedisConsumerRepository{
		conn: rc,
	}
	if _, err := r.conn.GetClient(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return r, nil
}

// Set sets a key in the redis
func (rc *RedisConsumerRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.redis.set")
	defer span.End()

	key = tmValkey.GetKeyFromContext(ctx, key)

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.key", key),
		attribute.String("app.request.ttl", ttl.String()),
	)

	rds, err := rc.conn.GetClient(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to get redis", err)

		return err
	}

	if err = rds.Set(ctx, key, value, ttl).Err(); err != nil {
		pkg.HandleSpanError(span, "Failed to set on redis", err)

		return err
	}

	return nil
}

// Get recovers a key from the redis.
// A missing key returns goredis.Nil.
func (rc *RedisConsumerRepository) Get(ctx context.Context, key string) (string, error) {
	_, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.redis.get")
	defer span.End()

	key = tmValkey.GetKeyFromContext(ctx, key)

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.key", key),
	)

	rds, err := rc.conn.GetClient(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to get redis", err)

		return "", err
	}

	val, err := rds.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			pkg.HandleSpanError(span, "Failed to get on redis", err)
		}

		return "", err
	}

	return val, nil
}

// Del deletes a key from the redis
func (rc *RedisConsumerRepository) Del(ctx context.Context, key string) error {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.redis.del")
	defer span.End()

	key = tmValkey.GetKeyFromContext(ctx, key)

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.key", key),
	)

	rds, err := rc.conn.GetClient(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to del redis", err)

		return err
	}

	val, err := rds.Del(ctx, key).Result()
	if err != nil {
		pkg.HandleSpanError(span, "Failed to del on redis", err)

		return err
	}

	logger.Infof("Deleted %d key(s) for %s", val, key)

	return nil
}
