// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package in

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/redis"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"

	"github.com/LerianStudio/lib-commons/v3/commons/log"
	"github.com/gofiber/fiber/v2"
	goredis "github.com/redis/go-redis/v9"
)

// rateLimitKeyPrefix keeps limiter counters apart from sessions and descriptors.
const rateLimitKeyPrefix = "rate_limit:"

// resetScanBatch is the SCAN page size used by Reset.
const resetScanBatch = 100

// RateLimitStorage is the storage backend of the rate limiter.
type RateLimitStorage = fiber.Storage

// RedisStorage holds rate limiter counters in Redis, shared by every gateway
// instance. The limiter hands it keys shaped <tier>:<client address>; the address
// is stored as a digest so Redis never holds raw client IPs.
//
// Redis failures let traffic through: a counter that cannot be read counts as
// missing and writes that fail are logged and dropped.
type RedisStorage struct {
	conn   redis.ClientProvider
	logger log.Logger
}

var _ fiber.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new RedisStorage wrapping the given connection.
func NewRedisStorage(conn redis.ClientProvider, logger log.Logger) *RedisStorage {
	return &RedisStorage{
		conn:   conn,
		logger: logger,
	}
}

// counterKey maps a limiter key to its Redis key.
func counterKey(key string) string {
	tier, client, found := strings.Cut(key, ":")
	if !found {
		return rateLimitKeyPrefix + clientDigest(key)
	}

	return rateLimitKeyPrefix + tier + ":" + clientDigest(client)
}

func clientDigest(client string) string {
	sum := sha256.Sum256([]byte(client))

	return hex.EncodeToString(sum[:8])
}

// run executes fn with a client under the Redis operation timeout. Failures,
// other than a missing key, are logged and swallowed.
func (s *RedisStorage) run(op string, fn func(ctx context.Context, client goredis.UniversalClient) error) {
	if s.conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constant.RedisOperationTimeout)
	defer cancel()

	client, err := s.conn.GetClient(ctx)
	if err != nil {
		s.logger.Errorf("rate limit %s: redis client unavailable: %v", op, err)

		return
	}

	if err := fn(ctx, client); err != nil && !errors.Is(err, goredis.Nil) {
		s.logger.Errorf("rate limit %s: %v", op, err)
	}
}

// Get returns the stored counter, or nil when it is missing or Redis fails.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	var counter []byte

	s.run("get", func(ctx context.Context, client goredis.UniversalClient) error {
		val, err := client.Get(ctx, counterKey(key)).Bytes()
		if err != nil {
			return err
		}

		counter = val

		return nil
	})

	return counter, nil
}

// Set stores val for exp.
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	s.run("set", func(ctx context.Context, client goredis.UniversalClient) error {
		return client.Set(ctx, counterKey(key), val, exp).Err()
	})

	return nil
}

// Delete removes the counter of key.
func (s *RedisStorage) Delete(key string) error {
	s.run("delete", func(ctx context.Context, client goredis.UniversalClient) error {
		return client.Del(ctx, counterKey(key)).Err()
	})

	return nil
}

// Reset clears every limiter counter. Sessions and cached descriptors share the
// keyspace and are left alone.
func (s *RedisStorage) Reset() error {
	s.run("reset", func(ctx context.Context, client goredis.UniversalClient) error {
		iter := client.Scan(ctx, 0, rateLimitKeyPrefix+"*", resetScanBatch).Iterator()

		pipe := client.Pipeline()

		for iter.Next(ctx) {
			pipe.Del(ctx, iter.Val())
		}

		if err := iter.Err(); err != nil {
			return err
		}

		if pipe.Len() == 0 {
			return nil
		}

		_, err := pipe.Exec(ctx)

		return err
	})

	return nil
}

// Close is a no-op. The connection lifecycle belongs to bootstrap.
func (s *RedisStorage) Close() error {
	return nil
}
