// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	libCrypto "github.com/LerianStudio/lib-commons/v3/commons/crypto"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// SessionRepository persists authenticated sessions.
// A session always holds its tenant credential and principal together.
//
//go:generate mockgen --destination=session.redis.mock.go --package=redis . SessionRepository
type SessionRepository interface {
	Save(ctx context.Context, session *model.Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionRedisRepository stores sessions as JSON with the tenant password encrypted.
// Session keys are global: they are resolved before any tenant is known.
type SessionRedisRepository struct {
	conn   ClientProvider
	crypto *libCrypto.Crypto
}

// Compile-time interface satisfaction check.
var _ SessionRepository = (*SessionRedisRepository)(nil)

// NewSessionRedisRepository returns a session store. The cipher must already be initialized.
func NewSessionRedisRepository(conn ClientProvider, crypto *libCrypto.Crypto) *SessionRedisRepository {
	return &SessionRedisRepository{conn: conn, crypto: crypto}
}

func sessionKey(id string) string {
	return constant.SessionKeyPrefix + ":" + id
}

// Save writes the session with the given ttl.
func (sr *SessionRedisRepository) Save(ctx context.Context, session *model.Session, ttl time.Duration) error {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.redis.save_session")
	defer span.End()

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.tenant.fingerprint", session.Credential.Fingerprint()),
	)

	if err := session.Validate(); err != nil {
		pkg.HandleSpanError(span, "Refusing to store incomplete session", err)

		return pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", err)
	}

	stored := *session

	encrypted, err := sr.crypto.Encrypt(&session.Credential.Password)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to encrypt tenant password", err)

		return pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", err)
	}

	stored.Credential.Password = *encrypted

	payload, err := json.Marshal(stored)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to marshal session", err)

		return pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", err)
	}

	rds, err := sr.conn.GetClient(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to get redis", err)

		return pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", err)
	}

	if err = rds.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		pkg.HandleSpanError(span, "Failed to set session on redis", err)
		logger.Errorf("Failed to store session: %v", err)

		return pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", err)
	}

	return nil
}

// Load reads a session and decrypts its tenant password.
// Unknown, expired and incomplete sessions are ErrSessionNotFound.
func (sr *SessionRedisRepository) Load(ctx context.Context, id string) (*model.Session, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.redis.load_session")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	if id == "" {
		return nil, pkg.ValidateBusinessError(constant.ErrSessionNotFound, "Session")
	}

	rds, err := sr.conn.GetClient(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to get redis", err)

		return nil, pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", err)
	}

	payload, err := rds.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, pkg.ValidateBusinessError(constant.ErrSessionNotFound, "Session")
	}

	if err != nil {
		pkg.HandleSpanError(span, "Failed to get session on redis", err)

		return nil, pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", err)
	}

	var session model.Session
	if err = json.Unmarshal(payload, &session); err != nil {
		logger.Warnf("Discarding unreadable session: %v", err)

		return nil, pkg.ValidateBusinessError(constant.ErrSessionNotFound, "Session", err)
	}

	password, err := sr.crypto.Decrypt(&session.Credential.Password)
	if err != nil {
		logger.Warnf("Discarding session with undecryptable credential: %v", err)

		return nil, pkg.ValidateBusinessError(constant.ErrSessionNotFound, "Session", err)
	}

	session.Credential.Password = *password

	if err = session.Validate(); err != nil {
		return nil, pkg.ValidateBusinessError(constant.ErrSessionNotFound, "Session", err)
	}

	return &session, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (sr *SessionRedisRepository) Delete(ctx context.Context, id string) error {
	_, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "repository.redis.delete_session")
	defer span.End()

	span.SetAttributes(attribute.String("app.request.request_id", reqId))

	rds, err := sr.conn.GetClient(ctx)
	if err != nil {
		pkg.HandleSpanError(span, "Failed to get redis", err)

		return pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", err)
	}

	if err = rds.Del(ctx, sessionKey(id)).Err(); err != nil {
		pkg.HandleSpanError(span, "Failed to delete session on redis", err)

		return pkg.ValidateBusinessError(constant.ErrSessionStore, "Session", fmt.Errorf("delete session: %w", err))
	}

	return nil
}
