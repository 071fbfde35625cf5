// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/database"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// descriptorCacheKey is namespaced by tenant in the redis repository.
func descriptorCacheKey(entity model.EntityDescriptor) string {
	return fmt.Sprintf("%s:%s:%s.%s", constant.EntityDescriptorKeyPrefix, entity.Kind, entity.Schema, entity.Name)
}

// describeEntity returns the ordered parameters of entity on repo, reading and
// filling the descriptor cache when it is enabled. Cache failures fall through to the catalog.
func (uc *UseCase) describeEntity(ctx context.Context, repo database.Repository, entity model.EntityDescriptor) (model.EntityDescriptor, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "service.describe_entity")
	defer span.End()

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.request.entity", entity.QualifiedName()),
		attribute.String("app.request.entity_kind", string(entity.Kind)),
	)

	cacheEnabled := uc.RedisRepo != nil && uc.Settings.DescriptorCacheTTL > 0
	key := descriptorCacheKey(entity)

	if cacheEnabled {
		cached, err := uc.RedisRepo.Get(ctx, key)

		switch {
		case err == nil:
			var descriptor model.EntityDescriptor
			if errUnmarshal := json.Unmarshal([]byte(cached), &descriptor); errUnmarshal == nil {
				span.SetAttributes(attribute.Bool("app.cache.hit", true))

				return descriptor, nil
			}

			logger.Warnf("Discarding unreadable cached descriptor for %s", entity.QualifiedName())
		case !errors.Is(err, goredis.Nil):
			logger.Warnf("Descriptor cache unavailable for %s: %v", entity.QualifiedName(), err)
		}
	}

	descriptor, err := repo.DescribeEntity(ctx, entity.Schema, entity.Name, entity.Kind)
	if err != nil {
		if errors.Is(err, constant.ErrInvalidIdentifier) {
			pkg.HandleSpanBusinessErrorEvent(span, "Invalid entity identifier", err)

			return descriptor, pkg.ValidateBusinessError(constant.ErrInvalidIdentifier, reflect.TypeOf(model.EntityDescriptor{}).Name(), entity.QualifiedName())
		}

		pkg.HandleSpanError(span, "Failed to describe entity", err)

		logger.Errorf("Error describing %s %s: %v", entity.Kind, entity.QualifiedName(), err)

		return descriptor, pkg.ValidateBusinessError(constant.ErrMetadataQuery, reflect.TypeOf(model.EntityDescriptor{}).Name(), err)
	}

	if cacheEnabled {
		payload, errMarshal := json.Marshal(descriptor)
		if errMarshal == nil {
			errMarshal = uc.RedisRepo.Set(ctx, key, string(payload), uc.Settings.DescriptorCacheTTL)
		}

		if errMarshal != nil {
			logger.Warnf("Failed to cache descriptor for %s: %v", entity.QualifiedName(), errMarshal)
		}
	}

	return descriptor, nil
}
