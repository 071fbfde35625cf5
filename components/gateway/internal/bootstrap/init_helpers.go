// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/rabbitmq"
	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/redis"
	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/coercion"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/database"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/multitenant"
	"github.com/LerianStudio/procedure-gateway/pkg/tenant"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	libCrypto "github.com/LerianStudio/lib-commons/v3/commons/crypto"
	"github.com/LerianStudio/lib-commons/v3/commons/log"
	libOtel "github.com/LerianStudio/lib-commons/v3/commons/opentelemetry"
	libRabbitmq "github.com/LerianStudio/lib-commons/v3/commons/rabbitmq"
	libRedis "github.com/LerianStudio/lib-commons/v3/commons/redis"
	"github.com/LerianStudio/lib-commons/v3/commons/zap"
	"github.com/pkg/errors"
)

// redisResources holds Redis-related resources created during initialization.
type redisResources struct {
	connection *libRedis.RedisConnection
	cache      *redis.RedisConsumerRepository
	sessions   *redis.SessionRedisRepository
}

// rabbitResources holds RabbitMQ-related resources created during initialization.
type rabbitResources struct {
	connection *libRabbitmq.RabbitMQConnection
	producer   *rabbitmq.ProducerRabbitMQRepository
	watcher    *rabbitmq.BrokerWatcher
}

// initConfigAndLogger loads configuration from environment variables, validates it,
// and initializes the structured logger.
func initConfigAndLogger() (*Config, log.Logger, error) {
	cfg := &Config{}
	if err := libCommons.SetConfigFromEnvVars(cfg); err != nil {
		return nil, nil, errors.Wrap(err, "failed to load config from env vars")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := zap.InitializeLoggerWithError()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize logger")
	}

	return cfg, logger, nil
}

// initTelemetry initializes OpenTelemetry tracing and returns the telemetry instance
// along with a cleanup function that shuts down the telemetry provider.
func initTelemetry(cfg *Config, logger log.Logger) (*libOtel.Telemetry, func(), error) {
	telemetry, err := libOtel.InitializeTelemetryWithError(&libOtel.TelemetryConfig{
		LibraryName:               cfg.OtelLibraryName,
		ServiceName:               cfg.OtelServiceName,
		ServiceVersion:            cfg.OtelServiceVersion,
		DeploymentEnv:             cfg.OtelDeploymentEnv,
		CollectorExporterEndpoint: cfg.OtelColExporterEndpoint,
		EnableTelemetry:           cfg.EnableTelemetry,
		Logger:                    logger,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize telemetry")
	}

	cleanup := func() {
		logger.Info("Cleanup: shutting down telemetry")
		telemetry.ShutdownTelemetry()
	}

	return telemetry, cleanup, nil
}

// defaultCredential is the connection the authentication procedure runs on.
func defaultCredential(cfg *Config) model.TenantCredential {
	credential := model.TenantCredential{
		Driver:   strings.ToLower(cfg.DBDriver),
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Database: cfg.DBName,
		Username: cfg.DBUser,
		Password: cfg.DBPassword,
	}

	options := map[string]string{}
	if cfg.DBEncrypt != "" {
		options["encrypt"] = cfg.DBEncrypt
	}

	if cfg.DBTrustServerCertificate {
		options["trust_server_certificate"] = "true"
	}

	if len(options) > 0 {
		credential.Options = options
	}

	return credential
}

// initDefaultDatabase opens the default connection and returns its repository
// with a cleanup function that closes the pool.
func initDefaultDatabase(cfg *Config, logger log.Logger) (*database.ExternalDataSource, func(), error) {
	credential := defaultCredential(cfg)

	dialect, err := database.DialectForDriver(credential.Driver)
	if err != nil {
		return nil, nil, err
	}

	connection := &database.Connection{
		Dialect:            dialect,
		ConnectionString:   dialect.DSN(credential),
		DBName:             credential.Database,
		Logger:             logger,
		MaxOpenConnections: cfg.TenantMaxOpenConns,
		MaxIdleConnections: cfg.TenantMaxIdleConns,
	}

	ctx := libCommons.ContextWithLogger(context.Background(), logger)

	repo, err := database.NewDataSourceRepository(ctx, connection)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize default database")
	}

	cleanup := func() {
		logger.Info("Cleanup: closing default database connection")

		if closeErr := repo.CloseConnection(); closeErr != nil {
			logger.Errorf("Cleanup: failed to close default database connection: %v", closeErr)
		}
	}

	return repo, cleanup, nil
}

// initCrypto prepares the cipher that protects tenant passwords inside sessions.
func initCrypto(cfg *Config, logger log.Logger) (*libCrypto.Crypto, error) {
	crypto := &libCrypto.Crypto{
		HashSecretKey:    cfg.CryptoHashSecretKey,
		EncryptSecretKey: cfg.CryptoEncryptSecretKey,
		Logger:           logger,
	}

	if err := crypto.InitializeCipher(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize session cipher")
	}

	return crypto, nil
}

// initRedis establishes the Redis/Valkey connection and returns the descriptor
// cache and session repositories along with a cleanup function that closes the connection.
func initRedis(cfg *Config, crypto *libCrypto.Crypto, logger log.Logger) (*redisResources, func(), error) {
	redisConnection := &libRedis.RedisConnection{
		Address:    strings.Split(cfg.RedisHost, ","),
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		Protocol:   cfg.RedisProtocol,
		MasterName: cfg.RedisMasterName,
		UseTLS:     cfg.RedisTLS,
		CACert:     cfg.RedisCACert,
		Logger:     logger,
	}

	cache, err := redis.NewConsumerRedis(redisConnection)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize redis connection")
	}

	cleanup := func() {
		logger.Info("Cleanup: closing Redis connection")

		if closeErr := redisConnection.Close(); closeErr != nil {
			logger.Errorf("Cleanup: failed to close Redis connection: %v", closeErr)
		}
	}

	return &redisResources{
		connection: redisConnection,
		cache:      cache,
		sessions:   redis.NewSessionRedisRepository(redisConnection, crypto),
	}, cleanup, nil
}

// initRabbitMQ connects the audit producer and starts the broker watcher that
// keeps the connection alive and feeds /ready. It returns nil when auditing is off.
func initRabbitMQ(cfg *Config, metrics *multitenant.Metrics, logger log.Logger) (*rabbitResources, []func()) {
	if !cfg.AuditEnabled {
		logger.Info("Authentication audit events disabled")

		return nil, nil
	}

	rabbitURI := cfg.RabbitURI
	if rabbitURI == "" {
		rabbitURI = "amqp"
	}

	rabbitSource := fmt.Sprintf("%s://%s:%s@%s:%s",
		rabbitURI, cfg.RabbitMQUser, cfg.RabbitMQPass, cfg.RabbitMQHost, cfg.RabbitMQPortAMQP)

	logger.Infof("RabbitMQ connecting to %s", pkg.RedactConnectionString(rabbitSource))

	rabbitMQConnection := &libRabbitmq.RabbitMQConnection{
		ConnectionStringSource: rabbitSource,
		HealthCheckURL:         cfg.RabbitMQHealthCheckURL,
		Host:                   cfg.RabbitMQHost,
		Port:                   cfg.RabbitMQPortHost,
		User:                   cfg.RabbitMQUser,
		Pass:                   cfg.RabbitMQPass,
		Logger:                 logger,
	}

	producer := rabbitmq.NewProducerRabbitMQ(rabbitMQConnection, cfg.RabbitMQAuditExchange)

	watcher := rabbitmq.NewBrokerWatcher(rabbitMQConnection, logger, metrics, constant.AuditBrokerCheckInterval)
	watcher.Start()

	cleanups := []func(){
		func() {
			logger.Info("Cleanup: stopping audit broker watcher")
			watcher.Stop()
		},
		func() {
			logger.Info("Cleanup: closing RabbitMQ connection")

			if rabbitMQConnection.Channel != nil {
				if closeErr := rabbitMQConnection.Channel.Close(); closeErr != nil {
					logger.Errorf("Cleanup: failed to close RabbitMQ channel: %v", closeErr)
				}
			}

			if rabbitMQConnection.Connection != nil && !rabbitMQConnection.Connection.IsClosed() {
				if closeErr := rabbitMQConnection.Connection.Close(); closeErr != nil {
					logger.Errorf("Cleanup: failed to close RabbitMQ connection: %v", closeErr)
				}
			}
		},
	}

	return &rabbitResources{
		connection: rabbitMQConnection,
		producer:   producer,
		watcher:    watcher,
	}, cleanups
}

// initMultiTenantMetrics creates the tenant pool OTel metrics instruments.
// Real instruments are registered on the telemetry MeterProvider when telemetry
// is enabled; otherwise no-op instruments are returned.
func initMultiTenantMetrics(cfg *Config, telemetry *libOtel.Telemetry, logger log.Logger) *multitenant.Metrics {
	if !cfg.EnableTelemetry || telemetry == nil || telemetry.MetricProvider == nil {
		logger.Info("Tenant metrics: using noop instruments (telemetry disabled)")
		return multitenant.NoopMetrics()
	}

	meter := telemetry.MetricProvider.Meter(cfg.OtelLibraryName)

	m, err := multitenant.NewMetrics(meter)
	if err != nil {
		logger.Errorf("Failed to create tenant metrics, falling back to noop: %v", err)
		return multitenant.NoopMetrics()
	}

	logger.Info("Tenant metrics: instruments registered")

	return m
}

// initTenantRouter starts the per-tenant pool router. Closing a pool also drops
// the circuit breaker of its fingerprint.
func initTenantRouter(cfg *Config, metrics *multitenant.Metrics, breakers *pkg.CircuitBreakerManager, logger log.Logger) (*tenant.Router, func()) {
	limits := tenant.DefaultPoolLimits()
	limits.MaxOpenConns = cfg.TenantMaxOpenConns
	limits.MaxIdleConns = cfg.TenantMaxIdleConns

	router := tenant.NewRouter(logger,
		tenant.WithConnector(tenant.DatabaseConnector(limits)),
		tenant.WithMetrics(metrics),
		tenant.WithMaxPools(cfg.TenantMaxPools),
		tenant.WithIdleTimeout(time.Duration(cfg.TenantPoolIdleTimeoutSec)*time.Second),
		tenant.WithEvictionHook(breakers.Remove),
	)

	router.Start()

	logger.Infof("Tenant router started (max pools %d, idle timeout %ds)", cfg.TenantMaxPools, cfg.TenantPoolIdleTimeoutSec)

	cleanup := func() {
		logger.Info("Cleanup: closing tenant pools")

		if err := router.Close(); err != nil {
			logger.Errorf("Cleanup: failed to close tenant pools: %v", err)
		}
	}

	return router, cleanup
}

// initCoercion builds the parameter coercion engine.
func initCoercion(cfg *Config) (*coercion.Engine, error) {
	opts := []coercion.Option{coercion.WithDefaultPrincipalID(int64(cfg.DefaultPrincipalID))}

	if cfg.Timezone != "" {
		location, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid timezone %q", cfg.Timezone)
		}

		opts = append(opts, coercion.WithLocation(location))
	}

	return coercion.NewEngine(cfg.specialEntities(), opts...), nil
}
