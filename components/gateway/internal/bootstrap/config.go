// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package bootstrap

import (
	"fmt"
	"strings"
	"time"

	httpIn "github.com/LerianStudio/procedure-gateway/components/gateway/internal/adapters/http/in"
	"github.com/LerianStudio/procedure-gateway/components/gateway/internal/services"
	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/database"
)

const envProduction = "production"

// Config is the top level configuration struct for the entire application.
type Config struct {
	EnvName       string `env:"ENV_NAME"`
	ServerAddress string `env:"SERVER_ADDRESS"`
	LogLevel      string `env:"LOG_LEVEL"`
	Version       string `env:"VERSION"`
	BodyLimit     int    `env:"HTTP_BODY_LIMIT_BYTES"`
	Timezone      string `env:"TIMEZONE"`

	OtelServiceName         string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	OtelLibraryName         string `env:"OTEL_LIBRARY_NAME"`
	OtelServiceVersion      string `env:"OTEL_RESOURCE_SERVICE_VERSION"`
	OtelDeploymentEnv       string `env:"OTEL_RESOURCE_DEPLOYMENT_ENVIRONMENT"`
	OtelColExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTelemetry         bool   `env:"ENABLE_TELEMETRY"`

	// Default connection, where the authentication procedure lives.
	DBDriver                 string `env:"DB_DRIVER"`
	DBHost                   string `env:"DB_HOST"`
	DBPort                   string `env:"DB_PORT"`
	DBUser                   string `env:"DB_USER"`
	DBPassword               string `env:"DB_PASSWORD"`
	DBName                   string `env:"DB_NAME"`
	DBEncrypt                string `env:"DB_ENCRYPT"`
	DBTrustServerCertificate bool   `env:"DB_TRUST_SERVER_CERTIFICATE"`

	// Gateway behaviour
	DefaultSchema      string `env:"DEFAULT_SCHEMA"`
	AuthProcedure      string `env:"AUTH_PROCEDURE"`
	AuthSchema         string `env:"AUTH_SCHEMA"`
	PrincipalTable     string `env:"PRINCIPAL_TABLE"`
	DefaultOrigin      string `env:"DEFAULT_LOGIN_ORIGIN"`
	SpecialEntities    string `env:"SPECIAL_ENTITIES"`
	BulkWriteEntity    string `env:"BULK_WRITE_ENTITY"`
	DefaultPrincipalID int    `env:"DEFAULT_PRINCIPAL_ID"`
	DescriptorCacheTTL int    `env:"DESCRIPTOR_CACHE_TTL_SECONDS"`

	// Tenant pools
	TenantMaxPools           int `env:"TENANT_MAX_POOLS"`
	TenantPoolIdleTimeoutSec int `env:"TENANT_POOL_IDLE_TIMEOUT_SECONDS"`
	TenantMaxOpenConns       int `env:"TENANT_MAX_OPEN_CONNS"`
	TenantMaxIdleConns       int `env:"TENANT_MAX_IDLE_CONNS"`

	// Sessions
	SessionTTLMinutes      int    `env:"SESSION_TTL_MINUTES"`
	SessionCookieName      string `env:"SESSION_COOKIE_NAME"`
	SessionCookieSecure    bool   `env:"SESSION_COOKIE_SECURE"`
	CryptoHashSecretKey    string `env:"CRYPTO_HASH_SECRET_KEY"`
	CryptoEncryptSecretKey string `env:"CRYPTO_ENCRYPT_SECRET_KEY"`

	// Redis
	RedisHost       string `env:"REDIS_HOST"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB"`
	RedisProtocol   int    `env:"REDIS_PROTOCOL"`
	RedisMasterName string `env:"REDIS_MASTER_NAME"`
	RedisTLS        bool   `env:"REDIS_TLS"`
	RedisCACert     string `env:"REDIS_CA_CERT"`

	// RabbitMQ audit events
	AuditEnabled           bool   `env:"AUDIT_ENABLED"`
	RabbitURI              string `env:"RABBITMQ_URI"`
	RabbitMQHost           string `env:"RABBITMQ_HOST"`
	RabbitMQPortHost       string `env:"RABBITMQ_PORT_HOST"`
	RabbitMQPortAMQP       string `env:"RABBITMQ_PORT_AMQP"`
	RabbitMQUser           string `env:"RABBITMQ_DEFAULT_USER"`
	RabbitMQPass           string `env:"RABBITMQ_DEFAULT_PASS"`
	RabbitMQHealthCheckURL string `env:"RABBITMQ_HEALTH_CHECK_URL"`
	RabbitMQAuditExchange  string `env:"RABBITMQ_AUDIT_EXCHANGE"`

	// Rate limiting
	RateLimitEnabled   bool `env:"RATE_LIMIT_ENABLED"`
	RateLimitGlobal    int  `env:"RATE_LIMIT_GLOBAL"`
	RateLimitAuth      int  `env:"RATE_LIMIT_AUTH"`
	RateLimitInvoke    int  `env:"RATE_LIMIT_INVOKE"`
	RateLimitWindowSec int  `env:"RATE_LIMIT_WINDOW_SECONDS"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
	CORSAllowedMethods string `env:"CORS_ALLOWED_METHODS"`
	CORSAllowedHeaders string `env:"CORS_ALLOWED_HEADERS"`
}

// applyDefaults fills settings left empty in the environment.
func (cfg *Config) applyDefaults() {
	setDefault(&cfg.ServerAddress, constant.DefaultServerAddress)
	setDefault(&cfg.OtelLibraryName, constant.ApplicationName)
	setDefault(&cfg.DBDriver, "sqlsrv")
	setDefault(&cfg.DefaultSchema, constant.DefaultSchema)
	setDefault(&cfg.AuthProcedure, constant.DefaultAuthProcedure)
	setDefault(&cfg.AuthSchema, cfg.DefaultSchema)
	setDefault(&cfg.PrincipalTable, constant.DefaultPrincipalTable)
	setDefault(&cfg.DefaultOrigin, constant.DefaultOrigin)
	setDefault(&cfg.SpecialEntities, strings.Join(constant.DefaultSpecialEntities, ","))
	setDefault(&cfg.BulkWriteEntity, constant.DefaultBulkWriteEntity)
	setDefault(&cfg.SessionCookieName, constant.DefaultSessionCookieName)
	setDefault(&cfg.RabbitMQAuditExchange, constant.DefaultAuditExchange)

	setDefaultInt(&cfg.BodyLimit, constant.DefaultBodyLimit)
	setDefaultInt(&cfg.DefaultPrincipalID, constant.DefaultPrincipalID)
	setDefaultInt(&cfg.TenantMaxPools, constant.TenantMaxPools)
	setDefaultInt(&cfg.TenantPoolIdleTimeoutSec, int(constant.TenantPoolIdleTimeout/time.Second))
	setDefaultInt(&cfg.TenantMaxOpenConns, constant.TenantMaxOpenConns)
	setDefaultInt(&cfg.TenantMaxIdleConns, constant.TenantMaxIdleConns)
	setDefaultInt(&cfg.SessionTTLMinutes, int(constant.DefaultSessionTTL/time.Minute))
	setDefaultInt(&cfg.RateLimitGlobal, constant.RateLimitDefaultGlobalMax)
	setDefaultInt(&cfg.RateLimitAuth, constant.RateLimitDefaultAuthMax)
	setDefaultInt(&cfg.RateLimitInvoke, constant.RateLimitDefaultInvokeMax)
	setDefaultInt(&cfg.RateLimitWindowSec, int(constant.RateLimitDefaultWindow/time.Second))
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func setDefaultInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

// Validate checks that every mandatory setting is present and within bounds.
// All problems are reported together.
func (cfg *Config) Validate() error {
	var errs []string

	required := []struct {
		env   string
		value string
	}{
		{"SERVER_ADDRESS", cfg.ServerAddress},
		{"DB_HOST", cfg.DBHost},
		{"DB_USER", cfg.DBUser},
		{"DB_PASSWORD", cfg.DBPassword},
		{"DB_NAME", cfg.DBName},
		{"REDIS_HOST", cfg.RedisHost},
		{"CRYPTO_HASH_SECRET_KEY", cfg.CryptoHashSecretKey},
		{"CRYPTO_ENCRYPT_SECRET_KEY", cfg.CryptoEncryptSecretKey},
	}

	if cfg.AuditEnabled {
		required = append(required, []struct {
			env   string
			value string
		}{
			{"RABBITMQ_HOST", cfg.RabbitMQHost},
			{"RABBITMQ_PORT_AMQP", cfg.RabbitMQPortAMQP},
			{"RABBITMQ_DEFAULT_USER", cfg.RabbitMQUser},
			{"RABBITMQ_DEFAULT_PASS", cfg.RabbitMQPass},
		}...)
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, r.env+" is required")
		}
	}

	if cfg.DBDriver != "" {
		if _, err := database.DialectForDriver(cfg.DBDriver); err != nil {
			errs = append(errs, fmt.Sprintf("DB_DRIVER %q is not supported", cfg.DBDriver))
		}
	}

	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("TIMEZONE %q is not a valid location", cfg.Timezone))
		}
	}

	errs = cfg.validateBounds(errs)

	if cfg.EnvName == envProduction {
		errs = cfg.validateProductionSecrets(errs)
		errs = cfg.validateProductionCORS(errs)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (cfg *Config) validateBounds(errs []string) []string {
	bounds := []struct {
		env      string
		value    int
		min, max int
	}{
		{"RATE_LIMIT_GLOBAL", cfg.RateLimitGlobal, 1, constant.RateLimitMaxGlobal},
		{"RATE_LIMIT_AUTH", cfg.RateLimitAuth, 1, constant.RateLimitMaxAuth},
		{"RATE_LIMIT_INVOKE", cfg.RateLimitInvoke, 1, constant.RateLimitMaxInvoke},
		{"RATE_LIMIT_WINDOW_SECONDS", cfg.RateLimitWindowSec, 1, 3600},
		{"TENANT_MAX_POOLS", cfg.TenantMaxPools, 1, 4096},
		{"TENANT_MAX_OPEN_CONNS", cfg.TenantMaxOpenConns, 1, 1000},
		{"SESSION_TTL_MINUTES", cfg.SessionTTLMinutes, 1, 60 * 24 * 30},
	}

	for _, b := range bounds {
		if b.value < b.min || b.value > b.max {
			errs = append(errs, fmt.Sprintf("%s must be between %d and %d", b.env, b.min, b.max))
		}
	}

	if cfg.TenantMaxIdleConns < 0 || cfg.TenantMaxIdleConns > cfg.TenantMaxOpenConns {
		errs = append(errs, "TENANT_MAX_IDLE_CONNS must be between 0 and TENANT_MAX_OPEN_CONNS")
	}

	if cfg.DescriptorCacheTTL < 0 {
		errs = append(errs, "DESCRIPTOR_CACHE_TTL_SECONDS must not be negative")
	}

	return errs
}

func (cfg *Config) validateProductionSecrets(errs []string) []string {
	secrets := []struct {
		env   string
		value string
	}{
		{"DB_PASSWORD", cfg.DBPassword},
		{"REDIS_PASSWORD", cfg.RedisPassword},
		{"CRYPTO_HASH_SECRET_KEY", cfg.CryptoHashSecretKey},
		{"CRYPTO_ENCRYPT_SECRET_KEY", cfg.CryptoEncryptSecretKey},
	}

	if cfg.AuditEnabled {
		secrets = append(secrets, struct {
			env   string
			value string
		}{"RABBITMQ_DEFAULT_PASS", cfg.RabbitMQPass})
	}

	for _, s := range secrets {
		if s.value == constant.DefaultPasswordPlaceholder {
			errs = append(errs, s.env+" must not use the default placeholder in production")
		}
	}

	if !cfg.SessionCookieSecure {
		errs = append(errs, "SESSION_COOKIE_SECURE must be true in production")
	}

	if !cfg.RateLimitEnabled {
		errs = append(errs, "RATE_LIMIT_ENABLED must be true in production")
	}

	return errs
}

func (cfg *Config) validateProductionCORS(errs []string) []string {
	origins := strings.TrimSpace(cfg.CORSAllowedOrigins)
	if origins == "" {
		return append(errs, "CORS_ALLOWED_ORIGINS must not be empty in production")
	}

	if strings.Contains(origins, "*") {
		return append(errs, "CORS_ALLOWED_ORIGINS must not contain wildcard (*) in production")
	}

	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" && !strings.HasPrefix(origin, "https://") {
			return append(errs, "CORS_ALLOWED_ORIGINS must use HTTPS in production")
		}
	}

	return errs
}

// specialEntities splits SPECIAL_ENTITIES into names.
func (cfg *Config) specialEntities() []string {
	var names []string

	for _, name := range strings.Split(cfg.SpecialEntities, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// InitServers wires every dependency and returns the runnable service.
// Resources created before a failure are released before returning the error.
func InitServers() (svc *Service, err error) {
	cfg, logger, err := initConfigAndLogger()
	if err != nil {
		return nil, err
	}

	var cleanups []func()

	defer func() {
		if err != nil {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
		}
	}()

	telemetry, telemetryCleanup, err := initTelemetry(cfg, logger)
	if err != nil {
		return nil, err
	}

	cleanups = append(cleanups, telemetryCleanup)

	defaultRepo, dbCleanup, err := initDefaultDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	cleanups = append(cleanups, dbCleanup)

	crypto, err := initCrypto(cfg, logger)
	if err != nil {
		return nil, err
	}

	redisRes, redisCleanup, err := initRedis(cfg, crypto, logger)
	if err != nil {
		return nil, err
	}

	cleanups = append(cleanups, redisCleanup)

	metrics := initMultiTenantMetrics(cfg, telemetry, logger)

	rabbitRes, rabbitCleanups := initRabbitMQ(cfg, metrics, logger)
	cleanups = append(cleanups, rabbitCleanups...)

	coercionEngine, err := initCoercion(cfg)
	if err != nil {
		return nil, err
	}
	breakers := pkg.NewCircuitBreakerManager(logger)

	router, routerCleanup := initTenantRouter(cfg, metrics, breakers, logger)
	cleanups = append(cleanups, routerCleanup)

	useCase := &services.UseCase{
		DefaultRepo:     defaultRepo,
		TenantRouter:    router,
		Coercion:        coercionEngine,
		RedisRepo:       redisRes.cache,
		SessionRepo:     redisRes.sessions,
		CircuitBreakers: breakers,
		Metrics:         metrics,
		Settings: services.Settings{
			DefaultSchema:      cfg.DefaultSchema,
			AuthProcedure:      cfg.AuthProcedure,
			AuthSchema:         cfg.AuthSchema,
			PrincipalTable:     cfg.PrincipalTable,
			BulkWriteEntity:    cfg.BulkWriteEntity,
			DescriptorCacheTTL: time.Duration(cfg.DescriptorCacheTTL) * time.Second,
			SessionTTL:         time.Duration(cfg.SessionTTLMinutes) * time.Minute,
			DefaultOrigin:      cfg.DefaultOrigin,
		},
	}

	readiness := &httpIn.ReadinessDeps{
		DefaultDB: defaultRepo,
		Redis:     redisRes.connection,
	}

	if rabbitRes != nil {
		useCase.AuditProducer = rabbitRes.producer
		readiness.AuditBroker = rabbitRes.watcher
	}

	cookie := httpIn.SessionCookieConfig{
		Name:   cfg.SessionCookieName,
		Secure: cfg.SessionCookieSecure,
		TTL:    useCase.Settings.SessionTTL,
	}

	httpApp := httpIn.NewRoutes(logger, httpIn.RouteConfig{
		Version: cfg.Version,
		CORS: httpIn.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: cfg.CORSAllowedMethods,
			AllowedHeaders: cfg.CORSAllowedHeaders,
		},
		RateLimit: httpIn.RateLimitConfig{
			Enabled:   cfg.RateLimitEnabled,
			GlobalMax: cfg.RateLimitGlobal,
			AuthMax:   cfg.RateLimitAuth,
			InvokeMax: cfg.RateLimitInvoke,
			Window:    time.Duration(cfg.RateLimitWindowSec) * time.Second,
			Storage:   httpIn.NewRedisStorage(redisRes.connection, logger),
		},
		Cookie:    cookie,
		BodyLimit: cfg.BodyLimit,
	}, &httpIn.AuthHandler{Service: useCase, Cookie: cookie}, &httpIn.ProcedureHandler{Service: useCase}, readiness)

	return &Service{
		Server:   NewServer(cfg, httpApp, logger, telemetry),
		Logger:   logger,
		cleanups: cleanups,
	}, nil
}
