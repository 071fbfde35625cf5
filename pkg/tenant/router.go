// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package tenant

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/constant"
	"github.com/LerianStudio/procedure-gateway/pkg/database"
	"github.com/LerianStudio/procedure-gateway/pkg/model"
	"github.com/LerianStudio/procedure-gateway/pkg/multitenant"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/LerianStudio/lib-commons/v3/commons/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrRouterClosed is returned by Configure after Close.
var ErrRouterClosed = errors.New("tenant router closed")

// Handle is a live connection pool bound to one tenant credential.
// Requests carry their handle in context; it is never shared through a global slot.
// Every successful Configure must be paired with one Release.
type Handle struct {
	Fingerprint string
	Repository  database.Repository

	router *Router
	pool   *pool
}

// Release ends one use of the handle. An evicted pool is closed when its last user releases it.
// It is a no-op on nil and on handles not issued by a Router.
func (h *Handle) Release() {
	if h == nil || h.router == nil || h.pool == nil {
		return
	}

	h.router.release(h.pool)
}

// Connector opens a repository for a validated credential.
type Connector func(ctx context.Context, credential model.TenantCredential, logger log.Logger) (database.Repository, error)

// PoolLimits sizes each tenant pool.
type PoolLimits struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolLimits returns the built-in pool sizing.
func DefaultPoolLimits() PoolLimits {
	return PoolLimits{
		MaxOpenConns:    constant.TenantMaxOpenConns,
		MaxIdleConns:    constant.TenantMaxIdleConns,
		ConnMaxLifetime: constant.TenantConnMaxLifetime,
		ConnMaxIdleTime: constant.TenantConnMaxIdleTime,
	}
}

// DatabaseConnector opens tenant pools through pkg/database with the given limits.
func DatabaseConnector(limits PoolLimits) Connector {
	return func(ctx context.Context, credential model.TenantCredential, logger log.Logger) (database.Repository, error) {
		dialect, err := database.DialectForDriver(credential.Driver)
		if err != nil {
			return nil, err
		}

		connection := &database.Connection{
			Dialect:            dialect,
			ConnectionString:   dialect.DSN(credential),
			DBName:             credential.Database,
			Logger:             logger,
			MaxOpenConnections: limits.MaxOpenConns,
			MaxIdleConnections: limits.MaxIdleConns,
			ConnMaxLifetime:    limits.ConnMaxLifetime,
			ConnMaxIdleTime:    limits.ConnMaxIdleTime,
		}

		return database.NewDataSourceRepository(ctx, connection)
	}
}

type pool struct {
	fingerprint string
	handle      *Handle
	err         error
	ready       chan struct{}
	lastUsed    time.Time
	element     *list.Element

	// refs counts requests holding the handle. A retired pool is unlinked from
	// the router and its repository is closed once refs drops to zero.
	refs       int
	retired    bool
	connClosed bool
}

// Router maps tenant credentials to pools keyed by credential fingerprint.
// Equal credentials share one pool; concurrent first requests for the same
// credential share a single connection attempt.
type Router struct {
	logger          log.Logger
	connect         Connector
	metrics         *multitenant.Metrics
	maxPools        int
	idleTimeout     time.Duration
	janitorInterval time.Duration
	onEvict         func(fingerprint string)
	now             func() time.Time

	mu     sync.Mutex
	pools  map[string]*pool
	lru    *list.List
	closed bool

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Router.
type Option func(*Router)

// WithConnector replaces the function used to open tenant pools.
func WithConnector(connect Connector) Option {
	return func(r *Router) {
		r.connect = connect
	}
}

// WithMetrics records pool metrics on m.
func WithMetrics(m *multitenant.Metrics) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithMaxPools bounds the number of open pools; the least recently used is evicted first.
func WithMaxPools(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxPools = n
		}
	}
}

// WithIdleTimeout closes pools unused for longer than d.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

// WithJanitorInterval sets how often idle pools are swept.
func WithJanitorInterval(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.janitorInterval = d
		}
	}
}

// WithEvictionHook is called with the fingerprint of every pool that is closed.
func WithEvictionHook(fn func(fingerprint string)) Option {
	return func(r *Router) {
		r.onEvict = fn
	}
}

// WithClock replaces the clock used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// NewRouter creates a router. Call Start to run the idle janitor.
func NewRouter(logger log.Logger, opts ...Option) *Router {
	r := &Router{
		logger:          logger,
		connect:         DatabaseConnector(DefaultPoolLimits()),
		metrics:         multitenant.NoopMetrics(),
		maxPools:        constant.TenantMaxPools,
		idleTimeout:     constant.TenantPoolIdleTimeout,
		janitorInterval: constant.TenantJanitorInterval,
		now:             time.Now,
		pools:           make(map[string]*pool),
		lru:             list.New(),
		stopChan:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Configure returns the pool for credential, opening it on first use.
// It is idempotent for equal credentials and never affects other tenants' handles.
func (r *Router) Configure(ctx context.Context, credential model.TenantCredential) (*Handle, error) {
	logger, tracer, reqId, _ := libCommons.NewTrackingFromContext(ctx)

	ctx, span := tracer.Start(ctx, "tenant.router.configure")
	defer span.End()

	if err := pkg.ValidateStruct(credential, "TenantCredential"); err != nil {
		logger.Errorf("Rejected tenant credential %s: %v", credential.Redacted(), err)

		return nil, pkg.ValidateBusinessError(constant.ErrInvalidTenantCredential, "TenantCredential", err)
	}

	if _, err := database.DialectForDriver(credential.Driver); err != nil {
		return nil, pkg.ValidateBusinessError(constant.ErrUnsupportedTenantDriver, "TenantCredential", credential.Driver, err)
	}

	fingerprint := credential.Fingerprint()

	span.SetAttributes(
		attribute.String("app.request.request_id", reqId),
		attribute.String("app.tenant.fingerprint", fingerprint),
	)

	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()

		return nil, pkg.ValidateBusinessError(constant.ErrTenantUnavailable, "TenantCredential", ErrRouterClosed)
	}

	if p, ok := r.pools[fingerprint]; ok {
		r.mu.Unlock()

		handle, err := r.await(ctx, p)
		if errors.Is(err, errPoolRetired) {
			return r.Configure(ctx, credential)
		}

		return handle, err
	}

	p := &pool{fingerprint: fingerprint, ready: make(chan struct{}), lastUsed: r.now(), refs: 1}
	r.pools[fingerprint] = p
	r.mu.Unlock()

	repository, err := r.connectWithRetry(ctx, credential, fingerprint, logger)

	r.mu.Lock()

	var evicted, closable []*pool

	switch {
	case err != nil:
		delete(r.pools, fingerprint)

		p.err = pkg.ValidateBusinessError(constant.ErrTenantConnection, "TenantCredential", err)
	case r.closed:
		p.err = pkg.ValidateBusinessError(constant.ErrTenantUnavailable, "TenantCredential", ErrRouterClosed)
	default:
		p.handle = &Handle{Fingerprint: fingerprint, Repository: repository, router: r, pool: p}
		p.element = r.lru.PushFront(p)
		evicted, closable = r.evictOverflowLocked()
	}

	close(p.ready)
	closedDuringConnect := err == nil && r.closed
	r.mu.Unlock()

	r.retirePools(evicted, closable, "pool limit reached")

	if closedDuringConnect {
		if closeErr := repository.CloseConnection(); closeErr != nil {
			logger.Errorf("Failed to close tenant pool %s opened during shutdown: %v", fingerprint, closeErr)
		}

		return nil, p.err
	}

	if err != nil {
		pkg.HandleSpanError(span, "Failed to connect tenant", err)
		logger.Errorf("Failed to connect tenant %s: %v", credential.Redacted(), err)

		return nil, p.err
	}

	r.metrics.TenantConnectionsTotal.Add(ctx, 1, r.attributes(fingerprint))
	r.metrics.TenantPoolsActive.Add(ctx, 1, r.attributes(fingerprint))

	logger.Infof("Tenant pool %s opened for %s", fingerprint, credential.Redacted())

	return p.handle, nil
}

// errPoolRetired reports that an awaited pool was closed before it could be acquired.
var errPoolRetired = errors.New("tenant pool retired")

// await waits for an existing entry to finish connecting, bounded by ctx, and acquires it.
func (r *Router) await(ctx context.Context, p *pool) (*Handle, error) {
	select {
	case <-p.ready:
	case <-ctx.Done():
		return nil, pkg.ValidateBusinessError(constant.ErrTenantConnection, "TenantCredential", ctx.Err())
	}

	if p.err != nil {
		return nil, p.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.connClosed {
		return nil, errPoolRetired
	}

	p.refs++
	p.lastUsed = r.now()

	if p.element != nil && !p.retired {
		r.lru.MoveToFront(p.element)
	}

	return p.handle, nil
}

// release drops one reference and closes the pool if it was retired meanwhile.
func (r *Router) release(p *pool) {
	r.mu.Lock()

	if p.refs > 0 {
		p.refs--
	}

	p.lastUsed = r.now()

	closeNow := p.retired && p.refs == 0 && !p.connClosed
	if closeNow {
		p.connClosed = true
	}

	r.mu.Unlock()

	if closeNow {
		r.closeRepository(p, "released after eviction")
	}
}

func (r *Router) connectWithRetry(ctx context.Context, credential model.TenantCredential, fingerprint string, logger log.Logger) (database.Repository, error) {
	delay := pkg.TenantConnectBackoff.Initial

	var lastErr error

	for attempt := 0; attempt <= constant.TenantConnectMaxRetries; attempt++ {
		if attempt > 0 {
			wait := pkg.TenantConnectBackoff.FullJitter(delay)
			logger.Warnf("Retrying tenant %s connection in %v (attempt %d/%d)", fingerprint, wait, attempt, constant.TenantConnectMaxRetries)

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			delay = pkg.TenantConnectBackoff.Next(delay)
		}

		repository, err := r.connect(ctx, credential, logger)
		if err == nil {
			return repository, nil
		}

		lastErr = err

		r.metrics.TenantConnectionErrorsTotal.Add(ctx, 1, r.attributes(fingerprint))

		if errors.Is(err, constant.ErrUnsupportedTenantDriver) || ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// evictOverflowLocked unlinks least recently used pools beyond the limit.
// It returns every retired pool and the subset nobody holds, which can close now.
func (r *Router) evictOverflowLocked() (retired, closable []*pool) {
	for r.lru.Len() > r.maxPools {
		p := r.lru.Back().Value.(*pool)

		if r.retireLocked(p) {
			closable = append(closable, p)
		}

		retired = append(retired, p)
	}

	return retired, closable
}

// retireLocked unlinks p and reports whether its repository can be closed immediately.
func (r *Router) retireLocked(p *pool) bool {
	if p.element != nil {
		r.lru.Remove(p.element)
		p.element = nil
	}

	delete(r.pools, p.fingerprint)

	p.retired = true

	if p.refs > 0 || p.connClosed {
		return false
	}

	p.connClosed = true

	return true
}

// retirePools reports retired pools and closes the ones without users.
func (r *Router) retirePools(retired, closable []*pool, reason string) {
	for _, p := range retired {
		r.metrics.TenantPoolsActive.Add(context.Background(), -1, r.attributes(p.fingerprint))

		if r.onEvict != nil {
			r.onEvict(p.fingerprint)
		}

		r.logger.Infof("Tenant pool %s retired: %s", p.fingerprint, reason)
	}

	for _, p := range closable {
		r.closeRepository(p, reason)
	}
}

func (r *Router) closeRepository(p *pool, reason string) {
	if err := p.handle.Repository.CloseConnection(); err != nil {
		r.logger.Errorf("Failed to close tenant pool %s: %v", p.fingerprint, err)
	}

	r.logger.Infof("Tenant pool %s closed: %s", p.fingerprint, reason)
}

func (r *Router) attributes(fingerprint string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("tenant_fingerprint", fingerprint))
}

// Len reports the number of open pools.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lru.Len()
}

// Start begins the idle janitor loop in a separate goroutine.
func (r *Router) Start() {
	r.wg.Add(1)

	pkg.GoNamed(r.logger, "tenant-pool-janitor", r.janitorLoop)

	r.logger.Infof("Tenant pool janitor started - sweeping every %v", r.janitorInterval)
}

// Stop ends the janitor loop. It does not close pools.
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})

	r.wg.Wait()
}

func (r *Router) janitorLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweepIdle()
		case <-r.stopChan:
			return
		}
	}
}

// sweepIdle closes pools nobody holds that were unused for longer than the idle timeout.
func (r *Router) sweepIdle() {
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()

	var idle, closable []*pool

	for e := r.lru.Back(); e != nil; {
		p := e.Value.(*pool)
		prev := e.Prev()

		if p.refs == 0 && p.lastUsed.Before(cutoff) {
			if r.retireLocked(p) {
				closable = append(closable, p)
			}

			idle = append(idle, p)
		}

		e = prev
	}

	r.mu.Unlock()

	r.retirePools(idle, closable, "idle timeout")
}

// Close stops the janitor and closes every pool. Pools still held close on their
// last Release. Configure fails afterwards.
func (r *Router) Close() error {
	r.Stop()

	r.mu.Lock()
	r.closed = true

	var all, closable []*pool

	for e := r.lru.Front(); e != nil; {
		p := e.Value.(*pool)
		next := e.Next()

		if r.retireLocked(p) {
			closable = append(closable, p)
		}

		all = append(all, p)

		e = next
	}

	r.mu.Unlock()

	r.retirePools(all, closable, "shutdown")

	return nil
}
