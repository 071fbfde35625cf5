// Copyright (c) 2026 Lerian Studio. All rights reserved.
// Use of this source code is governed by the Elastic License 2.0
// that can be found in the LICENSE file.

package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LerianStudio/procedure-gateway/pkg"
	"github.com/LerianStudio/procedure-gateway/pkg/database"
	"github.com/LerianStudio/procedure-gateway/pkg/model"

	libCommons "github.com/LerianStudio/lib-commons/v3/commons"
	"github.com/LerianStudio/lib-commons/v3/commons/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testLogger() log.Logger {
	logger, _, _, _ := libCommons.NewTrackingFromContext(context.Background())

	return logger
}

func credential(name string) model.TenantCredential {
	return model.TenantCredential{
		Driver:   "sqlsrv",
		Host:     "db.local",
		Port:     "1433",
		Database: name,
		Username: "app",
		Password: "secret",
	}
}

type fakeConnector struct {
	mu      sync.Mutex
	ctrl    *gomock.Controller
	calls   atomic.Int32
	failFor map[string]int
	delay   time.Duration
	repos   map[string]*database.MockRepository
	closes  map[string]int
}

func newFakeConnector(ctrl *gomock.Controller) *fakeConnector {
	return &fakeConnector{
		ctrl:    ctrl,
		failFor: map[string]int{},
		repos:   map[string]*database.MockRepository{},
		closes:  map[string]int{},
	}
}

func (f *fakeConnector) closeCount(database string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closes[database]
}

func (f *fakeConnector) connect(ctx context.Context, c model.TenantCredential, _ log.Logger) (database.Repository, error) {
	f.calls.Add(1)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFor[c.Database] > 0 {
		f.failFor[c.Database]--
		return nil, errors.New("login failed")
	}

	name := c.Database
	repo := database.NewMockRepository(f.ctrl)
	repo.EXPECT().CloseConnection().DoAndReturn(func() error {
		f.mu.Lock()
		f.closes[name]++
		f.mu.Unlock()

		return nil
	}).AnyTimes()
	f.repos[c.Database] = repo

	return repo, nil
}

func TestRouter_ConfigureIsIdempotent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	first, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	second, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, 1, router.Len())
}

func TestRouter_DifferentTenantsNeverShareHandles(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	a, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	b, err := router.Configure(context.Background(), credential("empresa_b"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Fingerprint, b.Fingerprint)
	assert.NotSame(t, a.Repository, b.Repository)

	again, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)
	assert.Same(t, a, again, "configuring another tenant leaves the first handle intact")
}

func TestRouter_ConcurrentFirstUseSharesOneConnection(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	fake.delay = 50 * time.Millisecond
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	const workers = 20

	handles := make([]*Handle, workers)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			h, err := router.Configure(context.Background(), credential("empresa_a"))
			assert.NoError(t, err)

			handles[i] = h
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(1), fake.calls.Load())

	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestRouter_ConcurrentTenantsStayIsolated(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	tenants := []string{"empresa_a", "empresa_b", "empresa_c"}

	var wg sync.WaitGroup

	for i := 0; i < 30; i++ {
		wg.Add(1)

		go func(name string) {
			defer wg.Done()

			c := credential(name)

			h, err := router.Configure(context.Background(), c)
			if assert.NoError(t, err) {
				assert.Equal(t, c.Fingerprint(), h.Fingerprint)
			}
		}(tenants[i%len(tenants)])
	}

	wg.Wait()

	assert.Equal(t, len(tenants), router.Len())
}

func TestRouter_RejectsMalformedCredential(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	invalid := credential("empresa_a")
	invalid.Host = ""

	_, err := router.Configure(context.Background(), invalid)

	var connErr pkg.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, int32(0), fake.calls.Load(), "no connection is attempted")
	assert.NotContains(t, err.Error(), "secret")

	unsupported := credential("empresa_a")
	unsupported.Driver = "oracle"

	_, err = router.Configure(context.Background(), unsupported)
	require.True(t, errors.As(err, &connErr))
}

func TestRouter_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	fake.failFor["empresa_a"] = 1
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	h, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestRouter_FailureIsNotCached(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	fake.failFor["empresa_a"] = 3
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	_, err := router.Configure(context.Background(), credential("empresa_a"))

	var connErr pkg.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, 0, router.Len())

	h, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestRouter_WaiterRespectsContext(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	fake.delay = 300 * time.Millisecond
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = router.Configure(context.Background(), credential("empresa_a"))
	}()

	require.Eventually(t, func() bool { return fake.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := router.Configure(ctx, credential("empresa_a"))

	var connErr pkg.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	<-done
}

func TestRouter_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)

	var evicted []string

	router := NewRouter(testLogger(),
		WithConnector(fake.connect),
		WithMaxPools(2),
		WithEvictionHook(func(fp string) { evicted = append(evicted, fp) }),
	)

	a, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	_, err = router.Configure(context.Background(), credential("empresa_b"))
	require.NoError(t, err)

	_, err = router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	_, err = router.Configure(context.Background(), credential("empresa_c"))
	require.NoError(t, err)

	assert.Equal(t, 2, router.Len())
	assert.Equal(t, []string{credential("empresa_b").Fingerprint()}, evicted)

	again, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)
	assert.Same(t, a, again)
}

func TestRouter_SweepIdleClosesStalePools(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)

	var (
		mu  sync.Mutex
		now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	)

	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		return now
	}

	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	router := NewRouter(testLogger(), WithConnector(fake.connect), WithClock(clock), WithIdleTimeout(10*time.Minute))

	a, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)
	a.Release()

	advance(8 * time.Minute)

	b, err := router.Configure(context.Background(), credential("empresa_b"))
	require.NoError(t, err)
	b.Release()

	advance(5 * time.Minute)
	router.sweepIdle()

	assert.Equal(t, 1, router.Len(), "only the pool idle past the timeout is closed")
	assert.Equal(t, 1, fake.closeCount("empresa_a"))
	assert.Equal(t, 0, fake.closeCount("empresa_b"))
}

func TestRouter_SweepIdleSkipsHeldPools(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	router := NewRouter(testLogger(), WithConnector(fake.connect), WithClock(func() time.Time { return now }), WithIdleTimeout(time.Minute))

	h, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	now = now.Add(time.Hour)
	router.sweepIdle()

	assert.Equal(t, 1, router.Len(), "a pool in use is never idle")
	assert.Equal(t, 0, fake.closeCount("empresa_a"))

	h.Release()
}

func TestRouter_EvictionWaitsForInFlightRequests(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)

	var evicted []string

	router := NewRouter(testLogger(),
		WithConnector(fake.connect),
		WithMaxPools(1),
		WithEvictionHook(func(fp string) { evicted = append(evicted, fp) }),
	)

	a, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	b, err := router.Configure(context.Background(), credential("empresa_b"))
	require.NoError(t, err)

	assert.Equal(t, []string{credential("empresa_a").Fingerprint()}, evicted)
	assert.Equal(t, 1, router.Len())
	assert.Equal(t, 0, fake.closeCount("empresa_a"), "the pool stays open while a request holds it")

	a.Release()
	assert.Equal(t, 1, fake.closeCount("empresa_a"), "the last release closes the evicted pool")

	a.Release()
	assert.Equal(t, 1, fake.closeCount("empresa_a"), "extra releases never close twice")

	again, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)
	assert.NotSame(t, a, again, "a retired pool is replaced by a fresh one")
	assert.Equal(t, int32(3), fake.calls.Load())

	b.Release()
	again.Release()
}

func TestRouter_CloseDuringConnectClosesNewPool(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	fake.delay = 100 * time.Millisecond
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	errCh := make(chan error, 1)

	go func() {
		_, err := router.Configure(context.Background(), credential("empresa_a"))
		errCh <- err
	}()

	require.Eventually(t, func() bool { return fake.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, router.Close())

	err := <-errCh

	var connErr pkg.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.ErrorIs(t, err, ErrRouterClosed)
	assert.Equal(t, 0, router.Len())
	assert.Equal(t, 1, fake.closeCount("empresa_a"))
}

func TestRouter_CloseDefersHeldPools(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	router := NewRouter(testLogger(), WithConnector(fake.connect))

	h, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	require.NoError(t, router.Close())
	assert.Equal(t, 0, fake.closeCount("empresa_a"))

	h.Release()
	assert.Equal(t, 1, fake.closeCount("empresa_a"))
}

func TestRouter_StartStopAndClose(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	fake := newFakeConnector(ctrl)
	router := NewRouter(testLogger(), WithConnector(fake.connect), WithJanitorInterval(5*time.Millisecond))

	router.Start()

	_, err := router.Configure(context.Background(), credential("empresa_a"))
	require.NoError(t, err)

	require.NoError(t, router.Close())
	assert.Equal(t, 0, router.Len())

	_, err = router.Configure(context.Background(), credential("empresa_a"))

	var connErr pkg.ConnectionError
	require.True(t, errors.As(err, &connErr))

	assert.NotPanics(t, router.Stop, "stopping twice is safe")
}

func TestHandleContext(t *testing.T) {
	t.Parallel()

	_, ok := HandleFromContext(context.Background())
	assert.False(t, ok)

	h := &Handle{Fingerprint: "abc"}
	got, ok := HandleFromContext(ContextWithHandle(context.Background(), h))
	require.True(t, ok)
	assert.Same(t, h, got)

	assert.NotPanics(t, h.Release, "handles built outside a router release as a no-op")

	var none *Handle
	assert.NotPanics(t, none.Release)
}
