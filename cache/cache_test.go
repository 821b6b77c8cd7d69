package cache

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-appstate/logger"
	"github.com/saiset-co/sai-appstate/metrics"
	"github.com/saiset-co/sai-appstate/storage"
	"github.com/saiset-co/sai-appstate/types"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	backend *storage.MemoryBackend
	adapter *storage.Adapter
	clock   *clockwork.FakeClock
}

func newFixture() *fixture {
	backend := storage.NewMemoryBackend(logger.NewNop())
	return &fixture{
		backend: backend,
		adapter: storage.NewAdapter(backend, logger.NewNop(), metrics.NewNop(), 0),
		clock:   clockwork.NewFakeClockAt(epoch),
	}
}

func (f *fixture) open() *Cache {
	return NewCache(f.adapter, logger.NewNop(), Options{Clock: f.clock, SessionID: "session-1"})
}

func (f *fixture) raw(t *testing.T, key string) string {
	value, found, err := f.backend.GetItem(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found, "storage key %s missing", key)
	return value
}

func TestSetGetReflexive(t *testing.T) {
	c := newFixture().open()

	c.SetPersistent("user", map[string]interface{}{"name": "ada"})
	c.SetSession("step", 3)

	value, found := c.GetPersistent("user")
	require.True(t, found)
	assert.Equal(t, map[string]interface{}{"name": "ada"}, value)

	value, found = c.GetSession("step")
	require.True(t, found)
	assert.Equal(t, 3, value)

	assert.True(t, c.HasPersistent("user"))
	assert.False(t, c.HasSession("user"))

	_, found = c.GetPersistent("missing")
	assert.False(t, found)
}

func TestTiersAreIsolated(t *testing.T) {
	c := newFixture().open()

	c.SetPersistent("k", "persistent")
	c.SetSession("k", "session")

	persistent, _ := c.GetPersistent("k")
	session, _ := c.GetSession("k")
	assert.Equal(t, "persistent", persistent)
	assert.Equal(t, "session", session)

	c.ClearSession()
	assert.True(t, c.HasPersistent("k"))
	assert.False(t, c.HasSession("k"))
}

func TestKeysKeepInsertionOrder(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SetPersistent("zeta", 1)
	c.SetPersistent("alpha", 2)
	c.SetPersistent("mid", 3)
	c.SetPersistent("zeta", 4)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, c.PersistentKeys())
	assert.Equal(t, `{"zeta":4,"alpha":2,"mid":3}`, f.raw(t, types.PersistentCacheKey))

	c.RemovePersistent("alpha")
	assert.Equal(t, []string{"zeta", "mid"}, c.PersistentKeys())

	reopened := f.open()
	assert.Equal(t, []string{"zeta", "mid"}, reopened.PersistentKeys())
}

func TestDurableAcrossRestart(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SetPersistent("count", 2)
	c.SetPersistent("tags", []string{"a", "b"})
	c.SetSession("draft", "hello")

	restarted := f.open()

	count, found := restarted.GetPersistent("count")
	require.True(t, found)
	assert.Equal(t, float64(2), count)

	tags, found := restarted.GetPersistent("tags")
	require.True(t, found)
	assert.Equal(t, []interface{}{"a", "b"}, tags)

	draft, found := restarted.GetSession("draft")
	require.True(t, found)
	assert.Equal(t, "hello", draft)
}

func TestEveryMutationRewritesTier(t *testing.T) {
	f := newFixture()
	c := f.open()
	require.Zero(t, f.backend.Writes())

	mutations := []func(){
		func() { c.SetPersistent("a", 1) },
		func() { c.SetPersistent("b", 2) },
		func() { c.RemovePersistent("a") },
		func() { c.RemovePersistent("never-set") },
		func() { c.SetSession("s", true) },
		func() { c.ClearSession() },
		func() { c.ClearPersistent() },
		func() { c.SaveExecutionState(map[string]interface{}{"route": "/"}) },
		func() { c.SaveFormData("login", "x") },
	}

	for i, mutate := range mutations {
		mutate()
		assert.Equal(t, uint64(i+1), f.backend.Writes())
	}

	c.GetPersistent("b")
	c.PersistentKeys()
	c.Stats()
	assert.Equal(t, uint64(len(mutations)), f.backend.Writes())
}

func TestClearWritesEmptyObject(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SetSession("s", 1)
	c.ClearSession()

	assert.Equal(t, `{}`, f.raw(t, types.SessionCacheKey))
	assert.Empty(t, c.SessionKeys())
}

func TestMalformedSnapshotStartsEmpty(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.backend.SetItem(context.Background(), types.PersistentCacheKey, `{"a":1,`))
	require.NoError(t, f.backend.SetItem(context.Background(), types.SessionCacheKey, `["not","an","object"]`))

	c := f.open()
	assert.Empty(t, c.PersistentKeys())
	assert.Empty(t, c.SessionKeys())

	c.SetPersistent("a", 2)
	assert.Equal(t, `{"a":2}`, f.raw(t, types.PersistentCacheKey))
}

type rejectingBackend struct {
	*storage.MemoryBackend
}

func (r *rejectingBackend) SetItem(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func TestStorageFaultDegradesToMemory(t *testing.T) {
	backend := &rejectingBackend{MemoryBackend: storage.NewMemoryBackend(logger.NewNop())}
	adapter := storage.NewAdapter(backend, logger.NewNop(), metrics.NewNop(), 0)
	c := NewCache(adapter, logger.NewNop(), Options{})

	assert.NotPanics(t, func() {
		c.SetPersistent("theme", "dark")
		c.SaveFormData("login", "x")
	})

	value, found := c.GetPersistent("theme")
	assert.True(t, found)
	assert.Equal(t, "dark", value)

	data, found := c.RecoverFormData("login")
	assert.True(t, found)
	assert.Equal(t, "x", data)
}

func TestUnencodableValueDoesNotBlockLaterWrites(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SetPersistent("ratio", math.NaN())
	c.SetPersistent("later", "x")
	assert.JSONEq(t, `{"ratio":null,"later":"x"}`, f.raw(t, types.PersistentCacheKey))

	restarted := f.open()
	assert.Equal(t, []string{"ratio", "later"}, restarted.PersistentKeys())

	value, found := restarted.GetPersistent("later")
	require.True(t, found)
	assert.Equal(t, "x", value)

	value, found = restarted.GetPersistent("ratio")
	require.True(t, found)
	assert.Nil(t, value)
}

func TestInvalidUTF8KeyRejected(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SetPersistent("bad\xff", 1)
	c.SetSession("bad\xff", 1)
	assert.False(t, c.HasPersistent("bad\xff"))
	assert.False(t, c.HasSession("bad\xff"))
	assert.Zero(t, f.backend.Writes())

	c.Import(types.CacheSnapshot{Persistent: map[string]interface{}{"bad\xff": 1, "good": 2}})
	assert.Equal(t, []string{"good"}, c.PersistentKeys())

	restarted := f.open()
	assert.Equal(t, []string{"good"}, restarted.PersistentKeys())
	assert.False(t, restarted.HasPersistent("bad\uFFFD"))
}

func TestExecutionStateRoundTrip(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SaveExecutionState(map[string]interface{}{"route": "/orders", "step": 2})

	state, found := c.RecoverExecutionState()
	require.True(t, found)
	assert.Equal(t, types.CacheFormatVersion, state.Version)
	assert.Equal(t, "session-1", state.SessionID)
	assert.True(t, state.Timestamp.Equal(epoch))
	assert.Equal(t, map[string]interface{}{"route": "/orders", "step": 2}, state.Payload)

	restarted := NewCache(f.adapter, logger.NewNop(), Options{Clock: f.clock, SessionID: "session-2"})
	state, found = restarted.RecoverExecutionState()
	require.True(t, found)
	assert.Equal(t, "session-1", state.SessionID)
	assert.True(t, state.Timestamp.Equal(epoch))
	assert.Equal(t, float64(2), state.Payload["step"])
}

func TestExecutionStateKeepsPayloadSessionField(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SaveExecutionState(map[string]interface{}{"sessionId": "caller", "route": "/"})

	state, found := NewCache(f.adapter, logger.NewNop(), Options{Clock: f.clock, SessionID: "session-2"}).RecoverExecutionState()
	require.True(t, found)
	assert.Equal(t, "session-1", state.SessionID)
	assert.Equal(t, map[string]interface{}{"sessionId": "caller", "route": "/"}, state.Payload)
}

func TestExecutionStateVersionMismatch(t *testing.T) {
	c := newFixture().open()

	assert.NotPanics(t, func() {
		_, found := c.RecoverExecutionState()
		assert.False(t, found)
	})

	c.SetPersistent(types.ExecutionStateKey, map[string]interface{}{
		"route":     "/orders",
		"timestamp": epoch.UnixMilli(),
		"version":   "app-cache-v0",
	})
	_, found := c.RecoverExecutionState()
	assert.False(t, found)

	c.SetPersistent(types.ExecutionStateKey, "garbage")
	_, found = c.RecoverExecutionState()
	assert.False(t, found)
}

func TestFormDataExpiryBoundary(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SaveFormData("checkout", map[string]interface{}{"zip": "10115"})

	f.clock.Advance(24 * time.Hour)
	assert.False(t, c.ClearExpiredFormData("checkout"))
	assert.True(t, c.HasSession("form-checkout"))

	f.clock.Advance(time.Millisecond)
	assert.True(t, c.ClearExpiredFormData("checkout"))
	assert.False(t, c.HasSession("form-checkout"))

	assert.False(t, c.ClearExpiredFormData("checkout"))
}

func TestRecoverFormDataPurgesExpired(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SaveFormData("login", "draft")

	data, found := c.RecoverFormData("login")
	require.True(t, found)
	assert.Equal(t, "draft", data)

	f.clock.Advance(25 * time.Hour)
	restarted := f.open()

	_, found = restarted.RecoverFormData("login")
	assert.False(t, found)
	assert.Equal(t, `{}`, f.raw(t, types.SessionCacheKey))
}

func TestFormTTLOption(t *testing.T) {
	f := newFixture()
	c := NewCache(f.adapter, logger.NewNop(), Options{Clock: f.clock, FormTTL: time.Hour})

	c.SaveFormData("search", "q")
	f.clock.Advance(time.Hour + time.Second)

	_, found := c.RecoverFormData("search")
	assert.False(t, found)
}

func TestStatsExportImport(t *testing.T) {
	f := newFixture()
	c := f.open()

	c.SetPersistent("a", 1)
	c.SetSession("b", 2)
	c.SetSession("c", 3)

	stats := c.Stats()
	assert.Equal(t, types.CacheStats{Persistent: 1, Session: 2, Total: 3, SessionID: "session-1"}, stats)

	exported := c.Export()
	assert.Equal(t, map[string]interface{}{"a": 1}, exported.Persistent)
	assert.Equal(t, map[string]interface{}{"b": 2, "c": 3}, exported.Session)

	other := NewCache(storage.NewAdapter(storage.NewMemoryBackend(logger.NewNop()), logger.NewNop(), metrics.NewNop(), 0), logger.NewNop(), Options{})
	other.SetPersistent("a", 0)
	other.Import(exported)

	value, _ := other.GetPersistent("a")
	assert.Equal(t, 1, value)
	assert.Equal(t, []string{"b", "c"}, other.SessionKeys())

	writes := f.backend.Writes()
	c.Import(types.CacheSnapshot{Session: map[string]interface{}{"z": 1, "y": 2}})
	assert.Equal(t, writes+1, f.backend.Writes())
	assert.Equal(t, []string{"b", "c", "y", "z"}, c.SessionKeys())
}

func TestInstrumentedCacheRecordsOperations(t *testing.T) {
	f := newFixture()
	m := metrics.NewPrometheusMetrics(logger.NewNop(), &types.MetricsConfig{Enabled: true, Namespace: "test"})
	c := NewStateCache(f.adapter, logger.NewNop(), m, &types.CacheConfig{Instrumented: true}, f.clock)

	c.SetPersistent("a", 1)
	c.GetPersistent("a")
	c.GetPersistent("b")
	c.SaveFormData("login", "x")

	counter := func(tier types.Tier, operation, result string) float64 {
		return m.Counter("cache_operations_total", map[string]string{
			"tier":      string(tier),
			"operation": operation,
			"result":    result,
		}).Get()
	}

	assert.Equal(t, float64(1), counter(types.TierPersistent, "set", "success"))
	assert.Equal(t, float64(1), counter(types.TierPersistent, "get", "hit"))
	assert.Equal(t, float64(1), counter(types.TierPersistent, "get", "miss"))
	assert.Equal(t, float64(1), counter(types.TierSession, "save_form", "success"))

	value, found := c.GetPersistent("a")
	assert.True(t, found)
	assert.Equal(t, 1, value)
}

func TestNewStateCacheWithoutInstrumentation(t *testing.T) {
	f := newFixture()
	c := NewStateCache(f.adapter, logger.NewNop(), metrics.NewNop(), &types.CacheConfig{}, f.clock)

	assert.IsType(t, &Cache{}, c)
}
