package cache

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/saiset-co/sai-appstate/storage"
	"github.com/saiset-co/sai-appstate/types"
)

// NewStateCache builds the cache described by config, wrapped with metrics
// when config.Instrumented is set.
func NewStateCache(adapter *storage.Adapter, logger types.Logger, metrics types.MetricsManager, config *types.CacheConfig, clock clockwork.Clock) types.StateCache {
	opts := Options{Clock: clock}
	if config != nil {
		opts.FormTTL = config.FormTTL
	}

	impl := NewCache(adapter, logger, opts)
	if config != nil && config.Instrumented {
		return NewInstrumented(impl, logger, metrics)
	}
	return impl
}

type instrumentedCache struct {
	impl    types.StateCache
	logger  types.Logger
	metrics types.MetricsManager
}

func NewInstrumented(impl types.StateCache, logger types.Logger, metrics types.MetricsManager) types.StateCache {
	return &instrumentedCache{
		impl:    impl,
		logger:  logger,
		metrics: metrics,
	}
}

func (ic *instrumentedCache) SetPersistent(key string, value interface{}) {
	start := time.Now()
	ic.impl.SetPersistent(key, value)
	ic.recordMetric(types.TierPersistent, "set", "success", time.Since(start))
}

func (ic *instrumentedCache) GetPersistent(key string) (interface{}, bool) {
	start := time.Now()
	value, exists := ic.impl.GetPersistent(key)
	ic.recordMetric(types.TierPersistent, "get", hitOrMiss(exists), time.Since(start))
	return value, exists
}

func (ic *instrumentedCache) RemovePersistent(key string) {
	start := time.Now()
	ic.impl.RemovePersistent(key)
	ic.recordMetric(types.TierPersistent, "remove", "success", time.Since(start))
}

func (ic *instrumentedCache) ClearPersistent() {
	start := time.Now()
	ic.impl.ClearPersistent()
	ic.recordMetric(types.TierPersistent, "clear", "success", time.Since(start))
}

func (ic *instrumentedCache) HasPersistent(key string) bool {
	return ic.impl.HasPersistent(key)
}

func (ic *instrumentedCache) PersistentKeys() []string {
	return ic.impl.PersistentKeys()
}

func (ic *instrumentedCache) SetSession(key string, value interface{}) {
	start := time.Now()
	ic.impl.SetSession(key, value)
	ic.recordMetric(types.TierSession, "set", "success", time.Since(start))
}

func (ic *instrumentedCache) GetSession(key string) (interface{}, bool) {
	start := time.Now()
	value, exists := ic.impl.GetSession(key)
	ic.recordMetric(types.TierSession, "get", hitOrMiss(exists), time.Since(start))
	return value, exists
}

func (ic *instrumentedCache) RemoveSession(key string) {
	start := time.Now()
	ic.impl.RemoveSession(key)
	ic.recordMetric(types.TierSession, "remove", "success", time.Since(start))
}

func (ic *instrumentedCache) ClearSession() {
	start := time.Now()
	ic.impl.ClearSession()
	ic.recordMetric(types.TierSession, "clear", "success", time.Since(start))
}

func (ic *instrumentedCache) HasSession(key string) bool {
	return ic.impl.HasSession(key)
}

func (ic *instrumentedCache) SessionKeys() []string {
	return ic.impl.SessionKeys()
}

func (ic *instrumentedCache) SaveExecutionState(payload map[string]interface{}) {
	start := time.Now()
	ic.impl.SaveExecutionState(payload)
	ic.recordMetric(types.TierPersistent, "save_state", "success", time.Since(start))
}

func (ic *instrumentedCache) RecoverExecutionState() (*types.ExecutionState, bool) {
	start := time.Now()
	state, found := ic.impl.RecoverExecutionState()
	ic.recordMetric(types.TierPersistent, "recover_state", hitOrMiss(found), time.Since(start))
	return state, found
}

func (ic *instrumentedCache) SaveFormData(formName string, data interface{}) {
	start := time.Now()
	ic.impl.SaveFormData(formName, data)
	ic.recordMetric(types.TierSession, "save_form", "success", time.Since(start))
}

func (ic *instrumentedCache) RecoverFormData(formName string) (interface{}, bool) {
	start := time.Now()
	data, found := ic.impl.RecoverFormData(formName)
	ic.recordMetric(types.TierSession, "recover_form", hitOrMiss(found), time.Since(start))
	return data, found
}

func (ic *instrumentedCache) ClearExpiredFormData(formName string) bool {
	start := time.Now()
	removed := ic.impl.ClearExpiredFormData(formName)

	result := "kept"
	if removed {
		result = "expired"
	}

	ic.recordMetric(types.TierSession, "expire_form", result, time.Since(start))
	return removed
}

func (ic *instrumentedCache) Stats() types.CacheStats {
	return ic.impl.Stats()
}

func (ic *instrumentedCache) Export() types.CacheSnapshot {
	return ic.impl.Export()
}

func (ic *instrumentedCache) Import(snapshot types.CacheSnapshot) {
	start := time.Now()
	ic.impl.Import(snapshot)

	if snapshot.Persistent != nil {
		ic.recordMetric(types.TierPersistent, "import", "success", time.Since(start))
	}
	if snapshot.Session != nil {
		ic.recordMetric(types.TierSession, "import", "success", time.Since(start))
	}
}

func (ic *instrumentedCache) recordMetric(tier types.Tier, operation, result string, duration time.Duration) {
	opCounter := ic.metrics.Counter("cache_operations_total", map[string]string{
		"tier":      string(tier),
		"operation": operation,
		"result":    result,
	})
	opCounter.Inc()

	opDuration := ic.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	)
	opDuration.Observe(duration.Seconds())
}

func hitOrMiss(found bool) string {
	if found {
		return "hit"
	}
	return "miss"
}
