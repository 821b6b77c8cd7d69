package cache

import (
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/storage"
	"github.com/saiset-co/sai-appstate/types"
)

const (
	timestampField = "timestamp"
	versionField   = "version"
	sessionIDField = "_appstateSessionId"
	formDataField  = "data"
	savedAtField   = "savedAt"
)

type Options struct {
	Clock     clockwork.Clock
	FormTTL   time.Duration
	SessionID string
}

// Cache keeps a persistent and a session tier in memory and rewrites the
// whole tier to storage after every mutation. Reads never touch storage.
type Cache struct {
	adapter    *storage.Adapter
	logger     types.Logger
	clock      clockwork.Clock
	formTTL    time.Duration
	sessionID  string
	persistent *tier
	session    *tier
	mu         sync.RWMutex
}

func NewCache(adapter *storage.Adapter, logger types.Logger, opts Options) *Cache {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.FormTTL <= 0 {
		opts.FormTTL = types.DefaultFormTTL
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}

	c := &Cache{
		adapter:   adapter,
		logger:    logger,
		clock:     opts.Clock,
		formTTL:   opts.FormTTL,
		sessionID: opts.SessionID,
	}

	c.persistent = c.load(types.TierPersistent, types.PersistentCacheKey)
	c.session = c.load(types.TierSession, types.SessionCacheKey)

	c.logger.Debug("Cache initialized",
		zap.String("session_id", c.sessionID),
		zap.Int("persistent", c.persistent.len()),
		zap.Int("session", c.session.len()))

	return c
}

func (c *Cache) load(name types.Tier, storageKey string) *tier {
	loaded := newTier(name, storageKey)
	result := c.adapter.GetObject(storageKey, loaded.set)
	if result.Err != nil {
		// the snapshot is discarded as a whole; the next mutation overwrites it
		return newTier(name, storageKey)
	}
	return loaded
}

func (c *Cache) SessionID() string {
	return c.sessionID
}

func (c *Cache) SetPersistent(key string, value interface{}) {
	c.set(c.persistent, key, value)
}

func (c *Cache) GetPersistent(key string) (interface{}, bool) {
	return c.get(c.persistent, key)
}

func (c *Cache) RemovePersistent(key string) {
	c.remove(c.persistent, key)
}

func (c *Cache) ClearPersistent() {
	c.clear(c.persistent)
}

func (c *Cache) HasPersistent(key string) bool {
	_, exists := c.get(c.persistent, key)
	return exists
}

func (c *Cache) PersistentKeys() []string {
	return c.keys(c.persistent)
}

func (c *Cache) SetSession(key string, value interface{}) {
	c.set(c.session, key, value)
}

func (c *Cache) GetSession(key string) (interface{}, bool) {
	return c.get(c.session, key)
}

func (c *Cache) RemoveSession(key string) {
	c.remove(c.session, key)
}

func (c *Cache) ClearSession() {
	c.clear(c.session)
}

func (c *Cache) HasSession(key string) bool {
	_, exists := c.get(c.session, key)
	return exists
}

func (c *Cache) SessionKeys() []string {
	return c.keys(c.session)
}

// SaveExecutionState stores payload with a timestamp and format tag under
// the reserved execution-state key of the persistent tier.
func (c *Cache) SaveExecutionState(payload map[string]interface{}) {
	record := make(map[string]interface{}, len(payload)+3)
	for key, value := range payload {
		record[key] = value
	}
	record[timestampField] = c.clock.Now().UnixMilli()
	record[versionField] = types.CacheFormatVersion
	record[sessionIDField] = c.sessionID

	c.SetPersistent(types.ExecutionStateKey, record)
}

// RecoverExecutionState returns the saved execution state if its format tag
// matches the current one.
func (c *Cache) RecoverExecutionState() (*types.ExecutionState, bool) {
	value, exists := c.GetPersistent(types.ExecutionStateKey)
	if !exists {
		return nil, false
	}

	record, ok := value.(map[string]interface{})
	if !ok {
		return nil, false
	}

	version, _ := record[versionField].(string)
	if version != types.CacheFormatVersion {
		c.logger.Debug("Ignoring execution state with foreign format", zap.String("version", version))
		return nil, false
	}

	state := &types.ExecutionState{
		Payload: make(map[string]interface{}, len(record)),
		Version: version,
	}
	for key, field := range record {
		switch key {
		case timestampField:
			if ms, ok := toInt64(field); ok {
				state.Timestamp = time.UnixMilli(ms)
			}
		case versionField:
		case sessionIDField:
			state.SessionID, _ = field.(string)
		default:
			state.Payload[key] = field
		}
	}

	return state, true
}

func (c *Cache) SaveFormData(formName string, data interface{}) {
	c.SetSession(formKey(formName), map[string]interface{}{
		formDataField: data,
		savedAtField:  c.clock.Now().UnixMilli(),
	})
}

// RecoverFormData purges an expired snapshot before reading it back.
func (c *Cache) RecoverFormData(formName string) (interface{}, bool) {
	c.ClearExpiredFormData(formName)

	value, exists := c.GetSession(formKey(formName))
	if !exists {
		return nil, false
	}

	snapshot, ok := parseFormSnapshot(value)
	if !ok {
		return nil, false
	}
	return snapshot.Data, true
}

// ClearExpiredFormData removes the form snapshot if it is older than the
// form TTL and reports whether it did.
func (c *Cache) ClearExpiredFormData(formName string) bool {
	key := formKey(formName)

	value, exists := c.GetSession(key)
	if !exists {
		return false
	}

	snapshot, ok := parseFormSnapshot(value)
	if !ok {
		return false
	}

	age := c.clock.Now().UnixMilli() - snapshot.SavedAt.UnixMilli()
	if age <= c.formTTL.Milliseconds() {
		return false
	}

	c.logger.Debug("Form snapshot expired", zap.String("form", formName), zap.Int64("age_ms", age))
	c.RemoveSession(key)
	return true
}

func (c *Cache) Stats() types.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return types.CacheStats{
		Persistent: c.persistent.len(),
		Session:    c.session.len(),
		Total:      c.persistent.len() + c.session.len(),
		SessionID:  c.sessionID,
	}
}

func (c *Cache) Export() types.CacheSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return types.CacheSnapshot{
		Persistent: c.persistent.snapshot(),
		Session:    c.session.snapshot(),
	}
}

// Import merges snapshot into the tiers. Each non-nil tier costs one storage
// write; new keys are appended in sorted order.
func (c *Cache) Import(snapshot types.CacheSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snapshot.Persistent != nil {
		c.mergeSorted(c.persistent, snapshot.Persistent)
		c.flushUnsafe(c.persistent)
	}
	if snapshot.Session != nil {
		c.mergeSorted(c.session, snapshot.Session)
		c.flushUnsafe(c.session)
	}
}

func (c *Cache) set(t *tier, key string, value interface{}) {
	if !c.validKey(t, key) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t.set(key, value)
	c.flushUnsafe(t)
}

func (c *Cache) get(t *tier, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return t.get(key)
}

func (c *Cache) remove(t *tier, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t.remove(key)
	c.flushUnsafe(t)
}

func (c *Cache) clear(t *tier) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t.clear()
	c.flushUnsafe(t)
}

func (c *Cache) keys(t *tier) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return t.keyList()
}

// flushUnsafe rewrites the full tier. A failed write leaves the tier
// memory-only until the next successful one.
func (c *Cache) flushUnsafe(t *tier) {
	if err := c.adapter.SetObject(t.storageKey, t.keys, t.values); err != nil {
		c.logger.Warn("Cache tier is memory-only until the next successful write",
			zap.String("tier", string(t.name)),
			zap.Error(err))
	}
}

// validKey rejects keys that are not valid UTF-8: JSON storage would replace
// the bad bytes and the key would come back under a different name.
func (c *Cache) validKey(t *tier, key string) bool {
	if utf8.ValidString(key) {
		return true
	}
	c.logger.Warn("Rejecting cache key that is not valid UTF-8",
		zap.String("tier", string(t.name)),
		zap.ByteString("key", []byte(key)))
	return false
}

func (c *Cache) mergeSorted(t *tier, values map[string]interface{}) {
	keys := make([]string, 0, len(values))
	for key := range values {
		if c.validKey(t, key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		t.set(key, values[key])
	}
}

func formKey(formName string) string {
	return types.FormKeyPrefix + formName
}

func parseFormSnapshot(value interface{}) (types.FormSnapshot, bool) {
	record, ok := value.(map[string]interface{})
	if !ok {
		return types.FormSnapshot{}, false
	}

	ms, ok := toInt64(record[savedAtField])
	if !ok {
		return types.FormSnapshot{}, false
	}

	return types.FormSnapshot{Data: record[formDataField], SavedAt: time.UnixMilli(ms)}, true
}

// toInt64 accepts timestamps written in this process and ones decoded from JSON.
func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

var _ types.StateCache = (*Cache)(nil)
