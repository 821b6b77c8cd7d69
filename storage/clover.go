package storage

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

type CloverConfig struct {
	Path       string `json:"path" yaml:"path"`
	Collection string `json:"collection" yaml:"collection"`
}

// CloverBackend keeps one document per item: {"key": ..., "value": ...}.
type CloverBackend struct {
	db     *clover.DB
	logger types.Logger
	config *CloverConfig
	mu     sync.Mutex
	state  atomic.Value
}

func NewCloverBackend(logger types.Logger, config *types.StorageConfig) (*CloverBackend, error) {
	cloverConfig := &CloverConfig{
		Path:       "appstate-clover",
		Collection: "storage",
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, cloverConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal clover storage config")
		}
	}

	if cloverConfig.Path == "" || cloverConfig.Collection == "" {
		return nil, types.Errorf(types.ErrStorageConfigInvalid, "clover storage requires path and collection")
	}

	db, err := clover.Open(cloverConfig.Path)
	if err != nil {
		return nil, types.WrapError(err, "failed to open CloverDB")
	}

	exists, err := db.HasCollection(cloverConfig.Collection)
	if err != nil {
		_ = db.Close()
		return nil, types.WrapError(err, "failed to check collection existence")
	}

	if !exists {
		if err := db.CreateCollection(cloverConfig.Collection); err != nil {
			_ = db.Close()
			return nil, types.WrapError(err, "failed to create collection")
		}
	}

	c := &CloverBackend{
		db:     db,
		logger: logger,
		config: cloverConfig,
	}

	c.state.Store(StateStopped)
	return c, nil
}

func (c *CloverBackend) GetItem(_ context.Context, key string) (string, bool, error) {
	doc, err := c.byKey(key).FindFirst()
	if err != nil {
		return "", false, types.WrapError(err, "failed to find document")
	}
	if doc == nil {
		return "", false, nil
	}

	value, ok := doc.Get("value").(string)
	if !ok {
		return "", false, types.Errorf(types.ErrStorageDecodeFailed, "document %q has no string value", key)
	}

	return value, true, nil
}

func (c *CloverBackend) SetItem(_ context.Context, key, value string) error {
	if key == "" {
		return types.ErrStorageKeyEmpty
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	query := c.byKey(key)

	count, err := query.Count()
	if err != nil {
		return types.WrapError(err, "failed to count matching documents")
	}

	if count > 0 {
		if err := query.Update(map[string]interface{}{"value": value}); err != nil {
			return types.WrapError(err, "failed to update document")
		}
		return nil
	}

	doc := clover.NewDocument()
	doc.Set("key", key)
	doc.Set("value", value)

	if err := c.db.Insert(c.config.Collection, doc); err != nil {
		return types.WrapError(err, "failed to insert document")
	}

	return nil
}

func (c *CloverBackend) RemoveItem(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.byKey(key).Delete(); err != nil {
		return types.WrapError(err, "failed to delete document")
	}
	return nil
}

func (c *CloverBackend) Keys(_ context.Context) ([]string, error) {
	docs, err := c.db.Query(c.config.Collection).FindAll()
	if err != nil {
		return nil, types.WrapError(err, "failed to find documents")
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		key, ok := doc.Get("key").(string)
		if !ok {
			c.logger.Warn("Skipping document without key", zap.String("collection", c.config.Collection))
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}

func (c *CloverBackend) Start() error {
	if !c.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrAlreadyRunning
	}

	c.logger.Info("CloverDB storage started", zap.String("path", c.config.Path))
	return nil
}

func (c *CloverBackend) Stop() error {
	if !c.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrNotRunning
	}

	defer c.state.Store(StateStopped)

	if err := c.db.Close(); err != nil {
		return types.WrapError(err, "failed to close CloverDB")
	}

	c.logger.Info("CloverDB storage stopped gracefully")
	return nil
}

func (c *CloverBackend) IsRunning() bool {
	return c.state.Load().(State) == StateRunning
}

func (c *CloverBackend) byKey(key string) *clover.Query {
	return c.db.Query(c.config.Collection).Where(clover.Field("key").Eq(key))
}
