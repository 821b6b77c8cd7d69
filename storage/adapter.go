package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

const DefaultOpTimeout = 2 * time.Second

// Result is the outcome of a read. Err is informational: a failed read is
// reported as not found and the caller carries on.
type Result struct {
	Value interface{}
	Raw   string
	Found bool
	Err   error
}

// Adapter puts JSON (de)serialization and fault containment in front of a
// StorageBackend. It never panics and never returns a fault the caller must
// handle; failed writes are logged and returned only for inspection.
type Adapter struct {
	backend types.StorageBackend
	logger  types.Logger
	metrics types.MetricsManager
	timeout time.Duration
}

func NewAdapter(backend types.StorageBackend, logger types.Logger, metrics types.MetricsManager, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}

	return &Adapter{
		backend: backend,
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
	}
}

func (a *Adapter) Backend() types.StorageBackend {
	return a.backend
}

// Get reads key and parses it as JSON.
func (a *Adapter) Get(key string) Result {
	result := a.GetRaw(key)
	if !result.Found {
		return result
	}

	var value interface{}
	if err := utils.Unmarshal(utils.StringToBytes(result.Raw), &value); err != nil {
		return a.readFailed("get", key, types.Errorf(types.ErrStorageDecodeFailed, "%v", err))
	}

	result.Value = value
	return result
}

// GetObject reads key as a JSON object and hands its fields to fn in document order.
func (a *Adapter) GetObject(key string, fn func(field string, value interface{})) Result {
	result := a.GetRaw(key)
	if !result.Found {
		return result
	}

	if err := utils.EachObjectField(utils.StringToBytes(result.Raw), fn); err != nil {
		return a.readFailed("get", key, types.Errorf(types.ErrStorageDecodeFailed, "%v", err))
	}

	return result
}

// GetRaw reads key without decoding it.
func (a *Adapter) GetRaw(key string) Result {
	if key == "" {
		return a.readFailed("get", key, types.ErrStorageKeyEmpty)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	raw, found, err := a.backend.GetItem(ctx, key)
	if err != nil {
		return a.readFailed("get", key, err)
	}

	return Result{Raw: raw, Value: raw, Found: found}
}

// Set serializes value as JSON, fully replacing whatever key held.
func (a *Adapter) Set(key string, value interface{}) error {
	data, err := utils.Marshal(value)
	if err != nil {
		return a.writeFailed("set", key, types.Errorf(types.ErrStorageEncodeFailed, "%v", err))
	}

	return a.SetRaw(key, utils.BytesToString(data))
}

// SetObject writes values as one JSON object with fields in keys order.
func (a *Adapter) SetObject(key string, keys []string, values map[string]interface{}) error {
	data, err := utils.MarshalOrderedObject(keys, values, func(field string, err error) {
		a.logger.Warn("Storing unencodable value as null",
			zap.String("key", key),
			zap.String("field", field),
			zap.Error(err))
	})
	if err != nil {
		return a.writeFailed("set", key, types.Errorf(types.ErrStorageEncodeFailed, "%v", err))
	}

	return a.SetRaw(key, utils.BytesToString(data))
}

func (a *Adapter) SetRaw(key, value string) error {
	if key == "" {
		return a.writeFailed("set", key, types.ErrStorageKeyEmpty)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.backend.SetItem(ctx, key, value); err != nil {
		return a.writeFailed("set", key, err)
	}

	a.metrics.Counter("storage_writes_total", map[string]string{"operation": "set"}).Inc()
	return nil
}

func (a *Adapter) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.backend.RemoveItem(ctx, key); err != nil {
		return a.writeFailed("remove", key, err)
	}

	a.metrics.Counter("storage_writes_total", map[string]string{"operation": "remove"}).Inc()
	return nil
}

func (a *Adapter) Keys() []string {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	keys, err := a.backend.Keys(ctx)
	if err != nil {
		a.readFailed("keys", "", err)
		return nil
	}
	return keys
}

func (a *Adapter) readFailed(operation, key string, err error) Result {
	a.logger.Error("Error retrieving item from storage",
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Error(err))
	a.metrics.Counter("storage_errors_total", map[string]string{"operation": operation}).Inc()

	return Result{Err: err}
}

func (a *Adapter) writeFailed(operation, key string, err error) error {
	a.logger.Error("Error persisting item to storage",
		zap.String("operation", operation),
		zap.String("key", key),
		zap.Error(err))
	a.metrics.Counter("storage_errors_total", map[string]string{"operation": operation}).Inc()

	return err
}
