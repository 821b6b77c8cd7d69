package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

type FileConfig struct {
	Path string `json:"path" yaml:"path"`
}

// FileBackend stores every item in a single JSON document on disk and
// rewrites it atomically on each change.
type FileBackend struct {
	logger types.Logger
	config *FileConfig
	items  map[string]string
	mu     sync.RWMutex
	state  atomic.Value
}

func NewFileBackend(logger types.Logger, config *types.StorageConfig) (*FileBackend, error) {
	fileConfig := &FileConfig{
		Path: "appstate.json",
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, fileConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal file storage config")
		}
	}

	if fileConfig.Path == "" {
		return nil, types.Errorf(types.ErrStorageConfigInvalid, "file storage requires a path")
	}

	f := &FileBackend{
		logger: logger,
		config: fileConfig,
		items:  make(map[string]string),
	}

	if err := f.load(); err != nil {
		return nil, err
	}

	f.state.Store(StateStopped)
	return f, nil
}

func (f *FileBackend) GetItem(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	value, exists := f.items[key]
	return value, exists, nil
}

func (f *FileBackend) SetItem(_ context.Context, key, value string) error {
	if key == "" {
		return types.ErrStorageKeyEmpty
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	previous, existed := f.items[key]
	f.items[key] = value

	if err := f.flushUnsafe(); err != nil {
		if existed {
			f.items[key] = previous
		} else {
			delete(f.items, key)
		}
		return err
	}

	return nil
}

func (f *FileBackend) RemoveItem(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	previous, existed := f.items[key]
	if !existed {
		return nil
	}
	delete(f.items, key)

	if err := f.flushUnsafe(); err != nil {
		f.items[key] = previous
		return err
	}

	return nil
}

func (f *FileBackend) Keys(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.items))
	for key := range f.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}

func (f *FileBackend) Path() string {
	return f.config.Path
}

func (f *FileBackend) Start() error {
	if !f.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrAlreadyRunning
	}

	f.logger.Info("File storage started", zap.String("path", f.config.Path))
	return nil
}

func (f *FileBackend) Stop() error {
	if !f.state.CompareAndSwap(StateRunning, StateStopped) {
		return types.ErrNotRunning
	}

	f.logger.Info("File storage stopped", zap.String("path", f.config.Path))
	return nil
}

func (f *FileBackend) IsRunning() bool {
	return f.state.Load().(State) == StateRunning
}

func (f *FileBackend) load() error {
	data, err := os.ReadFile(f.config.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return types.Errorf(types.ErrStorageUnavailable, "read %s: %v", f.config.Path, err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := utils.Unmarshal(data, &f.items); err != nil {
		// A corrupt document is treated like an empty one and replaced on the next write.
		f.logger.Error("Discarding unreadable storage file",
			zap.String("path", f.config.Path),
			zap.Error(err))
		f.items = make(map[string]string)
	}

	return nil
}

func (f *FileBackend) flushUnsafe() error {
	data, err := utils.Marshal(f.items)
	if err != nil {
		return types.Errorf(types.ErrStorageEncodeFailed, "%v", err)
	}

	dir := filepath.Dir(f.config.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.Errorf(types.ErrStorageUnavailable, "mkdir %s: %v", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.config.Path)+".*.tmp")
	if err != nil {
		return types.Errorf(types.ErrStorageUnavailable, "create temp file: %v", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return types.Errorf(types.ErrStorageUnavailable, "write %s: %v", tmpName, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return types.Errorf(types.ErrStorageUnavailable, "sync %s: %v", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return types.Errorf(types.ErrStorageUnavailable, "close %s: %v", tmpName, err)
	}

	if err := os.Rename(tmpName, f.config.Path); err != nil {
		_ = os.Remove(tmpName)
		return types.Errorf(types.ErrStorageUnavailable, "rename %s: %v", tmpName, err)
	}

	return nil
}
