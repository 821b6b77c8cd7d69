package storage

import (
	"context"

	"github.com/saiset-co/sai-appstate/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

var customBackendCreators = make(map[string]types.StorageBackendCreator)

func RegisterBackend(backendType string, creator types.StorageBackendCreator) {
	customBackendCreators[backendType] = creator
}

// NewBackend opens the durable storage selected by config.Type.
func NewBackend(ctx context.Context, logger types.Logger, config *types.StorageConfig) (types.StorageBackend, error) {
	if config == nil {
		return nil, types.ErrStorageConfigInvalid
	}

	switch config.Type {
	case "memory":
		return NewMemoryBackend(logger), nil
	case "file":
		return NewFileBackend(logger, config)
	case "sqlite":
		return NewSQLiteBackend(ctx, logger, config)
	case "clover":
		return NewCloverBackend(logger, config)
	case "redis":
		return NewRedisBackend(ctx, logger, config)
	default:
		if creator, exists := customBackendCreators[config.Type]; exists {
			return creator(ctx, logger, config)
		}
		return nil, types.Errorf(types.ErrStorageTypeUnknown, "type: %s", config.Type)
	}
}
