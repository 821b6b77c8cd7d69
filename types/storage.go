package types

import (
	"context"
)

// StorageBackend is durable key/value storage holding string values, the
// server-side counterpart of a browser's localStorage.
type StorageBackend interface {
	LifecycleManager
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

type StorageBackendCreator func(ctx context.Context, logger Logger, config *StorageConfig) (StorageBackend, error)
