package storage

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

type RedisConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	Password    string `json:"password" yaml:"password"`
	DB          int    `json:"db" yaml:"db"`
	KeyPrefix   string `json:"key_prefix" yaml:"key_prefix"`
	DialTimeout string `json:"dial_timeout" yaml:"dial_timeout"`
	PoolSize    int    `json:"pool_size" yaml:"pool_size"`
}

type RedisBackend struct {
	logger types.Logger
	config *RedisConfig
	client *redis.Client
	state  atomic.Value
}

func NewRedisBackend(ctx context.Context, logger types.Logger, config *types.StorageConfig) (*RedisBackend, error) {
	redisConfig := &RedisConfig{
		Addr:        "localhost:6379",
		KeyPrefix:   "appstate",
		DialTimeout: "5s",
		PoolSize:    4,
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, redisConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis storage config")
		}
	}

	dialTimeout, err := time.ParseDuration(redisConfig.DialTimeout)
	if err != nil {
		logger.Error("Invalid dial timeout, using default 5s",
			zap.String("dial_timeout", redisConfig.DialTimeout),
			zap.Error(err))
		dialTimeout = 5 * time.Second
	}

	r := &RedisBackend{
		logger: logger,
		config: redisConfig,
		client: redis.NewClient(&redis.Options{
			Addr:        redisConfig.Addr,
			Password:    redisConfig.Password,
			DB:          redisConfig.DB,
			PoolSize:    redisConfig.PoolSize,
			DialTimeout: dialTimeout,
		}),
	}

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		_ = r.client.Close()
		return nil, types.Errorf(types.ErrStorageUnavailable, "redis %s: %v", redisConfig.Addr, err)
	}

	r.state.Store(StateStopped)
	return r, nil
}

func (r *RedisBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.buildFullKey(key)).Result()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, types.WrapError(err, "failed to get redis item")
	}
	return value, true, nil
}

func (r *RedisBackend) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return types.ErrStorageKeyEmpty
	}

	if err := r.client.Set(ctx, r.buildFullKey(key), value, 0).Err(); err != nil {
		return types.WrapError(err, "failed to set redis item")
	}
	return nil
}

func (r *RedisBackend) RemoveItem(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.buildFullKey(key)).Err(); err != nil {
		return types.WrapError(err, "failed to delete redis item")
	}
	return nil
}

func (r *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	prefix := r.buildFullKey("")

	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, types.WrapError(err, "failed to scan redis keys")
	}

	return keys, nil
}

func (r *RedisBackend) Start() error {
	if !r.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrAlreadyRunning
	}

	r.logger.Info("Redis storage started", zap.String("addr", r.config.Addr))
	return nil
}

func (r *RedisBackend) Stop() error {
	if !r.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrNotRunning
	}

	defer r.state.Store(StateStopped)

	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis client", zap.Error(err))
		return types.WrapError(err, "failed to close redis client")
	}

	r.logger.Info("Redis storage closed")
	return nil
}

func (r *RedisBackend) IsRunning() bool {
	return r.state.Load().(State) == StateRunning
}

func (r *RedisBackend) buildFullKey(key string) string {
	if r.config.KeyPrefix != "" {
		return r.config.KeyPrefix + ":" + key
	}
	return key
}
