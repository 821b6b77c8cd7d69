package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigLoadFailed     = errors.New("config load failed")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrAlreadyRunning = errors.New("component already running")
	ErrNotRunning     = errors.New("component not running")
)

var (
	ErrStorageKeyEmpty      = errors.New("storage key empty")
	ErrStorageTypeUnknown   = errors.New("storage type unknown")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrStorageClosed        = errors.New("storage closed")
	ErrStorageDecodeFailed  = errors.New("storage decode failed")
	ErrStorageEncodeFailed  = errors.New("storage encode failed")
	ErrStorageConfigInvalid = errors.New("storage config invalid")
)

var (
	ErrCacheKeyEmpty       = errors.New("cache key empty")
	ErrCacheTierUnknown    = errors.New("cache tier unknown")
	ErrCacheSnapshotFormat = errors.New("cache snapshot is not an object")
)

var (
	ErrThemeInvalid            = errors.New("theme invalid")
	ErrPreferenceTypeUnknown   = errors.New("preference source type unknown")
	ErrPreferenceConfigInvalid = errors.New("preference source config invalid")
)

var (
	ErrLogFileIsEmpty      = errors.New("log file is empty")
	ErrLogFileWrongFormat  = errors.New("log file wrong format")
	ErrLoggerTypeUnknown   = errors.New("logger type unknown")
	ErrLoggerConfigInvalid = errors.New("logger config invalid")
)

var (
	ErrMetricsIsDisabled = errors.New("metrics manager is disabled")
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotSupported     = errors.New("not supported")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
