package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

type SQLiteConfig struct {
	Path  string `json:"path" yaml:"path"`
	Table string `json:"table" yaml:"table"`
}

type SQLiteBackend struct {
	db     *sql.DB
	logger types.Logger
	config *SQLiteConfig
	state  atomic.Value

	getStmt    string
	setStmt    string
	removeStmt string
	keysStmt   string
}

func NewSQLiteBackend(ctx context.Context, logger types.Logger, config *types.StorageConfig) (*SQLiteBackend, error) {
	sqliteConfig := &SQLiteConfig{
		Path:  "appstate.db",
		Table: "storage",
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, sqliteConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal sqlite storage config")
		}
	}

	if sqliteConfig.Path == "" || sqliteConfig.Table == "" {
		return nil, types.Errorf(types.ErrStorageConfigInvalid, "sqlite storage requires path and table")
	}

	db, err := sql.Open("sqlite", sqliteConfig.Path)
	if err != nil {
		return nil, types.WrapError(err, "failed to open sqlite database")
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteBackend{
		db:         db,
		logger:     logger,
		config:     sqliteConfig,
		getStmt:    fmt.Sprintf(`SELECT value FROM %q WHERE key = ?`, sqliteConfig.Table),
		setStmt:    fmt.Sprintf(`INSERT INTO %q (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, sqliteConfig.Table),
		removeStmt: fmt.Sprintf(`DELETE FROM %q WHERE key = ?`, sqliteConfig.Table),
		keysStmt:   fmt.Sprintf(`SELECT key FROM %q ORDER BY key`, sqliteConfig.Table),
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (key TEXT PRIMARY KEY, value TEXT NOT NULL)`, sqliteConfig.Table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, types.WrapError(err, "failed to create sqlite storage table")
	}

	s.state.Store(StateStopped)
	return s, nil
}

func (s *SQLiteBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.getStmt, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.WrapError(err, "failed to read sqlite item")
	}
	return value, true, nil
}

func (s *SQLiteBackend) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return types.ErrStorageKeyEmpty
	}

	if _, err := s.db.ExecContext(ctx, s.setStmt, key, value); err != nil {
		return types.WrapError(err, "failed to write sqlite item")
	}
	return nil
}

func (s *SQLiteBackend) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.removeStmt, key); err != nil {
		return types.WrapError(err, "failed to remove sqlite item")
	}
	return nil
}

func (s *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.keysStmt)
	if err != nil {
		return nil, types.WrapError(err, "failed to list sqlite keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, types.WrapError(err, "failed to scan sqlite key")
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func (s *SQLiteBackend) Start() error {
	if !s.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrAlreadyRunning
	}

	s.logger.Info("SQLite storage started", zap.String("path", s.config.Path))
	return nil
}

func (s *SQLiteBackend) Stop() error {
	if !s.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrNotRunning
	}

	defer s.state.Store(StateStopped)

	if err := s.db.Close(); err != nil {
		return types.WrapError(err, "failed to close sqlite database")
	}

	s.logger.Info("SQLite storage stopped", zap.String("path", s.config.Path))
	return nil
}

func (s *SQLiteBackend) IsRunning() bool {
	return s.state.Load().(State) == StateRunning
}
