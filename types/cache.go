package types

import (
	"time"
)

const (
	PersistentCacheKey = "app-persistent-cache"
	SessionCacheKey    = "app-session-cache"
	ExecutionStateKey  = "app-execution-state"
	CacheFormatVersion = "app-cache-v1"
	FormKeyPrefix      = "form-"
	DefaultFormTTL     = 24 * time.Hour
)

type Tier string

const (
	TierPersistent Tier = "persistent"
	TierSession    Tier = "session"
)

func (t Tier) Valid() bool {
	return t == TierPersistent || t == TierSession
}

// StateCache is the dual-tier cache consumed by the theme coordinator and the CLI.
// None of its methods fail: storage faults leave the cache memory-only.
type StateCache interface {
	SetPersistent(key string, value interface{})
	GetPersistent(key string) (interface{}, bool)
	RemovePersistent(key string)
	ClearPersistent()
	HasPersistent(key string) bool
	PersistentKeys() []string

	SetSession(key string, value interface{})
	GetSession(key string) (interface{}, bool)
	RemoveSession(key string)
	ClearSession()
	HasSession(key string) bool
	SessionKeys() []string

	SaveExecutionState(payload map[string]interface{})
	RecoverExecutionState() (*ExecutionState, bool)

	SaveFormData(formName string, data interface{})
	RecoverFormData(formName string) (interface{}, bool)
	ClearExpiredFormData(formName string) bool

	Stats() CacheStats
	Export() CacheSnapshot
	Import(snapshot CacheSnapshot)
}

type ExecutionState struct {
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	SessionID string                 `json:"sessionId,omitempty"`
}

type FormSnapshot struct {
	Data    interface{} `json:"data"`
	SavedAt time.Time   `json:"savedAt"`
}

type CacheStats struct {
	Persistent int    `json:"persistent"`
	Session    int    `json:"session"`
	Total      int    `json:"total"`
	SessionID  string `json:"session_id"`
}

type CacheSnapshot struct {
	Persistent map[string]interface{} `json:"persistent,omitempty"`
	Session    map[string]interface{} `json:"session,omitempty"`
}
