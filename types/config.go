package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *AppConfig
	GetValue(path string, defaultValue interface{}) interface{}
	GetAs(path string, target interface{}) error
	GetAllPaths() []string
}

type AppConfig struct {
	Name    string         `yaml:"name" json:"name" validate:"required"`
	Logger  *LoggerConfig  `yaml:"logger" json:"logger" validate:"required"`
	Storage *StorageConfig `yaml:"storage" json:"storage" validate:"required"`
	Cache   *CacheConfig   `yaml:"cache" json:"cache" validate:"required"`
	Theme   *ThemeConfig   `yaml:"theme" json:"theme" validate:"required"`
	Metrics *MetricsConfig `yaml:"metrics" json:"metrics"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error fatal"`
	Config interface{} `yaml:"config" json:"config"`
}

type StorageConfig struct {
	Type      string        `yaml:"type" json:"type" validate:"required"`
	OpTimeout time.Duration `yaml:"op_timeout" json:"op_timeout" validate:"min=0"`
	Config    interface{}   `yaml:"config" json:"config"`
}

type CacheConfig struct {
	FormTTL      time.Duration `yaml:"form_ttl" json:"form_ttl" validate:"min=0"`
	Instrumented bool          `yaml:"instrumented" json:"instrumented"`
}

type ThemeConfig struct {
	Default     string            `yaml:"default" json:"default" validate:"omitempty,oneof=light dark"`
	WatchSystem bool              `yaml:"watch_system" json:"watch_system"`
	LightColor  string            `yaml:"light_color" json:"light_color" validate:"omitempty,hexcolor"`
	DarkColor   string            `yaml:"dark_color" json:"dark_color" validate:"omitempty,hexcolor"`
	System      *PreferenceConfig `yaml:"system" json:"system"`
}

type PreferenceConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Config interface{} `yaml:"config" json:"config"`
}

type MetricsConfig struct {
	Enabled   bool              `yaml:"enabled" json:"enabled"`
	Namespace string            `yaml:"namespace" json:"namespace"`
	Labels    map[string]string `yaml:"labels" json:"labels"`
}
