package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-appstate/types"
)

type Loader struct {
	validator *validator.Validate
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LoadFromFile overlays the YAML file on Defaults. An empty path yields the defaults.
func (l *Loader) LoadFromFile(ctx context.Context, configPath string) (*types.AppConfig, error) {
	config := l.Defaults()

	if configPath == "" {
		return config, l.Validate(config)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, types.Errorf(types.ErrConfigNotFound, "file: %s", configPath)
	}

	data, err := l.ReadFileWithTimeout(ctx, configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to read config file")
	}

	if err := l.Parse(data, config); err != nil {
		return nil, err
	}

	return config, l.Validate(config)
}

func (l *Loader) Parse(data []byte, config *types.AppConfig) error {
	if err := yaml.Unmarshal(data, config); err != nil {
		return types.Errorf(types.ErrConfigParseFailed, "%v", err)
	}
	return nil
}

func (l *Loader) Validate(config *types.AppConfig) error {
	if config == nil {
		return types.ErrConfigIsNil
	}

	if err := l.validator.Struct(config); err != nil {
		return types.Errorf(types.ErrConfigValidateFailed, "%v", err)
	}

	return nil
}

func (l *Loader) ReadFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

func (l *Loader) Defaults() *types.AppConfig {
	return &types.AppConfig{
		Name: "appstate",
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Storage: &types.StorageConfig{
			Type:      "memory",
			OpTimeout: 2 * time.Second,
		},
		Cache: &types.CacheConfig{
			FormTTL:      types.DefaultFormTTL,
			Instrumented: false,
		},
		Theme: &types.ThemeConfig{
			Default:     string(types.ThemeLight),
			WatchSystem: false,
			LightColor:  types.DefaultLightColor,
			DarkColor:   types.DefaultDarkColor,
			System: &types.PreferenceConfig{
				Type: "env",
			},
		},
		Metrics: &types.MetricsConfig{
			Enabled:   false,
			Namespace: "appstate",
		},
	}
}
