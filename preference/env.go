package preference

import (
	"os"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

const DefaultColorSchemeVariable = "APPSTATE_COLOR_SCHEME"

type EnvConfig struct {
	Variable string `json:"variable" yaml:"variable"`
}

// EnvSource reads the preference once from the environment. It never
// changes, so watchers are accepted and never called.
type EnvSource struct {
	prefersDark bool
}

func NewEnvSource(logger types.Logger, config interface{}) (*EnvSource, error) {
	envConfig := &EnvConfig{Variable: DefaultColorSchemeVariable}
	if config != nil {
		if err := utils.UnmarshalConfig(config, envConfig); err != nil {
			return nil, types.Errorf(types.ErrPreferenceConfigInvalid, "env: %v", err)
		}
	}

	if envConfig.Variable == "" {
		return nil, types.Errorf(types.ErrPreferenceConfigInvalid, "env: variable is empty")
	}

	value := os.Getenv(envConfig.Variable)
	prefersDark, known := ParseColorScheme(value)
	if value != "" && !known {
		logger.Warn("Unrecognized color scheme, assuming light",
			zap.String("variable", envConfig.Variable),
			zap.String("value", value))
	}

	return &EnvSource{prefersDark: prefersDark}, nil
}

func (e *EnvSource) PrefersDark() bool {
	return e.prefersDark
}

func (e *EnvSource) Watch(fn func(prefersDark bool)) (func(), error) {
	if fn == nil {
		return nil, types.ErrInvalidParameter
	}
	return func() {}, nil
}
