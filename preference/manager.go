package preference

import (
	"github.com/saiset-co/sai-appstate/types"
)

var customSourceCreators = make(map[string]types.PreferenceSourceCreator)

func RegisterSource(sourceType string, creator types.PreferenceSourceCreator) {
	customSourceCreators[sourceType] = creator
}

// NewSource builds the system preference source selected by config.Type.
// A nil config selects the env source.
func NewSource(logger types.Logger, config *types.PreferenceConfig) (types.PreferenceSource, error) {
	if config == nil {
		return NewEnvSource(logger, nil)
	}

	switch config.Type {
	case "", "env":
		return NewEnvSource(logger, config.Config)
	case "static":
		return NewStaticSourceFromConfig(logger, config.Config)
	case "file":
		return NewFileSource(logger, config.Config)
	default:
		if creator, exists := customSourceCreators[config.Type]; exists {
			return creator(logger, config.Config)
		}
		return nil, types.Errorf(types.ErrPreferenceTypeUnknown, "type: %s", config.Type)
	}
}
