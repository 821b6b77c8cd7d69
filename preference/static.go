package preference

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

type StaticConfig struct {
	PrefersDark bool `json:"prefers_dark" yaml:"prefers_dark"`
}

// StaticSource holds a preference set in code. Emit plays the part of the
// OS flipping its color scheme.
type StaticSource struct {
	logger      types.Logger
	prefersDark atomic.Bool
	watchers    watchers
}

func NewStaticSource(logger types.Logger, prefersDark bool) *StaticSource {
	s := &StaticSource{logger: logger}
	s.prefersDark.Store(prefersDark)
	return s
}

func NewStaticSourceFromConfig(logger types.Logger, config interface{}) (*StaticSource, error) {
	staticConfig := &StaticConfig{}
	if config != nil {
		if err := utils.UnmarshalConfig(config, staticConfig); err != nil {
			return nil, types.Errorf(types.ErrPreferenceConfigInvalid, "static: %v", err)
		}
	}

	return NewStaticSource(logger, staticConfig.PrefersDark), nil
}

func (s *StaticSource) PrefersDark() bool {
	return s.prefersDark.Load()
}

func (s *StaticSource) Watch(fn func(prefersDark bool)) (func(), error) {
	if fn == nil {
		return nil, types.ErrInvalidParameter
	}
	return s.watchers.add(fn), nil
}

// Emit changes the preference and notifies watchers if it differs from the
// current value.
func (s *StaticSource) Emit(prefersDark bool) {
	if s.prefersDark.Swap(prefersDark) == prefersDark {
		return
	}

	s.logger.Debug("System color scheme changed", zap.Bool("prefers_dark", prefersDark))
	s.watchers.dispatch(prefersDark)
}
