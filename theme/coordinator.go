package theme

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/storage"
	"github.com/saiset-co/sai-appstate/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type listener struct {
	id uint64
	fn types.ThemeListener
}

// Coordinator owns the current theme mode. Explicit changes are applied to
// the UI sink, written to the legacy raw key and the persistent cache, then
// announced to subscribers. System preference changes are followed only
// while no override sits in the persistent cache.
type Coordinator struct {
	cache      types.StateCache
	adapter    *storage.Adapter
	source     types.PreferenceSource
	applier    types.ThemeApplier
	logger     types.Logger
	config     *types.ThemeConfig
	current    types.ThemeMode
	listeners  []listener
	watches    map[uint64]func()
	nextID     uint64
	mu         sync.RWMutex
	transition sync.Mutex
	state      atomic.Value
}

// New resolves the initial mode and applies it to the UI sink. Nothing is
// persisted until the first explicit change.
func New(cache types.StateCache, adapter *storage.Adapter, source types.PreferenceSource, applier types.ThemeApplier, logger types.Logger, config *types.ThemeConfig) *Coordinator {
	if config == nil {
		config = &types.ThemeConfig{}
	}

	c := &Coordinator{
		cache:   cache,
		adapter: adapter,
		source:  source,
		applier: applier,
		logger:  logger,
		config:  config,
		watches: make(map[uint64]func()),
	}

	c.state.Store(StateStopped)
	c.current = c.resolveInitial()
	c.apply(c.current)

	return c
}

func (c *Coordinator) resolveInitial() types.ThemeMode {
	if value, exists := c.cache.GetPersistent(types.ThemeKey); exists {
		if mode, ok := value.(string); ok && types.ThemeMode(mode).Valid() {
			c.logger.Debug("Theme restored from cache", zap.String("theme", mode))
			return types.ThemeMode(mode)
		}
	}

	if result := c.adapter.GetRaw(types.ThemeKey); result.Found {
		if mode := types.ThemeMode(result.Raw); mode.Valid() {
			c.logger.Debug("Theme restored from legacy storage key", zap.String("theme", result.Raw))
			return mode
		}
	}

	if c.source != nil && c.source.PrefersDark() {
		c.logger.Debug("Theme follows system preference", zap.String("theme", string(types.ThemeDark)))
		return types.ThemeDark
	}

	if mode := types.ThemeMode(c.config.Default); mode.Valid() {
		return mode
	}
	return types.ThemeLight
}

func (c *Coordinator) Current() types.ThemeMode {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current
}

// Set makes mode the explicit user choice. Setting the current mode again
// still records it as an override but notifies nobody.
func (c *Coordinator) Set(mode types.ThemeMode) error {
	if !mode.Valid() {
		return types.Errorf(types.ErrThemeInvalid, "value: %q", mode)
	}

	c.transition.Lock()
	defer c.transition.Unlock()

	c.change(mode, true)
	return nil
}

// Toggle flips between light and dark and returns the new mode.
func (c *Coordinator) Toggle() types.ThemeMode {
	c.transition.Lock()
	defer c.transition.Unlock()

	mode := c.Current().Opposite()
	c.change(mode, true)
	return mode
}

// Subscribe registers fn for every change of mode. Listeners run
// synchronously in registration order and must not call Set or Toggle.
func (c *Coordinator) Subscribe(fn types.ThemeListener) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			for i, entry := range c.listeners {
				if entry.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// WatchSystemTheme follows the system preference until the returned function
// is called or the coordinator stops.
func (c *Coordinator) WatchSystemTheme() (func(), error) {
	if c.source == nil {
		return nil, types.Errorf(types.ErrNotSupported, "no system preference source")
	}

	unwatch, err := c.source.Watch(c.systemChanged)
	if err != nil {
		return nil, types.WrapError(err, "failed to watch system preference")
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watches[id] = unwatch
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watches, id)
			c.mu.Unlock()

			unwatch()
		})
	}, nil
}

func (c *Coordinator) PrimaryColor() string {
	return colorOr(c.config.LightColor, types.DefaultLightColor)
}

func (c *Coordinator) DarkColor() string {
	return colorOr(c.config.DarkColor, types.DefaultDarkColor)
}

func (c *Coordinator) Start() error {
	if !c.state.CompareAndSwap(StateStopped, StateStarting) {
		return types.ErrAlreadyRunning
	}

	if c.config.WatchSystem {
		if _, err := c.WatchSystemTheme(); err != nil {
			c.state.Store(StateStopped)
			return err
		}
	}

	c.state.Store(StateRunning)
	c.logger.Info("Theme coordinator started", zap.String("theme", string(c.Current())))
	return nil
}

// Stop releases every system preference watch.
func (c *Coordinator) Stop() error {
	if !c.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrNotRunning
	}

	c.mu.Lock()
	watches := c.watches
	c.watches = make(map[uint64]func())
	c.mu.Unlock()

	for _, unwatch := range watches {
		unwatch()
	}

	c.state.Store(StateStopped)
	c.logger.Info("Theme coordinator stopped")
	return nil
}

func (c *Coordinator) IsRunning() bool {
	return c.state.Load().(State) == StateRunning
}

// systemChanged applies and announces the OS preference but never persists
// it. Like the resolved initial mode, it stays out of storage so only an
// explicit Set or Toggle becomes an override.
func (c *Coordinator) systemChanged(prefersDark bool) {
	c.transition.Lock()
	defer c.transition.Unlock()

	if c.cache.HasPersistent(types.ThemeKey) {
		c.logger.Debug("Ignoring system preference change, theme override present",
			zap.Bool("prefers_dark", prefersDark))
		return
	}

	mode := types.ThemeLight
	if prefersDark {
		mode = types.ThemeDark
	}

	c.change(mode, false)
}

// change runs one transition. The caller holds c.transition.
func (c *Coordinator) change(mode types.ThemeMode, persist bool) {
	c.mu.Lock()
	previous := c.current
	c.current = mode
	c.mu.Unlock()

	if !persist && previous == mode {
		return
	}

	c.apply(mode)

	if persist {
		_ = c.adapter.SetRaw(types.ThemeKey, string(mode))
		c.cache.SetPersistent(types.ThemeKey, string(mode))
	}

	if previous == mode {
		return
	}

	c.logger.Debug("Theme changed",
		zap.String("from", string(previous)),
		zap.String("to", string(mode)),
		zap.Bool("persisted", persist))
	c.notify(mode)
}

func (c *Coordinator) apply(mode types.ThemeMode) {
	if c.applier == nil {
		return
	}

	c.applier.ApplyTheme(mode)
	c.applier.ApplyColorHint(c.colorFor(mode))
}

func (c *Coordinator) colorFor(mode types.ThemeMode) string {
	if mode == types.ThemeDark {
		return c.DarkColor()
	}
	return c.PrimaryColor()
}

func (c *Coordinator) notify(mode types.ThemeMode) {
	c.mu.RLock()
	listeners := make([]listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, entry := range listeners {
		entry.fn(mode)
	}
}

func colorOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
