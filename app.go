// Package appstate wires the storage backend, the dual-tier cache and the
// theme coordinator into one application object.
package appstate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-appstate/cache"
	"github.com/saiset-co/sai-appstate/config"
	"github.com/saiset-co/sai-appstate/logger"
	"github.com/saiset-co/sai-appstate/metrics"
	"github.com/saiset-co/sai-appstate/preference"
	"github.com/saiset-co/sai-appstate/storage"
	"github.com/saiset-co/sai-appstate/theme"
	"github.com/saiset-co/sai-appstate/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type Option func(*options)

type options struct {
	clock   clockwork.Clock
	source  types.PreferenceSource
	applier types.ThemeApplier
}

// WithClock replaces the wall clock used for cache timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithPreferenceSource replaces the configured system preference source.
func WithPreferenceSource(source types.PreferenceSource) Option {
	return func(o *options) { o.source = source }
}

// WithThemeApplier replaces the in-memory attribute applier.
func WithThemeApplier(applier types.ThemeApplier) Option {
	return func(o *options) { o.applier = applier }
}

type App struct {
	ctx             context.Context
	cancel          context.CancelFunc
	config          *config.ConfigurationManager
	logger          *logger.Manager
	metrics         types.MetricsManager
	backend         types.StorageBackend
	adapter         *storage.Adapter
	cache           types.StateCache
	source          types.PreferenceSource
	applier         types.ThemeApplier
	theme           *theme.Coordinator
	state           atomic.Value
	shutdownTimeout time.Duration
}

// New loads configuration from configPath (defaults only when empty), opens
// storage and restores the cache and the theme from it.
func New(ctx context.Context, configPath string, opts ...Option) (*App, error) {
	o := &options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(o)
	}

	appCtx, cancel := context.WithCancel(ctx)

	app := &App{
		ctx:             appCtx,
		cancel:          cancel,
		shutdownTimeout: 10 * time.Second,
	}
	app.state.Store(StateStopped)

	if err := app.build(configPath, o); err != nil {
		cancel()
		return nil, err
	}

	return app, nil
}

func (a *App) build(configPath string, o *options) error {
	configManager, err := config.NewConfigurationManager(a.ctx, configPath)
	if err != nil {
		return types.WrapError(err, "failed to create config manager")
	}
	a.config = configManager
	cfg := configManager.GetConfig()

	loggerManager, err := logger.NewManager(a.ctx, cfg.Logger)
	if err != nil {
		return types.WrapError(err, "failed to create logger")
	}
	a.logger = loggerManager

	a.metrics = metrics.NewManager(a.logger, cfg.Metrics)

	backend, err := storage.NewBackend(a.ctx, a.logger, cfg.Storage)
	if err != nil {
		return types.WrapError(err, "failed to create storage backend")
	}
	// storage is opened here so the cache can restore its tiers
	if err := backend.Start(); err != nil {
		return types.WrapError(err, "failed to start storage backend")
	}
	a.backend = backend

	a.adapter = storage.NewAdapter(backend, a.logger, a.metrics, cfg.Storage.OpTimeout)
	a.cache = cache.NewStateCache(a.adapter, a.logger, a.metrics, cfg.Cache, o.clock)

	a.source = o.source
	if a.source == nil {
		source, err := preference.NewSource(a.logger, cfg.Theme.System)
		if err != nil {
			_ = backend.Stop()
			return types.WrapError(err, "failed to create system preference source")
		}
		a.source = source
	}

	a.applier = o.applier
	if a.applier == nil {
		a.applier = theme.NewAttributeApplier(a.logger)
	}

	a.theme = theme.New(a.cache, a.adapter, a.source, a.applier, a.logger, cfg.Theme)
	return nil
}

func (a *App) Start() error {
	if !a.state.CompareAndSwap(StateStopped, StateStarting) {
		return types.ErrAlreadyRunning
	}

	if err := a.logger.Start(); err != nil {
		a.state.Store(StateStopped)
		return types.WrapError(err, "failed to start logger")
	}

	if lifecycle, ok := a.source.(types.LifecycleManager); ok {
		if err := lifecycle.Start(); err != nil {
			a.logger.Error("Failed to start system preference source", zap.Error(err))
		}
	}

	if err := a.theme.Start(); err != nil {
		a.state.Store(StateStopped)
		return types.WrapError(err, "failed to start theme coordinator")
	}

	a.state.Store(StateRunning)
	a.logger.Info("Application state started",
		zap.String("name", a.config.GetConfig().Name),
		zap.String("storage", a.config.GetConfig().Storage.Type),
		zap.String("theme", string(a.theme.Current())))
	return nil
}

// Stop releases the theme watches, the preference watcher and storage.
// Storage is closed even if the app was never started.
func (a *App) Stop() error {
	wasRunning := a.state.CompareAndSwap(StateRunning, StateStopping)
	defer func() {
		a.state.Store(StateStopped)
		a.cancel()
	}()

	if wasRunning {
		if err := a.theme.Stop(); err != nil {
			a.logger.Error("Failed to stop theme coordinator", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	if lifecycle, ok := a.source.(types.LifecycleManager); ok && lifecycle.IsRunning() {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				return lifecycle.Stop()
			}
		})
	}

	if a.backend.IsRunning() {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				return a.backend.Stop()
			}
		})
	}

	err := g.Wait()
	if err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	if wasRunning {
		a.logger.Info("Application state stopped")
		_ = a.logger.Stop()
	}

	return err
}

func (a *App) IsRunning() bool {
	return a.state.Load().(State) == StateRunning
}

func (a *App) Config() *types.AppConfig {
	return a.config.GetConfig()
}

func (a *App) ConfigManager() types.ConfigManager {
	return a.config
}

func (a *App) Logger() types.Logger {
	return a.logger
}

func (a *App) Metrics() types.MetricsManager {
	return a.metrics
}

func (a *App) Storage() *storage.Adapter {
	return a.adapter
}

func (a *App) Cache() types.StateCache {
	return a.cache
}

func (a *App) Theme() *theme.Coordinator {
	return a.theme
}

func (a *App) Applier() types.ThemeApplier {
	return a.applier
}
