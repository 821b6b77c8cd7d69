package theme

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-appstate/cache"
	"github.com/saiset-co/sai-appstate/logger"
	"github.com/saiset-co/sai-appstate/metrics"
	"github.com/saiset-co/sai-appstate/preference"
	"github.com/saiset-co/sai-appstate/storage"
	"github.com/saiset-co/sai-appstate/types"
)

// journal records applier calls and storage writes in the order they happen.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type journalApplier struct {
	*AttributeApplier
	journal *journal
}

func (a *journalApplier) ApplyTheme(mode types.ThemeMode) {
	a.AttributeApplier.ApplyTheme(mode)
	a.journal.add("attribute:" + string(mode))
}

func (a *journalApplier) ApplyColorHint(color string) {
	a.AttributeApplier.ApplyColorHint(color)
	a.journal.add("color:" + color)
}

type journalBackend struct {
	*storage.MemoryBackend
	journal *journal
}

func (b *journalBackend) SetItem(ctx context.Context, key, value string) error {
	b.journal.add("storage:" + key)
	return b.MemoryBackend.SetItem(ctx, key, value)
}

type harness struct {
	journal *journal
	backend *journalBackend
	adapter *storage.Adapter
	source  *preference.StaticSource
	applier *journalApplier
}

func newHarness(prefersDark bool) *harness {
	j := &journal{}
	backend := &journalBackend{MemoryBackend: storage.NewMemoryBackend(logger.NewNop()), journal: j}
	return &harness{
		journal: j,
		backend: backend,
		adapter: storage.NewAdapter(backend, logger.NewNop(), metrics.NewNop(), 0),
		source:  preference.NewStaticSource(logger.NewNop(), prefersDark),
		applier: &journalApplier{AttributeApplier: NewAttributeApplier(logger.NewNop()), journal: j},
	}
}

func (h *harness) seed(t *testing.T, key, value string) {
	require.NoError(t, h.backend.MemoryBackend.SetItem(context.Background(), key, value))
}

func (h *harness) newCache() types.StateCache {
	return cache.NewCache(h.adapter, logger.NewNop(), cache.Options{})
}

func (h *harness) open(c types.StateCache, config *types.ThemeConfig) *Coordinator {
	return New(c, h.adapter, h.source, h.applier, logger.NewNop(), config)
}

func TestInitialThemeFollowsSystemWhenNothingStored(t *testing.T) {
	h := newHarness(true)
	coordinator := h.open(h.newCache(), nil)

	assert.Equal(t, types.ThemeDark, coordinator.Current())
	assert.Equal(t, "dark", h.applier.Attribute(ThemeAttribute))
	assert.Equal(t, types.DefaultDarkColor, h.applier.Attribute(ColorAttribute))
	assert.Zero(t, h.backend.Writes())
}

func TestInitialThemeCacheWins(t *testing.T) {
	h := newHarness(true)
	h.seed(t, types.PersistentCacheKey, `{"app-theme":"light"}`)
	h.seed(t, types.ThemeKey, "dark")

	coordinator := h.open(h.newCache(), nil)
	assert.Equal(t, types.ThemeLight, coordinator.Current())
}

func TestInitialThemeFallsBackToLegacyKey(t *testing.T) {
	h := newHarness(false)
	h.seed(t, types.PersistentCacheKey, `{"app-theme":"purple"}`)
	h.seed(t, types.ThemeKey, "dark")

	coordinator := h.open(h.newCache(), nil)
	assert.Equal(t, types.ThemeDark, coordinator.Current())
}

func TestInitialThemeDefault(t *testing.T) {
	h := newHarness(false)
	h.seed(t, types.ThemeKey, "purple")

	assert.Equal(t, types.ThemeLight, h.open(h.newCache(), nil).Current())
	assert.Equal(t, types.ThemeDark, h.open(h.newCache(), &types.ThemeConfig{Default: "dark"}).Current())
}

func TestSetRunsTransitionInOrder(t *testing.T) {
	h := newHarness(false)
	coordinator := h.open(h.newCache(), nil)

	coordinator.Subscribe(func(mode types.ThemeMode) {
		h.journal.add("listener:" + string(mode))
	})
	h.journal.reset()

	require.NoError(t, coordinator.Set(types.ThemeDark))

	assert.Equal(t, []string{
		"attribute:dark",
		"color:" + types.DefaultDarkColor,
		"storage:" + types.ThemeKey,
		"storage:" + types.PersistentCacheKey,
		"listener:dark",
	}, h.journal.list())

	raw, _, _ := h.backend.GetItem(context.Background(), types.ThemeKey)
	assert.Equal(t, "dark", raw)

	cached, _, _ := h.backend.GetItem(context.Background(), types.PersistentCacheKey)
	assert.Equal(t, `{"app-theme":"dark"}`, cached)
}

func TestSetSameModeRecordsOverrideWithoutNotifying(t *testing.T) {
	h := newHarness(false)
	c := h.newCache()
	coordinator := h.open(c, nil)

	var notified []types.ThemeMode
	coordinator.Subscribe(func(mode types.ThemeMode) { notified = append(notified, mode) })

	require.NoError(t, coordinator.Set(types.ThemeLight))
	assert.Empty(t, notified)
	assert.True(t, c.HasPersistent(types.ThemeKey))
}

func TestSetRejectsInvalidMode(t *testing.T) {
	h := newHarness(false)
	coordinator := h.open(h.newCache(), nil)

	err := coordinator.Set("sepia")
	assert.ErrorIs(t, err, types.ErrThemeInvalid)
	assert.Equal(t, types.ThemeLight, coordinator.Current())
	assert.Zero(t, h.backend.Writes())
}

func TestToggle(t *testing.T) {
	h := newHarness(false)
	coordinator := h.open(h.newCache(), nil)

	var notified []types.ThemeMode
	coordinator.Subscribe(func(mode types.ThemeMode) { notified = append(notified, mode) })

	assert.Equal(t, types.ThemeDark, coordinator.Toggle())
	assert.Equal(t, types.ThemeLight, coordinator.Toggle())
	assert.Equal(t, []types.ThemeMode{types.ThemeDark, types.ThemeLight}, notified)
	assert.Equal(t, types.DefaultLightColor, h.applier.Attribute(ColorAttribute))
}

func TestToggleSurvivesRestart(t *testing.T) {
	h := newHarness(false)
	h.open(h.newCache(), nil).Toggle()

	restarted := h.open(h.newCache(), nil)
	assert.Equal(t, types.ThemeDark, restarted.Current())
}

func TestSystemChangeFollowedWithoutOverride(t *testing.T) {
	h := newHarness(false)
	c := h.newCache()
	coordinator := h.open(c, nil)

	var notified []types.ThemeMode
	coordinator.Subscribe(func(mode types.ThemeMode) { notified = append(notified, mode) })

	unwatch, err := coordinator.WatchSystemTheme()
	require.NoError(t, err)
	defer unwatch()

	h.source.Emit(true)
	assert.Equal(t, types.ThemeDark, coordinator.Current())
	assert.Equal(t, []types.ThemeMode{types.ThemeDark}, notified)
	assert.Equal(t, "dark", h.applier.Attribute(ThemeAttribute))

	assert.False(t, c.HasPersistent(types.ThemeKey))
	assert.Zero(t, h.backend.Writes())
}

func TestSystemChangeIgnoredWithOverride(t *testing.T) {
	h := newHarness(false)
	coordinator := h.open(h.newCache(), nil)

	_, err := coordinator.WatchSystemTheme()
	require.NoError(t, err)

	require.NoError(t, coordinator.Set(types.ThemeLight))
	h.source.Emit(true)

	assert.Equal(t, types.ThemeLight, coordinator.Current())
}

func TestUnwatchStopsSystemDelivery(t *testing.T) {
	h := newHarness(false)
	coordinator := h.open(h.newCache(), nil)

	unwatch, err := coordinator.WatchSystemTheme()
	require.NoError(t, err)
	unwatch()
	unwatch()

	h.source.Emit(true)
	assert.Equal(t, types.ThemeLight, coordinator.Current())
}

func TestStopReleasesWatches(t *testing.T) {
	h := newHarness(false)
	coordinator := h.open(h.newCache(), &types.ThemeConfig{WatchSystem: true})

	require.NoError(t, coordinator.Start())
	assert.True(t, coordinator.IsRunning())

	h.source.Emit(true)
	assert.Equal(t, types.ThemeDark, coordinator.Current())

	require.NoError(t, coordinator.Stop())
	assert.ErrorIs(t, coordinator.Stop(), types.ErrNotRunning)

	h.source.Emit(false)
	assert.Equal(t, types.ThemeDark, coordinator.Current())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := newHarness(false)
	coordinator := h.open(h.newCache(), nil)

	var first, second int
	unsubscribe := coordinator.Subscribe(func(types.ThemeMode) { first++ })
	coordinator.Subscribe(func(types.ThemeMode) { second++ })

	coordinator.Toggle()
	unsubscribe()
	coordinator.Toggle()

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestColors(t *testing.T) {
	h := newHarness(false)

	coordinator := h.open(h.newCache(), nil)
	assert.Equal(t, "#d4a574", coordinator.PrimaryColor())
	assert.Equal(t, "#1a1410", coordinator.DarkColor())

	custom := h.open(h.newCache(), &types.ThemeConfig{LightColor: "#ffffff", DarkColor: "#000000"})
	assert.Equal(t, "#ffffff", custom.PrimaryColor())
	assert.Equal(t, "#000000", custom.DarkColor())
}

func TestWatchWithoutSource(t *testing.T) {
	h := newHarness(false)
	coordinator := New(h.newCache(), h.adapter, nil, nil, logger.NewNop(), nil)

	_, err := coordinator.WatchSystemTheme()
	assert.ErrorIs(t, err, types.ErrNotSupported)
	assert.Equal(t, types.ThemeLight, coordinator.Current())
}
