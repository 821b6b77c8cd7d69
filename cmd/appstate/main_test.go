package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appstate "github.com/saiset-co/sai-appstate"
	"github.com/saiset-co/sai-appstate/logger"
	"github.com/saiset-co/sai-appstate/preference"
	"github.com/saiset-co/sai-appstate/types"
)

type harness struct {
	configPath string
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, "")
}

// newHarnessWith appends extra top-level YAML to the base config.
func newHarnessWith(t *testing.T, extra string) *harness {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "appstate.yml")
	body := `
name: appstate-cli
logger:
  type: nop
storage:
  type: file
  config:
    path: ` + filepath.Join(dir, "storage.json") + `
theme:
  system:
    type: static
` + extra
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return &harness{configPath: configPath}
}

func (h *harness) exec(t *testing.T, args ...string) (string, error) {
	source := preference.NewStaticSource(logger.NewNop(), false)
	root := newRootCmd(appstate.WithPreferenceSource(source))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", h.configPath}, args...))

	err := root.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func (h *harness) mustExec(t *testing.T, args ...string) string {
	out, err := h.exec(t, args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func TestThemeCommands(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "light", h.mustExec(t, "theme", "get"))
	assert.Equal(t, "dark", h.mustExec(t, "theme", "toggle"))
	assert.Equal(t, "dark", h.mustExec(t, "theme", "get"))
	assert.Equal(t, "light", h.mustExec(t, "theme", "set", "LIGHT"))

	_, err := h.exec(t, "theme", "set", "sepia")
	assert.ErrorIs(t, err, types.ErrThemeInvalid)

	assert.JSONEq(t, `{"persistent":{"app-theme":"light"}}`, h.mustExec(t, "cache", "export"))
}

func TestCacheCommands(t *testing.T) {
	h := newHarness(t)

	h.mustExec(t, "cache", "set", "cart", `["pizza"]`)
	h.mustExec(t, "cache", "set", "user", `{"name":"ada"}`)
	h.mustExec(t, "cache", "--tier", "session", "set", "step", `2`)

	assert.Equal(t, `["pizza"]`, h.mustExec(t, "cache", "get", "cart"))
	assert.Equal(t, `["cart","user"]`, h.mustExec(t, "cache", "keys"))
	assert.Equal(t, `["step"]`, h.mustExec(t, "cache", "keys", "--tier", "session"))

	h.mustExec(t, "cache", "rm", "cart")
	_, err := h.exec(t, "cache", "get", "cart")
	assert.Error(t, err)

	_, err = h.exec(t, "cache", "set", "bad", "{not json")
	assert.ErrorIs(t, err, types.ErrInvalidParameter)

	_, err = h.exec(t, "cache", "keys", "--tier", "cookie")
	assert.ErrorIs(t, err, types.ErrCacheTierUnknown)

	stats := h.mustExec(t, "cache", "stats")
	assert.Contains(t, stats, `"persistent":1`)
	assert.Contains(t, stats, `"session":1`)
	assert.Contains(t, stats, `"total":2`)

	h.mustExec(t, "cache", "clear", "--tier", "session")
	assert.Equal(t, `[]`, h.mustExec(t, "cache", "keys", "--tier", "session"))
}

func TestCacheExportImport(t *testing.T) {
	h := newHarness(t)
	h.mustExec(t, "cache", "set", "a", `1`)

	exported := h.mustExec(t, "cache", "export")
	snapshot := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(snapshot, []byte(exported), 0o600))

	other := newHarness(t)
	stats := other.mustExec(t, "cache", "import", snapshot)
	assert.Contains(t, stats, `"persistent":1`)
	assert.Equal(t, `1`, other.mustExec(t, "cache", "get", "a"))
}

func TestStateAndFormCommands(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "null", h.mustExec(t, "state", "recover"))
	h.mustExec(t, "state", "save", `{"route":"/checkout"}`)
	recovered := h.mustExec(t, "state", "recover")
	assert.Contains(t, recovered, `"route":"/checkout"`)
	assert.Contains(t, recovered, `"version":"app-cache-v1"`)

	_, err := h.exec(t, "state", "save", `[1,2]`)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)

	assert.Equal(t, "null", h.mustExec(t, "form", "recover", "login"))
	h.mustExec(t, "form", "save", "login", `{"user":"ada"}`)
	assert.Equal(t, `{"user":"ada"}`, h.mustExec(t, "form", "recover", "login"))
	assert.Equal(t, `{"expired":false}`, h.mustExec(t, "form", "expire", "login"))
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, `"file"`, h.mustExec(t, "config", "get", "storage.type"))
	assert.Equal(t, `"static"`, h.mustExec(t, "config", "get", "theme.system.type"))
	assert.Equal(t, `"fallback"`, h.mustExec(t, "config", "get", "missing.path", "--default", `"fallback"`))

	_, err := h.exec(t, "config", "get", "missing.path")
	assert.ErrorIs(t, err, types.ErrConfigNotFound)

	paths := strings.Split(h.mustExec(t, "config", "paths"), "\n")
	assert.Contains(t, paths, "storage.type")
	assert.Contains(t, paths, "logger.type")
}

func TestMetricsCommand(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec(t, "metrics")
	assert.ErrorIs(t, err, types.ErrMetricsIsDisabled)

	h = newHarnessWith(t, `cache:
  instrumented: true
metrics:
  enabled: true
  namespace: appstate_cli
`)
	out := h.mustExec(t, "metrics")
	assert.Contains(t, out, `"name":"appstate_cli_cache_operations_total"`)
	assert.Contains(t, out, `"operation":"get"`)
}
