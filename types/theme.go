package types

import (
	"strings"
)

const (
	ThemeKey          = "app-theme"
	DefaultLightColor = "#d4a574"
	DefaultDarkColor  = "#1a1410"
)

type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

func (m ThemeMode) Valid() bool {
	return m == ThemeLight || m == ThemeDark
}

func (m ThemeMode) Opposite() ThemeMode {
	if m == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

func ParseThemeMode(value string) (ThemeMode, error) {
	mode := ThemeMode(strings.ToLower(strings.TrimSpace(value)))
	if !mode.Valid() {
		return "", Errorf(ErrThemeInvalid, "value: %q", value)
	}
	return mode, nil
}

// ThemeApplier receives every theme change, the way the document root and the
// mobile chrome meta tag do in a browser.
type ThemeApplier interface {
	ApplyTheme(mode ThemeMode)
	ApplyColorHint(color string)
}

type ThemeListener func(mode ThemeMode)

// PreferenceSource reports the operating system's dark-mode preference.
type PreferenceSource interface {
	PrefersDark() bool
	Watch(fn func(prefersDark bool)) (func(), error)
}

type PreferenceSourceCreator func(logger Logger, config interface{}) (PreferenceSource, error)
