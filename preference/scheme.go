package preference

import (
	"strings"
)

// ParseColorScheme maps a color-scheme word to a dark preference. The second
// result is false for words it does not know, which count as light.
func ParseColorScheme(value string) (prefersDark bool, known bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dark", "prefer-dark":
		return true, true
	case "light", "prefer-light", "default", "no-preference":
		return false, true
	default:
		return false, false
	}
}
