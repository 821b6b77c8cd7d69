package theme

import (
	"sync"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
)

const (
	ThemeAttribute = "data-theme"
	ColorAttribute = "theme-color"
)

// AttributeApplier stands in for the document root: it keeps the attributes
// a browser would carry and logs each change.
type AttributeApplier struct {
	logger     types.Logger
	attributes map[string]string
	mu         sync.RWMutex
}

func NewAttributeApplier(logger types.Logger) *AttributeApplier {
	return &AttributeApplier{
		logger:     logger,
		attributes: make(map[string]string, 2),
	}
}

func (a *AttributeApplier) ApplyTheme(mode types.ThemeMode) {
	a.setAttribute(ThemeAttribute, string(mode))
}

func (a *AttributeApplier) ApplyColorHint(color string) {
	a.setAttribute(ColorAttribute, color)
}

func (a *AttributeApplier) Attribute(name string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.attributes[name]
}

func (a *AttributeApplier) setAttribute(name, value string) {
	a.mu.Lock()
	a.attributes[name] = value
	a.mu.Unlock()

	a.logger.Debug("Attribute applied", zap.String("name", name), zap.String("value", value))
}
