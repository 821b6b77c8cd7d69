package cache

import (
	"github.com/saiset-co/sai-appstate/types"
)

// tier is an insertion-ordered mapping mirrored to one storage key.
type tier struct {
	name       types.Tier
	storageKey string
	keys       []string
	values     map[string]interface{}
}

func newTier(name types.Tier, storageKey string) *tier {
	return &tier{
		name:       name,
		storageKey: storageKey,
		values:     make(map[string]interface{}),
	}
}

func (t *tier) set(key string, value interface{}) {
	if _, exists := t.values[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

func (t *tier) get(key string) (interface{}, bool) {
	value, exists := t.values[key]
	return value, exists
}

func (t *tier) remove(key string) bool {
	if _, exists := t.values[key]; !exists {
		return false
	}

	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

func (t *tier) clear() {
	t.keys = nil
	t.values = make(map[string]interface{})
}

func (t *tier) len() int {
	return len(t.keys)
}

func (t *tier) keyList() []string {
	keys := make([]string, len(t.keys))
	copy(keys, t.keys)
	return keys
}

func (t *tier) snapshot() map[string]interface{} {
	values := make(map[string]interface{}, len(t.values))
	for key, value := range t.values {
		values[key] = value
	}
	return values
}
