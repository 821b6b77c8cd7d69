package preference

import (
	"sync"
)

type watcher struct {
	id uint64
	fn func(prefersDark bool)
}

// watchers dispatches preference changes to registered callbacks in
// registration order.
type watchers struct {
	list   []watcher
	nextID uint64
	mu     sync.Mutex
}

func (w *watchers) add(fn func(bool)) func() {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.list = append(w.list, watcher{id: id, fn: fn})
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { w.remove(id) })
	}
}

func (w *watchers) remove(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, entry := range w.list {
		if entry.id == id {
			w.list = append(w.list[:i:i], w.list[i+1:]...)
			return
		}
	}
}

func (w *watchers) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.list)
}

func (w *watchers) dispatch(prefersDark bool) {
	w.mu.Lock()
	list := make([]watcher, len(w.list))
	copy(list, w.list)
	w.mu.Unlock()

	for _, entry := range list {
		entry.fn(prefersDark)
	}
}
