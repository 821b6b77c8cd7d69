package preference

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type FileConfig struct {
	Path string `json:"path" yaml:"path"`
}

// FileSource reads the preference from a file holding a color-scheme word
// and follows changes to it while running.
type FileSource struct {
	logger      types.Logger
	path        string
	prefersDark atomic.Bool
	watchers    watchers
	watcher     *fsnotify.Watcher
	stop        chan struct{}
	done        chan struct{}
	mu          sync.Mutex
	state       atomic.Value
}

func NewFileSource(logger types.Logger, config interface{}) (*FileSource, error) {
	fileConfig := &FileConfig{}
	if config != nil {
		if err := utils.UnmarshalConfig(config, fileConfig); err != nil {
			return nil, types.Errorf(types.ErrPreferenceConfigInvalid, "file: %v", err)
		}
	}

	if fileConfig.Path == "" {
		return nil, types.Errorf(types.ErrPreferenceConfigInvalid, "file: path is empty")
	}

	absPath, err := filepath.Abs(fileConfig.Path)
	if err != nil {
		return nil, types.WrapError(err, "failed to resolve preference file path")
	}

	f := &FileSource{
		logger: logger,
		path:   absPath,
	}

	f.state.Store(StateStopped)
	if value, ok := f.read(); ok {
		f.prefersDark.Store(value)
	}

	return f, nil
}

func (f *FileSource) PrefersDark() bool {
	return f.prefersDark.Load()
}

func (f *FileSource) Watch(fn func(prefersDark bool)) (func(), error) {
	if fn == nil {
		return nil, types.ErrInvalidParameter
	}
	return f.watchers.add(fn), nil
}

func (f *FileSource) Start() error {
	if !f.state.CompareAndSwap(StateStopped, StateStarting) {
		return types.ErrAlreadyRunning
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.state.Store(StateStopped)
		return types.WrapError(err, "failed to create preference file watcher")
	}

	// the directory survives editors that replace the file
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		f.state.Store(StateStopped)
		return types.WrapError(err, "failed to watch preference directory")
	}

	f.mu.Lock()
	f.watcher = watcher
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	f.mu.Unlock()

	go f.watchLoop(watcher, f.stop, f.done)

	f.state.Store(StateRunning)
	f.logger.Info("Preference file watcher started", zap.String("path", f.path))
	return nil
}

func (f *FileSource) Stop() error {
	if !f.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrNotRunning
	}

	f.mu.Lock()
	close(f.stop)
	err := f.watcher.Close()
	done := f.done
	f.watcher = nil
	f.mu.Unlock()

	<-done

	f.state.Store(StateStopped)
	f.logger.Info("Preference file watcher stopped", zap.String("path", f.path))

	if err != nil {
		return types.WrapError(err, "failed to close preference file watcher")
	}
	return nil
}

func (f *FileSource) IsRunning() bool {
	return f.state.Load().(State) == StateRunning
}

func (f *FileSource) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	name := filepath.Base(f.path)

	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				f.refresh()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Error("Preference file watcher error", zap.Error(err))
		}
	}
}

func (f *FileSource) refresh() {
	value, ok := f.read()
	if !ok {
		return
	}

	if f.prefersDark.Swap(value) == value {
		return
	}

	f.logger.Debug("System color scheme changed",
		zap.String("path", f.path),
		zap.Bool("prefers_dark", value))
	f.watchers.dispatch(value)
}

func (f *FileSource) read() (bool, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("Failed to read preference file", zap.String("path", f.path), zap.Error(err))
		}
		return false, false
	}

	content := strings.TrimSpace(utils.BytesToString(data))
	if content == "" {
		// truncated mid-write; the following write event carries the value
		return false, false
	}

	prefersDark, known := ParseColorScheme(content)
	if !known {
		f.logger.Warn("Unrecognized color scheme in preference file", zap.String("path", f.path))
		return false, false
	}
	return prefersDark, true
}
