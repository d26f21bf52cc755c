package config

import (
	"log/slog"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	logger   *slog.Logger
	validate func(*FormsConfig) error
	mu       sync.RWMutex
	current  *FormsConfig
	onChange []func(*FormsConfig)
	watcher  *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load. When validate is
// not nil, a config it rejects is never installed.
func NewLoader(path string, logger *slog.Logger, validate func(*FormsConfig) error) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{path: path, logger: logger, validate: validate}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Load reads and validates a config file once, without watching it.
func Load(path string, validate func(*FormsConfig) error) (*FormsConfig, error) {
	l := &Loader{path: path, validate: validate}
	return l.load()
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *FormsConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*FormsConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config watcher")
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "config watcher add %s", l.path)
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.logger.Error("config reload failed, keeping previous config", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the config file.
func (l *Loader) Reload() (*FormsConfig, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*FormsConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	l.logger.Info("config reloaded", "path", l.path, "forms", len(cfg.Forms))
	return cfg, nil
}

func (l *Loader) load() (*FormsConfig, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", l.path)
	}
	var cfg FormsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", l.path)
	}
	applyDefaults(&cfg)
	if l.validate != nil {
		if err := l.validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func applyDefaults(cfg *FormsConfig) {
	if cfg.Engine.ActionWorkers == 0 {
		cfg.Engine.ActionWorkers = 4
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = 1000
	}
	if cfg.Engine.SubmitTimeoutMs == 0 {
		cfg.Engine.SubmitTimeoutMs = 5000
	}
	if cfg.Engine.TokenTTLMinutes == 0 {
		cfg.Engine.TokenTTLMinutes = 60
	}
	if cfg.Engine.BaseURL == "" {
		cfg.Engine.BaseURL = "http://localhost:8080"
	}
	if cfg.Engine.StorePath == "" {
		cfg.Engine.StorePath = "formplugins.db"
	}
	for i := range cfg.Forms {
		v := &cfg.Forms[i].Validation
		if v.Title == "" {
			v.Title = "User validation required to fill a public form"
		}
		if v.Body == "" {
			v.Body = "Please click on the following link to fill the form: {validation_url} ."
		}
	}
}
