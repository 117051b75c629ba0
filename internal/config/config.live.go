package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	nuts "github.com/vaudience/go-nuts"
)

// ChangeFunc is called after a reload with the previous and the new configuration
type ChangeFunc func(old, updated *Config)

// Live holds the current configuration and swaps it on reload. Readers call
// Current on every use instead of caching values.
type Live struct {
	current   atomic.Pointer[Config]
	mu        sync.Mutex
	listeners []ChangeFunc
}

func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.current.Store(cfg)
	return l
}

// Current returns the active configuration. The returned value must not be modified.
func (l *Live) Current() *Config {
	return l.current.Load()
}

// OnChange registers fn to be called after every successful reload
func (l *Live) OnChange(fn ChangeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Replace validates cfg, makes it current and notifies listeners
func (l *Live) Replace(cfg *Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	old := l.current.Swap(cfg)

	l.mu.Lock()
	listeners := make([]ChangeFunc, len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(old, cfg)
	}
	return nil
}

// Watch reloads the configuration whenever the config file changes. Invalid
// files are logged and the previous configuration stays active.
func (l *Live) Watch() {
	if viper.ConfigFileUsed() == "" {
		nuts.L.Infof("[Config] No config file in use, hot reload disabled")
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshal()
		if err != nil {
			nuts.L.Warnf("[Config] Ignoring reload of %s: %v", e.Name, err)
			return
		}
		if err := l.Replace(cfg); err != nil {
			nuts.L.Warnf("[Config] Ignoring reload of %s: %v", e.Name, err)
			return
		}
		nuts.L.Infof("[Config] Reloaded configuration from %s", e.Name)
	})
	viper.WatchConfig()
	nuts.L.Infof("[Config] Watching %s for changes", viper.ConfigFileUsed())
}
