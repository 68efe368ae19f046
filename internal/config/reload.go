// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// section is one top-level area of AppConfig as seen by a reload.
type section struct {
	key     string
	live    bool
	differs func(a, b *AppConfig) bool
}

var sections = []section{
	{"listen", false, func(a, b *AppConfig) bool { return a.Listen != b.Listen }},
	{"shutdownTimeout", false, func(a, b *AppConfig) bool { return a.ShutdownTimeout != b.ShutdownTimeout }},
	{"maxUploadBytes", false, func(a, b *AppConfig) bool { return a.MaxUploadBytes != b.MaxUploadBytes }},
	{"allowedDomains", true, func(a, b *AppConfig) bool { return !slices.Equal(a.AllowedDomains, b.AllowedDomains) }},
	{"log.level", true, func(a, b *AppConfig) bool { return a.Log.Level != b.Log.Level }},
	{"log.format", false, func(a, b *AppConfig) bool { return a.Log.Format != b.Log.Format }},
	{"upstream", false, func(a, b *AppConfig) bool { return a.Upstream != b.Upstream }},
	{"generator", true, func(a, b *AppConfig) bool { return a.Generator != b.Generator }},
	{"rateLimit", false, func(a, b *AppConfig) bool { return a.RateLimit != b.RateLimit }},
	{"tracing", false, func(a, b *AppConfig) bool { return a.Tracing != b.Tracing }},
}

// Diff lists the sections that differ between old and next. Keys in live take
// effect on reload; keys in restart only after the process restarts.
func Diff(old, next AppConfig) (live, restart []string) {
	for _, s := range sections {
		if !s.differs(&old, &next) {
			continue
		}
		if s.live {
			live = append(live, s.key)
		} else {
			restart = append(restart, s.key)
		}
	}
	return live, restart
}

// ConfigHolder publishes the active configuration and swaps it on reload.
type ConfigHolder struct {
	current  atomic.Pointer[AppConfig]
	loader   *Loader
	path     string
	debounce time.Duration
	logger   zerolog.Logger

	// serializes Reload so listeners observe configurations in load order
	reloadMu sync.Mutex

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	listeners []chan AppConfig
}

// NewConfigHolder returns a holder serving initial until the first reload.
// configPath may be empty when the configuration comes from ENV only.
func NewConfigHolder(initial AppConfig, loader *Loader, configPath string) *ConfigHolder {
	h := &ConfigHolder{
		loader:   loader,
		path:     configPath,
		debounce: defaultDebounce,
		logger:   xglog.WithComponent("config"),
	}
	h.current.Store(&initial)
	return h
}

// Get returns the active configuration.
func (h *ConfigHolder) Get() AppConfig {
	return *h.current.Load()
}

// RegisterListener subscribes ch to successful reloads. Delivery never blocks:
// a pending value that was not yet received is replaced by the newer one.
func (h *ConfigHolder) RegisterListener(ch chan AppConfig) {
	h.mu.Lock()
	h.listeners = append(h.listeners, ch)
	h.mu.Unlock()
}

// Reload loads, validates and publishes the configuration. A failed load
// leaves the active configuration in place.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	next, err := h.loader.Load()
	metrics.RecordConfigReload(err)
	if err != nil {
		h.logger.Error().Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("configuration rejected, keeping the active one")
		return fmt.Errorf("reload config: %w", err)
	}

	old := h.current.Swap(&next)
	live, restart := Diff(*old, next)

	level := zerolog.InfoLevel
	if len(restart) > 0 {
		level = zerolog.WarnLevel
	}
	h.logger.WithLevel(level).
		Str(xglog.FieldEvent, "config.reloaded").
		Strs("restart_required", restart).
		Strs("applied", live).
		Msg("configuration reloaded")

	h.publish(next)
	return nil
}

func (h *ConfigHolder) publish(cfg AppConfig) {
	h.mu.Lock()
	listeners := slices.Clone(h.listeners)
	h.mu.Unlock()

	for _, ch := range listeners {
		if deliver(ch, cfg) {
			continue
		}
		h.logger.Warn().
			Str(xglog.FieldEvent, "config.listener_busy").
			Msg("listener did not take the reloaded configuration")
	}
}

// deliver hands cfg to ch without blocking, displacing a stale pending value.
func deliver(ch chan AppConfig, cfg AppConfig) bool {
	select {
	case ch <- cfg:
		return true
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- cfg:
		return true
	default:
		return false
	}
}

// StartWatcher reloads the configuration whenever the file changes, until ctx
// ends or Stop is called. Without a config path it does nothing.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("no config file, watcher not started")
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// The directory is watched because a rename-replace drops a file watch.
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.mu.Lock()
	h.watcher = w
	h.mu.Unlock()

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str(xglog.FieldConfigPath, h.path).
		Msg("watching config file")

	go h.watch(ctx, w)
	return nil
}

func (h *ConfigHolder) watch(ctx context.Context, w *fsnotify.Watcher) {
	target := filepath.Clean(h.path)
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename

	timer := time.NewTimer(h.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || ev.Op&relevant == 0 {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "config.file_changed").
				Str("op", ev.Op.String()).
				Msg("config file changed")
			timer.Reset(h.debounce)

		case <-timer.C:
			// failure is already logged and counted by Reload
			_ = h.Reload(ctx)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop ends the watcher. It is safe to call more than once.
func (h *ConfigHolder) Stop() {
	h.mu.Lock()
	w := h.watcher
	h.watcher = nil
	h.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}
