// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package watcher reloads the configuration file when it changes on disk and
// hands the new configuration, with a summary of what changed, to a callback.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/config"
	"github.com/traylinx/modelsettings/internal/watcher/diff"
)

const defaultDebounce = 150 * time.Millisecond

// ReloadFunc receives every configuration that differs from the previous one.
type ReloadFunc func(cfg *config.Config, changes diff.Changes)

// LoadFunc reads a configuration file.
type LoadFunc func(path string) (*config.Config, error)

// Watcher watches a single configuration file.
type Watcher struct {
	configPath string
	onReload   ReloadFunc
	load       LoadFunc
	debounce   time.Duration

	mu       sync.Mutex
	current  *config.Config
	lastHash string

	fsw     *fsnotify.Watcher
	stopped chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher creates a watcher for configPath. The file is loaded with
// config.LoadConfig followed by environment overrides.
func NewWatcher(configPath string, onReload ReloadFunc) (*Watcher, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	return &Watcher{
		configPath: abs,
		onReload:   onReload,
		load:       defaultLoad,
		debounce:   defaultDebounce,
		stopped:    make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

func defaultLoad(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// SetConfig records the configuration currently in use.
func (w *Watcher) SetConfig(cfg *config.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = cfg
	if hash, err := fileHash(w.configPath); err == nil {
		w.lastHash = hash
	}
}

// Config returns the configuration currently in use.
func (w *Watcher) Config() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start begins watching. The parent directory is watched so that editors
// replacing the file through a rename are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err = fsw.Add(filepath.Dir(w.configPath)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.configPath), err)
	}
	w.fsw = fsw

	go w.loop(ctx)
	log.Infof("watching %s for configuration changes", w.configPath)
	return nil
}

// Stop ends the watch loop and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.stopped)
		if w.fsw != nil {
			err = w.fsw.Close()
			<-w.done
		}
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopped:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		}
	}
}

// reload loads the file and fires the callback when its content changed.
func (w *Watcher) reload() {
	hash, err := fileHash(w.configPath)
	if err != nil {
		log.WithError(err).Warn("config file unreadable, keeping current configuration")
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	cfg, err := w.load(w.configPath)
	if err != nil {
		log.WithError(err).Error("failed to reload configuration, keeping current configuration")
		return
	}

	w.mu.Lock()
	// Loading may rewrite the file once to hash a plaintext management key.
	if h, errHash := fileHash(w.configPath); errHash == nil {
		hash = h
	}
	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.mu.Unlock()

	changes := diff.Compare(old, cfg)
	if old != nil && changes.Empty() {
		return
	}
	for _, change := range changes.All() {
		log.Infof("config changed: %s", change)
	}
	for _, item := range changes.Restart {
		log.Warnf("%s changes take effect after a restart", item)
	}
	if w.onReload != nil {
		w.onReload(cfg, changes)
	}
}

func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
