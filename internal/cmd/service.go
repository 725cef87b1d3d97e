// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/api"
	"github.com/traylinx/modelsettings/internal/config"
	"github.com/traylinx/modelsettings/internal/discovery"
	"github.com/traylinx/modelsettings/internal/logging"
	"github.com/traylinx/modelsettings/internal/modelsettings"
	"github.com/traylinx/modelsettings/internal/registry"
	"github.com/traylinx/modelsettings/internal/store"
	"github.com/traylinx/modelsettings/internal/watcher"
	"github.com/traylinx/modelsettings/internal/watcher/diff"
)

// Service owns every long-lived component of the server.
type Service struct {
	cfg        *config.Config
	configPath string

	store      *store.SQLStore
	registry   *registry.ModelRegistry
	cache      *registry.CatalogCache
	background *modelsettings.BackgroundReconciler
	settings   *modelsettings.Service
	server     *api.Server
	watcher    *watcher.Watcher

	shutdownOnce sync.Once
}

// NewService opens the store, seeds the configured projects and wires the
// registry, resolver and HTTP server. Nothing is served until Run.
func NewService(ctx context.Context, cfg *config.Config, configPath string, opts ...api.ServerOption) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("modelsettings: config is nil")
	}

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err = seedProjects(ctx, st, cfg.Projects); err != nil {
		_ = st.Close()
		return nil, err
	}

	sources, err := discovery.NewSources(cfg.Catalog)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	reg := registry.NewModelRegistry(sources...)
	cache := registry.NewCatalogCache(reg.Fetch, time.Duration(cfg.Catalog.TTLSeconds)*time.Second)

	background := modelsettings.NewBackgroundReconciler(
		modelsettings.NewReconciler(st),
		cfg.Resolver.SyncQueueSize,
		time.Duration(cfg.Resolver.SyncTimeoutSeconds)*time.Second,
	)
	resolver := modelsettings.NewResolver(st, cache, background, modelsettings.ParsePolicy(cfg.Resolver.Policy))
	settings := modelsettings.NewService(st, cache, resolver)

	log.WithFields(log.Fields{
		"providers": len(sources),
		"policy":    resolver.Policy(),
		"projects":  len(cfg.Projects),
	}).Info("model settings service configured")

	return &Service{
		cfg:        cfg,
		configPath: configPath,
		store:      st,
		registry:   reg,
		cache:      cache,
		background: background,
		settings:   settings,
		server:     api.NewServer(cfg, settings, opts...),
	}, nil
}

// Run starts the config watcher and the HTTP server and blocks until ctx is
// cancelled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("modelsettings: service is nil")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	defer func() {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Errorf("service shutdown returned error: %v", err)
		}
	}()

	if s.configPath != "" {
		w, err := watcher.NewWatcher(s.configPath, s.applyConfig)
		if err != nil {
			return err
		}
		w.SetConfig(s.cfg)
		if err = w.Start(ctx); err != nil {
			log.WithError(err).Warn("config watcher disabled")
		} else {
			s.watcher = w
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the watcher and the server, drains queued reconciliation and
// closes the store.
func (s *Service) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				log.Errorf("failed to stop config watcher: %v", err)
				shutdownErr = err
			}
		}
		if err := s.server.Stop(ctx); err != nil {
			log.Errorf("error stopping API server: %v", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
		s.background.Stop()
		if err := s.store.Close(); err != nil {
			log.Errorf("error closing store: %v", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
	})
	return shutdownErr
}

// Handler exposes the HTTP handler without starting a listener.
func (s *Service) Handler() http.Handler {
	return s.server.Handler()
}

// applyConfig is the watcher callback.
func (s *Service) applyConfig(cfg *config.Config, changes diff.Changes) {
	if len(changes.Catalog) > 0 {
		sources, err := discovery.NewSources(cfg.Catalog)
		if err != nil {
			log.WithError(err).Error("catalog providers not reloaded")
		} else {
			s.registry.SetSources(sources)
			s.cache.SetTTL(time.Duration(cfg.Catalog.TTLSeconds) * time.Second)
			s.cache.Invalidate()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := seedProjects(ctx, s.store, cfg.Projects); err != nil {
		log.WithError(err).Error("projects not reloaded")
	}

	logging.SetDebug(cfg.Debug)
	s.server.UpdateConfig(cfg)
}

func seedProjects(ctx context.Context, st store.Store, projects []config.ProjectConfig) error {
	for _, p := range projects {
		if err := st.UpsertProject(ctx, p.ID, p.Name); err != nil {
			return fmt.Errorf("seed project %s: %w", p.ID, err)
		}
	}
	return nil
}
