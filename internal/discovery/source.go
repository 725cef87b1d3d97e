// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/config"
	"github.com/traylinx/modelsettings/internal/constant"
	"github.com/traylinx/modelsettings/internal/discovery/fetcher"
	"github.com/traylinx/modelsettings/internal/discovery/parsers"
	"github.com/traylinx/modelsettings/internal/registry"
	"github.com/traylinx/modelsettings/internal/util"
)

// anthropicVersion is the API version header Anthropic requires on every call.
const anthropicVersion = "2023-06-01"

// StaticSource serves a fixed model list declared in config.
type StaticSource struct {
	id     string
	models []*registry.ModelInfo
}

// NewStaticSource creates a source over the given models.
func NewStaticSource(providerID string, models []config.StaticModel) *StaticSource {
	out := make([]*registry.ModelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, &registry.ModelInfo{ID: m.ID, DisplayName: m.Name, Provider: providerID})
	}
	return &StaticSource{id: providerID, models: out}
}

func (s *StaticSource) ProviderID() string { return s.id }

// Models returns a copy of the configured list.
func (s *StaticSource) Models(ctx context.Context) ([]*registry.ModelInfo, error) {
	out := make([]*registry.ModelInfo, 0, len(s.models))
	for _, m := range s.models {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// HTTPSource reads a provider's model-list endpoint.
type HTTPSource struct {
	id        string
	url       string
	fetcher   Fetcher
	parser    Parser
	cache     *Cache
	graceDays int
}

// NewHTTPSource creates a source. cache may be nil to disable snapshots.
func NewHTTPSource(providerID, url string, f Fetcher, p Parser, cache *Cache, graceDays int) *HTTPSource {
	return &HTTPSource{id: providerID, url: url, fetcher: f, parser: p, cache: cache, graceDays: graceDays}
}

func (s *HTTPSource) ProviderID() string { return s.id }

// Models fetches and parses the provider list. When the fetch fails and a
// snapshot inside the grace period exists, the snapshot is returned together
// with the error so the caller can still report the failure.
func (s *HTTPSource) Models(ctx context.Context) ([]*registry.ModelInfo, error) {
	models, err := s.fetch(ctx)
	if err == nil {
		if s.cache != nil {
			entry := &CacheEntry{ProviderID: s.id, FetchedAt: time.Now(), Models: models, SourceURL: util.MaskURL(s.url)}
			if errSet := s.cache.Set(entry); errSet != nil {
				log.WithError(errSet).WithField("provider", s.id).Warn("Failed to cache discovery results")
			}
		}
		return models, nil
	}

	if s.cache != nil {
		if cached := s.cache.GetWithGrace(s.id, s.graceDays); cached != nil {
			log.WithField("provider", s.id).WithField("fetched_at", cached.FetchedAt).Info("Using cached models due to discovery failure")
			return cached.Models, err
		}
	}
	return nil, err
}

func (s *HTTPSource) fetch(ctx context.Context) ([]*registry.ModelInfo, error) {
	safeURL := util.MaskURL(s.url)
	log.WithField("provider", s.id).WithField("url", safeURL).Debug("Fetching models from source")

	content, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", safeURL, err)
	}

	models, err := s.parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content for %s: %w", s.id, err)
	}

	if len(models) == 0 {
		log.WithField("provider", s.id).Warn("No models parsed from source")
	} else {
		log.WithField("provider", s.id).WithField("count", len(models)).Debug("Successfully discovered models")
	}
	return models, nil
}

// NewSources builds registry sources from the catalog config, preserving
// provider order. A snapshot cache is created when CacheDir is set.
func NewSources(cfg config.CatalogConfig) ([]registry.Source, error) {
	var cache *Cache
	if cfg.CacheDir != "" {
		c, err := NewCache(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		cache = c
	}
	timeout := time.Duration(cfg.FetchTimeoutSeconds) * time.Second

	sources := make([]registry.Source, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.Format == constant.Static {
			sources = append(sources, NewStaticSource(p.ID, p.Models))
			continue
		}

		parser, err := parserFor(p)
		if err != nil {
			return nil, err
		}
		f := fetcher.NewHTTPFetcher(timeout)
		applyAuth(f, p)
		for k, v := range p.Headers {
			f.SetHeader(k, v)
		}
		sources = append(sources, NewHTTPSource(p.ID, p.ModelsURL, f, parser, cache, cfg.GraceDays))
	}
	return sources, nil
}

func parserFor(p config.CatalogProvider) (Parser, error) {
	switch p.Format {
	case constant.OpenAI:
		return parsers.NewOpenAIParser(p.ID), nil
	case constant.Claude:
		return parsers.NewClaudeParser(p.ID), nil
	case constant.Gemini:
		return parsers.NewGeminiParser(p.ID), nil
	case constant.Ollama:
		return parsers.NewOllamaParser(p.ID), nil
	default:
		return nil, fmt.Errorf("unknown catalog format %q for provider %s", p.Format, p.ID)
	}
}

func applyAuth(f *fetcher.HTTPFetcher, p config.CatalogProvider) {
	switch p.Format {
	case constant.Claude:
		f.SetHeader("anthropic-version", anthropicVersion)
		if p.APIKey != "" {
			f.SetHeader("x-api-key", p.APIKey)
		}
	case constant.Gemini:
		if p.APIKey != "" {
			f.SetHeader("x-goog-api-key", p.APIKey)
		}
	default:
		if p.APIKey != "" {
			f.SetHeader("Authorization", "Bearer "+p.APIKey)
		}
	}
}
