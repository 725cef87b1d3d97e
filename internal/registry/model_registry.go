// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry aggregates the model catalogs advertised by the configured
// providers and keeps a process-wide cached copy for the read path.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ModelInfo represents a model advertised by a provider catalog.
type ModelInfo struct {
	// ID is the stable catalog identifier for the model
	ID string `json:"id"`
	// DisplayName is the human-readable name, empty when the provider has none
	DisplayName string `json:"display_name,omitempty"`
	// Provider is the id of the catalog source that advertised the model
	Provider string `json:"provider,omitempty"`
}

// Name returns the display name, falling back to the id.
func (m *ModelInfo) Name() string {
	if m == nil {
		return ""
	}
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.ID
}

// ProviderError records a provider whose catalog could not be read.
// It never fails a catalog read on its own.
type ProviderError struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("catalog fetch failed for %s: %s", e.Provider, e.Message)
}

// Catalog is the aggregated result of one fetch across every source.
type Catalog struct {
	Models    []*ModelInfo    `json:"models"`
	Errors    []ProviderError `json:"errors,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Lookup returns the model with the given id, or nil.
func (c *Catalog) Lookup(id string) *ModelInfo {
	if c == nil {
		return nil
	}
	for _, m := range c.Models {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// IDs returns the model ids in catalog order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		ids = append(ids, m.ID)
	}
	return ids
}

// Source lists the models one provider currently advertises.
type Source interface {
	ProviderID() string
	Models(ctx context.Context) ([]*ModelInfo, error)
}

// ModelRegistry fetches every configured source concurrently and merges the
// results. Sources can be swapped at runtime when configuration reloads.
type ModelRegistry struct {
	mu      sync.RWMutex
	sources []Source
}

// NewModelRegistry creates a registry over the given sources.
func NewModelRegistry(sources ...Source) *ModelRegistry {
	r := &ModelRegistry{}
	r.SetSources(sources)
	return r
}

// SetSources replaces the source list. Order matters for de-duplication.
func (r *ModelRegistry) SetSources(sources []Source) {
	cp := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			cp = append(cp, s)
		}
	}
	r.mu.Lock()
	r.sources = cp
	r.mu.Unlock()
}

// Sources returns a snapshot of the configured sources.
func (r *ModelRegistry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Source(nil), r.sources...)
}

// Fetch reads every source and merges the results. A model id advertised by
// more than one source is kept from the first source in configuration order.
// Per-source failures are recorded on the catalog; only a cancelled context
// fails the whole fetch.
func (r *ModelRegistry) Fetch(ctx context.Context) (*Catalog, error) {
	sources := r.Sources()

	type result struct {
		models []*ModelInfo
		err    error
	}
	results := make([]result, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			models, err := src.Models(ctx)
			results[i] = result{models: models, err: err}
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("catalog fetch cancelled: %w", err)
	}

	catalog := &Catalog{FetchedAt: time.Now()}
	seen := make(map[string]struct{})
	for i, res := range results {
		provider := sources[i].ProviderID()
		if res.err != nil {
			log.WithField("provider", provider).Warnf("catalog fetch failed: %v", res.err)
			catalog.Errors = append(catalog.Errors, ProviderError{Provider: provider, Message: res.err.Error()})
		}
		for _, m := range res.models {
			if m == nil {
				continue
			}
			id := strings.TrimSpace(m.ID)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			catalog.Models = append(catalog.Models, &ModelInfo{
				ID:          id,
				DisplayName: strings.TrimSpace(m.DisplayName),
				Provider:    provider,
			})
		}
	}

	log.WithFields(log.Fields{
		"sources": len(sources),
		"models":  len(catalog.Models),
		"errors":  len(catalog.Errors),
	}).Debug("catalog fetched")
	return catalog, nil
}
