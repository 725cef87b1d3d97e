// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modelsettings

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/registry"
	"github.com/traylinx/modelsettings/internal/store"
)

// Policy decides when the settings table is trusted to answer a resolve.
type Policy string

const (
	// PolicyRequireNames serves the stored list only when every enabled row
	// has a display name. Otherwise the catalog is read and a sync scheduled
	// so the missing names get backfilled.
	PolicyRequireNames Policy = "require-names"
	// PolicyIDFallback serves the stored list whenever it is non-empty and
	// shows the id for rows without a name. No sync is forced.
	PolicyIDFallback Policy = "id-fallback"
)

// ParsePolicy maps a config value to a Policy, defaulting to PolicyRequireNames.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyIDFallback {
		return PolicyIDFallback
	}
	return PolicyRequireNames
}

// ResolvedModel is one selectable model for a project.
type ResolvedModel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// Resolver is the read path for UI and chat-generation callers. It prefers
// the settings table and falls back to the catalog.
type Resolver struct {
	store   store.Store
	catalog registry.Cache
	sync    SyncTrigger
	policy  Policy
}

// NewResolver creates a resolver. trigger may be nil to disable write-back.
func NewResolver(s store.Store, catalog registry.Cache, trigger SyncTrigger, policy Policy) *Resolver {
	if policy == "" {
		policy = PolicyRequireNames
	}
	return &Resolver{store: s, catalog: catalog, sync: trigger, policy: policy}
}

// Policy returns the configured confidence policy.
func (r *Resolver) Policy() Policy { return r.policy }

// Resolve returns the project's selectable models, default first and then by
// name. It does not check that the project exists.
func (r *Resolver) Resolve(ctx context.Context, projectID string) ([]ResolvedModel, error) {
	rows, err := r.store.List(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var enabled []*store.ModelSetting
	var defaultID string
	for _, row := range rows {
		if !row.Enabled {
			continue
		}
		enabled = append(enabled, row)
		if row.IsDefault {
			defaultID = row.ModelID
		}
	}

	if len(enabled) > 0 && r.confident(enabled) {
		return fromRows(enabled), nil
	}

	catalog, err := r.catalog.Get(ctx)
	if err != nil {
		if len(enabled) > 0 {
			log.WithError(err).WithField("project", projectID).Warn("catalog unavailable, serving stored models")
			return fromRows(enabled), nil
		}
		return nil, fmt.Errorf("resolve models for %s: %w", projectID, err)
	}

	out := make([]ResolvedModel, 0, len(catalog.Models))
	for _, m := range catalog.Models {
		out = append(out, ResolvedModel{ID: m.ID, Name: m.Name(), IsDefault: m.ID == defaultID})
	}
	SortResolved(out)

	if r.sync != nil && len(catalog.Models) > 0 {
		r.sync.Trigger(SyncJob{ProjectID: projectID, Catalog: EntriesFromCatalog(catalog)})
	}
	return out, nil
}

// DefaultModel returns the model chat generation should use when the caller
// did not pick one: the stored default, else the first resolved model.
// It returns nil when the project has no models at all.
func (r *Resolver) DefaultModel(ctx context.Context, projectID string) (*ResolvedModel, error) {
	def, err := r.store.GetDefault(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if def != nil {
		return &ResolvedModel{ID: def.ModelID, Name: displayName(def), IsDefault: true}, nil
	}

	models, err := r.Resolve(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	first := models[0]
	return &first, nil
}

func (r *Resolver) confident(enabled []*store.ModelSetting) bool {
	if r.policy == PolicyIDFallback {
		return true
	}
	for _, row := range enabled {
		if !row.HasName() {
			return false
		}
	}
	return true
}

func fromRows(rows []*store.ModelSetting) []ResolvedModel {
	out := make([]ResolvedModel, 0, len(rows))
	for _, row := range rows {
		out = append(out, ResolvedModel{ID: row.ModelID, Name: displayName(row), IsDefault: row.IsDefault})
	}
	SortResolved(out)
	return out
}

func displayName(row *store.ModelSetting) string {
	if row.HasName() {
		return row.ModelName
	}
	return row.ModelID
}
