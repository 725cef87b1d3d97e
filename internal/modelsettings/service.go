// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package modelsettings implements per-project model settings: the business
// rules around the default model, the full settings view, the hybrid resolver
// and the reconciler that writes catalog changes back to the store.
package modelsettings

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/registry"
	"github.com/traylinx/modelsettings/internal/store"
)

// ModelView is one entry of the full settings view.
type ModelView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	IsDefault bool   `json:"isDefault"`
}

// ListResult is the full settings view of a project.
type ListResult struct {
	Models         []ModelView              `json:"models"`
	MissingModels  []ModelView              `json:"missingModels"`
	ProviderErrors []registry.ProviderError `json:"providerErrors"`
}

// Service applies the settings rules on top of the store.
type Service struct {
	store    store.Store
	catalog  registry.Cache
	resolver *Resolver
}

// NewService wires a service.
func NewService(s store.Store, catalog registry.Cache, resolver *Resolver) *Service {
	return &Service{store: s, catalog: catalog, resolver: resolver}
}

// List merges the catalog with the project's settings. Catalog models without
// a row count as enabled. Rows whose model left the catalog are returned in
// MissingModels. When the catalog cannot be read at all, stored rows are
// listed as models and the failure is reported in ProviderErrors.
func (s *Service) List(ctx context.Context, projectID string) (*ListResult, error) {
	projectID = strings.TrimSpace(projectID)
	if err := s.checkProject(ctx, projectID); err != nil {
		return nil, err
	}

	rows, err := s.store.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*store.ModelSetting, len(rows))
	for _, row := range rows {
		byID[row.ModelID] = row
	}

	result := &ListResult{
		Models:         []ModelView{},
		MissingModels:  []ModelView{},
		ProviderErrors: []registry.ProviderError{},
	}

	catalog, err := s.catalog.Get(ctx)
	if err != nil {
		log.WithError(err).WithField("project", projectID).Warn("catalog unavailable for settings view")
		result.ProviderErrors = append(result.ProviderErrors, registry.ProviderError{Provider: "catalog", Message: err.Error()})
		for _, row := range rows {
			result.Models = append(result.Models, rowView(row))
		}
		SortModels(result.Models)
		return result, nil
	}
	result.ProviderErrors = append(result.ProviderErrors, catalog.Errors...)

	for _, m := range catalog.Models {
		view := ModelView{ID: m.ID, Name: m.Name(), Enabled: true}
		if row, ok := byID[m.ID]; ok {
			view.Enabled = row.Enabled
			view.IsDefault = row.IsDefault && row.Enabled
			if m.DisplayName == "" && row.HasName() {
				view.Name = row.ModelName
			}
		}
		result.Models = append(result.Models, view)
	}
	for _, row := range rows {
		if catalog.Lookup(row.ModelID) != nil {
			continue
		}
		result.MissingModels = append(result.MissingModels, rowView(row))
	}

	SortModels(result.Models)
	SortModels(result.MissingModels)
	return result, nil
}

// SetEnabled enables or disables a model. Disabling the current default is
// refused with ErrDefaultModelProtected.
func (s *Service) SetEnabled(ctx context.Context, projectID, modelID string, enabled bool, name string) error {
	projectID, modelID = strings.TrimSpace(projectID), strings.TrimSpace(modelID)
	if err := requireID("modelId", modelID); err != nil {
		return err
	}
	if err := s.checkProject(ctx, projectID); err != nil {
		return err
	}

	if err := s.store.SetEnabled(ctx, projectID, modelID, enabled, name); err != nil {
		return protectDefault(err, modelID, ActionDisable)
	}
	log.WithFields(log.Fields{"project": projectID, "model": modelID, "enabled": enabled}).Info("model enablement updated")
	return nil
}

// SetDefault makes modelID the project's enabled default.
func (s *Service) SetDefault(ctx context.Context, projectID, modelID, name string) error {
	projectID, modelID = strings.TrimSpace(projectID), strings.TrimSpace(modelID)
	if err := requireID("modelId", modelID); err != nil {
		return err
	}
	if err := s.checkProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.store.SetDefault(ctx, projectID, modelID, name); err != nil {
		return err
	}
	log.WithFields(log.Fields{"project": projectID, "model": modelID}).Info("default model changed")
	return nil
}

// Delete removes a model's settings row. Deleting the current default is
// refused with ErrDefaultModelProtected.
func (s *Service) Delete(ctx context.Context, projectID, modelID string) error {
	projectID, modelID = strings.TrimSpace(projectID), strings.TrimSpace(modelID)
	if err := requireID("modelId", modelID); err != nil {
		return err
	}
	if err := s.checkProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, projectID, modelID); err != nil {
		return protectDefault(err, modelID, ActionDelete)
	}
	log.WithFields(log.Fields{"project": projectID, "model": modelID}).Info("model settings deleted")
	return nil
}

// Refresh drops the cached catalog. The settings table is not touched.
func (s *Service) Refresh() {
	s.catalog.Invalidate()
}

// Resolve runs the hybrid resolver for an existing project.
func (s *Service) Resolve(ctx context.Context, projectID string) ([]ResolvedModel, error) {
	projectID = strings.TrimSpace(projectID)
	if err := s.checkProject(ctx, projectID); err != nil {
		return nil, err
	}
	models, err := s.resolver.Resolve(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if models == nil {
		models = []ResolvedModel{}
	}
	return models, nil
}

// DefaultModel returns the model to use when a caller did not choose one.
func (s *Service) DefaultModel(ctx context.Context, projectID string) (*ResolvedModel, error) {
	projectID = strings.TrimSpace(projectID)
	if err := s.checkProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.resolver.DefaultModel(ctx, projectID)
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) checkProject(ctx context.Context, projectID string) error {
	if err := requireID("projectId", projectID); err != nil {
		return err
	}
	ok, err := s.store.ProjectExists(ctx, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Resource: "project", ID: projectID}
	}
	return nil
}

// protectDefault turns the store's guard into the caller-facing error.
func protectDefault(err error, modelID, action string) error {
	if errors.Is(err, store.ErrIsDefault) {
		return &DefaultModelProtectedError{ModelID: modelID, Action: action}
	}
	return err
}

func rowView(row *store.ModelSetting) ModelView {
	return ModelView{
		ID:        row.ModelID,
		Name:      displayName(row),
		Enabled:   row.Enabled,
		IsDefault: row.IsDefault && row.Enabled,
	}
}
