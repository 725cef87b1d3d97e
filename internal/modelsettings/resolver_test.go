// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modelsettings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/modelsettings/internal/registry"
)

func TestResolver_EmptySettingsFallsBackToCatalog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cat := newFakeCatalog(
		&registry.ModelInfo{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini"},
		&registry.ModelInfo{ID: "gpt-4o", DisplayName: "GPT-4o"},
	)
	trigger := &recordingTrigger{rec: NewReconciler(s)}
	r := NewResolver(s, cat.cache(), trigger, PolicyRequireNames)

	models, err := r.Resolve(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, []ResolvedModel{
		{ID: "gpt-4o", Name: "GPT-4o"},
		{ID: "gpt-4o-mini", Name: "GPT-4o mini"},
	}, models)

	require.Len(t, trigger.jobs, 1)
	rows, err := s.List(ctx, testProject)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.False(t, row.Enabled)
		assert.False(t, row.IsDefault)
	}
}

func TestResolver_NamelessRowPolicies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SetDefault(ctx, testProject, "gpt-4o", "GPT-4o"))
	require.NoError(t, s.SetEnabled(ctx, testProject, "old-model", true, ""))

	cat := newFakeCatalog(
		&registry.ModelInfo{ID: "gpt-4o", DisplayName: "GPT-4o"},
		&registry.ModelInfo{ID: "claude-sonnet", DisplayName: "Claude Sonnet"},
	)

	t.Run("id-fallback serves stored rows", func(t *testing.T) {
		trigger := &recordingTrigger{}
		r := NewResolver(s, cat.cache(), trigger, PolicyIDFallback)
		before := cat.fetches.Load()

		models, err := r.Resolve(ctx, testProject)
		require.NoError(t, err)
		assert.Equal(t, []ResolvedModel{
			{ID: "gpt-4o", Name: "GPT-4o", IsDefault: true},
			{ID: "old-model", Name: "old-model"},
		}, models)
		assert.Equal(t, before, cat.fetches.Load(), "catalog must not be read")
		assert.Empty(t, trigger.jobs)
	})

	t.Run("require-names falls back to the catalog", func(t *testing.T) {
		trigger := &recordingTrigger{}
		r := NewResolver(s, cat.cache(), trigger, PolicyRequireNames)

		models, err := r.Resolve(ctx, testProject)
		require.NoError(t, err)
		assert.Equal(t, []ResolvedModel{
			{ID: "gpt-4o", Name: "GPT-4o", IsDefault: true},
			{ID: "claude-sonnet", Name: "Claude Sonnet"},
		}, models)
		assert.Len(t, trigger.jobs, 1)
	})
}

func TestResolver_NamedRowsSkipCatalog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SetEnabled(ctx, testProject, "b", true, "beta"))
	require.NoError(t, s.SetEnabled(ctx, testProject, "a", true, "Alpha"))
	require.NoError(t, s.SetEnabled(ctx, testProject, "z", false, "Zed"))

	cat := newFakeCatalog()
	r := NewResolver(s, cat.cache(), nil, PolicyRequireNames)

	models, err := r.Resolve(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "beta"}, names(models))
	assert.Zero(t, cat.fetches.Load())
}

func TestResolver_CatalogFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cat := newFakeCatalog()
	cat.err = errors.New("registry offline")
	r := NewResolver(s, cat.cache(), nil, PolicyRequireNames)

	_, err := r.Resolve(ctx, testProject)
	require.Error(t, err)

	// With stored rows the resolver degrades to them instead of failing.
	require.NoError(t, s.SetEnabled(ctx, testProject, "old-model", true, ""))
	models, err := r.Resolve(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-model"}, names(models))
}

func TestResolver_DefaultModel(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cat := newFakeCatalog(
		&registry.ModelInfo{ID: "b", DisplayName: "Bravo"},
		&registry.ModelInfo{ID: "a", DisplayName: "Alpha"},
	)
	r := NewResolver(s, cat.cache(), nil, PolicyRequireNames)

	def, err := r.DefaultModel(ctx, testProject)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "a", def.ID)
	assert.False(t, def.IsDefault)

	require.NoError(t, s.SetDefault(ctx, testProject, "b", ""))
	def, err = r.DefaultModel(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, &ResolvedModel{ID: "b", Name: "b", IsDefault: true}, def)

	empty := NewResolver(newTestStore(t), newFakeCatalog().cache(), nil, PolicyRequireNames)
	def, err = empty.DefaultModel(ctx, testProject)
	require.NoError(t, err)
	assert.Nil(t, def)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyIDFallback, ParsePolicy("id-fallback"))
	assert.Equal(t, PolicyRequireNames, ParsePolicy("require-names"))
	assert.Equal(t, PolicyRequireNames, ParsePolicy(""))
}
