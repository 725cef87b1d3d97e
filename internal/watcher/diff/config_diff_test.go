// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/traylinx/modelsettings/internal/config"
)

func providers() []config.CatalogProvider {
	return []config.CatalogProvider{
		{ID: "openai", Format: "openai", ModelsURL: "https://api.openai.com/v1/models", APIKey: "sk-1"},
		{ID: "local", Format: "static", Models: []config.StaticModel{{ID: "llama3", Name: "Llama 3"}}},
	}
}

func TestDiffProviders(t *testing.T) {
	base := providers()

	t.Run("unchanged", func(t *testing.T) {
		assert.Empty(t, DiffProviders(base, providers()))
	})

	t.Run("key rotation is an update without the secret", func(t *testing.T) {
		next := providers()
		next[0].APIKey = "sk-2"
		changes := DiffProviders(base, next)
		assert.Equal(t, []string{"catalog.providers[openai]: updated"}, changes)
		for _, c := range changes {
			assert.NotContains(t, c, "sk-")
		}
	})

	t.Run("added and removed", func(t *testing.T) {
		next := []config.CatalogProvider{base[0], {ID: "ollama", Format: "ollama", ModelsURL: "http://localhost:11434/api/tags"}}
		assert.Equal(t, []string{
			"catalog.providers[local]: removed",
			"catalog.providers[ollama]: added (ollama)",
		}, DiffProviders(base, next))
	})

	t.Run("reordered", func(t *testing.T) {
		next := []config.CatalogProvider{base[1], base[0]}
		assert.Equal(t, []string{"catalog.providers: reordered"}, DiffProviders(base, next))
	})

	t.Run("header order does not matter", func(t *testing.T) {
		a := config.CatalogProvider{ID: "x", Headers: map[string]string{"A": "1", "B": "2"}}
		b := config.CatalogProvider{ID: "x", Headers: map[string]string{"B": "2", "A": "1"}}
		assert.Equal(t, SummarizeProvider(a), SummarizeProvider(b))
	})
}

func TestCompare(t *testing.T) {
	oldCfg := &config.Config{Port: 8390, Catalog: config.CatalogConfig{TTLSeconds: 300, Providers: providers()}}
	newCfg := &config.Config{
		Port:             9000,
		Catalog:          config.CatalogConfig{TTLSeconds: 60, Providers: providers()},
		Resolver:         config.ResolverConfig{Policy: config.ResolverPolicyIDFallback},
		Projects:         []config.ProjectConfig{{ID: "b"}, {ID: "a"}},
		RemoteManagement: config.RemoteManagement{SecretKey: "$2a$hash"},
	}

	changes := Compare(oldCfg, newCfg)
	assert.Equal(t, []string{"catalog.ttl-seconds: 300 -> 60"}, changes.Catalog)
	assert.Equal(t, []string{"listen address", "resolver"}, changes.Restart)
	assert.Equal(t, []string{"remote-management.secret-key: changed", "projects: added a, b"}, changes.Other)
	assert.False(t, changes.Empty())
	assert.Len(t, changes.All(), 5)

	assert.True(t, Compare(nil, newCfg).Empty())
	assert.True(t, Compare(newCfg, newCfg).Empty())
}
