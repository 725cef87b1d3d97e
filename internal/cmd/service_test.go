// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/modelsettings/internal/config"
	"github.com/traylinx/modelsettings/internal/constant"
	"github.com/traylinx/modelsettings/internal/watcher/diff"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Port:     0,
		Database: config.DatabaseConfig{Driver: constant.DriverSQLite, DSN: filepath.Join(t.TempDir(), "settings.db")},
		Catalog: config.CatalogConfig{
			Providers: []config.CatalogProvider{{
				ID:     "local",
				Format: constant.Static,
				Models: []config.StaticModel{{ID: "llama3", Name: "Llama 3"}},
			}},
		},
		Projects: []config.ProjectConfig{{ID: "p1", Name: "Project One"}},
	}
	cfg.Sanitize()
	return cfg
}

func resolveIDs(t *testing.T, s *Service, projectID string) []string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/models/resolve?projectId="+projectID, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	ids := make([]string, 0, len(body.Models))
	for _, m := range body.Models {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestService_WiresCatalogAndProjects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := NewService(context.Background(), testConfig(t), "")
	require.NoError(t, err)
	defer func() { _ = s.Shutdown(context.Background()) }()

	assert.Equal(t, []string{"llama3"}, resolveIDs(t, s, "p1"))
}

func TestService_ApplyConfigReloadsCatalogAndProjects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	oldCfg := testConfig(t)
	s, err := NewService(context.Background(), oldCfg, "")
	require.NoError(t, err)
	defer func() { _ = s.Shutdown(context.Background()) }()

	// Populate the cache so the reload has something to drop.
	require.Equal(t, []string{"llama3"}, resolveIDs(t, s, "p1"))

	newCfg := testConfig(t)
	newCfg.Database = oldCfg.Database
	newCfg.Catalog.Providers[0].Models = append(newCfg.Catalog.Providers[0].Models, config.StaticModel{ID: "mistral", Name: "Mistral"})
	newCfg.Projects = append(newCfg.Projects, config.ProjectConfig{ID: "p2"})

	s.applyConfig(newCfg, diff.Compare(oldCfg, newCfg))

	assert.ElementsMatch(t, []string{"llama3", "mistral"}, resolveIDs(t, s, "p2"))
}

func TestService_ShutdownIsIdempotent(t *testing.T) {
	s, err := NewService(context.Background(), testConfig(t), "")
	require.NoError(t, err)
	assert.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestNewService_RejectsBadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := NewService(context.Background(), cfg, "")
	assert.Error(t, err)
}
