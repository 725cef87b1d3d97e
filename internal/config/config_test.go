// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/traylinx/modelsettings/internal/constant"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Host != "" {
		t.Errorf("Host should be empty by default (bind all), got: %s", cfg.Host)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port should default to %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.Database.Driver != constant.DriverSQLite {
		t.Errorf("Driver should default to sqlite3, got %s", cfg.Database.Driver)
	}
	if cfg.Database.DSN != DefaultSQLitePath {
		t.Errorf("DSN should default to %s, got %s", DefaultSQLitePath, cfg.Database.DSN)
	}
	if cfg.Resolver.Policy != ResolverPolicyRequireNames {
		t.Errorf("Resolver policy should default to require-names, got %s", cfg.Resolver.Policy)
	}
	if cfg.Catalog.TTLSeconds != DefaultCatalogTTLSeconds {
		t.Errorf("Catalog TTL should default to %d, got %d", DefaultCatalogTTLSeconds, cfg.Catalog.TTLSeconds)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	if _, err := LoadConfig(missing); err == nil {
		t.Fatal("expected error for missing required config")
	}

	cfg, err := LoadConfigOptional(missing, true)
	if err != nil {
		t.Fatalf("optional load should not fail: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("optional config should carry defaults, got port %d", cfg.Port)
	}
}

func TestLoadConfig_CatalogProviders(t *testing.T) {
	content := `
catalog:
  providers:
    - id: openai
      format: openai
      models-url: https://api.openai.com/v1/models
      api-key: " sk-test "
    - id: broken
      format: openai
    - id: local
      format: STATIC
      models:
        - id: gpt-4o
          name: GPT-4o
        - id: " "
        - id: gpt-4o
          name: duplicate
    - id: openai
      format: ollama
      models-url: http://localhost:11434/api/tags
    - id: weird
      format: soap
      models-url: http://example.com
`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	providers := cfg.Catalog.Providers
	if len(providers) != 2 {
		t.Fatalf("expected 2 usable providers, got %d: %+v", len(providers), providers)
	}
	if providers[0].ID != "openai" || providers[0].APIKey != "sk-test" {
		t.Errorf("unexpected first provider: %+v", providers[0])
	}
	if providers[1].Format != constant.Static || len(providers[1].Models) != 1 {
		t.Errorf("static provider should keep one model, got %+v", providers[1])
	}
}

func TestLoadConfig_ResolverPolicy(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, "resolver:\n  policy: ID-Fallback\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Resolver.Policy != ResolverPolicyIDFallback {
		t.Errorf("expected id-fallback, got %s", cfg.Resolver.Policy)
	}

	cfg, err = LoadConfig(writeTempConfig(t, "resolver:\n  policy: whatever\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Resolver.Policy != ResolverPolicyRequireNames {
		t.Errorf("unknown policy should fall back to require-names, got %s", cfg.Resolver.Policy)
	}
}

func TestLoadConfig_HashesManagementKey(t *testing.T) {
	path := writeTempConfig(t, "# management\nremote-management:\n  secret-key: hunter2\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !looksLikeBcrypt(cfg.RemoteManagement.SecretKey) {
		t.Fatalf("secret key should be hashed, got %q", cfg.RemoteManagement.SecretKey)
	}
	if !cfg.VerifyManagementKey("hunter2") {
		t.Error("correct key should verify")
	}
	if cfg.VerifyManagementKey("wrong") || cfg.VerifyManagementKey("") {
		t.Error("wrong or empty key must not verify")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back config: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("plaintext key should be replaced on disk")
	}
	if !strings.Contains(string(data), "# management") {
		t.Error("comments should be preserved when persisting the hash")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	env := map[string]string{
		"MODELSETTINGS_DRIVER": "postgres",
		"MODELSETTINGS_DSN":    "postgres://u@localhost/db",
	}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Database.Driver != constant.DriverPostgres {
		t.Errorf("driver alias should map to pgx, got %s", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://u@localhost/db" {
		t.Errorf("unexpected dsn %s", cfg.Database.DSN)
	}
}

func TestSanitizeProjects(t *testing.T) {
	cfg := &Config{Projects: []ProjectConfig{{ID: " p1 ", Name: "One"}, {ID: ""}, {ID: "p1", Name: "dup"}, {ID: "p2"}}}
	cfg.SanitizeProjects()
	if len(cfg.Projects) != 2 || cfg.Projects[0].ID != "p1" || cfg.Projects[0].Name != "One" || cfg.Projects[1].ID != "p2" {
		t.Errorf("unexpected projects: %+v", cfg.Projects)
	}
}
