// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the model settings server.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including the listen address, database connection,
// catalog providers, resolver policy and the management key.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/traylinx/modelsettings/internal/constant"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	// ResolverPolicyRequireNames serves stored models only when every enabled row has a display name.
	ResolverPolicyRequireNames = "require-names"
	// ResolverPolicyIDFallback always serves stored models and displays the model id when a name is missing.
	ResolverPolicyIDFallback = "id-fallback"

	// DefaultPort is used when the config file leaves port unset.
	DefaultPort = 8390
	// DefaultCatalogTTLSeconds bounds how long a fetched catalog is served before refetching.
	DefaultCatalogTTLSeconds = 300
	// DefaultGraceDays is how long a last-known-good provider snapshot may stand in for a failed fetch.
	DefaultGraceDays = 7
	// DefaultSyncQueueSize bounds pending background reconciliation jobs.
	DefaultSyncQueueSize = 64
	// DefaultSyncTimeoutSeconds bounds a single background reconciliation job.
	DefaultSyncTimeoutSeconds = 30
	// DefaultSQLitePath is the database file used when no DSN is configured.
	DefaultSQLitePath = "modelsettings.db"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables or disables debug-level logging and gin debug mode.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogDir is the directory receiving rotated log files when LoggingToFile is set.
	LogDir string `yaml:"log-dir" json:"log-dir"`

	// LogMaxSizeMB is the size at which the active log file is rotated.
	LogMaxSizeMB int `yaml:"log-max-size-mb" json:"log-max-size-mb"`

	// LogMaxBackups limits how many rotated log files are kept. 0 keeps all of them.
	LogMaxBackups int `yaml:"log-max-backups" json:"log-max-backups"`

	// Database selects the SQL backend for the model settings store.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Catalog configures the provider registry and its cache.
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Resolver configures the hybrid read path.
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`

	// Projects seeds the project directory on startup.
	Projects []ProjectConfig `yaml:"projects" json:"projects"`

	// RemoteManagement nests management-related options under 'remote-management'.
	RemoteManagement RemoteManagement `yaml:"remote-management" json:"-"`
}

// DatabaseConfig selects and addresses the settings database.
type DatabaseConfig struct {
	// Driver is either "sqlite3" or "pgx".
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the driver-specific connection string. For sqlite3 it is a file path.
	DSN string `yaml:"dsn" json:"-"`
	// MaxOpenConns caps the Postgres pool. SQLite always uses a single writer connection.
	MaxOpenConns int `yaml:"max-open-conns" json:"max-open-conns"`
}

// CatalogConfig configures the provider registry.
type CatalogConfig struct {
	// TTLSeconds is how long a populated catalog is served before the next read refetches it.
	// 0 disables expiry, so only an explicit refresh repopulates the cache.
	TTLSeconds int `yaml:"ttl-seconds" json:"ttl-seconds"`
	// CacheDir holds last-known-good provider snapshots. Empty disables the snapshot cache.
	CacheDir string `yaml:"cache-dir" json:"cache-dir"`
	// GraceDays is how old a snapshot may be and still replace a failed fetch.
	GraceDays int `yaml:"grace-days" json:"grace-days"`
	// FetchTimeoutSeconds bounds each provider request.
	FetchTimeoutSeconds int `yaml:"fetch-timeout-seconds" json:"fetch-timeout-seconds"`
	// Providers lists the model sources, in priority order.
	Providers []CatalogProvider `yaml:"providers" json:"providers"`
}

// CatalogProvider describes one model source.
type CatalogProvider struct {
	// ID names the provider in logs and provider errors.
	ID string `yaml:"id" json:"id"`
	// Format is one of "openai", "claude", "gemini", "ollama" or "static".
	Format string `yaml:"format" json:"format"`
	// ModelsURL is the endpoint returning the model list. Unused for static providers.
	ModelsURL string `yaml:"models-url" json:"models-url"`
	// APIKey is sent as a bearer token, or as x-api-key / x-goog-api-key depending on Format.
	APIKey string `yaml:"api-key" json:"-"`
	// Headers are added to every discovery request.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	// Models declares the catalog of a static provider.
	Models []StaticModel `yaml:"models,omitempty" json:"models,omitempty"`
}

// StaticModel is one inline catalog entry.
type StaticModel struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// ResolverConfig configures the hybrid resolver and its background reconciler.
type ResolverConfig struct {
	// Policy is "require-names" (default) or "id-fallback".
	Policy string `yaml:"policy" json:"policy"`
	// SyncQueueSize bounds pending reconciliation jobs; overflow is dropped.
	SyncQueueSize int `yaml:"sync-queue-size" json:"sync-queue-size"`
	// SyncTimeoutSeconds bounds each reconciliation job.
	SyncTimeoutSeconds int `yaml:"sync-timeout-seconds" json:"sync-timeout-seconds"`
}

// ProjectConfig declares a known project.
type ProjectConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// RemoteManagement holds management API configuration under 'remote-management'.
type RemoteManagement struct {
	// SecretKey is the management key (plaintext or bcrypt hashed). Empty disables the check.
	SecretKey string `yaml:"secret-key"`
}

// LoadConfig reads a YAML configuration file from the given path,
// unmarshals it into a Config struct, applies environment variable overrides,
// and returns it.
//
// Parameters:
//   - configFile: The path to the YAML configuration file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if the configuration could not be loaded
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing, it returns a Config holding only defaults.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			cfg := defaultConfig()
			cfg.Sanitize()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Set defaults before unmarshal so that absent keys keep defaults.
	cfg := defaultConfig()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Hash remote management key if plaintext is detected.
	if cfg.RemoteManagement.SecretKey != "" && !looksLikeBcrypt(cfg.RemoteManagement.SecretKey) {
		hashed, errHash := hashSecret(cfg.RemoteManagement.SecretKey)
		if errHash != nil {
			return nil, fmt.Errorf("failed to hash remote management key: %w", errHash)
		}
		cfg.RemoteManagement.SecretKey = hashed

		// Persist the hashed value back to the config file to avoid re-hashing on next startup.
		_ = SaveConfigPreserveCommentsUpdateNestedScalar(configFile, []string{"remote-management", "secret-key"}, hashed)
	}

	cfg.Sanitize()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Host:          "",
		Port:          DefaultPort,
		LogDir:        "logs",
		LogMaxSizeMB:  10,
		LogMaxBackups: 5,
		Database: DatabaseConfig{
			Driver: constant.DriverSQLite,
			DSN:    DefaultSQLitePath,
		},
		Catalog: CatalogConfig{
			TTLSeconds:          DefaultCatalogTTLSeconds,
			GraceDays:           DefaultGraceDays,
			FetchTimeoutSeconds: 15,
		},
		Resolver: ResolverConfig{
			Policy:             ResolverPolicyRequireNames,
			SyncQueueSize:      DefaultSyncQueueSize,
			SyncTimeoutSeconds: DefaultSyncTimeoutSeconds,
		},
	}
}

// ApplyEnv overrides the database section from the environment. lookup is
// usually os.LookupEnv; it is injected so tests do not touch process state.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	if v, ok := lookup("MODELSETTINGS_DRIVER"); ok && strings.TrimSpace(v) != "" {
		cfg.Database.Driver = strings.TrimSpace(v)
	}
	if v, ok := lookup("MODELSETTINGS_DSN"); ok && strings.TrimSpace(v) != "" {
		cfg.Database.DSN = strings.TrimSpace(v)
	}
	cfg.SanitizeDatabase()
}

// Sanitize normalizes every section after loading.
func (cfg *Config) Sanitize() {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = 10
	}
	if cfg.LogMaxBackups < 0 {
		cfg.LogMaxBackups = 0
	}
	cfg.SanitizeDatabase()
	cfg.SanitizeCatalog()
	cfg.SanitizeResolver()
	cfg.SanitizeProjects()
}

// SanitizeDatabase maps driver aliases onto registered driver names and fills the SQLite default path.
func (cfg *Config) SanitizeDatabase() {
	switch strings.ToLower(strings.TrimSpace(cfg.Database.Driver)) {
	case "", "sqlite", constant.DriverSQLite:
		cfg.Database.Driver = constant.DriverSQLite
	case "postgres", "postgresql", constant.DriverPostgres:
		cfg.Database.Driver = constant.DriverPostgres
	}
	cfg.Database.DSN = strings.TrimSpace(cfg.Database.DSN)
	if cfg.Database.DSN == "" && cfg.Database.Driver == constant.DriverSQLite {
		cfg.Database.DSN = DefaultSQLitePath
	}
	if cfg.Database.MaxOpenConns < 0 {
		cfg.Database.MaxOpenConns = 0
	}
}

// SanitizeCatalog drops providers that cannot be queried and normalizes the rest.
// Order of the remaining providers is preserved because it decides which name wins
// when two providers expose the same model id.
func (cfg *Config) SanitizeCatalog() {
	if cfg.Catalog.TTLSeconds < 0 {
		cfg.Catalog.TTLSeconds = 0
	}
	if cfg.Catalog.GraceDays <= 0 {
		cfg.Catalog.GraceDays = DefaultGraceDays
	}
	if cfg.Catalog.FetchTimeoutSeconds <= 0 {
		cfg.Catalog.FetchTimeoutSeconds = 15
	}
	cfg.Catalog.CacheDir = strings.TrimSpace(cfg.Catalog.CacheDir)

	seen := make(map[string]struct{}, len(cfg.Catalog.Providers))
	out := cfg.Catalog.Providers[:0]
	for i := range cfg.Catalog.Providers {
		p := cfg.Catalog.Providers[i]
		p.ID = strings.TrimSpace(p.ID)
		p.Format = strings.ToLower(strings.TrimSpace(p.Format))
		p.ModelsURL = strings.TrimSpace(p.ModelsURL)
		p.APIKey = strings.TrimSpace(p.APIKey)
		p.Headers = NormalizeHeaders(p.Headers)
		if p.Format == "" {
			p.Format = constant.OpenAI
		}
		if p.ID == "" {
			p.ID = p.Format
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		switch p.Format {
		case constant.Static:
			p.Models = normalizeStaticModels(p.Models)
			if len(p.Models) == 0 {
				continue
			}
		case constant.OpenAI, constant.Claude, constant.Gemini, constant.Ollama:
			if p.ModelsURL == "" {
				continue
			}
		default:
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	cfg.Catalog.Providers = out
}

// SanitizeResolver falls back to the require-names policy for unknown values.
func (cfg *Config) SanitizeResolver() {
	switch strings.ToLower(strings.TrimSpace(cfg.Resolver.Policy)) {
	case ResolverPolicyIDFallback:
		cfg.Resolver.Policy = ResolverPolicyIDFallback
	default:
		cfg.Resolver.Policy = ResolverPolicyRequireNames
	}
	if cfg.Resolver.SyncQueueSize <= 0 {
		cfg.Resolver.SyncQueueSize = DefaultSyncQueueSize
	}
	if cfg.Resolver.SyncTimeoutSeconds <= 0 {
		cfg.Resolver.SyncTimeoutSeconds = DefaultSyncTimeoutSeconds
	}
}

// SanitizeProjects trims ids and removes blanks and duplicates.
func (cfg *Config) SanitizeProjects() {
	seen := make(map[string]struct{}, len(cfg.Projects))
	out := cfg.Projects[:0]
	for _, p := range cfg.Projects {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	cfg.Projects = out
}

func normalizeStaticModels(models []StaticModel) []StaticModel {
	seen := make(map[string]struct{}, len(models))
	out := make([]StaticModel, 0, len(models))
	for _, m := range models {
		m.ID = strings.TrimSpace(m.ID)
		m.Name = strings.TrimSpace(m.Name)
		if m.ID == "" {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// NormalizeHeaders trims header keys and values and removes empty pairs.
func NormalizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	clean := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		clean[key] = val
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

// VerifyManagementKey reports whether key matches the configured management secret.
// It returns true when no secret is configured.
func (cfg *Config) VerifyManagementKey(key string) bool {
	secret := cfg.RemoteManagement.SecretKey
	if secret == "" {
		return true
	}
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(secret), []byte(key)) == nil
}

// looksLikeBcrypt returns true if the provided string appears to be a bcrypt hash.
func looksLikeBcrypt(s string) bool {
	return len(s) > 4 && (s[:4] == "$2a$" || s[:4] == "$2b$" || s[:4] == "$2y$")
}

// hashSecret hashes the given secret using bcrypt.
func hashSecret(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}
