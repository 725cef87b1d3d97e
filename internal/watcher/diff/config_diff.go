// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package diff summarizes configuration changes for reload logging and for
// deciding which parts of the running service must be rebuilt.
package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/traylinx/modelsettings/internal/config"
)

// Changes lists human readable differences between two configurations.
type Changes struct {
	// Catalog holds provider and cache changes. A non-empty list means the
	// registry sources must be rebuilt and the cached catalog dropped.
	Catalog []string
	// Restart holds changes that only take effect after a restart.
	Restart []string
	// Other holds changes applied in place, such as the management key.
	Other []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Catalog) == 0 && len(c.Restart) == 0 && len(c.Other) == 0
}

// All returns every change, sorted.
func (c Changes) All() []string {
	out := make([]string, 0, len(c.Catalog)+len(c.Restart)+len(c.Other))
	out = append(out, c.Catalog...)
	out = append(out, c.Restart...)
	out = append(out, c.Other...)
	sort.Strings(out)
	return out
}

// ProviderSummary hashes a provider entry for change detection. Secrets are
// part of the hash but never of the output.
type ProviderSummary struct {
	hash   string
	format string
	models int
}

// SummarizeProvider normalizes and hashes one catalog provider.
func SummarizeProvider(p config.CatalogProvider) ProviderSummary {
	parts := []string{
		strings.ToLower(strings.TrimSpace(p.Format)),
		strings.TrimSpace(p.ModelsURL),
		strings.TrimSpace(p.APIKey),
	}
	headers := make([]string, 0, len(p.Headers))
	for k, v := range p.Headers {
		headers = append(headers, strings.ToLower(strings.TrimSpace(k))+"="+strings.TrimSpace(v))
	}
	sort.Strings(headers)
	parts = append(parts, strings.Join(headers, ","))
	for _, m := range p.Models {
		parts = append(parts, strings.TrimSpace(m.ID)+"->"+strings.TrimSpace(m.Name))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return ProviderSummary{
		hash:   hex.EncodeToString(sum[:]),
		format: parts[0],
		models: len(p.Models),
	}
}

// DiffProviders compares provider lists by id. Reordering is reported too
// because order decides which provider's name wins for a shared model id.
func DiffProviders(oldList, newList []config.CatalogProvider) []string {
	oldSummary := summarize(oldList)
	newSummary := summarize(newList)

	keys := make(map[string]struct{}, len(oldSummary)+len(newSummary))
	for k := range oldSummary {
		keys[k] = struct{}{}
	}
	for k := range newSummary {
		keys[k] = struct{}{}
	}

	changes := make([]string, 0, len(keys))
	for key := range keys {
		oldInfo, okOld := oldSummary[key]
		newInfo, okNew := newSummary[key]
		switch {
		case okOld && !okNew:
			changes = append(changes, fmt.Sprintf("catalog.providers[%s]: removed", key))
		case !okOld && okNew:
			changes = append(changes, fmt.Sprintf("catalog.providers[%s]: added (%s)", key, newInfo.format))
		case oldInfo.hash != newInfo.hash:
			changes = append(changes, fmt.Sprintf("catalog.providers[%s]: updated", key))
		}
	}
	sort.Strings(changes)

	if len(changes) == 0 && !sameOrder(oldList, newList) {
		changes = append(changes, "catalog.providers: reordered")
	}
	return changes
}

// Compare diffs two configurations. A nil oldCfg reports nothing.
func Compare(oldCfg, newCfg *config.Config) Changes {
	var c Changes
	if oldCfg == nil || newCfg == nil {
		return c
	}

	c.Catalog = DiffProviders(oldCfg.Catalog.Providers, newCfg.Catalog.Providers)
	if oldCfg.Catalog.TTLSeconds != newCfg.Catalog.TTLSeconds {
		c.Catalog = append(c.Catalog, fmt.Sprintf("catalog.ttl-seconds: %d -> %d", oldCfg.Catalog.TTLSeconds, newCfg.Catalog.TTLSeconds))
	}
	if oldCfg.Catalog.CacheDir != newCfg.Catalog.CacheDir {
		c.Catalog = append(c.Catalog, fmt.Sprintf("catalog.cache-dir: %q -> %q", oldCfg.Catalog.CacheDir, newCfg.Catalog.CacheDir))
	}
	if oldCfg.Catalog.GraceDays != newCfg.Catalog.GraceDays {
		c.Catalog = append(c.Catalog, fmt.Sprintf("catalog.grace-days: %d -> %d", oldCfg.Catalog.GraceDays, newCfg.Catalog.GraceDays))
	}
	if oldCfg.Catalog.FetchTimeoutSeconds != newCfg.Catalog.FetchTimeoutSeconds {
		c.Catalog = append(c.Catalog, fmt.Sprintf("catalog.fetch-timeout-seconds: %d -> %d", oldCfg.Catalog.FetchTimeoutSeconds, newCfg.Catalog.FetchTimeoutSeconds))
	}

	if oldCfg.Host != newCfg.Host || oldCfg.Port != newCfg.Port {
		c.Restart = append(c.Restart, "listen address")
	}
	if oldCfg.Database != newCfg.Database {
		c.Restart = append(c.Restart, "database")
	}
	if oldCfg.Resolver != newCfg.Resolver {
		c.Restart = append(c.Restart, "resolver")
	}

	if oldCfg.RemoteManagement.SecretKey != newCfg.RemoteManagement.SecretKey {
		c.Other = append(c.Other, "remote-management.secret-key: changed")
	}
	if oldCfg.Debug != newCfg.Debug {
		c.Other = append(c.Other, fmt.Sprintf("debug: %t -> %t", oldCfg.Debug, newCfg.Debug))
	}
	if added := addedProjects(oldCfg.Projects, newCfg.Projects); len(added) > 0 {
		c.Other = append(c.Other, fmt.Sprintf("projects: added %s", strings.Join(added, ", ")))
	}
	return c
}

func summarize(list []config.CatalogProvider) map[string]ProviderSummary {
	out := make(map[string]ProviderSummary, len(list))
	for _, p := range list {
		key := strings.TrimSpace(p.ID)
		if key == "" {
			continue
		}
		out[key] = SummarizeProvider(p)
	}
	return out
}

func sameOrder(a, b []config.CatalogProvider) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i].ID) != strings.TrimSpace(b[i].ID) {
			return false
		}
	}
	return true
}

func addedProjects(oldList, newList []config.ProjectConfig) []string {
	seen := make(map[string]struct{}, len(oldList))
	for _, p := range oldList {
		seen[p.ID] = struct{}{}
	}
	var added []string
	for _, p := range newList {
		if _, ok := seen[p.ID]; !ok {
			added = append(added, p.ID)
		}
	}
	sort.Strings(added)
	return added
}
