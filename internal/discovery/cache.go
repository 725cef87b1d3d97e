// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/traylinx/modelsettings/internal/registry"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// CacheEntry is the last-known-good model list of one provider.
type CacheEntry struct {
	ProviderID string                `json:"provider_id"`
	FetchedAt  time.Time             `json:"fetched_at"`
	Models     []*registry.ModelInfo `json:"models"`
	SourceURL  string                `json:"source_url,omitempty"`
}

// Cache keeps provider snapshots in memory and on disk so a failed fetch can
// fall back to the previous answer.
type Cache struct {
	dir string
	mu  sync.RWMutex
	mem map[string]*CacheEntry
	now func() time.Time
}

// NewCache creates a new cache with the given directory.
// If the directory does not exist, it will be created.
func NewCache(dir string) (*Cache, error) {
	// Expand ~ to home directory
	if len(dir) > 0 && dir[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, dir[1:])
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Cache{
		dir: dir,
		mem: make(map[string]*CacheEntry),
		now: time.Now,
	}, nil
}

// GetWithGrace returns the snapshot for providerID if it is younger than
// graceDays, otherwise nil.
func (c *Cache) GetWithGrace(providerID string, graceDays int) *CacheEntry {
	c.mu.RLock()
	entry, ok := c.mem[providerID]
	c.mu.RUnlock()

	if !ok {
		loaded, err := c.loadFromDisk(providerID)
		if err != nil || loaded == nil {
			return nil
		}
		c.mu.Lock()
		c.mem[providerID] = loaded
		c.mu.Unlock()
		entry = loaded
	}

	if !c.isWithinGrace(entry, graceDays) {
		return nil
	}
	return entry
}

// Set stores a cache entry for the given provider.
func (c *Cache) Set(entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mem[entry.ProviderID] = entry
	return c.saveToDisk(entry)
}

// Clear removes a specific provider from the cache.
func (c *Cache) Clear(providerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.mem, providerID)

	path := c.filePath(providerID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}

	return nil
}

func (c *Cache) isWithinGrace(entry *CacheEntry, graceDays int) bool {
	graceEnd := entry.FetchedAt.Add(time.Duration(graceDays) * 24 * time.Hour)
	return c.now().Before(graceEnd)
}

// filePath returns the file path for a provider's cache file.
func (c *Cache) filePath(providerID string) string {
	return filepath.Join(c.dir, unsafeFileChars.ReplaceAllString(providerID, "_")+".json")
}

func (c *Cache) loadFromDisk(providerID string) (*CacheEntry, error) {
	data, err := os.ReadFile(c.filePath(providerID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if entry.ProviderID != providerID {
		return nil, nil
	}

	return &entry, nil
}

func (c *Cache) saveToDisk(entry *CacheEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated snapshot.
	path := c.filePath(entry.ProviderID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	return nil
}
