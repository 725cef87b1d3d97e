// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Cache is the read path to the provider catalog.
type Cache interface {
	// Get returns the cached catalog, populating it on a miss.
	Get(ctx context.Context) (*Catalog, error)
	// Invalidate drops the cached catalog so the next Get refetches.
	Invalidate()
}

// defaultFetchTimeout bounds a shared fetch once it no longer follows any
// single caller's context.
const defaultFetchTimeout = 2 * time.Minute

// FetchFunc produces a fresh catalog. (*ModelRegistry).Fetch satisfies it.
type FetchFunc func(ctx context.Context) (*Catalog, error)

// CatalogCache holds one catalog for the whole process.
//
// Concurrent misses share a single fetch. The fetch runs detached from the
// caller that started it, so one caller giving up does not fail the others;
// each caller stops waiting when its own context ends. Each Invalidate bumps a
// generation counter; a fetch that started under an older generation still
// answers its callers but is not stored.
type CatalogCache struct {
	fetch        FetchFunc
	fetchTimeout time.Duration
	ttl          atomic.Int64

	mu         sync.RWMutex
	catalog    *Catalog
	storedAt   time.Time
	generation uint64

	group singleflight.Group
	now   func() time.Time
}

// NewCatalogCache creates a cache over fetch. A ttl of zero keeps the catalog
// until Invalidate is called.
func NewCatalogCache(fetch FetchFunc, ttl time.Duration) *CatalogCache {
	c := &CatalogCache{fetch: fetch, fetchTimeout: defaultFetchTimeout, now: time.Now}
	c.ttl.Store(int64(ttl))
	return c
}

// SetTTL changes the expiry applied to the stored catalog.
func (c *CatalogCache) SetTTL(ttl time.Duration) {
	c.ttl.Store(int64(ttl))
}

// Get returns the cached catalog or fetches a new one.
func (c *CatalogCache) Get(ctx context.Context) (*Catalog, error) {
	c.mu.RLock()
	cached, storedAt, gen := c.catalog, c.storedAt, c.generation
	c.mu.RUnlock()

	if cached != nil && !c.expired(storedAt) {
		return cached, nil
	}

	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		catalog, errFetch := c.fetch(fctx)
		if errFetch != nil {
			return nil, errFetch
		}
		c.store(gen, catalog)
		return catalog, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug("catalog fetch shared with concurrent caller")
		}
		return res.Val.(*Catalog), nil
	}
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.catalog = nil
	c.storedAt = time.Time{}
	c.generation++
	c.mu.Unlock()
	log.Info("catalog cache invalidated")
}

// peek returns the cached catalog without fetching, or nil.
func (c *CatalogCache) peek() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalog == nil || c.expired(c.storedAt) {
		return nil
	}
	return c.catalog
}

func (c *CatalogCache) store(gen uint64, catalog *Catalog) {
	// A catalog where every provider failed is served but not kept.
	if catalog == nil || (len(catalog.Models) == 0 && len(catalog.Errors) > 0) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.catalog = catalog
	c.storedAt = c.now()
}

func (c *CatalogCache) expired(storedAt time.Time) bool {
	ttl := time.Duration(c.ttl.Load())
	if ttl <= 0 {
		return false
	}
	return c.now().Sub(storedAt) >= ttl
}

// NoopCache fetches on every Get.
type NoopCache struct {
	Fetch FetchFunc
}

// Get always fetches a fresh catalog.
func (n NoopCache) Get(ctx context.Context) (*Catalog, error) {
	return n.Fetch(ctx)
}

// Invalidate does nothing.
func (NoopCache) Invalidate() {}
