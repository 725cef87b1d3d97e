// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modelsettings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/modelsettings/internal/store"
)

func TestReconciler_InsertsDisabledRowsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rec := NewReconciler(s)

	catalog := []CatalogEntry{{ID: "gpt-4o", Name: "GPT-4o"}, {ID: "gpt-4o-mini", Name: "GPT-4o mini"}, {ID: "gpt-4o"}}

	res, err := rec.SyncProject(ctx, testProject, catalog)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Inserted: 2}, res)

	rows, err := s.List(ctx, testProject)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.False(t, row.Enabled)
		assert.False(t, row.IsDefault)
		assert.True(t, row.HasName())
	}

	res, err = rec.SyncProject(ctx, testProject, catalog)
	require.NoError(t, err)
	assert.Zero(t, res.Writes())
}

func TestReconciler_NeverTouchesFlagsOrNames(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rec := NewReconciler(s)

	require.NoError(t, s.SetDefault(ctx, testProject, "gpt-4o", "My GPT"))
	require.NoError(t, s.SetEnabled(ctx, testProject, "old-model", true, ""))
	require.NoError(t, s.SetEnabled(ctx, testProject, "claude", false, ""))

	res, err := rec.SyncProject(ctx, testProject, []CatalogEntry{
		{ID: "gpt-4o", Name: "GPT-4o"},
		{ID: "old-model", Name: "Old Model"},
		{ID: "claude"},
	})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Backfilled: 1}, res)

	gpt, _ := s.Get(ctx, testProject, "gpt-4o")
	assert.Equal(t, "My GPT", gpt.ModelName)
	assert.True(t, gpt.IsDefault)
	assert.True(t, gpt.Enabled)

	old, _ := s.Get(ctx, testProject, "old-model")
	assert.Equal(t, "Old Model", old.ModelName)
	assert.True(t, old.Enabled)
	assert.False(t, old.IsDefault)

	claude, _ := s.Get(ctx, testProject, "claude")
	assert.False(t, claude.Enabled)
	assert.Empty(t, claude.ModelName)
}

type failingInsertStore struct {
	store.Store
	fail string
}

func (f *failingInsertStore) InsertIfAbsent(ctx context.Context, projectID, modelID, name string) (bool, error) {
	if modelID == f.fail {
		return false, &store.PersistenceError{Op: "insert if absent", Err: errors.New("constraint failed")}
	}
	return f.Store.InsertIfAbsent(ctx, projectID, modelID, name)
}

func TestReconciler_ContinuesPastEntryFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rec := NewReconciler(&failingInsertStore{Store: s, fail: "b"})

	res, err := rec.SyncProject(ctx, testProject, []CatalogEntry{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrPersistence)
	assert.Equal(t, 2, res.Inserted)
}

// blockingStore holds List until released so the worker stays busy.
type blockingStore struct {
	store.Store
	release chan struct{}
	once    sync.Once
	entered chan struct{}
}

func (b *blockingStore) List(ctx context.Context, projectID string) ([]*store.ModelSetting, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.Store.List(ctx, projectID)
}

func TestBackgroundReconciler_DrainsOnStop(t *testing.T) {
	s := newTestStore(t)
	bg := NewBackgroundReconciler(NewReconciler(s), 4, time.Second)

	assert.True(t, bg.Trigger(SyncJob{ProjectID: testProject, Catalog: []CatalogEntry{{ID: "gpt-4o", Name: "GPT-4o"}}}))
	bg.Stop()
	bg.Stop()

	row, err := s.Get(context.Background(), testProject, "gpt-4o")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.False(t, row.Enabled)

	assert.False(t, bg.Trigger(SyncJob{ProjectID: testProject}), "trigger after stop must be refused")
}

func TestBackgroundReconciler_DropsWhenFullAndCoalesces(t *testing.T) {
	s := newTestStore(t)
	bs := &blockingStore{Store: s, release: make(chan struct{}), entered: make(chan struct{})}
	bg := NewBackgroundReconciler(NewReconciler(bs), 1, time.Second)

	var mu sync.Mutex
	var done []string
	bg.onDone = func(job SyncJob, _ SyncResult, _ error) {
		mu.Lock()
		done = append(done, job.ProjectID)
		mu.Unlock()
	}

	require.True(t, bg.Trigger(SyncJob{ProjectID: "p-running"}))
	<-bs.entered // the worker is now busy with p-running

	assert.True(t, bg.Trigger(SyncJob{ProjectID: "p-queued"}))
	assert.True(t, bg.Trigger(SyncJob{ProjectID: "p-queued"}), "pending project is coalesced")
	assert.False(t, bg.Trigger(SyncJob{ProjectID: "p-dropped"}), "full queue drops the job")

	close(bs.release)
	bg.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"p-running", "p-queued"}, done)
}

func TestBackgroundReconciler_RetriggerKeepsNewestCatalog(t *testing.T) {
	s := newTestStore(t)
	bs := &blockingStore{Store: s, release: make(chan struct{}), entered: make(chan struct{})}
	bg := NewBackgroundReconciler(NewReconciler(bs), 4, time.Second)

	var mu sync.Mutex
	synced := map[string][]CatalogEntry{}
	bg.onDone = func(job SyncJob, _ SyncResult, _ error) {
		mu.Lock()
		synced[job.ProjectID] = job.Catalog
		mu.Unlock()
	}

	require.True(t, bg.Trigger(SyncJob{ProjectID: "p-running"}))
	<-bs.entered

	older := []CatalogEntry{{ID: "gpt-4o", Name: "GPT-4o"}}
	newer := []CatalogEntry{{ID: "gpt-4o", Name: "GPT-4o"}, {ID: "claude", Name: "Claude"}}
	require.True(t, bg.Trigger(SyncJob{ProjectID: testProject, Catalog: older}))
	require.True(t, bg.Trigger(SyncJob{ProjectID: testProject, Catalog: newer}))

	close(bs.release)
	bg.Stop()

	mu.Lock()
	assert.Equal(t, newer, synced[testProject])
	mu.Unlock()

	row, err := s.Get(context.Background(), testProject, "claude")
	require.NoError(t, err)
	require.NotNil(t, row, "the newer catalog was synced")
	assert.Equal(t, "Claude", row.ModelName)
}
