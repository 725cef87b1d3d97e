// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modelsettings

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/traylinx/modelsettings/internal/constant"
	"github.com/traylinx/modelsettings/internal/registry"
	"github.com/traylinx/modelsettings/internal/store"
)

const testProject = "proj-1"

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.Open(context.Background(), constant.DriverSQLite, filepath.Join(t.TempDir(), "settings.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.UpsertProject(context.Background(), testProject, "Checkout"))
	return s
}

// fakeCatalog serves a fixed catalog and counts fetches.
type fakeCatalog struct {
	catalog *registry.Catalog
	err     error
	fetches atomic.Int32
}

func newFakeCatalog(models ...*registry.ModelInfo) *fakeCatalog {
	return &fakeCatalog{catalog: &registry.Catalog{Models: models}}
}

func (f *fakeCatalog) fetch(ctx context.Context) (*registry.Catalog, error) {
	f.fetches.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

func (f *fakeCatalog) cache() registry.Cache {
	return registry.NoopCache{Fetch: f.fetch}
}

// recordingTrigger runs jobs synchronously so tests can inspect the result.
type recordingTrigger struct {
	rec  *Reconciler
	jobs []SyncJob
}

func (r *recordingTrigger) Trigger(job SyncJob) bool {
	r.jobs = append(r.jobs, job)
	if r.rec != nil {
		_, _ = r.rec.SyncProject(context.Background(), job.ProjectID, job.Catalog)
	}
	return true
}

func names(models []ResolvedModel) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.Name)
	}
	return out
}
