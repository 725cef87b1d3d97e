// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modelsettings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/registry"
	"github.com/traylinx/modelsettings/internal/store"
)

// CatalogEntry is the part of a catalog model the reconciler writes back.
type CatalogEntry struct {
	ID   string
	Name string
}

// EntriesFromCatalog projects a catalog into reconciler input.
func EntriesFromCatalog(catalog *registry.Catalog) []CatalogEntry {
	if catalog == nil {
		return nil
	}
	out := make([]CatalogEntry, 0, len(catalog.Models))
	for _, m := range catalog.Models {
		out = append(out, CatalogEntry{ID: m.ID, Name: m.DisplayName})
	}
	return out
}

// SyncResult counts the writes one reconciliation performed.
type SyncResult struct {
	Inserted   int
	Backfilled int
}

// Writes returns the total number of rows written.
func (r SyncResult) Writes() int { return r.Inserted + r.Backfilled }

// Reconciler merges catalog snapshots into the settings table. It only adds
// rows and fills empty names; enabled and default flags are never touched.
type Reconciler struct {
	store store.Store
}

// NewReconciler creates a reconciler over s.
func NewReconciler(s store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// Sync reconciles catalog against rows, the project's current settings.
// Per-entry failures do not stop the remaining entries; they are joined into
// the returned error.
func (r *Reconciler) Sync(ctx context.Context, projectID string, catalog []CatalogEntry, rows []*store.ModelSetting) (SyncResult, error) {
	existing := make(map[string]*store.ModelSetting, len(rows))
	for _, row := range rows {
		existing[row.ModelID] = row
	}

	var (
		res  SyncResult
		errs []error
	)
	for _, entry := range catalog {
		if entry.ID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		row, ok := existing[entry.ID]
		if ok {
			if row.HasName() || entry.Name == "" {
				continue
			}
			changed, err := r.store.BackfillName(ctx, projectID, entry.ID, entry.Name)
			if err != nil {
				errs = append(errs, fmt.Errorf("backfill %s: %w", entry.ID, err))
				continue
			}
			if changed {
				res.Backfilled++
			}
			continue
		}

		wrote, err := r.store.InsertIfAbsent(ctx, projectID, entry.ID, entry.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("insert %s: %w", entry.ID, err))
			continue
		}
		if wrote {
			res.Inserted++
		}
		// A duplicate catalog id must not insert twice.
		existing[entry.ID] = &store.ModelSetting{ProjectID: projectID, ModelID: entry.ID, ModelName: entry.Name}
	}
	return res, errors.Join(errs...)
}

// SyncProject reads the project's rows and reconciles catalog against them.
func (r *Reconciler) SyncProject(ctx context.Context, projectID string, catalog []CatalogEntry) (SyncResult, error) {
	rows, err := r.store.List(ctx, projectID)
	if err != nil {
		return SyncResult{}, err
	}
	return r.Sync(ctx, projectID, catalog, rows)
}

// SyncJob is one queued reconciliation.
type SyncJob struct {
	ProjectID string
	Catalog   []CatalogEntry
}

// SyncTrigger schedules a reconciliation without waiting for it.
type SyncTrigger interface {
	Trigger(job SyncJob) bool
}

// BackgroundReconciler runs reconciliation jobs on a detached worker.
//
// Project ids are queued on a bounded channel while the job itself waits in
// pending. A job for a project that is already pending replaces the queued
// one, so the worker always syncs the newest catalog it was handed. When the
// queue is full the job is dropped; the next catalog fallback for that
// project schedules another one. Failures go to an internal error channel
// that is only logged.
type BackgroundReconciler struct {
	rec     *Reconciler
	timeout time.Duration

	queue chan string
	errs  chan error

	mu      sync.Mutex
	closed  bool
	pending map[string]SyncJob

	workerDone chan struct{}
	loggerDone chan struct{}

	// onDone observes every finished job. Tests use it to wait for work.
	onDone func(SyncJob, SyncResult, error)
}

// NewBackgroundReconciler starts the worker. queueSize and timeout fall back
// to 64 jobs and 30 seconds when non-positive.
func NewBackgroundReconciler(rec *Reconciler, queueSize int, timeout time.Duration) *BackgroundReconciler {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	b := &BackgroundReconciler{
		rec:        rec,
		timeout:    timeout,
		queue:      make(chan string, queueSize),
		errs:       make(chan error, queueSize),
		pending:    make(map[string]SyncJob),
		workerDone: make(chan struct{}),
		loggerDone: make(chan struct{}),
	}
	go b.logErrors()
	go b.run()
	return b
}

// Trigger queues job and returns false when it was dropped.
func (b *BackgroundReconciler) Trigger(job SyncJob) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	if _, dup := b.pending[job.ProjectID]; dup {
		b.pending[job.ProjectID] = job
		return true
	}
	select {
	case b.queue <- job.ProjectID:
		b.pending[job.ProjectID] = job
		return true
	default:
		log.WithField("project", job.ProjectID).Warn("reconciliation queue full, dropping job")
		return false
	}
}

// Stop refuses new jobs, finishes the queued ones and waits for the worker.
func (b *BackgroundReconciler) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	<-b.workerDone
	close(b.errs)
	<-b.loggerDone
}

func (b *BackgroundReconciler) run() {
	defer close(b.workerDone)
	for projectID := range b.queue {
		b.mu.Lock()
		job := b.pending[projectID]
		delete(b.pending, projectID)
		b.mu.Unlock()

		res, err := b.runJob(job)
		if err != nil {
			b.errs <- fmt.Errorf("reconcile project %s: %w", job.ProjectID, err)
		} else if res.Writes() > 0 {
			log.WithFields(log.Fields{
				"project":    job.ProjectID,
				"inserted":   res.Inserted,
				"backfilled": res.Backfilled,
			}).Info("model settings reconciled")
		}
		if b.onDone != nil {
			b.onDone(job, res, err)
		}
	}
}

func (b *BackgroundReconciler) runJob(job SyncJob) (res SyncResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	// The job outlives the request that triggered it.
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return b.rec.SyncProject(ctx, job.ProjectID, job.Catalog)
}

func (b *BackgroundReconciler) logErrors() {
	defer close(b.loggerDone)
	for err := range b.errs {
		log.WithError(err).Warn("background reconciliation failed")
	}
}
