// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store persists per-project model settings and the project directory.
//
// The store enforces the default-model invariants itself: SetDefault swaps
// atomically, and SetEnabled and Delete refuse to disable or remove the
// current default within the same statement that would change it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPersistence marks every failure reported by the backing database.
var ErrPersistence = errors.New("persistence failure")

// ErrIsDefault is returned when SetEnabled(false) or Delete targets the
// project's current default. Nothing is written.
var ErrIsDefault = errors.New("model is the project default")

// PersistenceError wraps a database failure with the operation that hit it.
// It matches both ErrPersistence and the underlying driver error under errors.Is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// ModelSetting is one row of model_settings.
type ModelSetting struct {
	ProjectID string    `json:"projectId"`
	ModelID   string    `json:"modelId"`
	ModelName string    `json:"modelName,omitempty"`
	Enabled   bool      `json:"enabled"`
	IsDefault bool      `json:"isDefault"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasName reports whether the row carries a display name.
func (m *ModelSetting) HasName() bool {
	return m != nil && m.ModelName != ""
}

// Store is the persistence contract for model settings.
type Store interface {
	// List returns every row of the project, unordered.
	List(ctx context.Context, projectID string) ([]*ModelSetting, error)
	// Get returns the row or nil when absent.
	Get(ctx context.Context, projectID, modelID string) (*ModelSetting, error)
	// GetDefault returns the enabled default row or nil.
	GetDefault(ctx context.Context, projectID string) (*ModelSetting, error)
	ListEnabledIDs(ctx context.Context, projectID string) ([]string, error)
	ListDisabledIDs(ctx context.Context, projectID string) ([]string, error)

	// SetEnabled upserts enablement. A new row is never the default, and an
	// existing non-empty name is kept. Disabling the default returns
	// ErrIsDefault.
	SetEnabled(ctx context.Context, projectID, modelID string, enabled bool, name string) error
	// SetDefault clears the current default and marks modelID as the enabled
	// default in one transaction.
	SetDefault(ctx context.Context, projectID, modelID, name string) error
	// Delete removes the row if present. Deleting the default returns
	// ErrIsDefault.
	Delete(ctx context.Context, projectID, modelID string) error

	// InsertIfAbsent inserts a disabled, non-default row and reports whether
	// one was written.
	InsertIfAbsent(ctx context.Context, projectID, modelID, name string) (bool, error)
	// BackfillName sets the name only where it is empty and reports whether
	// a row changed.
	BackfillName(ctx context.Context, projectID, modelID, name string) (bool, error)

	ProjectExists(ctx context.Context, projectID string) (bool, error)
	UpsertProject(ctx context.Context, projectID, name string) error

	Ping(ctx context.Context) error
	Close() error
}
