// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modelsettings

import (
	"errors"
	"fmt"
)

// ErrDefaultModelProtected is matched by every attempt to disable or delete
// the project's default model.
var ErrDefaultModelProtected = errors.New("default model protected")

// ValidationError reports a missing or malformed request identifier.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// NotFoundError reports an unknown project.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Protected actions.
const (
	ActionDisable = "disable"
	ActionDelete  = "delete"
)

// DefaultModelProtectedError carries the user-facing message for a refused
// disable or delete.
type DefaultModelProtectedError struct {
	ModelID string
	Action  string
}

func (e *DefaultModelProtectedError) Error() string {
	switch e.Action {
	case ActionDelete:
		return "Cannot delete settings for the default model. Set a different default model first."
	default:
		return "Cannot disable the default model. Set a different default model first."
	}
}

func (e *DefaultModelProtectedError) Is(target error) bool {
	return target == ErrDefaultModelProtected
}

func requireID(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field}
	}
	return nil
}
