// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package parsers turns provider model-list responses into catalog entries.
package parsers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/traylinx/modelsettings/internal/registry"
)

// ErrInvalidJSON is returned when a model list body is not valid JSON.
var ErrInvalidJSON = errors.New("model list is not valid JSON")

// listShape describes where a provider keeps its model array and the
// id / display name inside each element.
type listShape struct {
	array    string
	idPath   string
	namePath string
	// idPrefix is stripped from ids (Gemini reports "models/<id>").
	idPrefix string
}

func parseList(provider string, content []byte, shape listShape) ([]*registry.ModelInfo, error) {
	if !gjson.ValidBytes(content) {
		return nil, fmt.Errorf("%s: %w", provider, ErrInvalidJSON)
	}
	list := gjson.GetBytes(content, shape.array)
	if !list.IsArray() {
		return nil, fmt.Errorf("%s: model list has no %q array", provider, shape.array)
	}

	models := make([]*registry.ModelInfo, 0, len(list.Array()))
	seen := make(map[string]struct{})
	list.ForEach(func(_, item gjson.Result) bool {
		id := strings.TrimSpace(item.Get(shape.idPath).String())
		if shape.idPrefix != "" {
			id = strings.TrimPrefix(id, shape.idPrefix)
		}
		if id == "" {
			return true
		}
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}

		var name string
		if shape.namePath != "" {
			name = strings.TrimSpace(item.Get(shape.namePath).String())
		}
		models = append(models, &registry.ModelInfo{ID: id, DisplayName: name, Provider: provider})
		return true
	})
	return models, nil
}
