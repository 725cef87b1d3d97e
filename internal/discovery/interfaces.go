// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package discovery builds the catalog sources the registry reads from:
// static lists declared in config and HTTP model-list endpoints.
package discovery

import (
	"context"

	"github.com/traylinx/modelsettings/internal/registry"
)

// Fetcher is the interface for retrieving raw content from a remote source (URL).
type Fetcher interface {
	// Fetch retrieves the content from the given URL.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Parser is the interface for parsing raw content into model definitions.
type Parser interface {
	// Parse extracts model definitions from the given raw content.
	Parse(content []byte) ([]*registry.ModelInfo, error)
}
