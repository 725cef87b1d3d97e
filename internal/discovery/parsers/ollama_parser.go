// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parsers

import "github.com/traylinx/modelsettings/internal/registry"

// OllamaParser parses Ollama's /api/tags response.
type OllamaParser struct {
	ProviderID string
}

func NewOllamaParser(providerID string) *OllamaParser {
	return &OllamaParser{ProviderID: providerID}
}

func (p *OllamaParser) Parse(content []byte) ([]*registry.ModelInfo, error) {
	return parseList(p.ProviderID, content, listShape{array: "models", idPath: "name"})
}
