// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parsers

import "github.com/traylinx/modelsettings/internal/registry"

// OpenAIParser parses standard OpenAI-compatible /v1/models lists.
// The format carries no display name, so entries only have ids.
type OpenAIParser struct {
	ProviderID string
}

func NewOpenAIParser(providerID string) *OpenAIParser {
	return &OpenAIParser{ProviderID: providerID}
}

func (p *OpenAIParser) Parse(content []byte) ([]*registry.ModelInfo, error) {
	return parseList(p.ProviderID, content, listShape{array: "data", idPath: "id"})
}
