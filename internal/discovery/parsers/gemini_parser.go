// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parsers

import "github.com/traylinx/modelsettings/internal/registry"

// GeminiParser parses the Generative Language API models.list response.
// Model names arrive as "models/gemini-2.5-pro"; the prefix is dropped so ids
// match what callers send to generateContent.
type GeminiParser struct {
	ProviderID string
}

// NewGeminiParser creates a new Gemini parser.
func NewGeminiParser(providerID string) *GeminiParser {
	return &GeminiParser{ProviderID: providerID}
}

func (p *GeminiParser) Parse(content []byte) ([]*registry.ModelInfo, error) {
	return parseList(p.ProviderID, content, listShape{
		array:    "models",
		idPath:   "name",
		namePath: "displayName",
		idPrefix: "models/",
	})
}
