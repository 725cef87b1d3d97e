// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package parsers

import "github.com/traylinx/modelsettings/internal/registry"

// ClaudeParser parses the Anthropic /v1/models response:
//
//	{"data":[{"type":"model","id":"claude-sonnet-4-5","display_name":"Claude Sonnet 4.5"}]}
type ClaudeParser struct {
	ProviderID string
}

// NewClaudeParser creates a new Claude parser.
func NewClaudeParser(providerID string) *ClaudeParser {
	return &ClaudeParser{ProviderID: providerID}
}

// Parse extracts ids and display names.
func (p *ClaudeParser) Parse(content []byte) ([]*registry.ModelInfo, error) {
	return parseList(p.ProviderID, content, listShape{array: "data", idPath: "id", namePath: "display_name"})
}
