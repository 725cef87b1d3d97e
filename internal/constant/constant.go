// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package constant defines provider format and driver identifiers used throughout the
// model settings service, ensuring consistent naming across configuration, discovery
// and storage.
package constant

const (
	// OpenAI identifies the OpenAI-compatible models list format (data[].id).
	OpenAI = "openai"

	// Claude identifies the Anthropic models list format (data[].id, data[].display_name).
	Claude = "claude"

	// Gemini identifies the Google Generative Language models list format (models[].name).
	Gemini = "gemini"

	// Ollama identifies the Ollama /api/tags format (models[].name).
	Ollama = "ollama"

	// Static identifies a provider whose models are declared inline in the config file.
	Static = "static"

	// DriverSQLite is the database/sql driver name registered by mattn/go-sqlite3.
	DriverSQLite = "sqlite3"

	// DriverPostgres is the database/sql driver name registered by pgx/v5/stdlib.
	DriverPostgres = "pgx"

	// ModelSettingsTable is the relation holding per-project model settings rows.
	ModelSettingsTable = "model_settings"

	// ProjectsTable is the relation backing the project directory.
	ProjectsTable = "projects"
)
