// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHideAPIKey(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"sk-1234567890abcdef", "sk-1...cdef"},
		{"abcdef", "ab...ef"},
		{"abc", "a...c"},
		{"ab", "ab"},
		{"", ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, HideAPIKey(tc.in), tc.in)
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	assert.Equal(t, "", MaskSensitiveQuery(""))
	assert.Equal(t, "page=2&pageSize=50", MaskSensitiveQuery("page=2&pageSize=50"))
	assert.Equal(t, "key=AIza...WXYZ&pageSize=50", MaskSensitiveQuery("key=AIzaSyABCDWXYZ&pageSize=50"))
	assert.Equal(t, "access_token=ab...ef", MaskSensitiveQuery("access_token=abcdef"))
}

func TestMaskURL(t *testing.T) {
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models?key=AIza...WXYZ",
		MaskURL("https://generativelanguage.googleapis.com/v1beta/models?key=AIzaSyABCDWXYZ"))
	assert.Equal(t,
		"postgres://app:xxxxx@db:5432/settings?sslmode=disable",
		MaskURL("postgres://app:hunter2@db:5432/settings?sslmode=disable"))
	assert.Equal(t, "http://localhost:11434/api/tags", MaskURL("http://localhost:11434/api/tags"))
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "modelsettings.db", MaskDSN("modelsettings.db"))
	assert.Equal(t, "file:settings.db?cache=shared", MaskDSN("file:settings.db?cache=shared"))
	assert.Equal(t, "host=db user=app password=xxxxx dbname=settings", MaskDSN("host=db user=app password=hunter2 dbname=settings"))
	assert.Equal(t, "postgres://app:xxxxx@db/settings", MaskDSN("postgres://app:hunter2@db/settings"))
}
