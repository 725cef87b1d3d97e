// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/modelsettings/internal/logging"
)

func TestLogFormatter_Format(t *testing.T) {
	f := &logging.LogFormatter{}
	entry := &log.Entry{
		Logger:  log.StandardLogger(),
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "default model changed\n",
		Data: log.Fields{
			logging.RequestIDKey: "abcd1234",
			"project":            "p1",
			"model":              "gpt-4o",
		},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.True(t, strings.HasPrefix(line, "[2026-01-02 03:04:05] [abcd1234] [warn ] default model changed |"), line)
	// Fields are sorted and the request id is not repeated.
	assert.Contains(t, line, "| model=gpt-4o, project=p1\n")
	assert.Equal(t, 1, strings.Count(line, "abcd1234"))
}

func TestLogFormatter_NoRequestID(t *testing.T) {
	f := &logging.LogFormatter{}
	out, err := f.Format(&log.Entry{Logger: log.StandardLogger(), Time: time.Now(), Level: log.InfoLevel, Message: "hello", Data: log.Fields{}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "[--------] [info ] hello\n")
}

func TestRequestLogger_AssignsAndEchoesID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(logging.RequestLogger())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(logging.RequestIDKey)
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, seen, 8)
	assert.Equal(t, seen, w.Header().Get(logging.RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(logging.RequestIDHeader, "caller-id")
	r.ServeHTTP(w, req)
	assert.Equal(t, "caller-id", w.Header().Get(logging.RequestIDHeader))
}

func TestConfigureLogOutput_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, logging.ConfigureLogOutput(true, dir, 1, 1))
	t.Cleanup(func() {
		_ = logging.ConfigureLogOutput(false, "", 0, 0)
	})

	log.Info("written to file")

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
