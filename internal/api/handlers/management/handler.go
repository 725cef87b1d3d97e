// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package management provides the HTTP handlers for per-project model settings.
package management

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/config"
	"github.com/traylinx/modelsettings/internal/logging"
	"github.com/traylinx/modelsettings/internal/modelsettings"
)

// Handler serves the /models endpoints.
type Handler struct {
	cfg atomic.Pointer[config.Config]
	svc *modelsettings.Service
}

// NewHandler creates a handler over svc.
func NewHandler(cfg *config.Config, svc *modelsettings.Service) *Handler {
	h := &Handler{svc: svc}
	h.SetConfig(cfg)
	return h
}

// SetConfig swaps the configuration used by the key check.
func (h *Handler) SetConfig(cfg *config.Config) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	h.cfg.Store(cfg)
}

// Middleware enforces the management key when one is configured. The key is
// read from "Authorization: Bearer <key>" or the X-Management-Key header.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := h.cfg.Load()
		if cfg.RemoteManagement.SecretKey == "" {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader("X-Management-Key"))
		if key == "" {
			if auth := c.GetHeader("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
				key = strings.TrimSpace(auth[7:])
			}
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Missing management key"})
			return
		}
		if !cfg.VerifyManagementKey(key) {
			logging.FromContext(c).WithField("remote", c.ClientIP()).Warn("rejected request with invalid management key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid management key"})
			return
		}
		c.Next()
	}
}

// Healthz reports whether the settings store is reachable.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		log.WithError(err).Error("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
