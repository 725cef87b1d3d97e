// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package management

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/modelsettings/internal/logging"
	"github.com/traylinx/modelsettings/internal/modelsettings"
)

// UpdateModelRequest is the PATCH /models body.
type UpdateModelRequest struct {
	ModelID   string `json:"modelId"`
	ModelName string `json:"modelName"`
	Enabled   *bool  `json:"enabled"`
	IsDefault *bool  `json:"isDefault"`
}

// ListModels returns the full settings view.
// GET /models?projectId=
func (h *Handler) ListModels(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateModel sets the default or the enablement of a model.
// PATCH /models?projectId=
func (h *Handler) UpdateModel(c *gin.Context) {
	var req UpdateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	projectID := c.Query("projectId")
	name := strings.TrimSpace(req.ModelName)

	var err error
	switch {
	case req.IsDefault != nil && *req.IsDefault:
		err = h.svc.SetDefault(ctx, projectID, req.ModelID, name)
	case req.Enabled != nil:
		err = h.svc.SetEnabled(ctx, projectID, req.ModelID, *req.Enabled, name)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Request must set isDefault=true or enabled"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "modelId": strings.TrimSpace(req.ModelID)})
}

// DeleteModel removes a model's settings row.
// DELETE /models?projectId=&modelId=
func (h *Handler) DeleteModel(c *gin.Context) {
	projectID, modelID := strings.TrimSpace(c.Query("projectId")), strings.TrimSpace(c.Query("modelId"))
	if projectID == "" || modelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "projectId and modelId are required"})
		return
	}
	if err := h.svc.Delete(c.Request.Context(), projectID, modelID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ModelsAction runs a collection action.
// POST /models?action=refresh
func (h *Handler) ModelsAction(c *gin.Context) {
	switch action := c.Query("action"); action {
	case "refresh":
		h.svc.Refresh()
		logging.FromContext(c).Info("catalog refresh requested")
		c.JSON(http.StatusOK, gin.H{"success": true})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_action", "message": "Unknown action: " + action})
	}
}

// ResolveModels returns the selectable models for a project.
// GET /models/resolve?projectId=
func (h *Handler) ResolveModels(c *gin.Context) {
	models, err := h.svc.Resolve(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// DefaultModel returns the model used when a caller picks none.
// GET /models/default?projectId=
func (h *Handler) DefaultModel(c *gin.Context) {
	model, err := h.svc.DefaultModel(c.Request.Context(), c.Query("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": model})
}

// writeError maps domain errors to status codes. Anything unclassified is
// logged and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	var (
		verr *modelsettings.ValidationError
		nf   *modelsettings.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": verr.Error()})
	case errors.Is(err, modelsettings.ErrDefaultModelProtected):
		c.JSON(http.StatusBadRequest, gin.H{"error": "default_model_protected", "message": err.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": nf.Error()})
	default:
		logging.FromContext(c).WithError(err).Errorf("%s %s failed", c.Request.Method, c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Internal server error"})
	}
}
