// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api wires the gin engine that exposes the model settings endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/api/handlers/management"
	"github.com/traylinx/modelsettings/internal/config"
	"github.com/traylinx/modelsettings/internal/logging"
	"github.com/traylinx/modelsettings/internal/modelsettings"
)

// ServerOption customizes a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	middleware        []gin.HandlerFunc
	readHeaderTimeout time.Duration
}

// WithMiddleware appends middleware ahead of every route.
func WithMiddleware(mw ...gin.HandlerFunc) ServerOption {
	return func(o *serverOptions) {
		o.middleware = append(o.middleware, mw...)
	}
}

// WithReadHeaderTimeout overrides the default 10s header read timeout.
func WithReadHeaderTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.readHeaderTimeout = d
	}
}

// Server owns the gin engine and the HTTP listener.
type Server struct {
	engine  *gin.Engine
	server  *http.Server
	handler *management.Handler
}

// NewServer builds the engine and registers the routes.
func NewServer(cfg *config.Config, svc *modelsettings.Service, opts ...ServerOption) *Server {
	o := serverOptions{readHeaderTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), logging.RequestLogger())
	engine.Use(o.middleware...)

	s := &Server{
		engine:  engine,
		handler: management.NewHandler(cfg, svc),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           engine,
		ReadHeaderTimeout: o.readHeaderTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handler.Healthz)

	models := s.engine.Group("/models", s.handler.Middleware())
	{
		models.GET("", s.handler.ListModels)
		models.PATCH("", s.handler.UpdateModel)
		models.DELETE("", s.handler.DeleteModel)
		models.POST("", s.handler.ModelsAction)
		models.GET("/resolve", s.handler.ResolveModels)
		models.GET("/default", s.handler.DefaultModel)
	}
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// UpdateConfig applies a reloaded configuration to the running handlers.
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.handler.SetConfig(cfg)
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	log.Infof("API server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}
