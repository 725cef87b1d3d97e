// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cmd assembles the model settings service from configuration and
// runs it until the process is signalled.
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/config"
)

// StartService builds the service, sets up signal handling for graceful
// shutdown and blocks until SIGINT or SIGTERM.
//
// Parameters:
//   - cfg: The application configuration
//   - configPath: The path to the configuration file, watched for changes
func StartService(cfg *config.Config, configPath string) {
	ctxSignal, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	service, err := NewService(ctxSignal, cfg, configPath)
	if err != nil {
		log.Errorf("failed to build model settings service: %v", err)
		return
	}

	if err = service.Run(ctxSignal); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("model settings service exited with error: %v", err)
	}
}
