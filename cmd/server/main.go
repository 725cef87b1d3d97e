// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the model settings server.
// The server keeps per-project model settings consistent with the provider
// catalog and exposes them over the /models management API.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelsettings/internal/buildinfo"
	"github.com/traylinx/modelsettings/internal/cmd"
	"github.com/traylinx/modelsettings/internal/config"
	"github.com/traylinx/modelsettings/internal/logging"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// main parses flags, loads configuration and runs the server until it is
// signalled.
func main() {
	fmt.Printf("modelsettings Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var configPath string
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil && !os.IsNotExist(errLoad) {
		log.WithError(errLoad).Warn("failed to load .env file")
	}

	if configPath == "" {
		configPath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return
	}
	cfg.ApplyEnv(os.LookupEnv)

	logging.SetDebug(cfg.Debug)
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir, cfg.LogMaxSizeMB, cfg.LogMaxBackups); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return
	}
	defer logging.CloseLogOutputs()

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.RemoteManagement.SecretKey == "" {
		log.Warn("remote-management.secret-key is empty, the /models API is unauthenticated")
	}

	cmd.StartService(cfg, configPath)
}
