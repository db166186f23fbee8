/*
 * Copyright 2026 AuroraCast Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command auroracast runs the streaming-host registry daemon: it keeps the
// known-host database current by polling every host and browsing the local
// network for new ones.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/auroracast/auroracast/pkg/config"
	"github.com/auroracast/auroracast/pkg/discovery"
	"github.com/auroracast/auroracast/pkg/hosts"
	"github.com/auroracast/auroracast/pkg/logger"
	"github.com/auroracast/auroracast/pkg/serverinfo"
	"github.com/auroracast/auroracast/pkg/storage"
)

type appConfig struct {
	DatabasePath string            `json:"database_path"`
	Hosts        hosts.Config      `json:"hosts"`
	Discovery    discovery.Config  `json:"discovery"`
	ServerInfo   serverinfo.Config `json:"serverinfo"`
	Logging      *logger.Config    `json:"logging,omitempty"`
}

var errDatabasePathRequired = errors.New("database_path is required")

func (c *appConfig) Validate() error {
	if c.DatabasePath == "" {
		return errDatabasePathRequired
	}

	if err := c.Hosts.Validate(); err != nil {
		return err
	}

	if err := c.Discovery.Validate(); err != nil {
		return err
	}

	return c.ServerInfo.Validate()
}

func main() {
	configPath := flag.String("config", "/etc/auroracast/auroracast.json", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cfg appConfig

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, configPath, &cfg); err != nil {
		return err
	}

	appLogger, err := logger.NewComponentLogger("auroracast", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	componentLogger := func(component string) (logger.Logger, error) {
		return logger.NewComponentLogger(component, cfg.Logging)
	}

	storageLogger, err := componentLogger("storage")
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.DatabasePath, storageLogger)
	if err != nil {
		return err
	}

	clientUID, err := loadOrCreateClientUID(cfg.DatabasePath)
	if err != nil {
		_ = store.Close()
		return err
	}

	serverinfoLogger, err := componentLogger("serverinfo")
	if err != nil {
		_ = store.Close()
		return err
	}

	discoveryLogger, err := componentLogger("discovery")
	if err != nil {
		_ = store.Close()
		return err
	}

	hostsLogger, err := componentLogger("hosts")
	if err != nil {
		_ = store.Close()
		return err
	}

	client := serverinfo.NewClient(&cfg.ServerInfo, clientUID, serverinfoLogger)
	listener := discovery.NewListener(&cfg.Discovery, discoveryLogger)

	manager, err := hosts.NewManager(&cfg.Hosts, client, store, listener, nil, hostsLogger)
	if err != nil {
		_ = store.Close()
		return err
	}

	manager.OnHostStateChanged(func(h *hosts.Host) {
		appLogger.Info().
			Str("name", h.Name()).
			Str("state", h.State().String()).
			Msg("Host state changed")
	})

	if err := manager.StartPolling(ctx); err != nil {
		_ = manager.Close()
		return err
	}

	appLogger.Info().Str("config", configPath).Msg("auroracast started")

	<-ctx.Done()

	appLogger.Info().Msg("Shutting down")

	return manager.Close()
}

// loadOrCreateClientUID returns the stable identity this installation
// presents to hosts, creating and persisting one on first run. It lives
// next to the host database.
func loadOrCreateClientUID(dbPath string) (string, error) {
	path := filepath.Join(filepath.Dir(dbPath), "client_uid")

	data, err := os.ReadFile(path)
	if err == nil {
		uid := strings.TrimSpace(string(data))
		if uid != "" {
			return uid, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read client uid: %w", err)
	}

	uid := uuid.NewString()

	if err := os.WriteFile(path, []byte(uid+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist client uid: %w", err)
	}

	return uid, nil
}
