// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/mosaic/lib/config"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/process"
	"github.com/bureau-foundation/mosaic/lib/version"
	"github.com/bureau-foundation/mosaic/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to mosaic.yaml (default: $"+config.EnvironmentVariable+")")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("mosaic-node %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger := process.NewLogger(os.Stderr, level)

	if err := cfg.EnsureRoot(); err != nil {
		return err
	}
	identity, err := peer.ReadIdentityFile(cfg.Node.IdentityFile, cfg.Node.AgeKeyFile)
	if err != nil {
		return err
	}
	defer identity.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := newNode(ctx, cfg, identity, logger)
	if err != nil {
		return err
	}
	defer n.Close()

	listener, err := transport.NewTCPListener(cfg.Node.Listen)
	if err != nil {
		return err
	}

	logger.Info("mosaic node running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"peer", n.self.Short(),
		"public_key", identity.Peer().String(),
		"listen", listener.Address(),
		"static_peers", len(cfg.Peers),
	)
	err = n.Run(ctx, listener)
	logger.Info("shutting down")
	return err
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
