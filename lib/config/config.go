// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment is the deployment type.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "MOSAIC_CONFIG"

// Config is a node's configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Node      NodeConfig      `yaml:"node"`
	Transport TransportConfig `yaml:"transport"`
	Audit     AuditConfig     `yaml:"audit"`
	Peers     []PeerConfig    `yaml:"peers"`
	Log       LogConfig       `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the per-environment sections. Empty fields leave the
// base value alone.
type Overrides struct {
	Node      *NodeConfig      `yaml:"node,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Audit     *AuditConfig     `yaml:"audit,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// NodeConfig describes the local node.
type NodeConfig struct {
	// Root is the node's data directory; ${MOSAIC_ROOT} expands to it.
	Root string `yaml:"root"`

	// Listen is the TCP address parcels are received on.
	Listen string `yaml:"listen"`

	// Advertise is the address peers should dial to reach this node.
	// When set, the node announces it to every static peer at startup.
	Advertise string `yaml:"advertise"`

	// IdentityFile holds the node's age-sealed Ed25519 seed.
	IdentityFile string `yaml:"identity_file"`

	// AgeKeyFile holds the age identity that opens IdentityFile.
	AgeKeyFile string `yaml:"age_key_file"`
}

// TransportConfig tunes outgoing bundles.
type TransportConfig struct {
	// SizeLimit bounds the capsule bytes of one bundle; 0 is
	// unlimited.
	SizeLimit int `yaml:"size_limit"`

	// Compression is "zstd", "lz4" or "none".
	Compression string `yaml:"compression"`

	// Backoff is how long a failed route rests, as a Go duration.
	Backoff string `yaml:"backoff"`
}

// AuditConfig selects the audit log. An empty Path keeps it in memory.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// PeerConfig is a statically known peer.
type PeerConfig struct {
	// PublicKey is the hex-encoded Ed25519 public key.
	PublicKey string `yaml:"public_key"`
	Address   string `yaml:"address"`
}

// LogConfig configures the node's slog output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the base configuration the file is merged into.
func Default() *Config {
	return &Config{
		Environment: Development,
		Node: NodeConfig{
			Root:         filepath.Join("${HOME}", ".local", "share", "mosaic"),
			Listen:       ":7420",
			IdentityFile: filepath.Join("${MOSAIC_ROOT}", "identity.age"),
			AgeKeyFile:   filepath.Join("${MOSAIC_ROOT}", "age.key"),
		},
		Transport: TransportConfig{
			SizeLimit:   4 * 1024 * 1024,
			Compression: "zstd",
			Backoff:     "5s",
		},
		Audit: AuditConfig{
			Path: filepath.Join("${MOSAIC_ROOT}", "audit.db"),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load loads the file named by MOSAIC_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your mosaic.yaml or pass --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads path over Default, applies the matching environment
// section and expands path variables.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{Log: &LogConfig{Level: "warn"}}
		}
	}
	if overrides == nil {
		return
	}

	if o := overrides.Node; o != nil {
		override(&c.Node.Root, o.Root)
		override(&c.Node.Listen, o.Listen)
		override(&c.Node.Advertise, o.Advertise)
		override(&c.Node.IdentityFile, o.IdentityFile)
		override(&c.Node.AgeKeyFile, o.AgeKeyFile)
	}
	if o := overrides.Transport; o != nil {
		if o.SizeLimit != 0 {
			c.Transport.SizeLimit = o.SizeLimit
		}
		override(&c.Transport.Compression, o.Compression)
		override(&c.Transport.Backoff, o.Backoff)
	}
	if o := overrides.Audit; o != nil {
		override(&c.Audit.Path, o.Path)
	}
	if o := overrides.Log; o != nil {
		override(&c.Log.Level, o.Level)
	}
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Node.Root = expandVars(c.Node.Root, vars)
	vars["MOSAIC_ROOT"] = c.Node.Root

	c.Node.IdentityFile = expandVars(c.Node.IdentityFile, vars)
	c.Node.AgeKeyFile = expandVars(c.Node.AgeKeyFile, vars)
	c.Audit.Path = expandVars(c.Audit.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value := vars[name]; value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

var compressions = []string{"zstd", "lz4", "none"}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.Node.Listen == "" {
		errs = append(errs, errors.New("node.listen is required"))
	}
	if c.Node.IdentityFile == "" {
		errs = append(errs, errors.New("node.identity_file is required"))
	}
	if c.Transport.SizeLimit < 0 {
		errs = append(errs, fmt.Errorf("transport.size_limit must not be negative, got %d", c.Transport.SizeLimit))
	}
	if !slices.Contains(compressions, c.Transport.Compression) {
		errs = append(errs, fmt.Errorf("transport.compression must be one of %v, got %q", compressions, c.Transport.Compression))
	}
	if _, err := time.ParseDuration(c.Transport.Backoff); err != nil {
		errs = append(errs, fmt.Errorf("transport.backoff: %w", err))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	for i, p := range c.Peers {
		key, err := hex.DecodeString(p.PublicKey)
		if err != nil || len(key) != 32 {
			errs = append(errs, fmt.Errorf("peers[%d].public_key must be 64 hex characters", i))
		}
		if p.Address == "" {
			errs = append(errs, fmt.Errorf("peers[%d].address is required", i))
		}
	}
	return errors.Join(errs...)
}

// BackoffDuration returns Transport.Backoff parsed.
func (c *Config) BackoffDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Transport.Backoff)
	if err != nil {
		return 0, fmt.Errorf("transport.backoff: %w", err)
	}
	return d, nil
}

// LogLevel returns Log.Level as a slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsureRoot creates the node's data directory.
func (c *Config) EnsureRoot() error {
	if c.Node.Root == "" {
		return nil
	}
	if err := os.MkdirAll(c.Node.Root, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Node.Root, err)
	}
	return nil
}
