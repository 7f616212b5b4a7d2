// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration of a mosaic node.
//
// The file is named by the MOSAIC_CONFIG environment variable ([Load])
// or passed explicitly ([LoadFile], behind the --config flag). There
// is no discovery and no per-value environment override.
//
// A file may carry development and production sections that override
// base values when [Config].Environment matches. Production without a
// section of its own defaults to warn-level logging.
//
// ${HOME}, ${MOSAIC_ROOT} and ${VAR:-default} are expanded in path
// fields after loading.
package config
