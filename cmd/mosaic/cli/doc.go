// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command tree of the mosaic CLI.
//
// A [Command] either runs or dispatches to subcommands by name. Flags
// are pflag sets built lazily per command; unknown commands and flags
// get an edit-distance suggestion. Commands that already printed their
// result and only need a non-zero status return an [ExitError].
package cli
