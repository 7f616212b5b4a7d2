// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by mosaic
// binaries: the JSON logger a daemon writes to stderr, and the fatal
// error path main takes when run fails, possibly before that logger
// exists.
package process
