// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build of a mosaic binary.
//
// [Version], [GitCommit] and [BuildTime] are set with -ldflags -X at
// release time. When GitCommit was not injected, the VCS revision the
// Go toolchain recorded in the binary is used instead.
package version
