// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases for mosaic components that
// keep local records, such as the SQLite audit log.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers [Pool.Take]
// a connection, use it from one goroutine, and [Pool.Put] it back, or
// use [Pool.Do] and [Pool.Write] which handle the borrowing.
//
// Every connection gets the same pragmas: WAL journaling so readers
// never block the writer, synchronous=NORMAL, a five second busy
// timeout, and in-memory temp storage. A [Config.Schema] script runs
// on each new connection and must therefore be idempotent
// (CREATE TABLE IF NOT EXISTS and friends).
package sqlitepool
