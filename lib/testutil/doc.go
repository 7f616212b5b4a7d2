// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for mosaic packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the
// select-with-timeout pattern for channel waits, so tests that wait on
// servers and handlers never hang. They are the only helpers that use
// the wall clock; everything else in the tests runs on clock.Fake.
//
// [WriteFile] writes fixtures into a test's temporary directory and
// [UniqueID] produces distinguishable payloads without reading the
// time.
//
// All helpers call t.Fatalf on failure.
package testutil
