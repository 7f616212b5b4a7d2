// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides the content address used throughout Mosaic.
//
// A [Ref] names one immutable capsule by the pair (hash algorithm,
// digest). Identity is structural: two refs are equal when both parts
// are equal, and Ref is a comparable value type usable directly as a
// map key. The store's algorithm is "blake3"; the package itself does
// not hash anything and accepts any algorithm name.
//
// The algorithm "phony" is reserved for sentinels built by [Phony]. A
// phony ref stands for something that is never stored, such as the
// type of all type descriptors. Phony refs are never resolved,
// fetched, or transmitted.
//
// Canonical forms:
//   - text: "algorithm:hex-digest" (logs, CLI, YAML and JSON via
//     encoding.TextMarshaler)
//   - CBOR: the two-element array [algorithm, digest-bytes]
//
// [Set] is the set type used by the picker, the bundler, and the
// transport's per-receiver dedup cache.
package ref
