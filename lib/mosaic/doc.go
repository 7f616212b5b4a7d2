// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mosaic is the content store: an in-memory map from ref to
// capsule, with typed put and resolve on top.
//
// A [Capsule] pairs the ref of a type descriptor with a value's
// encoding under that type. The capsule's own ref is the BLAKE3 keyed
// hash of its deterministic CBOR encoding, so two stores that hold the
// same value under the same type agree on its ref.
//
// Type descriptors are capsules too (see package htype): [Mosaic.TypeRef]
// stores a type's descriptor and those of all its sub-types, and
// [Mosaic.ResolveType] rebuilds a type from a descriptor ref. Resolved
// records and types are cached; values handed to Put, or returned by
// ResolveRef, must not be mutated afterwards.
package mosaic
