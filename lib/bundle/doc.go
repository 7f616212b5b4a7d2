// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle turns a set of refs into a self-decodable, size
// bounded [Bundle] and registers received bundles into a store.
//
// The [Bundler] walks the ref graph from the roots. Every capsule's
// decode-time prerequisites (its type descriptor, the associations of
// its type and value, and, transitively, whatever those embed) are
// collected into the same group as the capsule and emitted before it:
// a group is flushed in reverse discovery order once its prerequisites
// are exhausted. Refs a value merely points at become new roots and
// land in later groups, or in no group at all when the size limit
// stops the walk. Only whole groups are ever emitted.
//
// The [Unbundler] is the receiving side. It registers every capsule
// and routes association refs through a chain of [Hook]s before
// falling back to the association registry.
package bundle
