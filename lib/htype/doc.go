// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package htype is Mosaic's type system: the descriptors that say how
// a capsule's encoded object is shaped, the in-memory value model, and
// the deterministic value encoding.
//
// Types are built from six kinds. Primitives ([String], [Int], [Bool],
// [Bytes], [DateTime]) carry no refs. [Ref] is a content address.
// [Optional] and [List] wrap another type. [Record] is a named,
// ordered field list, optionally derived from a base record; records
// created with Exception set have the exception kind but are otherwise
// identical.
//
// Values are plain Go data: string, int64, bool, []byte, time.Time,
// ref.Ref, nil for an absent optional, []any for lists, and
// *[RecordValue] for records. [Deduce] maps a value back to its type
// where that is possible without context (not for lists or nil).
//
// [Encode] and [Decode] convert between values and deterministic CBOR.
// Records encode positionally, base fields first, so the encoding is
// independent of Go map iteration order.
//
// # Type descriptors
//
// A type is itself stored as a value: [ToPiece] turns it into a
// [TypeDescT] record whose sub-types are referenced by ref, and
// [FromPiece] rebuilds it. Because sub-types appear as refs, the refs
// embedded in a descriptor are exactly the descriptors that must be
// decoded first. The descriptor record types are builtin: their
// capsules use [TypeOfTypes], a phony ref, as their type ref.
//
// Recursive types (a record reachable from its own fields) cannot be
// content-addressed and are not supported; link through a [Ref] field
// instead.
package htype
