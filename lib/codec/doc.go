// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Mosaic's standard CBOR encoding configuration.
//
// Everything Mosaic hashes or puts on the wire is CBOR: encoded objects
// inside capsules, the capsules themselves, bundles, parcels, and the
// compression envelope carried in each wire packet. A capsule's ref is
// a hash over its encoding, so the encoding must be a pure function of
// the logical value. The encoder therefore uses Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding,
// no indefinite-length items.
//
// For buffer-oriented operations (capsules, bundles, parcels):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Generic decoding
//
// Typed values are decoded in two steps: CBOR into any, then a
// type-driven conversion (see lib/htype). The decoder is configured so
// that the intermediate form is predictable: maps decode as
// map[string]any, arrays as []any, byte strings as []byte, and every
// integer as int64.
//
// # Struct Tag Rules
//
// Types that are part of a hashed or transmitted format use `cbor`
// tags, most of them with the ",toarray" option so field order is
// positional and compact. Types that are also printed by the CLI use
// `json` tags only; fxamacker/cbor falls back to them when `cbor` tags
// are absent. Never use both on the same field.
package codec
