// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package peer holds peer identities and the parcels they exchange.
//
// An [Identity] is an Ed25519 keypair whose private half lives in an
// mlock'd mmap region outside the Go heap; identity files on disk are
// sealed with age. A [Peer] is the public half. Its ref, the content
// address of its piece, is what route tables and dedup caches key on.
//
// A [Parcel] wraps an encoded bundle with the receiver's peer ref and
// the sender's public key, signed by the sender. [EncodeParcel]
// produces the wire payload: an envelope carrying the compression tag,
// the uncompressed size and the (possibly compressed) CBOR parcel.
package peer
