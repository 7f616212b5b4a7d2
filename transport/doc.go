// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport moves bundles between mosaic nodes.
//
// [Transport] is the send side. Send bundles a set of refs for a
// receiver, leaving out refs the receiver already got from this
// Transport, wraps the bundle in a signed parcel, records it in the
// audit log and dispatches it over the first available route from the
// route table. No retry or acknowledgement happens at this layer.
//
// [Server] is the receive side. It reads length-prefixed packets
// (lib/wire) from every connection a [Listener] accepts, decodes and
// verifies each parcel, registers its bundle through a
// bundle.Unbundler and hands it to a [ParcelHandler].
//
// [TCPListener] and [TCPDialer] carry the raw packet streams.
package transport
