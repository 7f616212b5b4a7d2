// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Mosaic-node receives parcels addressed to its identity over TCP,
// registers their bundles into an in-memory store, and learns routes
// from the announcements senders attach.
//
// Configuration is a mosaic.yaml named by --config or MOSAIC_CONFIG.
// Static peers listed there get TCP routes at startup; when
// node.advertise is set, the node sends each of them its peer record
// with a route announcement so they can reach it back.
//
// Every received parcel is recorded in the audit log, SQLite when
// audit.path is set. Entries still pending at startup belong to
// parcels that were accepted but never fully handled; the node logs
// them as warnings.
package main
