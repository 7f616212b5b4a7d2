// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package route maps receiving peers to the routes parcels can take to
// reach them.
//
// A [Table] holds an ordered route list per peer ref. [TCPRoute]
// writes each parcel as one framed packet over a persistent
// connection and backs off after a failure; [LocalRoute] hands parcels
// to an in-process function.
//
// Routes are learned statically from configuration or from route
// announcements: associations with key [AnnouncementKey] attached to a
// peer's ref, whose value is an [AnnouncementT] record. [Announce]
// creates one on the sending side; [AnnouncementHook] intercepts them
// while unbundling and adds the route to the table.
package route
