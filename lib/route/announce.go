// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package route

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/mosaic/lib/association"
	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// AnnouncementKey is the association key of route announcements.
const AnnouncementKey = "route"

// AnnouncementT is the value type of a route announcement.
var AnnouncementT = &htype.Record{
	Module: "mosaic",
	Name:   "route_announcement",
	Fields: []htype.Field{{Name: "address", Type: htype.String}},
}

// Announce stores an announcement that peerRef is reachable at address
// and registers it as an association of peerRef. Bundling the peer's
// piece then carries the announcement along.
func Announce(store association.Store, registry *association.Registry, peerRef ref.Ref, address string) (association.Association, error) {
	value, err := store.PutTyped(AnnouncementT, htype.NewRecordValue(AnnouncementT, map[string]any{"address": address}))
	if err != nil {
		return association.Association{}, fmt.Errorf("storing route announcement: %w", err)
	}
	a := association.Association{Bases: []ref.Ref{peerRef}, Key: AnnouncementKey, Value: value}
	registry.Register(a)
	return a, nil
}

// Resolver resolves refs in the local store.
type Resolver interface {
	ResolveRef(r ref.Ref) (*mosaic.Record, error)
}

// AnnouncementHook consumes route announcements during unbundling and
// adds a route per announced address to Table. NewRoute builds the
// route for an address.
//
// Announcements are authenticated only by the parcel that carried
// them, and the hook cannot see that parcel's sender. A base gains a
// route only when it resolves locally to a peer piece and Accept, if
// set, approves it.
type AnnouncementHook struct {
	Store    Resolver
	Table    *Table
	NewRoute func(address string) Route
	Accept   func(peerRef ref.Ref) bool
	Logger   *slog.Logger
}

// HandleAssociation claims associations keyed AnnouncementKey and
// leaves everything else to later hooks.
func (h *AnnouncementHook) HandleAssociation(r ref.Ref, record *mosaic.Record) (bool, error) {
	piece, ok := record.Value.(*htype.RecordValue)
	if !ok {
		return false, nil
	}
	a, err := association.FromPiece(piece)
	if err != nil || a.Key != AnnouncementKey {
		return false, nil
	}

	value, err := h.Store.ResolveRef(a.Value)
	if err != nil {
		return true, fmt.Errorf("resolving route announcement %s: %w", a.Value.Short(), err)
	}
	announcement, ok := value.Value.(*htype.RecordValue)
	if !ok || !htype.Equal(announcement.T, AnnouncementT) {
		return true, fmt.Errorf("%w: route announcement %s is a %s", htype.ErrValueShape, a.Value.Short(), value.T)
	}
	address := announcement.StringField("address")
	if address == "" {
		return true, fmt.Errorf("route announcement %s has no address", a.Value.Short())
	}

	for _, peerRef := range a.Bases {
		if !h.isPeer(peerRef) {
			h.log().Warn("ignoring route announcement for a non-peer ref", "ref", peerRef.Short(), "address", address)
			continue
		}
		if h.Accept != nil && !h.Accept(peerRef) {
			h.log().Warn("route announcement rejected", "peer", peerRef.Short(), "address", address)
			continue
		}
		if h.Table.Add(peerRef, h.NewRoute(address)) {
			h.log().Info("learned route", "peer", peerRef.Short(), "address", address)
		}
	}
	return true, nil
}

func (h *AnnouncementHook) isPeer(r ref.Ref) bool {
	record, err := h.Store.ResolveRef(r)
	return err == nil && htype.Equal(record.T, peer.PeerT)
}

func (h *AnnouncementHook) log() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}
