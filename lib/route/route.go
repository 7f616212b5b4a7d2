// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package route

import (
	"context"
	"slices"
	"sync"

	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// Route delivers parcels to one peer over one path.
type Route interface {
	// Available reports whether the route should be tried now.
	Available() bool

	// Send delivers the parcel. It does not retry.
	Send(ctx context.Context, parcel *peer.Parcel) error
}

// addressed is implemented by routes that have a transport address.
// The table uses it to avoid duplicate routes.
type addressed interface {
	Address() string
}

// Table maps peer refs to route lists. It is safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	routes map[ref.Ref][]Route
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{routes: make(map[ref.Ref][]Route)}
}

// Add appends route to the peer's list. A route with the same address
// as one already listed is ignored; it reports whether route was
// added.
func (t *Table) Add(peerRef ref.Ref, route Route) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if withAddress, ok := route.(addressed); ok {
		for _, existing := range t.routes[peerRef] {
			if other, ok := existing.(addressed); ok && other.Address() == withAddress.Address() {
				return false
			}
		}
	}
	t.routes[peerRef] = append(t.routes[peerRef], route)
	return true
}

// Remove drops every route for the peer.
func (t *Table) Remove(peerRef ref.Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.routes, peerRef)
}

// PeerRouteList returns the peer's routes in preference order. The
// slice belongs to the caller.
func (t *Table) PeerRouteList(peerRef ref.Ref) []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.routes[peerRef])
}

// Peers returns the refs of every peer with at least one route,
// sorted.
func (t *Table) Peers() []ref.Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()
	peers := make([]ref.Ref, 0, len(t.routes))
	for peerRef := range t.routes {
		peers = append(peers, peerRef)
	}
	slices.SortFunc(peers, ref.Ref.Compare)
	return peers
}

// LocalRoute delivers parcels to an in-process function, for a node
// talking to itself and for tests.
type LocalRoute struct {
	Deliver func(ctx context.Context, parcel *peer.Parcel) error
}

func (r *LocalRoute) Available() bool { return r.Deliver != nil }

func (r *LocalRoute) Send(ctx context.Context, parcel *peer.Parcel) error {
	return r.Deliver(ctx, parcel)
}
