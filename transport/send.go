// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/mosaic/lib/auditlog"
	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
	"github.com/bureau-foundation/mosaic/lib/route"
)

var (
	// ErrNoRoute is returned when the route table has no route to the
	// receiver.
	ErrNoRoute = errors.New("transport: no route to receiver")

	// ErrNoAvailableRoute is returned when every route to the receiver
	// is backing off.
	ErrNoAvailableRoute = errors.New("transport: no available route to receiver")
)

// RouteTable resolves a receiver to its routes in preference order.
// route.Table implements it.
type RouteTable interface {
	PeerRouteList(receiver ref.Ref) []route.Route
}

// Transport sends bundles of refs to peers, remembering per receiver
// which refs were already shipped so later sends carry only what is
// new.
//
// The seen-ref cache grows without bound while the Transport lives;
// Forget and Reset drop it. The cache is mutex-guarded, but two
// concurrent Sends to the same receiver may still ship the same refs
// twice: callers should serialize sends per receiver.
type Transport struct {
	Routes  RouteTable
	Bundler *bundle.Bundler
	// Audit may be nil.
	Audit auditlog.Log
	// SizeLimit bounds each bundle's capsule bytes; <= 0 is unlimited.
	SizeLimit int
	Logger    *slog.Logger

	mu   sync.Mutex
	seen map[ref.Ref]ref.Set
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.Logger
}

// Send bundles refs, minus whatever receiver already has from this
// transport, and dispatches the signed parcel. The included refs are
// recorded as seen before dispatch, so a failed dispatch still counts
// them; Forget the receiver to resend from scratch.
func (t *Transport) Send(ctx context.Context, receiver *peer.Peer, sender *peer.Identity, refs []ref.Ref) error {
	receiverRef, err := receiver.Ref()
	if err != nil {
		return fmt.Errorf("resolving receiver ref: %w", err)
	}

	included, b, err := t.Bundler.Bundle(refs, t.SeenRefs(receiverRef), t.SizeLimit)
	if err != nil {
		return fmt.Errorf("bundling for %s: %w", receiverRef.Short(), err)
	}
	t.markSeen(receiverRef, included)

	parcel, err := receiver.MakeParcel(b, sender)
	if err != nil {
		return fmt.Errorf("making parcel for %s: %w", receiverRef.Short(), err)
	}
	if t.Audit != nil {
		if err := t.Audit.AddOutMessage(ctx, parcel, b); err != nil {
			return fmt.Errorf("auditing parcel %s: %w", parcel.ID(), err)
		}
	}

	if err := t.SendParcel(ctx, parcel); err != nil {
		return err
	}
	t.logger().Debug("bundle sent",
		"parcel", parcel.ID(),
		"receiver", receiverRef.Short(),
		"roots", len(b.Roots),
		"capsules", len(b.Capsules),
		"associations", len(b.Associations),
	)

	if t.Audit != nil {
		if err := t.Audit.CommitOutMessage(ctx, parcel); err != nil {
			return fmt.Errorf("committing parcel %s: %w", parcel.ID(), err)
		}
	}
	return nil
}

// SendParcel dispatches parcel over the first available route to its
// receiver. It does not retry.
func (t *Transport) SendParcel(ctx context.Context, parcel *peer.Parcel) error {
	routes := t.Routes.PeerRouteList(parcel.Receiver)
	if len(routes) == 0 {
		return fmt.Errorf("%w %s", ErrNoRoute, parcel.Receiver.Short())
	}
	for _, candidate := range routes {
		if !candidate.Available() {
			continue
		}
		if err := candidate.Send(ctx, parcel); err != nil {
			return fmt.Errorf("sending parcel %s: %w", parcel.ID(), err)
		}
		return nil
	}
	return fmt.Errorf("%w %s (%d routes)", ErrNoAvailableRoute, parcel.Receiver.Short(), len(routes))
}

// SeenRefs returns a copy of the refs already sent to receiver.
func (t *Transport) SeenRefs(receiver ref.Ref) ref.Set {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seen[receiver].Clone()
}

func (t *Transport) markSeen(receiver ref.Ref, included ref.Set) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen == nil {
		t.seen = make(map[ref.Ref]ref.Set)
	}
	set, ok := t.seen[receiver]
	if !ok {
		set = ref.NewSet()
		t.seen[receiver] = set
	}
	set.Merge(included)
}

// Forget drops the seen refs of one receiver.
func (t *Transport) Forget(receiver ref.Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, receiver)
}

// Reset drops the seen refs of every receiver.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = nil
}
