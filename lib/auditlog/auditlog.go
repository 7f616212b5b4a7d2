// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditlog records parcels as they are sent and received.
//
// Each parcel is logged in two steps. Add records it before the
// transfer is attempted; Commit marks it done once the route accepted
// it (outgoing) or the bundle was registered (incoming). Entries left
// uncommitted are transfers that failed or were interrupted, and
// [Log.Pending] lists them.
//
// [Memory] keeps entries in process memory. [SQLite] persists them
// through lib/sqlitepool.
package auditlog

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// ErrUnknownParcel is returned when committing a parcel that was never
// added in that direction.
var ErrUnknownParcel = errors.New("auditlog: unknown parcel")

// Direction says whether a parcel was sent or received.
type Direction string

const (
	Outgoing Direction = "out"
	Incoming Direction = "in"
)

// Entry is one logged parcel.
type Entry struct {
	Direction Direction
	ParcelID  string
	Receiver  ref.Ref
	// Sender is the hex-encoded public key of the sending peer.
	Sender     string
	Roots      []ref.Ref
	Capsules   int
	BundleSize int

	AddedAt time.Time
	// CommittedAt is zero while the entry is pending.
	CommittedAt time.Time
}

// Committed reports whether the entry has been committed.
func (e Entry) Committed() bool { return !e.CommittedAt.IsZero() }

// Log is an audit log. Adding a parcel twice in the same direction
// keeps the first entry; committing an already committed parcel is a
// no-op.
type Log interface {
	AddOutMessage(ctx context.Context, parcel *peer.Parcel, b *bundle.Bundle) error
	CommitOutMessage(ctx context.Context, parcel *peer.Parcel) error
	AddInMessage(ctx context.Context, parcel *peer.Parcel, b *bundle.Bundle) error
	CommitInMessage(ctx context.Context, parcel *peer.Parcel) error

	// Entries returns every entry in the order they were added.
	Entries(ctx context.Context) ([]Entry, error)
	// Pending returns the uncommitted entries of one direction.
	Pending(ctx context.Context, direction Direction) ([]Entry, error)
}

func newEntry(direction Direction, parcel *peer.Parcel, b *bundle.Bundle, now time.Time) Entry {
	entry := Entry{
		Direction: direction,
		ParcelID:  parcel.ID(),
		Receiver:  parcel.Receiver,
		Sender:    hex.EncodeToString(parcel.Sender),
		AddedAt:   now,
	}
	if b != nil {
		entry.Roots = append([]ref.Ref(nil), b.Roots...)
		entry.Capsules = len(b.Capsules)
		entry.BundleSize = b.Size()
	}
	return entry
}
