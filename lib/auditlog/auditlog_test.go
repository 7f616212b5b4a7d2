// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/clock"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	parcel *peer.Parcel
	bundle *bundle.Bundle
	root   ref.Ref
}

func newFixture(t *testing.T, value string) fixture {
	t.Helper()
	store := mosaic.New(nil)
	root, err := store.Put(value)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, b, err := bundle.NewBundler(store, nil, nil).Bundle([]ref.Ref{root}, nil, 0)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	sender, err := peer.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	t.Cleanup(func() { sender.Close() })
	receiver, err := peer.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	t.Cleanup(func() { receiver.Close() })

	parcel, err := receiver.Peer().MakeParcel(b, sender)
	if err != nil {
		t.Fatalf("MakeParcel: %v", err)
	}
	return fixture{parcel: parcel, bundle: b, root: root}
}

// implementations runs fn against every Log implementation, each
// driven by its own fake clock.
func implementations(t *testing.T, fn func(t *testing.T, log Log, fake *clock.FakeClock)) {
	t.Run("memory", func(t *testing.T) {
		fake := clock.Fake(epoch)
		fn(t, NewMemory(fake), fake)
	})
	t.Run("sqlite", func(t *testing.T) {
		fake := clock.Fake(epoch)
		log, err := OpenSQLite(SQLiteConfig{
			Path:  filepath.Join(t.TempDir(), "audit.db"),
			Clock: fake,
		})
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		t.Cleanup(func() {
			if err := log.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
		fn(t, log, fake)
	})
}

func TestOutgoingLifecycle(t *testing.T) {
	implementations(t, func(t *testing.T, log Log, fake *clock.FakeClock) {
		ctx := context.Background()
		f := newFixture(t, "outgoing")

		if err := log.AddOutMessage(ctx, f.parcel, f.bundle); err != nil {
			t.Fatalf("AddOutMessage: %v", err)
		}
		pending, err := log.Pending(ctx, Outgoing)
		if err != nil {
			t.Fatalf("Pending: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("got %d pending, want 1", len(pending))
		}
		entry := pending[0]
		if entry.ParcelID != f.parcel.ID() {
			t.Errorf("ParcelID = %s, want %s", entry.ParcelID, f.parcel.ID())
		}
		if entry.Receiver != f.parcel.Receiver {
			t.Errorf("Receiver = %v, want %v", entry.Receiver, f.parcel.Receiver)
		}
		if len(entry.Roots) != 1 || entry.Roots[0] != f.root {
			t.Errorf("Roots = %v, want [%v]", entry.Roots, f.root)
		}
		if entry.Capsules != len(f.bundle.Capsules) {
			t.Errorf("Capsules = %d, want %d", entry.Capsules, len(f.bundle.Capsules))
		}
		if entry.BundleSize != f.bundle.Size() {
			t.Errorf("BundleSize = %d, want %d", entry.BundleSize, f.bundle.Size())
		}
		if !entry.AddedAt.Equal(epoch) {
			t.Errorf("AddedAt = %v, want %v", entry.AddedAt, epoch)
		}
		if entry.Committed() {
			t.Error("entry committed before CommitOutMessage")
		}

		fake.Advance(2 * time.Second)
		if err := log.CommitOutMessage(ctx, f.parcel); err != nil {
			t.Fatalf("CommitOutMessage: %v", err)
		}
		pending, err = log.Pending(ctx, Outgoing)
		if err != nil {
			t.Fatalf("Pending: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("got %d pending after commit, want 0", len(pending))
		}

		entries, err := log.Entries(ctx)
		if err != nil {
			t.Fatalf("Entries: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(entries))
		}
		if want := epoch.Add(2 * time.Second); !entries[0].CommittedAt.Equal(want) {
			t.Errorf("CommittedAt = %v, want %v", entries[0].CommittedAt, want)
		}
	})
}

func TestDirectionsAreSeparate(t *testing.T) {
	implementations(t, func(t *testing.T, log Log, fake *clock.FakeClock) {
		ctx := context.Background()
		f := newFixture(t, "both ways")

		if err := log.AddOutMessage(ctx, f.parcel, f.bundle); err != nil {
			t.Fatalf("AddOutMessage: %v", err)
		}
		fake.Advance(time.Second)
		if err := log.AddInMessage(ctx, f.parcel, f.bundle); err != nil {
			t.Fatalf("AddInMessage: %v", err)
		}
		if err := log.CommitInMessage(ctx, f.parcel); err != nil {
			t.Fatalf("CommitInMessage: %v", err)
		}

		outgoing, err := log.Pending(ctx, Outgoing)
		if err != nil {
			t.Fatalf("Pending(out): %v", err)
		}
		if len(outgoing) != 1 {
			t.Errorf("got %d outgoing pending, want 1", len(outgoing))
		}
		incoming, err := log.Pending(ctx, Incoming)
		if err != nil {
			t.Fatalf("Pending(in): %v", err)
		}
		if len(incoming) != 0 {
			t.Errorf("got %d incoming pending, want 0", len(incoming))
		}

		entries, err := log.Entries(ctx)
		if err != nil {
			t.Fatalf("Entries: %v", err)
		}
		if len(entries) != 2 || entries[0].Direction != Outgoing || entries[1].Direction != Incoming {
			t.Errorf("entries = %+v, want out then in", entries)
		}
	})
}

func TestAddIsIdempotent(t *testing.T) {
	implementations(t, func(t *testing.T, log Log, fake *clock.FakeClock) {
		ctx := context.Background()
		f := newFixture(t, "twice")

		if err := log.AddInMessage(ctx, f.parcel, f.bundle); err != nil {
			t.Fatalf("first AddInMessage: %v", err)
		}
		fake.Advance(time.Minute)
		if err := log.AddInMessage(ctx, f.parcel, f.bundle); err != nil {
			t.Fatalf("second AddInMessage: %v", err)
		}

		entries, err := log.Entries(ctx)
		if err != nil {
			t.Fatalf("Entries: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(entries))
		}
		if !entries[0].AddedAt.Equal(epoch) {
			t.Errorf("AddedAt = %v, want the first add time %v", entries[0].AddedAt, epoch)
		}
	})
}

func TestCommitTwiceKeepsFirstTime(t *testing.T) {
	implementations(t, func(t *testing.T, log Log, fake *clock.FakeClock) {
		ctx := context.Background()
		f := newFixture(t, "commit twice")

		if err := log.AddOutMessage(ctx, f.parcel, f.bundle); err != nil {
			t.Fatalf("AddOutMessage: %v", err)
		}
		if err := log.CommitOutMessage(ctx, f.parcel); err != nil {
			t.Fatalf("first CommitOutMessage: %v", err)
		}
		fake.Advance(time.Hour)
		if err := log.CommitOutMessage(ctx, f.parcel); err != nil {
			t.Fatalf("second CommitOutMessage: %v", err)
		}

		entries, err := log.Entries(ctx)
		if err != nil {
			t.Fatalf("Entries: %v", err)
		}
		if !entries[0].CommittedAt.Equal(epoch) {
			t.Errorf("CommittedAt = %v, want %v", entries[0].CommittedAt, epoch)
		}
	})
}

func TestCommitUnknownParcel(t *testing.T) {
	implementations(t, func(t *testing.T, log Log, _ *clock.FakeClock) {
		ctx := context.Background()
		f := newFixture(t, "never added")

		if err := log.CommitOutMessage(ctx, f.parcel); !errors.Is(err, ErrUnknownParcel) {
			t.Errorf("CommitOutMessage error = %v, want ErrUnknownParcel", err)
		}

		if err := log.AddOutMessage(ctx, f.parcel, f.bundle); err != nil {
			t.Fatalf("AddOutMessage: %v", err)
		}
		if err := log.CommitInMessage(ctx, f.parcel); !errors.Is(err, ErrUnknownParcel) {
			t.Errorf("CommitInMessage of an outgoing parcel: error = %v, want ErrUnknownParcel", err)
		}
	})
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")
	f := newFixture(t, "persisted")

	first, err := OpenSQLite(SQLiteConfig{Path: path, Clock: clock.Fake(epoch)})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := first.AddOutMessage(ctx, f.parcel, f.bundle); err != nil {
		t.Fatalf("AddOutMessage: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := OpenSQLite(SQLiteConfig{Path: path, Clock: clock.Fake(epoch)})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	pending, err := second.Pending(ctx, Outgoing)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ParcelID != f.parcel.ID() {
		t.Errorf("pending after reopen = %+v, want parcel %s", pending, f.parcel.ID())
	}
}
