// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditlog

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/clock"
	"github.com/bureau-foundation/mosaic/lib/peer"
)

// Memory is an in-process Log.
type Memory struct {
	clock clock.Clock

	mu      sync.Mutex
	entries []Entry
	index   map[entryKey]int
}

type entryKey struct {
	direction Direction
	parcelID  string
}

// NewMemory returns an empty log. A nil clock means the real clock.
func NewMemory(c clock.Clock) *Memory {
	return &Memory{clock: clock.OrReal(c), index: make(map[entryKey]int)}
}

func (m *Memory) add(direction Direction, parcel *peer.Parcel, b *bundle.Bundle) error {
	entry := newEntry(direction, parcel, b, m.clock.Now())
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entryKey{direction, entry.ParcelID}
	if _, exists := m.index[key]; exists {
		return nil
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *Memory) commit(direction Direction, parcel *peer.Parcel) error {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	position, exists := m.index[entryKey{direction, parcel.ID()}]
	if !exists {
		return fmt.Errorf("%w: %s parcel %s", ErrUnknownParcel, direction, parcel.ID())
	}
	if !m.entries[position].Committed() {
		m.entries[position].CommittedAt = now
	}
	return nil
}

func (m *Memory) AddOutMessage(_ context.Context, parcel *peer.Parcel, b *bundle.Bundle) error {
	return m.add(Outgoing, parcel, b)
}

func (m *Memory) CommitOutMessage(_ context.Context, parcel *peer.Parcel) error {
	return m.commit(Outgoing, parcel)
}

func (m *Memory) AddInMessage(_ context.Context, parcel *peer.Parcel, b *bundle.Bundle) error {
	return m.add(Incoming, parcel, b)
}

func (m *Memory) CommitInMessage(_ context.Context, parcel *peer.Parcel) error {
	return m.commit(Incoming, parcel)
}

func (m *Memory) Entries(context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries), nil
}

func (m *Memory) Pending(_ context.Context, direction Direction) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []Entry
	for _, entry := range m.entries {
		if entry.Direction == direction && !entry.Committed() {
			pending = append(pending, entry)
		}
	}
	return pending, nil
}
