// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mosaic

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// ErrNotFound is returned when a ref has no capsule in the store.
var ErrNotFound = errors.New("mosaic: ref not found")

// Record is a resolved capsule: the capsule, its decoded type and
// value.
type Record struct {
	Ref     ref.Ref
	Capsule Capsule
	TypeRef ref.Ref
	T       htype.Type
	Value   any
}

// Mosaic is an in-memory content store. It is safe for concurrent use.
type Mosaic struct {
	logger *slog.Logger

	mu       sync.RWMutex
	capsules map[ref.Ref]Capsule
	records  map[ref.Ref]*Record
	types    map[ref.Ref]htype.Type
	typeRefs map[htype.Type]ref.Ref
}

// New returns an empty store. A nil logger discards output.
func New(logger *slog.Logger) *Mosaic {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mosaic{
		logger:   logger,
		capsules: make(map[ref.Ref]Capsule),
		records:  make(map[ref.Ref]*Record),
		types:    map[ref.Ref]htype.Type{htype.TypeOfTypes: htype.TypeDescT},
		typeRefs: map[htype.Type]ref.Ref{htype.TypeDescT: htype.TypeOfTypes},
	}
}

// Len returns the number of stored capsules.
func (m *Mosaic) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.capsules)
}

// Has reports whether r is stored.
func (m *Mosaic) Has(r ref.Ref) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.capsules[r]
	return ok
}

// Get returns the capsule stored under r.
func (m *Mosaic) Get(r ref.Ref) (Capsule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	capsule, ok := m.capsules[r]
	return capsule, ok
}

// RegisterCapsule stores c and returns its ref. Registering a capsule
// that is already present is a no-op.
func (m *Mosaic) RegisterCapsule(c Capsule) (ref.Ref, error) {
	r, err := c.Ref()
	if err != nil {
		return ref.Ref{}, err
	}
	m.mu.Lock()
	if _, exists := m.capsules[r]; !exists {
		m.capsules[r] = c
	}
	m.mu.Unlock()
	return r, nil
}

// Put stores value under its deduced type.
func (m *Mosaic) Put(value any) (ref.Ref, error) {
	t, err := htype.Deduce(value)
	if err != nil {
		return ref.Ref{}, err
	}
	return m.PutTyped(t, value)
}

// PutTyped stores value as type t, storing t's descriptor first.
func (m *Mosaic) PutTyped(t htype.Type, value any) (ref.Ref, error) {
	typeRef, err := m.TypeRef(t)
	if err != nil {
		return ref.Ref{}, err
	}
	encoded, err := htype.Encode(t, value)
	if err != nil {
		return ref.Ref{}, err
	}
	capsule := Capsule{TypeRef: typeRef, EncodedObject: encoded}
	r, err := m.RegisterCapsule(capsule)
	if err != nil {
		return ref.Ref{}, err
	}
	m.mu.Lock()
	if _, cached := m.records[r]; !cached {
		m.records[r] = &Record{Ref: r, Capsule: capsule, TypeRef: typeRef, T: t, Value: value}
	}
	m.mu.Unlock()
	return r, nil
}

// TypeRef returns the ref of t's descriptor, storing it and the
// descriptors of its sub-types as needed.
func (m *Mosaic) TypeRef(t htype.Type) (ref.Ref, error) {
	m.mu.RLock()
	r, ok := m.typeRefs[t]
	m.mu.RUnlock()
	if ok {
		return r, nil
	}

	piece, err := htype.ToPiece(t, m.TypeRef)
	if err != nil {
		return ref.Ref{}, fmt.Errorf("describing type %s: %w", t, err)
	}
	r, err = m.PutTyped(htype.TypeDescT, piece)
	if err != nil {
		return ref.Ref{}, fmt.Errorf("storing type %s: %w", t, err)
	}

	m.mu.Lock()
	m.typeRefs[t] = r
	if _, exists := m.types[r]; !exists {
		m.types[r] = t
	}
	m.mu.Unlock()
	return r, nil
}

// ResolveRef returns the decoded record for r. Phony refs and refs
// with no capsule return ErrNotFound.
func (m *Mosaic) ResolveRef(r ref.Ref) (*Record, error) {
	if r.IsPhony() {
		return nil, fmt.Errorf("%w: %s is phony", ErrNotFound, r.Short())
	}

	m.mu.RLock()
	record, cached := m.records[r]
	capsule, stored := m.capsules[r]
	m.mu.RUnlock()
	if cached {
		return record, nil
	}
	if !stored {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, r.Short())
	}

	t, err := m.ResolveType(capsule.TypeRef)
	if err != nil {
		return nil, fmt.Errorf("resolving type of %s: %w", r.Short(), err)
	}
	value, err := htype.Decode(t, capsule.EncodedObject)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.Short(), err)
	}
	record = &Record{Ref: r, Capsule: capsule, TypeRef: capsule.TypeRef, T: t, Value: value}

	m.mu.Lock()
	if existing, raced := m.records[r]; raced {
		record = existing
	} else {
		m.records[r] = record
	}
	m.mu.Unlock()
	return record, nil
}

// ResolveType returns the type whose descriptor is stored under r.
func (m *Mosaic) ResolveType(r ref.Ref) (htype.Type, error) {
	m.mu.RLock()
	t, ok := m.types[r]
	m.mu.RUnlock()
	if ok {
		return t, nil
	}

	record, err := m.ResolveRef(r)
	if err != nil {
		return nil, err
	}
	if record.TypeRef != htype.TypeOfTypes {
		return nil, fmt.Errorf("%w: %s is a %s, not a type descriptor", htype.ErrValueShape, r.Short(), record.T)
	}
	piece, ok := record.Value.(*htype.RecordValue)
	if !ok {
		return nil, fmt.Errorf("%w: descriptor %s decoded as %T", htype.ErrValueShape, r.Short(), record.Value)
	}
	t, err = htype.FromPiece(piece, m.ResolveType)
	if err != nil {
		return nil, fmt.Errorf("rebuilding type %s: %w", r.Short(), err)
	}

	m.mu.Lock()
	if existing, raced := m.types[r]; raced {
		t = existing
	} else {
		m.types[r] = t
		m.typeRefs[t] = r
	}
	m.mu.Unlock()
	m.logger.Debug("resolved type", "ref", r.Short(), "type", t.String())
	return t, nil
}
