// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package association holds auxiliary metadata attached to types and
// values. An association names one or more base refs (a type
// descriptor, a value, or both), a key, and the ref of the metadata
// value. The bundler ships every association of a capsule's type and
// value as a prerequisite of that capsule.
package association

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// AssociationT is the record type associations are stored as.
var AssociationT = &htype.Record{
	Module: "mosaic",
	Name:   "association",
	Fields: []htype.Field{
		{Name: "bases", Type: htype.NewList(htype.Ref)},
		{Name: "key", Type: htype.String},
		{Name: "value", Type: htype.Ref},
	},
}

// Association attaches Value to Bases under Key.
type Association struct {
	Bases []ref.Ref
	Key   string
	Value ref.Ref
}

// Store is the part of the content store associations are written to.
type Store interface {
	PutTyped(t htype.Type, value any) (ref.Ref, error)
}

// Piece returns a as a storable record value.
func (a Association) Piece() *htype.RecordValue {
	bases := make([]any, len(a.Bases))
	for i, base := range a.Bases {
		bases[i] = base
	}
	return htype.NewRecordValue(AssociationT, map[string]any{
		"bases": bases,
		"key":   a.Key,
		"value": a.Value,
	})
}

// Ref stores a's piece and returns its ref.
func (a Association) Ref(store Store) (ref.Ref, error) {
	r, err := store.PutTyped(AssociationT, a.Piece())
	if err != nil {
		return ref.Ref{}, fmt.Errorf("storing association %q: %w", a.Key, err)
	}
	return r, nil
}

// FromPiece converts a decoded association record back into an
// Association.
func FromPiece(piece *htype.RecordValue) (Association, error) {
	if piece == nil || !htype.Equal(piece.T, AssociationT) {
		return Association{}, fmt.Errorf("%w: not an association", htype.ErrValueShape)
	}
	value, ok := piece.Get("value").(ref.Ref)
	if !ok {
		return Association{}, fmt.Errorf("%w: association has no value ref", htype.ErrValueShape)
	}
	items, _ := piece.Get("bases").([]any)
	association := Association{Key: piece.StringField("key"), Value: value}
	for i, item := range items {
		base, ok := item.(ref.Ref)
		if !ok {
			return Association{}, fmt.Errorf("%w: association base %d is %T", htype.ErrValueShape, i, item)
		}
		association.Bases = append(association.Bases, base)
	}
	return association, nil
}

// identity is a comparable key for deduplicating registrations.
func (a Association) identity() string {
	var b strings.Builder
	for _, base := range a.Bases {
		b.WriteString(base.String())
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(a.Key)
	b.WriteByte('|')
	b.WriteString(a.Value.String())
	return b.String()
}

// Registry indexes associations by base ref. It is safe for concurrent
// use.
type Registry struct {
	mu         sync.RWMutex
	byBase     map[ref.Ref][]Association
	registered map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byBase:     make(map[ref.Ref][]Association),
		registered: make(map[string]struct{}),
	}
}

// Register adds a. Registering the same association twice is a no-op.
func (r *Registry) Register(a Association) {
	id := a.identity()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.registered[id]; exists {
		return
	}
	r.registered[id] = struct{}{}
	for _, base := range a.Bases {
		r.byBase[base] = append(r.byBase[base], a)
	}
}

// RegisterAssociation registers a decoded association piece.
func (r *Registry) RegisterAssociation(piece *htype.RecordValue) error {
	a, err := FromPiece(piece)
	if err != nil {
		return err
	}
	r.Register(a)
	return nil
}

// AssociationsFor returns the associations attached to any of bases,
// each once, in registration order per base.
func (r *Registry) AssociationsFor(bases ...ref.Ref) []Association {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Association
	var returned []string
	for _, base := range bases {
		for _, a := range r.byBase[base] {
			id := a.identity()
			if slices.Contains(returned, id) {
				continue
			}
			returned = append(returned, id)
			result = append(result, a)
		}
	}
	return result
}

// Len returns the number of registered associations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registered)
}
