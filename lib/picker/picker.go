// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package picker finds the refs embedded in a value by walking it
// along its type.
//
// A [Cache] compiles one walk strategy per type and memoizes the result
// per value. The memo key is a structural digest of the type and the
// value's deterministic encoding, so equal values built separately
// share an entry. Values must not be mutated after they have been
// picked.
package picker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// DefaultMaxEntries bounds the per-value memo. When it fills, the memo
// is dropped and rebuilt on demand.
const DefaultMaxEntries = 1 << 16

// strategy adds the refs of value to into.
type strategy func(value any, into ref.Set) error

// Cache is a reference picker with compiled strategies and memoized
// results. It is safe for concurrent use.
type Cache struct {
	maxEntries int

	mu         sync.Mutex
	strategies map[htype.Type]strategy
	memo       map[[32]byte]ref.Set
}

// New returns an empty cache. maxEntries <= 0 means DefaultMaxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		strategies: make(map[htype.Type]strategy),
		memo:       make(map[[32]byte]ref.Set),
	}
}

// PickRefs returns the refs directly embedded in value. A nil t means
// the type is deduced from the value. The returned set belongs to the
// caller.
func (c *Cache) PickRefs(value any, t htype.Type) (ref.Set, error) {
	if t == nil {
		deduced, err := htype.Deduce(value)
		if err != nil {
			return nil, fmt.Errorf("picking refs: %w", err)
		}
		t = deduced
	}
	if !mayContainRefs(t) {
		return ref.NewSet(), nil
	}
	if r, ok := value.(ref.Ref); ok && t.Kind() == htype.KindRef {
		return ref.NewSet(r), nil
	}

	key, err := memoKey(t, value)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	cached, hit := c.memo[key]
	c.mu.Unlock()
	if hit {
		return cached.Clone(), nil
	}

	pick := c.strategyFor(t)
	refs := ref.NewSet()
	if err := pick(value, refs); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.memo) >= c.maxEntries {
		c.memo = make(map[[32]byte]ref.Set)
	}
	c.memo[key] = refs.Clone()
	c.mu.Unlock()
	return refs, nil
}

// Len returns the number of memoized values.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.memo)
}

func (c *Cache) strategyFor(t htype.Type) strategy {
	c.mu.Lock()
	compiled, ok := c.strategies[t]
	c.mu.Unlock()
	if ok {
		return compiled
	}
	compiled = c.compile(t)
	c.mu.Lock()
	c.strategies[t] = compiled
	c.mu.Unlock()
	return compiled
}

func pickNothing(any, ref.Set) error { return nil }

func (c *Cache) compile(t htype.Type) strategy {
	if !mayContainRefs(t) {
		return pickNothing
	}
	switch typ := t.(type) {
	case *htype.RefType:
		return func(value any, into ref.Set) error {
			r, ok := value.(ref.Ref)
			if !ok {
				return fmt.Errorf("%w: %T is not a ref", htype.ErrValueShape, value)
			}
			into.Add(r)
			return nil
		}
	case *htype.Optional:
		base := c.strategyFor(typ.Base)
		return func(value any, into ref.Set) error {
			if value == nil {
				return nil
			}
			return base(value, into)
		}
	case *htype.List:
		element := c.strategyFor(typ.Element)
		return func(value any, into ref.Set) error {
			items, ok := value.([]any)
			if !ok {
				return fmt.Errorf("%w: %T is not a %s", htype.ErrValueShape, value, typ)
			}
			for i, item := range items {
				if err := element(item, into); err != nil {
					return fmt.Errorf("%s[%d]: %w", typ, i, err)
				}
			}
			return nil
		}
	case *htype.Record:
		type fieldPicker struct {
			name string
			pick strategy
		}
		var fields []fieldPicker
		for _, field := range typ.AllFields() {
			if mayContainRefs(field.Type) {
				fields = append(fields, fieldPicker{name: field.Name, pick: c.strategyFor(field.Type)})
			}
		}
		return func(value any, into ref.Set) error {
			record, ok := value.(*htype.RecordValue)
			if !ok || record == nil {
				return fmt.Errorf("%w: %T is not a %s", htype.ErrValueShape, value, typ)
			}
			for _, field := range fields {
				if err := field.pick(record.Fields[field.name], into); err != nil {
					return fmt.Errorf("%s.%s: %w", typ, field.name, err)
				}
			}
			return nil
		}
	}
	return pickNothing
}

// mayContainRefs reports whether any value of t can embed a ref.
func mayContainRefs(t htype.Type) bool {
	switch typ := t.(type) {
	case *htype.RefType:
		return true
	case *htype.Optional:
		return mayContainRefs(typ.Base)
	case *htype.List:
		return mayContainRefs(typ.Element)
	case *htype.Record:
		for _, field := range typ.AllFields() {
			if mayContainRefs(field.Type) {
				return true
			}
		}
	}
	return false
}

// memoKey digests the type's structure together with the value's
// encoding under it.
func memoKey(t htype.Type, value any) ([32]byte, error) {
	encoded, err := htype.Encode(t, value)
	if err != nil {
		return [32]byte{}, fmt.Errorf("picking refs: %w", err)
	}
	var signature strings.Builder
	writeSignature(&signature, t)

	hasher := blake3.New()
	hasher.Write([]byte(signature.String()))
	hasher.Write([]byte{0})
	hasher.Write(encoded)
	var key [32]byte
	copy(key[:], hasher.Sum(nil))
	return key, nil
}

func writeSignature(b *strings.Builder, t htype.Type) {
	switch typ := t.(type) {
	case *htype.Optional:
		b.WriteString("optional(")
		writeSignature(b, typ.Base)
		b.WriteString(")")
	case *htype.List:
		b.WriteString("list(")
		writeSignature(b, typ.Element)
		b.WriteString(")")
	case *htype.Record:
		b.WriteString(string(typ.Kind()))
		b.WriteString(" ")
		b.WriteString(typ.String())
		b.WriteString("{")
		for _, field := range typ.AllFields() {
			b.WriteString(field.Name)
			b.WriteString(":")
			writeSignature(b, field.Type)
			b.WriteString(";")
		}
		b.WriteString("}")
	default:
		b.WriteString(t.String())
	}
}
