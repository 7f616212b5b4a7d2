// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package picker

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

var (
	refA = ref.New("blake3", []byte{0xA})
	refB = ref.New("blake3", []byte{0xB})
	refC = ref.New("blake3", []byte{0xC})

	pairT = &htype.Record{
		Module: "test",
		Name:   "pair",
		Fields: []htype.Field{
			{Name: "left", Type: htype.Ref},
			{Name: "right", Type: htype.NewOptional(htype.Ref)},
			{Name: "label", Type: htype.String},
		},
	}
	graphT = &htype.Record{
		Module: "test",
		Name:   "graph",
		Fields: []htype.Field{
			{Name: "pairs", Type: htype.NewList(pairT)},
			{Name: "note", Type: htype.String},
		},
	}
	plainT = &htype.Record{
		Module: "test",
		Name:   "plain",
		Fields: []htype.Field{{Name: "text", Type: htype.String}},
	}
)

func pair(left ref.Ref, right any) *htype.RecordValue {
	return htype.NewRecordValue(pairT, map[string]any{"left": left, "right": right, "label": "p"})
}

func assertRefs(t *testing.T, got ref.Set, want ...ref.Ref) {
	t.Helper()
	if got.Len() != len(want) {
		t.Fatalf("got %d refs %v, want %d", got.Len(), got.Sorted(), len(want))
	}
	for _, r := range want {
		if !got.Has(r) {
			t.Errorf("missing %s", r)
		}
	}
}

func TestPickRefsDispatch(t *testing.T) {
	cache := New(0)
	tests := []struct {
		name  string
		value any
		typ   htype.Type
		want  []ref.Ref
	}{
		{"ref", refA, nil, []ref.Ref{refA}},
		{"primitive", "text", nil, nil},
		{"absent optional", nil, htype.NewOptional(htype.Ref), nil},
		{"present optional", refB, htype.NewOptional(htype.Ref), []ref.Ref{refB}},
		{"list", []any{refA, refB, refA}, htype.NewList(htype.Ref), []ref.Ref{refA, refB}},
		{"record", pair(refA, nil), nil, []ref.Ref{refA}},
		{"record with optional", pair(refA, refC), nil, []ref.Ref{refA, refC}},
		{"nested", htype.NewRecordValue(graphT, map[string]any{
			"pairs": []any{pair(refA, nil), pair(refB, refC)},
			"note":  "n",
		}), nil, []ref.Ref{refA, refB, refC}},
		{"record without refs", htype.NewRecordValue(plainT, map[string]any{"text": "x"}), nil, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := cache.PickRefs(test.value, test.typ)
			if err != nil {
				t.Fatalf("PickRefs: %v", err)
			}
			assertRefs(t, got, test.want...)
		})
	}
}

func TestPickRefsShapeMismatch(t *testing.T) {
	cache := New(0)
	if _, err := cache.PickRefs("not a list", htype.NewList(htype.Ref)); !errors.Is(err, htype.ErrValueShape) {
		t.Errorf("got %v, want ErrValueShape", err)
	}
	if _, err := cache.PickRefs([]any{refA}, nil); !errors.Is(err, htype.ErrCannotDeduce) {
		t.Errorf("got %v, want ErrCannotDeduce", err)
	}
}

func TestPickRefsMemoizes(t *testing.T) {
	cache := New(0)
	first, err := cache.PickRefs(pair(refA, refB), nil)
	if err != nil {
		t.Fatalf("PickRefs: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("memo holds %d entries, want 1", cache.Len())
	}

	// A structurally equal value built separately hits the same entry.
	second, err := cache.PickRefs(pair(refA, refB), nil)
	if err != nil {
		t.Fatalf("PickRefs: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("memo holds %d entries after equal value, want 1", cache.Len())
	}
	assertRefs(t, second, refA, refB)

	// The caller owns returned sets.
	first.Add(refC)
	third, err := cache.PickRefs(pair(refA, refB), nil)
	if err != nil {
		t.Fatalf("PickRefs: %v", err)
	}
	assertRefs(t, third, refA, refB)
}

func TestPickRefsMemoBound(t *testing.T) {
	cache := New(2)
	for _, r := range []ref.Ref{refA, refB, refC} {
		if _, err := cache.PickRefs(pair(r, nil), nil); err != nil {
			t.Fatalf("PickRefs: %v", err)
		}
	}
	if cache.Len() > 2 {
		t.Errorf("memo holds %d entries, want at most 2", cache.Len())
	}
}
