// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package association

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

var (
	typeRef  = ref.New("blake3", []byte{1})
	valueRef = ref.New("blake3", []byte{2})
	metaRef  = ref.New("blake3", []byte{3})
)

func TestPieceRoundtripThroughStore(t *testing.T) {
	store := mosaic.New(nil)
	original := Association{Bases: []ref.Ref{typeRef, valueRef}, Key: "label", Value: metaRef}

	r, err := original.Ref(store)
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	again, err := original.Ref(store)
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	if r != again {
		t.Errorf("association ref not stable: %s then %s", r, again)
	}

	// Descriptors are content-addressed, so storing the type in a
	// fresh store reproduces the sender's descriptor refs.
	fresh := mosaic.New(nil)
	capsule, _ := store.Get(r)
	freshTypeRef, err := fresh.TypeRef(AssociationT)
	if err != nil {
		t.Fatalf("TypeRef: %v", err)
	}
	if freshTypeRef != capsule.TypeRef {
		t.Fatalf("type ref %s, want %s", freshTypeRef, capsule.TypeRef)
	}
	if _, err := fresh.RegisterCapsule(capsule); err != nil {
		t.Fatalf("RegisterCapsule: %v", err)
	}
	record, err := fresh.ResolveRef(r)
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	decoded, err := FromPiece(record.Value.(*htype.RecordValue))
	if err != nil {
		t.Fatalf("FromPiece: %v", err)
	}
	if decoded.Key != original.Key || decoded.Value != original.Value || len(decoded.Bases) != 2 {
		t.Errorf("got %+v, want %+v", decoded, original)
	}
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	onType := Association{Bases: []ref.Ref{typeRef}, Key: "doc", Value: metaRef}
	onBoth := Association{Bases: []ref.Ref{typeRef, valueRef}, Key: "label", Value: metaRef}
	registry.Register(onType)
	registry.Register(onBoth)
	registry.Register(onBoth)

	if registry.Len() != 2 {
		t.Errorf("Len = %d, want 2", registry.Len())
	}
	got := registry.AssociationsFor(typeRef, valueRef)
	if len(got) != 2 {
		t.Fatalf("AssociationsFor returned %d, want 2 (each once)", len(got))
	}
	if got[0].Key != "doc" || got[1].Key != "label" {
		t.Errorf("order = [%s %s], want [doc label]", got[0].Key, got[1].Key)
	}
	if got := registry.AssociationsFor(metaRef); len(got) != 0 {
		t.Errorf("unrelated base returned %d associations", len(got))
	}
}

func TestRegisterAssociationRejectsOtherRecords(t *testing.T) {
	registry := NewRegistry()
	other := &htype.Record{Module: "test", Name: "other"}
	if err := registry.RegisterAssociation(htype.NewRecordValue(other, nil)); !errors.Is(err, htype.ErrValueShape) {
		t.Errorf("got %v, want ErrValueShape", err)
	}
	if err := registry.RegisterAssociation(Association{Bases: []ref.Ref{valueRef}, Key: "k", Value: metaRef}.Piece()); err != nil {
		t.Fatalf("RegisterAssociation: %v", err)
	}
	if got := registry.AssociationsFor(valueRef); len(got) != 1 {
		t.Errorf("AssociationsFor = %d associations, want 1", len(got))
	}
}
