// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/bureau-foundation/mosaic/lib/codec"
)

func TestParseRoundtrip(t *testing.T) {
	original := New("blake3", []byte{0x00, 0x11, 0xAB, 0xFF})

	parsed, err := Parse(original.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", original.String(), err)
	}
	if parsed != original {
		t.Errorf("Parse(%q) = %v, want %v", original.String(), parsed, original)
	}
	if original.String() != "blake3:0011abff" {
		t.Errorf("String() = %q, want %q", original.String(), "blake3:0011abff")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no separator", "blake3"},
		{"empty algorithm", ":00ff"},
		{"bad hex", "blake3:zz"},
		{"empty digest", "blake3:"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Parse(test.input); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", test.input)
			}
		})
	}
}

func TestPhony(t *testing.T) {
	typeOfTypes := Phony("type")
	if !typeOfTypes.IsPhony() {
		t.Error("Phony(\"type\").IsPhony() = false")
	}
	if typeOfTypes != Phony("type") {
		t.Error("phony refs with the same name are not equal")
	}
	if typeOfTypes == Phony("other") {
		t.Error("phony refs with different names are equal")
	}
	if New("blake3", []byte("type")).IsPhony() {
		t.Error("blake3 ref reports IsPhony")
	}
	if typeOfTypes.Short() != "phony:type" {
		t.Errorf("Short() = %q, want %q", typeOfTypes.Short(), "phony:type")
	}
}

func TestDigestIsCopied(t *testing.T) {
	digest := []byte{1, 2, 3}
	r := New("blake3", digest)
	digest[0] = 9

	if got := r.Digest(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Digest() = %v after caller mutation, want [1 2 3]", got)
	}
}

func TestCBORRoundtrip(t *testing.T) {
	original := New("blake3", bytes.Repeat([]byte{0x5A}, 32))

	data, err := codec.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Ref
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("CBOR roundtrip = %v, want %v", decoded, original)
	}

	var generic any
	if err := codec.Unmarshal(data, &generic); err != nil {
		t.Fatalf("Unmarshal into any: %v", err)
	}
	fromWire, err := FromWire(generic)
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}
	if fromWire != original {
		t.Errorf("FromWire = %v, want %v", fromWire, original)
	}
}

func TestFromWireRejectsBadShapes(t *testing.T) {
	for _, raw := range []any{
		"blake3:00",
		[]any{"blake3"},
		[]any{int64(1), []byte{1}},
		[]any{"blake3", "not bytes"},
	} {
		if _, err := FromWire(raw); err == nil {
			t.Errorf("FromWire(%#v) succeeded, want error", raw)
		}
	}
}

func TestJSONText(t *testing.T) {
	type holder struct {
		Receiver Ref `json:"receiver"`
	}
	original := holder{Receiver: New("blake3", []byte{0xCA, 0xFE})}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if string(data) != `{"receiver":"blake3:cafe"}` {
		t.Errorf("json = %s", data)
	}

	var decoded holder
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("json roundtrip = %+v, want %+v", decoded, original)
	}
}

func TestSet(t *testing.T) {
	a := New("blake3", []byte{1})
	b := New("blake3", []byte{2})
	c := New("blake3", []byte{3})

	set := NewSet(c, a)
	set.Add(a)
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}
	if !set.Has(a) || set.Has(b) {
		t.Error("Has reports wrong membership")
	}

	clone := set.Clone()
	clone.Add(b)
	if set.Has(b) {
		t.Error("Clone shares storage with the original")
	}

	set.Merge(NewSet(b))
	sorted := set.Sorted()
	if len(sorted) != 3 || sorted[0] != a || sorted[1] != b || sorted[2] != c {
		t.Errorf("Sorted() = %v, want [a b c]", sorted)
	}

	var empty Set
	if empty.Has(a) {
		t.Error("nil set reports membership")
	}
	if empty.Clone().Len() != 0 {
		t.Error("Clone of nil set is not empty")
	}
}
