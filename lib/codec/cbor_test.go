// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

// samplePacked uses the positional ",toarray" layout that capsules,
// refs and bundles use.
type samplePacked struct {
	_         struct{} `cbor:",toarray"`
	Algorithm string
	Digest    []byte
}

// sampleSummary uses json tags, the convention for types the CLI also
// prints.
type sampleSummary struct {
	Roots    int    `json:"roots"`
	Receiver string `json:"receiver,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := samplePacked{Algorithm: "blake3", Digest: []byte{1, 2, 3}}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if data[0]>>5 != 4 {
		t.Fatalf("toarray struct encoded with major type %d, want 4 (array)", data[0]>>5)
	}

	var decoded samplePacked
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Algorithm != original.Algorithm || !bytes.Equal(decoded.Digest, original.Digest) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": int64(1), "alpha": "a", "mid": []any{true, nil}}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestGenericDecodeShapes(t *testing.T) {
	data, err := Marshal([]any{int64(7), int64(-3), "text", []byte{0xAB}, map[string]any{"k": int64(1)}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	items, ok := decoded.([]any)
	if !ok {
		t.Fatalf("decoded %T, want []any", decoded)
	}
	if got, ok := items[0].(int64); !ok || got != 7 {
		t.Errorf("items[0] = %#v, want int64(7)", items[0])
	}
	if got, ok := items[1].(int64); !ok || got != -3 {
		t.Errorf("items[1] = %#v, want int64(-3)", items[1])
	}
	if got, ok := items[2].(string); !ok || got != "text" {
		t.Errorf("items[2] = %#v, want \"text\"", items[2])
	}
	if got, ok := items[3].([]byte); !ok || !bytes.Equal(got, []byte{0xAB}) {
		t.Errorf("items[3] = %#v, want []byte{0xab}", items[3])
	}
	if got, ok := items[4].(map[string]any); !ok || got["k"] != int64(1) {
		t.Errorf("items[4] = %#v, want map[string]any{k: 1}", items[4])
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	summaries := []sampleSummary{
		{Roots: 1, Receiver: "blake3:00ff"},
		{Roots: 3},
		{Roots: 0, Receiver: "blake3:abcd"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, summary := range summaries {
		if err := encoder.Encode(summary); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range summaries {
		var got sampleSummary
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode summary %d: %v", i, err)
		}
		if got != want {
			t.Errorf("summary %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var summary sampleSummary
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &summary); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(samplePacked{Algorithm: "blake3", Digest: []byte{0xAB}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"blake3"`) {
		t.Errorf("notation %q does not contain \"blake3\"", notation)
	}
	if !strings.Contains(notation, "h'ab'") {
		t.Errorf("notation %q does not contain h'ab'", notation)
	}
}

func TestDiagnoseNested(t *testing.T) {
	inner, err := Marshal("hello")
	if err != nil {
		t.Fatalf("Marshal inner: %v", err)
	}
	data, err := Marshal(samplePacked{Algorithm: "blake3", Digest: inner})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	notation, err := DiagnoseNested(data)
	if err != nil {
		t.Fatalf("DiagnoseNested: %v", err)
	}
	if !strings.Contains(notation, `<<"hello">>`) {
		t.Errorf("notation %q does not contain <<\"hello\">>", notation)
	}

	flat, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if strings.Contains(flat, `"hello"`) {
		t.Errorf("Diagnose %q unexpectedly expanded the embedded item", flat)
	}
}

func TestDiagnoseFirst(t *testing.T) {
	item1, err := Marshal("hello")
	if err != nil {
		t.Fatalf("Marshal item 1: %v", err)
	}
	item2, err := Marshal(int64(42))
	if err != nil {
		t.Fatalf("Marshal item 2: %v", err)
	}

	sequence := append(append([]byte{}, item1...), item2...)

	notation, remaining, err := DiagnoseFirst(sequence)
	if err != nil {
		t.Fatalf("DiagnoseFirst: %v", err)
	}
	if !strings.Contains(notation, `"hello"`) {
		t.Errorf("first item notation %q does not contain \"hello\"", notation)
	}
	if !bytes.Equal(remaining, item2) {
		t.Errorf("remaining = %x, want %x", remaining, item2)
	}
}

func BenchmarkMarshal(b *testing.B) {
	value := samplePacked{Algorithm: "blake3", Digest: bytes.Repeat([]byte{7}, 32)}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(value)
	}
}
