// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func TestTagNames(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		tag, err := ParseTag(name)
		if err != nil {
			t.Fatalf("ParseTag(%q): %v", name, err)
		}
		if tag.String() != name {
			t.Errorf("ParseTag(%q).String() = %q", name, tag.String())
		}
	}
	if _, err := ParseTag("gzip"); err == nil {
		t.Error("ParseTag(\"gzip\") should fail")
	}
	if got := Tag(9).String(); got != "unknown(9)" {
		t.Errorf("Tag(9).String() = %q, want %q", got, "unknown(9)")
	}
}

func TestRoundtrip(t *testing.T) {
	data := bytes.Repeat([]byte("blake3 capsule type_desc field_desc "), 200)
	for _, tag := range []Tag{None, LZ4, Zstd} {
		t.Run(tag.String(), func(t *testing.T) {
			compressed, err := Compress(data, tag)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if tag != None && len(compressed) >= len(data) {
				t.Errorf("compressed %d bytes to %d", len(data), len(compressed))
			}
			decompressed, err := Decompress(compressed, tag, len(data))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Error("roundtrip mismatch")
			}
		})
	}
}

func TestIncompressible(t *testing.T) {
	random := make([]byte, 4096)
	rand.Read(random)

	for _, tag := range []Tag{LZ4, Zstd} {
		if _, err := Compress(random, tag); !errors.Is(err, ErrIncompressible) {
			t.Errorf("%s: got %v, want ErrIncompressible", tag, err)
		}
	}

	out, tag, err := CompressAuto(random, Zstd)
	if err != nil {
		t.Fatalf("CompressAuto: %v", err)
	}
	if tag != None || !bytes.Equal(out, random) {
		t.Errorf("CompressAuto on random data used %s, want none", tag)
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := bytes.Repeat([]byte("abc"), 100)
	for _, tag := range []Tag{None, LZ4, Zstd} {
		compressed, err := Compress(data, tag)
		if err != nil {
			t.Fatalf("%s Compress: %v", tag, err)
		}
		if _, err := Decompress(compressed, tag, len(data)+1); err == nil {
			t.Errorf("%s: Decompress accepted the wrong size", tag)
		}
	}
}

func TestUnsupportedTag(t *testing.T) {
	if _, err := Compress([]byte("x"), Tag(7)); err == nil {
		t.Error("Compress accepted unknown tag")
	}
	if _, err := Decompress([]byte("x"), Tag(7), 1); err == nil {
		t.Error("Decompress accepted unknown tag")
	}
}
