// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bureau-foundation/mosaic/lib/codec"
)

// PhonyAlgorithm is the algorithm name of sentinel refs.
const PhonyAlgorithm = "phony"

// Ref is a content address: a hash algorithm name and a digest.
//
// The digest is held as a string so that Ref stays comparable. The
// zero value is not a valid ref; use IsZero to check.
type Ref struct {
	algorithm string
	digest    string
}

// New returns the ref for digest under algorithm. The digest is
// copied.
func New(algorithm string, digest []byte) Ref {
	return Ref{algorithm: algorithm, digest: string(digest)}
}

// Phony returns the sentinel ref with the given name.
func Phony(name string) Ref {
	return Ref{algorithm: PhonyAlgorithm, digest: name}
}

// Parse parses the text form "algorithm:hex-digest".
func Parse(text string) (Ref, error) {
	algorithm, digestHex, found := strings.Cut(text, ":")
	if !found {
		return Ref{}, fmt.Errorf("ref %q: missing ':' separator", text)
	}
	if algorithm == "" {
		return Ref{}, fmt.Errorf("ref %q: empty algorithm", text)
	}
	digest, err := hex.DecodeString(digestHex)
	if err != nil {
		return Ref{}, fmt.Errorf("ref %q: decoding digest: %w", text, err)
	}
	if len(digest) == 0 {
		return Ref{}, fmt.Errorf("ref %q: empty digest", text)
	}
	return New(algorithm, digest), nil
}

// MustParse is like Parse but panics on error. Use in tests and static
// initialization where the input is known-valid.
func MustParse(text string) Ref {
	r, err := Parse(text)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParse(%q): %v", text, err))
	}
	return r
}

// Algorithm returns the hash algorithm name.
func (r Ref) Algorithm() string { return r.algorithm }

// Digest returns a copy of the digest bytes.
func (r Ref) Digest() []byte { return []byte(r.digest) }

// IsPhony reports whether r is a sentinel built by Phony.
func (r Ref) IsPhony() bool { return r.algorithm == PhonyAlgorithm }

// IsZero reports whether r is the zero value.
func (r Ref) IsZero() bool { return r.algorithm == "" && r.digest == "" }

// String returns the canonical text form "algorithm:hex-digest".
func (r Ref) String() string {
	if r.IsZero() {
		return ""
	}
	return r.algorithm + ":" + hex.EncodeToString([]byte(r.digest))
}

// Short returns the algorithm and the first 12 hex characters of the
// digest, for log lines and tables. Phony refs print their name.
func (r Ref) Short() string {
	if r.IsPhony() {
		return PhonyAlgorithm + ":" + r.digest
	}
	encoded := hex.EncodeToString([]byte(r.digest))
	if len(encoded) > 12 {
		encoded = encoded[:12]
	}
	return r.algorithm + ":" + encoded
}

// Compare orders refs by algorithm, then digest bytes. It returns -1,
// 0 or +1.
func (r Ref) Compare(other Ref) int {
	if c := strings.Compare(r.algorithm, other.algorithm); c != 0 {
		return c
	}
	return strings.Compare(r.digest, other.digest)
}

// wireRef is the CBOR layout of a Ref.
type wireRef struct {
	_         struct{} `cbor:",toarray"`
	Algorithm string
	Digest    []byte
}

// MarshalCBOR encodes r as [algorithm, digest].
func (r Ref) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(wireRef{Algorithm: r.algorithm, Digest: []byte(r.digest)})
}

// UnmarshalCBOR decodes the [algorithm, digest] array.
func (r *Ref) UnmarshalCBOR(data []byte) error {
	var wire wireRef
	if err := codec.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decoding ref: %w", err)
	}
	*r = New(wire.Algorithm, wire.Digest)
	return nil
}

// FromWire converts the generic decoding of a ref (the []any produced
// by decoding into an any target) back into a Ref.
func FromWire(raw any) (Ref, error) {
	items, ok := raw.([]any)
	if !ok || len(items) != 2 {
		return Ref{}, fmt.Errorf("ref: want [algorithm, digest] array, got %T", raw)
	}
	algorithm, ok := items[0].(string)
	if !ok {
		return Ref{}, fmt.Errorf("ref: algorithm is %T, want string", items[0])
	}
	digest, ok := items[1].([]byte)
	if !ok {
		return Ref{}, fmt.Errorf("ref: digest is %T, want bytes", items[1])
	}
	return New(algorithm, digest), nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value.
func (r *Ref) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = Ref{}
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
