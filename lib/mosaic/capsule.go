// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mosaic

import (
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/mosaic/lib/codec"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// Algorithm is the ref algorithm of every stored capsule.
const Algorithm = "blake3"

// capsuleDomainKey is the BLAKE3 key for capsule hashing: the ASCII
// domain name, zero-padded to 32 bytes. Changing it changes every ref.
var capsuleDomainKey = [32]byte{
	'm', 'o', 's', 'a', 'i', 'c', '.', 'c', 'a', 'p', 's', 'u', 'l', 'e',
}

// Capsule is the unit of storage and transfer.
type Capsule struct {
	_             struct{} `cbor:",toarray"`
	TypeRef       ref.Ref
	EncodedObject []byte
}

// Encode returns the deterministic CBOR encoding of c.
func (c Capsule) Encode() ([]byte, error) {
	data, err := codec.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding capsule: %w", err)
	}
	return data, nil
}

// Ref returns the content address of c.
func (c Capsule) Ref() (ref.Ref, error) {
	data, err := c.Encode()
	if err != nil {
		return ref.Ref{}, err
	}
	return HashCapsule(data), nil
}

// Size returns the length of c's encoding. Size limits on bundles are
// measured in this unit.
func (c Capsule) Size() int {
	data, err := c.Encode()
	if err != nil {
		return len(c.EncodedObject)
	}
	return len(data)
}

// HashCapsule returns the ref of an encoded capsule.
func HashCapsule(encoded []byte) ref.Ref {
	hasher, err := blake3.NewKeyed(capsuleDomainKey[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes.
		panic("mosaic: invalid capsule domain key: " + err.Error())
	}
	hasher.Write(encoded)
	return ref.New(Algorithm, hasher.Sum(nil))
}
