// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"fmt"

	"github.com/bureau-foundation/mosaic/lib/codec"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// Bundle is a set of capsules ordered so that every capsule's type
// descriptor and associations precede it, plus the roots it was built
// for and the association refs it carries.
type Bundle struct {
	_            struct{} `cbor:",toarray"`
	Roots        []ref.Ref
	Associations []ref.Ref
	Capsules     []mosaic.Capsule
}

// Encode returns the CBOR encoding of b.
func (b *Bundle) Encode() ([]byte, error) {
	data, err := codec.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}
	return data, nil
}

// Decode decodes a bundle produced by Encode.
func Decode(data []byte) (*Bundle, error) {
	var b Bundle
	if err := codec.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return &b, nil
}

// Size returns the total encoded size of the capsules, the quantity
// the bundler's size limit bounds.
func (b *Bundle) Size() int {
	total := 0
	for _, capsule := range b.Capsules {
		total += capsule.Size()
	}
	return total
}

// IsEmpty reports whether b carries no capsules.
func (b *Bundle) IsEmpty() bool {
	return len(b.Capsules) == 0
}
