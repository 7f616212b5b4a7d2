// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

// Identity is a peer's signing keypair. Only the 32-byte seed is kept,
// in a locked buffer outside the Go heap; each Sign expands it into a
// short-lived heap key. The caller must Close it when done.
type Identity struct {
	public     ed25519.PublicKey
	seedBuffer *keyBuffer
}

// GenerateIdentity creates a fresh random identity.
func GenerateIdentity() (*Identity, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generating identity seed: %w", err)
	}
	return NewIdentity(seed)
}

// NewIdentity derives an identity from a 32-byte Ed25519 seed. The
// seed slice is zeroed.
func NewIdentity(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		clear(seed)
		return nil, fmt.Errorf("identity seed is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	public := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(public, privateKey.Public().(ed25519.PublicKey))
	clear(privateKey)

	buffer, err := newKeyBuffer(seed)
	if err != nil {
		clear(seed)
		return nil, err
	}
	return &Identity{public: public, seedBuffer: buffer}, nil
}

// PublicKey returns the identity's public key.
func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.public
}

// Peer returns the public side of the identity.
func (i *Identity) Peer() *Peer {
	return &Peer{PublicKey: i.public}
}

// Sign signs message with the identity's private key. ed25519.Sign
// caches per-key state through weak pointers, which only work on heap
// memory, so the key is expanded onto the heap and cleared afterwards.
func (i *Identity) Sign(message []byte) []byte {
	seed := i.seed()
	privateKey := ed25519.NewKeyFromSeed(seed)
	clear(seed)
	signature := ed25519.Sign(privateKey, message)
	clear(privateKey)
	return signature
}

// seed copies the private seed out of protected memory. The caller
// must clear the result.
func (i *Identity) seed() []byte {
	return bytes.Clone(i.seedBuffer.bytes())
}

// Close zeroes and releases the seed. Idempotent.
func (i *Identity) Close() error {
	return i.seedBuffer.close()
}
