// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// PeerT is the record type of a peer's piece.
var PeerT = &htype.Record{
	Module: "mosaic",
	Name:   "peer",
	Fields: []htype.Field{{Name: "public_key", Type: htype.Bytes}},
}

// peerTypeRef is the descriptor ref of PeerT. Descriptor refs are
// content addresses, so any store yields the same value.
var peerTypeRef = sync.OnceValues(func() (ref.Ref, error) {
	return mosaic.New(nil).TypeRef(PeerT)
})

// Peer is the public identity of a node.
type Peer struct {
	PublicKey ed25519.PublicKey
}

// NewPeer returns the peer with the given public key.
func NewPeer(publicKey []byte) (*Peer, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("peer public key is %d bytes, want %d", len(publicKey), ed25519.PublicKeySize)
	}
	return &Peer{PublicKey: append(ed25519.PublicKey(nil), publicKey...)}, nil
}

// ParsePeer parses a hex-encoded public key.
func ParsePeer(text string) (*Peer, error) {
	publicKey, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("parsing peer public key: %w", err)
	}
	return NewPeer(publicKey)
}

// String returns the hex-encoded public key.
func (p *Peer) String() string {
	return hex.EncodeToString(p.PublicKey)
}

// Piece returns the peer as a storable record value.
func (p *Peer) Piece() *htype.RecordValue {
	return htype.NewRecordValue(PeerT, map[string]any{"public_key": []byte(p.PublicKey)})
}

// Ref returns the content address of the peer's piece. It equals the
// ref a store assigns when the piece is put.
func (p *Peer) Ref() (ref.Ref, error) {
	typeRef, err := peerTypeRef()
	if err != nil {
		return ref.Ref{}, fmt.Errorf("describing peer type: %w", err)
	}
	encoded, err := htype.Encode(PeerT, p.Piece())
	if err != nil {
		return ref.Ref{}, err
	}
	return mosaic.Capsule{TypeRef: typeRef, EncodedObject: encoded}.Ref()
}
