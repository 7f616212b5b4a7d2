// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/codec"
	"github.com/bureau-foundation/mosaic/lib/compress"
	"github.com/bureau-foundation/mosaic/lib/ref"
)

// MaxParcelSize bounds the uncompressed size a received envelope may
// claim.
const MaxParcelSize = 256 * 1024 * 1024

// ErrBadSignature is returned by Verify when the signature does not
// match the sender's key and the parcel contents.
var ErrBadSignature = errors.New("peer: bad parcel signature")

// Parcel is a signed, addressed bundle.
type Parcel struct {
	_ struct{} `cbor:",toarray"`

	// Receiver is the ref of the receiving peer's piece.
	Receiver ref.Ref
	// Sender is the sender's Ed25519 public key.
	Sender []byte
	// Bundle is the encoded bundle. The signature covers these exact
	// bytes.
	Bundle    []byte
	Signature []byte
}

// signedContent is what a parcel signature covers.
type signedContent struct {
	_        struct{} `cbor:",toarray"`
	Domain   string
	Receiver ref.Ref
	Sender   []byte
	Bundle   []byte
}

const signatureDomain = "mosaic.parcel"

func (p *Parcel) signedBytes() ([]byte, error) {
	data, err := codec.Marshal(signedContent{
		Domain:   signatureDomain,
		Receiver: p.Receiver,
		Sender:   p.Sender,
		Bundle:   p.Bundle,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding signed parcel content: %w", err)
	}
	return data, nil
}

// MakeParcel wraps b for delivery to p, signed by sender.
func (p *Peer) MakeParcel(b *bundle.Bundle, sender *Identity) (*Parcel, error) {
	receiver, err := p.Ref()
	if err != nil {
		return nil, err
	}
	encoded, err := b.Encode()
	if err != nil {
		return nil, err
	}
	parcel := &Parcel{
		Receiver: receiver,
		Sender:   append([]byte(nil), sender.PublicKey()...),
		Bundle:   encoded,
	}
	message, err := parcel.signedBytes()
	if err != nil {
		return nil, err
	}
	parcel.Signature = sender.Sign(message)
	return parcel, nil
}

// Verify checks the signature against the sender key.
func (p *Parcel) Verify() error {
	if len(p.Sender) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: sender key is %d bytes", ErrBadSignature, len(p.Sender))
	}
	message, err := p.signedBytes()
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(p.Sender), message, p.Signature) {
		return ErrBadSignature
	}
	return nil
}

// SenderPeer returns the sending peer.
func (p *Parcel) SenderPeer() (*Peer, error) {
	return NewPeer(p.Sender)
}

// OpenBundle decodes the carried bundle.
func (p *Parcel) OpenBundle() (*bundle.Bundle, error) {
	return bundle.Decode(p.Bundle)
}

// ID returns a short stable identifier for logs and the audit log,
// derived from the signature.
func (p *Parcel) ID() string {
	digest := blake3.Sum256(p.Signature)
	return hex.EncodeToString(digest[:16])
}

// envelope is the framed payload: a compressed CBOR parcel.
type envelope struct {
	_           struct{} `cbor:",toarray"`
	Compression compress.Tag
	Size        uint64
	Data        []byte
}

// EncodeParcel returns the wire payload for p, compressed with
// preferred when that shrinks it.
func EncodeParcel(p *Parcel, preferred compress.Tag) ([]byte, error) {
	data, err := codec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding parcel: %w", err)
	}
	compressed, tag, err := compress.CompressAuto(data, preferred)
	if err != nil {
		return nil, fmt.Errorf("compressing parcel: %w", err)
	}
	payload, err := codec.Marshal(envelope{Compression: tag, Size: uint64(len(data)), Data: compressed})
	if err != nil {
		return nil, fmt.Errorf("encoding parcel envelope: %w", err)
	}
	return payload, nil
}

// DecodeParcel reverses EncodeParcel. It does not verify the
// signature.
func DecodeParcel(payload []byte) (*Parcel, error) {
	var env envelope
	if err := codec.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decoding parcel envelope: %w", err)
	}
	if env.Size > MaxParcelSize {
		return nil, fmt.Errorf("parcel claims %d uncompressed bytes, limit is %d", env.Size, MaxParcelSize)
	}
	data, err := compress.Decompress(env.Data, env.Compression, int(env.Size))
	if err != nil {
		return nil, fmt.Errorf("decompressing parcel: %w", err)
	}
	var parcel Parcel
	if err := codec.Unmarshal(data, &parcel); err != nil {
		return nil, fmt.Errorf("decoding parcel: %w", err)
	}
	return &parcel, nil
}

// EnvelopeInfo describes an envelope without decoding the parcel.
type EnvelopeInfo struct {
	Compression    compress.Tag
	Size           int
	CompressedSize int
}

// InspectEnvelope returns the envelope header fields of payload.
func InspectEnvelope(payload []byte) (EnvelopeInfo, error) {
	var env envelope
	if err := codec.Unmarshal(payload, &env); err != nil {
		return EnvelopeInfo{}, fmt.Errorf("decoding parcel envelope: %w", err)
	}
	return EnvelopeInfo{Compression: env.Compression, Size: int(env.Size), CompressedSize: len(env.Data)}, nil
}
