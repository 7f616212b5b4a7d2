// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire frames payloads for stream transports.
//
// A packet is a 4-byte big-endian payload length followed by the
// payload:
//
//	[4-byte length][payload]
//
// [EncodePacket], [IsFullPacket] and [DecodePacket] work on buffers and
// support pipelined decoding: a reader appends whatever arrived to its
// buffer and decodes packets off the front while [IsFullPacket] holds.
// [WritePacket] and [ReadPacket] are the blocking stream forms.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the length of the packet length prefix.
const HeaderSize = 4

// MaxPacketSize bounds a packet's payload. A length prefix above it is
// treated as a protocol error rather than an allocation request.
const MaxPacketSize = 64 * 1024 * 1024

var (
	// ErrPacketTooLarge is returned for payloads, or length prefixes,
	// above MaxPacketSize.
	ErrPacketTooLarge = errors.New("wire: packet exceeds maximum size")

	// ErrIncompletePacket is returned by DecodePacket when the buffer
	// does not yet hold a whole packet.
	ErrIncompletePacket = errors.New("wire: incomplete packet")
)

// EncodePacket returns payload with its length prefix.
func EncodePacket(payload []byte) ([]byte, error) {
	if len(payload) > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(payload))
	}
	packet := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(packet, uint32(len(payload)))
	copy(packet[HeaderSize:], payload)
	return packet, nil
}

// IsFullPacket reports whether buf starts with a complete packet.
// An oversized length prefix also reports true, so that DecodePacket
// is called and surfaces the error instead of the reader waiting for
// bytes that will never be accepted.
func IsFullPacket(buf []byte) bool {
	if len(buf) < HeaderSize {
		return false
	}
	length := binary.BigEndian.Uint32(buf)
	if length > MaxPacketSize {
		return true
	}
	return len(buf)-HeaderSize >= int(length)
}

// DecodePacket splits the first packet off buf, returning its payload
// and the remaining bytes. Both alias buf.
func DecodePacket(buf []byte) (payload, rest []byte, err error) {
	if len(buf) < HeaderSize {
		return nil, buf, ErrIncompletePacket
	}
	length := binary.BigEndian.Uint32(buf)
	if length > MaxPacketSize {
		return nil, buf, fmt.Errorf("%w: length prefix %d", ErrPacketTooLarge, length)
	}
	end := HeaderSize + int(length)
	if len(buf) < end {
		return nil, buf, ErrIncompletePacket
	}
	return buf[HeaderSize:end:end], buf[end:], nil
}

// WritePacket writes one framed payload to w.
func WritePacket(w io.Writer, payload []byte) error {
	if len(payload) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(payload))
	}
	var header [HeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing packet header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing packet payload: %w", err)
	}
	return nil
}

// ReadPacket reads one framed payload from r. A clean end of stream
// before the header returns io.EOF; a stream that ends mid-packet
// returns io.ErrUnexpectedEOF.
func ReadPacket(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxPacketSize {
		return nil, fmt.Errorf("%w: length prefix %d", ErrPacketTooLarge, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading packet payload: %w", err)
	}
	return payload, nil
}
