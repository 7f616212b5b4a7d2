// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/bureau-foundation/mosaic/lib/auditlog"
	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/netutil"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
	"github.com/bureau-foundation/mosaic/lib/wire"
)

// ErrWrongReceiver is returned for a parcel addressed to another peer.
var ErrWrongReceiver = errors.New("transport: parcel addressed to another peer")

const readChunkSize = 64 * 1024

// ParcelHandler is called for each delivered parcel after its bundle
// has been registered.
type ParcelHandler func(ctx context.Context, parcel *peer.Parcel, b *bundle.Bundle) error

// Server receives parcels for one local peer.
type Server struct {
	// Self is the local peer's ref. Parcels for any other receiver are
	// rejected. A zero Self accepts every parcel.
	Self      ref.Ref
	Unbundler *bundle.Unbundler
	// Audit and Handler may be nil.
	Audit   auditlog.Log
	Handler ParcelHandler
	Logger  *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// Serve receives parcels from every connection listener accepts until
// ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener Listener) error {
	s.logger().Info("receiving parcels", "address", listener.Address(), "self", s.Self.Short())
	return listener.Serve(ctx, s.handleConn)
}

// handleConn reads packets off conn, appending each read to a buffer
// and decoding every complete packet at its front.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := s.logger().With("remote", conn.RemoteAddr().String())

	var buffer []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, readErr := conn.Read(chunk)
		buffer = append(buffer, chunk[:n]...)

		pending := buffer
		for wire.IsFullPacket(pending) {
			payload, rest, err := wire.DecodePacket(pending)
			if err != nil {
				logger.Warn("dropping connection", "error", err)
				return
			}
			if err := s.receive(ctx, payload); err != nil {
				logger.Warn("rejected parcel", "error", err)
			}
			pending = rest
		}
		buffer = append(buffer[:0], pending...)

		if readErr != nil {
			if !netutil.IsExpectedCloseError(readErr) {
				logger.Warn("connection read failed", "error", readErr)
			} else if len(buffer) > 0 {
				logger.Warn("connection closed mid-packet", "buffered", len(buffer))
			}
			return
		}
	}
}

func (s *Server) receive(ctx context.Context, payload []byte) error {
	parcel, err := peer.DecodeParcel(payload)
	if err != nil {
		return err
	}
	return s.Deliver(ctx, parcel)
}

// Deliver accepts one parcel: it checks the signature and receiver,
// records the parcel in the audit log, registers the bundle, runs the
// handler and commits the audit entry. A route.LocalRoute can deliver
// straight into it.
func (s *Server) Deliver(ctx context.Context, parcel *peer.Parcel) error {
	if err := parcel.Verify(); err != nil {
		return fmt.Errorf("parcel %s: %w", parcel.ID(), err)
	}
	if !s.Self.IsZero() && parcel.Receiver != s.Self {
		return fmt.Errorf("%w: parcel %s is for %s", ErrWrongReceiver, parcel.ID(), parcel.Receiver.Short())
	}
	b, err := parcel.OpenBundle()
	if err != nil {
		return fmt.Errorf("parcel %s: %w", parcel.ID(), err)
	}

	if s.Audit != nil {
		if err := s.Audit.AddInMessage(ctx, parcel, b); err != nil {
			return fmt.Errorf("auditing parcel %s: %w", parcel.ID(), err)
		}
	}
	if err := s.Unbundler.RegisterBundle(b); err != nil {
		return fmt.Errorf("registering parcel %s: %w", parcel.ID(), err)
	}
	if s.Handler != nil {
		if err := s.Handler(ctx, parcel, b); err != nil {
			return fmt.Errorf("handling parcel %s: %w", parcel.ID(), err)
		}
	}
	if s.Audit != nil {
		if err := s.Audit.CommitInMessage(ctx, parcel); err != nil {
			return fmt.Errorf("committing parcel %s: %w", parcel.ID(), err)
		}
	}

	s.logger().Debug("parcel received",
		"parcel", parcel.ID(),
		"roots", len(b.Roots),
		"capsules", len(b.Capsules),
	)
	return nil
}
