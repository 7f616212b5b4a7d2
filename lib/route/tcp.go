// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package route

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/mosaic/lib/clock"
	"github.com/bureau-foundation/mosaic/lib/compress"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/wire"
)

// DefaultBackoff is how long a TCP route stays unavailable after a
// failed send.
const DefaultBackoff = 5 * time.Second

// Dialer opens stream connections to a transport address.
type Dialer interface {
	DialContext(ctx context.Context, address string) (net.Conn, error)
}

// TCPRoute sends parcels as framed packets over a connection to a
// remote node. The connection is dialed on first use and kept open;
// after a failed send it is dropped and the route reports unavailable
// until the backoff elapses.
type TCPRoute struct {
	address     string
	dialer      Dialer
	compression compress.Tag
	backoff     time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	mu          sync.Mutex
	conn        net.Conn
	failedUntil time.Time
}

// TCPConfig configures a TCPRoute. Zero values pick defaults: zstd
// compression, DefaultBackoff, the real clock and a discarding logger.
type TCPConfig struct {
	Compression *compress.Tag
	Backoff     time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

// NewTCPRoute returns a route to address through dialer.
func NewTCPRoute(address string, dialer Dialer, config TCPConfig) *TCPRoute {
	route := &TCPRoute{
		address:     address,
		dialer:      dialer,
		compression: compress.Zstd,
		backoff:     config.Backoff,
		clock:       clock.OrReal(config.Clock),
		logger:      config.Logger,
	}
	if config.Compression != nil {
		route.compression = *config.Compression
	}
	if route.backoff <= 0 {
		route.backoff = DefaultBackoff
	}
	if route.logger == nil {
		route.logger = slog.New(slog.DiscardHandler)
	}
	return route
}

// Address returns the remote transport address.
func (r *TCPRoute) Address() string { return r.address }

// Available reports false while the route is backing off.
func (r *TCPRoute) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.clock.Now().Before(r.failedUntil)
}

// Send encodes parcel and writes it as one packet.
func (r *TCPRoute) Send(ctx context.Context, parcel *peer.Parcel) error {
	payload, err := peer.EncodeParcel(parcel, r.compression)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		conn, err := r.dialer.DialContext(ctx, r.address)
		if err != nil {
			r.failLocked()
			return fmt.Errorf("dialing %s: %w", r.address, err)
		}
		r.conn = conn
	}
	deadline, _ := ctx.Deadline()
	if err := r.conn.SetWriteDeadline(deadline); err != nil {
		r.dropLocked()
		return fmt.Errorf("setting write deadline on %s: %w", r.address, err)
	}
	if err := wire.WritePacket(r.conn, payload); err != nil {
		r.dropLocked()
		return fmt.Errorf("sending parcel %s to %s: %w", parcel.ID(), r.address, err)
	}
	r.logger.Debug("parcel sent", "parcel", parcel.ID(), "address", r.address, "bytes", len(payload))
	return nil
}

func (r *TCPRoute) failLocked() {
	r.failedUntil = r.clock.Now().Add(r.backoff)
}

// dropLocked discards a connection that can no longer be trusted to
// carry a whole packet.
func (r *TCPRoute) dropLocked() {
	r.conn.Close()
	r.conn = nil
	r.failLocked()
}

// Close drops the connection, if any.
func (r *TCPRoute) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}
