// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
)

// ConnHandler serves one accepted stream connection. It owns conn and
// must close it before returning.
type ConnHandler func(ctx context.Context, conn net.Conn)

// Listener accepts inbound stream connections from other nodes.
type Listener interface {
	// Serve accepts connections and runs handler for each on its own
	// goroutine. It blocks until ctx is cancelled or Close is called,
	// and returns nil on clean shutdown after every handler returned.
	Serve(ctx context.Context, handler ConnHandler) error

	// Address returns the address other nodes dial, in the form
	// Dialer.DialContext accepts.
	Address() string

	// Close stops accepting connections.
	Close() error
}

// Dialer opens outbound stream connections. route.TCPRoute dials
// through it.
type Dialer interface {
	DialContext(ctx context.Context, address string) (net.Conn, error)
}
