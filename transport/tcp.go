// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

var (
	_ Listener = (*TCPListener)(nil)
	_ Dialer   = (*TCPDialer)(nil)
)

// TCPListener accepts framed parcel streams over TCP.
type TCPListener struct {
	listener net.Listener

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// NewTCPListener listens on address, e.g. ":7000" or "127.0.0.1:0".
func NewTCPListener(address string) (*TCPListener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &TCPListener{listener: listener, conns: make(map[net.Conn]struct{})}, nil
}

// Serve accepts connections until ctx is cancelled or Close is called.
// Open connections are closed on shutdown so handlers blocked in Read
// return.
func (l *TCPListener) Serve(ctx context.Context, handler ConnHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	var handlers sync.WaitGroup
	defer handlers.Wait()
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			shutdown := ctx.Err() != nil || l.isClosed() || errors.Is(err, net.ErrClosed)
			l.Close()
			if shutdown {
				return nil
			}
			return err
		}
		if !l.track(conn) {
			conn.Close()
			return nil
		}
		handlers.Add(1)
		go func() {
			defer handlers.Done()
			defer l.untrack(conn)
			handler(ctx, conn)
		}()
	}
}

func (l *TCPListener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *TCPListener) untrack(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conns, conn)
}

func (l *TCPListener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Address returns the bound "host:port".
func (l *TCPListener) Address() string {
	return l.listener.Addr().String()
}

// Close stops the listener and closes every open connection. It is
// safe to call more than once.
func (l *TCPListener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conns := l.conns
	l.conns = make(map[net.Conn]struct{})
	l.mu.Unlock()

	for conn := range conns {
		conn.Close()
	}
	return l.listener.Close()
}

// TCPDialer opens TCP connections to other nodes.
type TCPDialer struct {
	// Timeout bounds connection setup. Zero leaves only the context
	// deadline.
	Timeout time.Duration
}

// DialContext opens a TCP connection to address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "tcp", address)
}
