// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/mosaic/lib/association"
	"github.com/bureau-foundation/mosaic/lib/auditlog"
	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/clock"
	"github.com/bureau-foundation/mosaic/lib/compress"
	"github.com/bureau-foundation/mosaic/lib/config"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
	"github.com/bureau-foundation/mosaic/lib/route"
	"github.com/bureau-foundation/mosaic/transport"
)

// node is a running mosaic node: its store, routes, audit log and the
// server and transport built over them.
type node struct {
	identity *peer.Identity
	self     ref.Ref

	store    *mosaic.Mosaic
	registry *association.Registry
	table    *route.Table
	audit    auditlog.Log

	server    *transport.Server
	transport *transport.Transport
	newRoute  func(address string) route.Route

	staticPeers []*peer.Peer
	advertise   string
	logger      *slog.Logger

	// Routes learned while serving add closers concurrently.
	mu      sync.Mutex
	closers []func() error
}

func newNode(ctx context.Context, cfg *config.Config, identity *peer.Identity, logger *slog.Logger) (*node, error) {
	self, err := identity.Peer().Ref()
	if err != nil {
		return nil, err
	}
	compression, err := compress.ParseTag(cfg.Transport.Compression)
	if err != nil {
		return nil, err
	}
	backoff, err := cfg.BackoffDuration()
	if err != nil {
		return nil, err
	}

	n := &node{
		identity:  identity,
		self:      self,
		store:     mosaic.New(logger),
		registry:  association.NewRegistry(),
		table:     route.NewTable(),
		advertise: cfg.Node.Advertise,
		logger:    logger,
	}

	if cfg.Audit.Path != "" {
		audit, err := auditlog.OpenSQLite(auditlog.SQLiteConfig{Path: cfg.Audit.Path, Logger: logger})
		if err != nil {
			return nil, err
		}
		n.audit = audit
		n.addCloser(audit.Close)
	} else {
		n.audit = auditlog.NewMemory(clock.Real())
	}

	dialer := &transport.TCPDialer{}
	n.newRoute = func(address string) route.Route {
		tcpRoute := route.NewTCPRoute(address, dialer, route.TCPConfig{
			Compression: &compression,
			Backoff:     backoff,
			Logger:      logger,
		})
		n.addCloser(tcpRoute.Close)
		return tcpRoute
	}

	for i, peerConfig := range cfg.Peers {
		p, err := peer.ParsePeer(peerConfig.PublicKey)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("peers[%d]: %w", i, err)
		}
		peerRef, err := p.Ref()
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("peers[%d]: %w", i, err)
		}
		n.table.Add(peerRef, n.newRoute(peerConfig.Address))
		n.staticPeers = append(n.staticPeers, p)
	}

	n.server = &transport.Server{
		Self: self,
		Unbundler: &bundle.Unbundler{
			Store:        n.store,
			Associations: n.registry,
			Hooks: []bundle.Hook{&route.AnnouncementHook{
				Store:    n.store,
				Table:    n.table,
				NewRoute: n.newRoute,
				// Nobody else gets to say how this node is reached.
				Accept:   func(peerRef ref.Ref) bool { return peerRef != self },
				Logger:   logger,
			}},
			Logger: logger,
		},
		Audit:   n.audit,
		Handler: n.handleParcel,
		Logger:  logger,
	}
	n.transport = &transport.Transport{
		Routes:    n.table,
		Bundler:   bundle.NewBundler(n.store, n.registry, logger),
		Audit:     n.audit,
		SizeLimit: cfg.Transport.SizeLimit,
		Logger:    logger,
	}

	if err := n.reportPending(ctx); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// Run announces the node to its static peers, when it has an address
// to advertise, and serves parcels until ctx is cancelled.
func (n *node) Run(ctx context.Context, listener transport.Listener) error {
	if n.advertise != "" {
		if err := n.announce(ctx); err != nil {
			n.logger.Warn("announcing to static peers", "error", err)
		}
	}
	return n.server.Serve(ctx, listener)
}

// announce sends every static peer this node's peer record together
// with a route announcement for the advertised address. Failures are
// joined; one unreachable peer does not stop the rest.
func (n *node) announce(ctx context.Context) error {
	selfRef, err := n.store.PutTyped(peer.PeerT, n.identity.Peer().Piece())
	if err != nil {
		return err
	}
	if _, err := route.Announce(n.store, n.registry, selfRef, n.advertise); err != nil {
		return err
	}

	var errs []error
	for _, p := range n.staticPeers {
		if err := n.transport.Send(ctx, p, n.identity, []ref.Ref{selfRef}); err != nil {
			errs = append(errs, fmt.Errorf("peer %s: %w", p, err))
			continue
		}
		n.logger.Info("announced", "peer", p.String(), "address", n.advertise)
	}
	return errors.Join(errs...)
}

func (n *node) handleParcel(_ context.Context, parcel *peer.Parcel, b *bundle.Bundle) error {
	roots := make([]string, len(b.Roots))
	for i, root := range b.Roots {
		roots[i] = root.Short()
	}
	n.logger.Info("received parcel",
		"parcel", parcel.ID(),
		"sender", hex.EncodeToString(parcel.Sender),
		"roots", roots,
		"capsules", len(b.Capsules),
		"associations", len(b.Associations),
	)
	return nil
}

// reportPending logs incoming audit entries that were added but never
// committed by an earlier run.
func (n *node) reportPending(ctx context.Context) error {
	pending, err := n.audit.Pending(ctx, auditlog.Incoming)
	if err != nil {
		return fmt.Errorf("reading pending audit entries: %w", err)
	}
	for _, entry := range pending {
		n.logger.Warn("parcel was accepted but never handled",
			"parcel", entry.ParcelID,
			"sender", entry.Sender,
			"added_at", entry.AddedAt,
		)
	}
	return nil
}

func (n *node) addCloser(closer func() error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closers = append(n.closers, closer)
}

// Close releases every route connection and then the audit log.
func (n *node) Close() error {
	n.mu.Lock()
	closers := n.closers
	n.closers = nil
	n.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
