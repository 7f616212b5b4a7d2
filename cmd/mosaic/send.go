// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mosaic/cmd/mosaic/cli"
	"github.com/bureau-foundation/mosaic/lib/association"
	"github.com/bureau-foundation/mosaic/lib/auditlog"
	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/clock"
	"github.com/bureau-foundation/mosaic/lib/compress"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
	"github.com/bureau-foundation/mosaic/lib/route"
	"github.com/bureau-foundation/mosaic/lib/wire"
	"github.com/bureau-foundation/mosaic/transport"
)

type sendOptions struct {
	keyPath     string
	ageKeyPath  string
	to          string
	address     string
	outPath     string
	announce    string
	compression string
	sizeLimit   int
	timeout     time.Duration
	asJSON      bool
	verbose     bool
}

type sendSummary struct {
	Parcel     string   `json:"parcel"`
	Receiver   string   `json:"receiver"`
	Note       string   `json:"note"`
	Roots      []string `json:"roots"`
	Capsules   int      `json:"capsules"`
	BundleSize int      `json:"bundle_size"`
}

func sendCommand(out io.Writer) *cli.Command {
	var options sendOptions
	return &cli.Command{
		Name:    "send",
		Summary: "Bundle a JSONC note and send it to a peer",
		Description: `Stores the note and each of its attachments as values, bundles them
with their type descriptors and signs the bundle for the receiver.

With --address the parcel is sent over TCP to a mosaic-node. With --out
the framed packet is appended to a file instead, for later delivery or
for "mosaic packet inspect".`,
		Usage: "mosaic send --key FILE --age-key FILE --to PEER (--address HOST:PORT | --out FILE) NOTE.jsonc",
		Examples: []cli.Example{
			{Description: "Send a note to a node", Command: "mosaic send --key id.age --age-key age.key --to 3b6a... --address node:7420 note.jsonc"},
			{Description: "Write the packet to a file", Command: "mosaic send --key id.age --age-key age.key --to 3b6a... --out note.pkt note.jsonc"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("send", pflag.ContinueOnError)
			flagSet.StringVar(&options.keyPath, "key", "", "sealed sender identity file (required)")
			flagSet.StringVar(&options.ageKeyPath, "age-key", "", "age key file that opens the identity (required)")
			flagSet.StringVar(&options.to, "to", "", "receiver public key, hex (required)")
			flagSet.StringVar(&options.address, "address", "", "receiver node address")
			flagSet.StringVar(&options.outPath, "out", "", "append the framed packet to this file instead of sending")
			flagSet.StringVar(&options.announce, "announce", "", "attach a route announcement for the sender at this address")
			flagSet.StringVar(&options.compression, "compression", "zstd", "parcel compression: none, lz4 or zstd")
			flagSet.IntVar(&options.sizeLimit, "size-limit", 4<<20, "bundle size limit in bytes, 0 for unlimited")
			flagSet.DurationVar(&options.timeout, "timeout", 30*time.Second, "give up after this long")
			flagSet.BoolVar(&options.asJSON, "json", false, "print the summary as JSON")
			flagSet.BoolVarP(&options.verbose, "verbose", "v", false, "log bundling and transport details")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one note file")
			}
			level := slog.LevelWarn
			if options.verbose {
				level = slog.LevelDebug
			}
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			ctx, cancelTimeout := context.WithTimeout(ctx, options.timeout)
			defer cancelTimeout()
			return runSend(ctx, out, cli.NewCommandLogger(level), options, args[0])
		},
	}
}

func runSend(ctx context.Context, out io.Writer, logger *slog.Logger, options sendOptions, notePath string) error {
	if options.keyPath == "" || options.ageKeyPath == "" || options.to == "" {
		return errors.New("--key, --age-key and --to are required")
	}
	if (options.address == "") == (options.outPath == "") {
		return errors.New("exactly one of --address or --out is required")
	}
	compression, err := compress.ParseTag(options.compression)
	if err != nil {
		return err
	}

	receiver, err := peer.ParsePeer(options.to)
	if err != nil {
		return err
	}
	receiverRef, err := receiver.Ref()
	if err != nil {
		return err
	}
	sender, err := peer.ReadIdentityFile(options.keyPath, options.ageKeyPath)
	if err != nil {
		return err
	}
	defer sender.Close()

	note, err := loadNote(notePath)
	if err != nil {
		return err
	}

	store := mosaic.New(logger)
	registry := association.NewRegistry()
	noteRef, err := putNote(store, note)
	if err != nil {
		return err
	}
	roots := []ref.Ref{noteRef}

	if options.announce != "" {
		senderRef, err := store.PutTyped(peer.PeerT, sender.Peer().Piece())
		if err != nil {
			return err
		}
		if _, err := route.Announce(store, registry, senderRef, options.announce); err != nil {
			return err
		}
		roots = append(roots, senderRef)
	}

	table := route.NewTable()
	if options.outPath != "" {
		table.Add(receiverRef, &route.LocalRoute{Deliver: func(_ context.Context, parcel *peer.Parcel) error {
			return appendPacket(options.outPath, parcel, compression)
		}})
	} else {
		tcpRoute := route.NewTCPRoute(options.address, &transport.TCPDialer{}, route.TCPConfig{
			Compression: &compression,
			Logger:      logger,
		})
		defer tcpRoute.Close()
		table.Add(receiverRef, tcpRoute)
	}

	audit := auditlog.NewMemory(clock.Real())
	client := &transport.Transport{
		Routes:    table,
		Bundler:   bundle.NewBundler(store, registry, logger),
		Audit:     audit,
		SizeLimit: options.sizeLimit,
		Logger:    logger,
	}
	if err := client.Send(ctx, receiver, sender, roots); err != nil {
		return err
	}

	entries, err := audit.Entries(ctx)
	if err != nil {
		return err
	}
	if len(entries) != 1 {
		return fmt.Errorf("audit log holds %d entries after one send", len(entries))
	}
	entry := entries[0]
	summary := sendSummary{
		Parcel:     entry.ParcelID,
		Receiver:   entry.Receiver.String(),
		Note:       noteRef.String(),
		Capsules:   entry.Capsules,
		BundleSize: entry.BundleSize,
	}
	for _, root := range entry.Roots {
		summary.Roots = append(summary.Roots, root.String())
	}

	if options.asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}
	fmt.Fprintf(out, "sent parcel %s to %s\n", summary.Parcel, receiverRef.Short())
	fmt.Fprintf(out, "  note      %s\n", summary.Note)
	fmt.Fprintf(out, "  capsules  %d (%d bytes)\n", summary.Capsules, summary.BundleSize)
	return nil
}

// appendPacket frames parcel and appends it to path.
func appendPacket(path string, parcel *peer.Parcel, compression compress.Tag) error {
	payload, err := peer.EncodeParcel(parcel, compression)
	if err != nil {
		return err
	}
	packet, err := wire.EncodePacket(payload)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening packet file: %w", err)
	}
	if _, err := file.Write(packet); err != nil {
		file.Close()
		return fmt.Errorf("writing packet: %w", err)
	}
	return file.Close()
}
