// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/mosaic/cmd/mosaic/cli"
	"github.com/bureau-foundation/mosaic/lib/association"
	"github.com/bureau-foundation/mosaic/lib/bundle"
	"github.com/bureau-foundation/mosaic/lib/compress"
	"github.com/bureau-foundation/mosaic/lib/htype"
	"github.com/bureau-foundation/mosaic/lib/mosaic"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/ref"
	"github.com/bureau-foundation/mosaic/lib/route"
	"github.com/bureau-foundation/mosaic/lib/testutil"
	"github.com/bureau-foundation/mosaic/transport"
)

const sampleNote = `{
	// JSONC: comments and trailing commas are fine.
	"title": "quarterly numbers",
	"body": "see attachment",
	"tags": ["finance", "q3",],
	"attachments": ["revenue,cost\n10,7\n"],
}`

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := root(&out).Execute(args); err != nil {
		t.Fatalf("mosaic %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func decodeJSON[T any](t *testing.T, text string) T {
	t.Helper()
	var value T
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		t.Fatalf("decoding %q: %v", text, err)
	}
	return value
}

// newCLIIdentity creates an identity through the CLI and returns its
// key paths and summary.
func newCLIIdentity(t *testing.T, dir, name string) (keyPath, ageKeyPath string, summary identitySummary) {
	t.Helper()
	keyPath = filepath.Join(dir, name+".age")
	ageKeyPath = filepath.Join(dir, name+".key")
	output := runCLI(t, "identity", "new", "--out", keyPath, "--age-key-out", ageKeyPath, "--json")
	return keyPath, ageKeyPath, decodeJSON[identitySummary](t, output)
}

func TestIdentityNewAndShow(t *testing.T) {
	dir := t.TempDir()
	keyPath, ageKeyPath, created := newCLIIdentity(t, dir, "alice")
	if !strings.HasPrefix(created.Peer, "blake3:") {
		t.Errorf("peer = %q, want a blake3 ref", created.Peer)
	}
	if len(created.PublicKey) != 64 {
		t.Errorf("public key %q is %d hex digits, want 64", created.PublicKey, len(created.PublicKey))
	}

	shown := decodeJSON[identitySummary](t, runCLI(t, "identity", "show", "--key", keyPath, "--age-key", ageKeyPath, "--json"))
	if shown != created {
		t.Errorf("show = %+v, want %+v", shown, created)
	}

	text := runCLI(t, "identity", "show", "--key", keyPath, "--age-key", ageKeyPath)
	if !strings.Contains(text, created.PublicKey) {
		t.Errorf("show output %q does not contain the public key", text)
	}
}

func TestIdentityNewRequiresRecipient(t *testing.T) {
	var out bytes.Buffer
	err := root(&out).Execute([]string{"identity", "new", "--out", filepath.Join(t.TempDir(), "id.age")})
	if err == nil || !strings.Contains(err.Error(), "recipient") {
		t.Errorf("got %v, want an error about recipients", err)
	}
}

func TestSendToFileAndInspect(t *testing.T) {
	dir := t.TempDir()
	keyPath, ageKeyPath, sender := newCLIIdentity(t, dir, "sender")
	_, _, receiver := newCLIIdentity(t, dir, "receiver")
	notePath := testutil.WriteFile(t, dir, "note.jsonc", sampleNote)
	packetPath := filepath.Join(dir, "out.pkt")

	output := runCLI(t, "send", "--key", keyPath, "--age-key", ageKeyPath,
		"--to", receiver.PublicKey, "--out", packetPath, "--json", notePath)
	sent := decodeJSON[sendSummary](t, output)
	if sent.Receiver != receiver.Peer {
		t.Errorf("receiver = %s, want %s", sent.Receiver, receiver.Peer)
	}
	// Note, attachment, and the descriptors of the note, its list
	// fields and string.
	if sent.Capsules < 3 {
		t.Errorf("sent %d capsules, want at least 3", sent.Capsules)
	}

	// A second invocation starts with a fresh seen set, so it appends
	// an identical bundle.
	runCLI(t, "send", "--key", keyPath, "--age-key", ageKeyPath,
		"--to", receiver.PublicKey, "--out", packetPath, "--compression", "lz4", notePath)

	packets := decodeJSON[[]packetSummary](t, runCLI(t, "packet", "inspect", "--json", packetPath))
	if len(packets) != 2 {
		t.Fatalf("inspected %d packets, want 2", len(packets))
	}
	for i, packet := range packets {
		if !packet.Verified {
			t.Errorf("packet %d failed verification: %s", i, packet.VerifyError)
		}
		if packet.Sender != sender.PublicKey {
			t.Errorf("packet %d sender = %s, want %s", i, packet.Sender, sender.PublicKey)
		}
		if packet.Receiver != receiver.Peer {
			t.Errorf("packet %d receiver = %s, want %s", i, packet.Receiver, receiver.Peer)
		}
		if len(packet.Roots) != 1 || packet.Roots[0] != sent.Note {
			t.Errorf("packet %d roots = %v, want [%s]", i, packet.Roots, sent.Note)
		}
		if packet.Capsules != sent.Capsules {
			t.Errorf("packet %d carries %d capsules, want %d", i, packet.Capsules, sent.Capsules)
		}
	}
	if packets[0].Compression != "zstd" && packets[0].Compression != "none" {
		t.Errorf("packet 0 compression = %s, want zstd or none", packets[0].Compression)
	}
	// Ed25519 signatures are deterministic, so the same bundle for the
	// same receiver yields the same parcel id.
	if packets[0].Parcel != packets[1].Parcel {
		t.Errorf("parcel ids %s and %s differ for identical bundles", packets[0].Parcel, packets[1].Parcel)
	}
	if packets[1].Compression == "zstd" {
		t.Errorf("packet 1 compression = zstd, want lz4 or none")
	}

	diag := runCLI(t, "packet", "inspect", "--diag", packetPath)
	if !strings.Contains(diag, "quarterly numbers") {
		t.Errorf("diagnostic output does not contain the note title:\n%s", diag)
	}
	if !strings.Contains(diag, "valid") {
		t.Errorf("text output does not report the signature:\n%s", diag)
	}
}

func TestInspectReportsBadSignature(t *testing.T) {
	sender, err := peer.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	defer sender.Close()
	receiver, err := peer.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	defer receiver.Close()

	store := mosaic.New(nil)
	noteRef, err := putNote(store, noteFile{Title: "tampered"})
	if err != nil {
		t.Fatalf("putNote: %v", err)
	}
	_, b, err := bundle.NewBundler(store, nil, nil).Bundle([]ref.Ref{noteRef}, nil, 0)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	parcel, err := receiver.Peer().MakeParcel(b, sender)
	if err != nil {
		t.Fatalf("MakeParcel: %v", err)
	}
	parcel.Receiver = noteRef

	path := filepath.Join(t.TempDir(), "bad.pkt")
	if err := appendPacket(path, parcel, compress.None); err != nil {
		t.Fatalf("appendPacket: %v", err)
	}

	var out bytes.Buffer
	err = root(&out).Execute([]string{"packet", "inspect", path})
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 {
		t.Fatalf("got %v, want exit code 2", err)
	}
	if !strings.Contains(out.String(), "INVALID") {
		t.Errorf("output does not flag the signature:\n%s", out.String())
	}
}

func TestSendFlagValidation(t *testing.T) {
	dir := t.TempDir()
	keyPath, ageKeyPath, _ := newCLIIdentity(t, dir, "sender")
	_, _, receiver := newCLIIdentity(t, dir, "receiver")
	notePath := testutil.WriteFile(t, dir, "note.jsonc", sampleNote)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no destination", []string{"--to", receiver.PublicKey}, "exactly one"},
		{"both destinations", []string{"--to", receiver.PublicKey, "--address", "127.0.0.1:1", "--out", filepath.Join(dir, "x")}, "exactly one"},
		{"bad compression", []string{"--to", receiver.PublicKey, "--out", filepath.Join(dir, "x"), "--compression", "brotli"}, "unknown compression"},
		{"bad receiver", []string{"--to", "abcd", "--out", filepath.Join(dir, "x")}, "public key"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			args := append([]string{"send", "--key", keyPath, "--age-key", ageKeyPath}, test.args...)
			args = append(args, notePath)
			var out bytes.Buffer
			err := root(&out).Execute(args)
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("got %v, want an error containing %q", err, test.want)
			}
		})
	}
}

func TestLoadNoteRejectsMissingTitle(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "note.jsonc", `{"body": "untitled"}`)
	if _, err := loadNote(path); err == nil {
		t.Error("loadNote accepted a note without a title")
	}
}

func TestPutNoteStoresAttachmentsSeparately(t *testing.T) {
	store := mosaic.New(nil)
	noteRef, err := putNote(store, noteFile{Title: "t", Attachments: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("putNote: %v", err)
	}
	record, err := store.ResolveRef(noteRef)
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	value := record.Value.(*htype.RecordValue)
	attachments := value.Get("attachments").([]any)
	if len(attachments) != 2 {
		t.Fatalf("note has %d attachments, want 2", len(attachments))
	}
	want, err := store.Put("b")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if attachments[1] != want {
		t.Errorf("attachments[1] = %v, want %v", attachments[1], want)
	}
}

func TestSendOverTCP(t *testing.T) {
	dir := t.TempDir()
	keyPath, ageKeyPath, sender := newCLIIdentity(t, dir, "sender")
	notePath := testutil.WriteFile(t, dir, "note.jsonc", sampleNote)

	receiver, err := peer.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	defer receiver.Close()
	receiverRef, err := receiver.Peer().Ref()
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}

	store := mosaic.New(nil)
	table := route.NewTable()
	received := make(chan *bundle.Bundle, 1)
	server := &transport.Server{
		Self: receiverRef,
		Unbundler: &bundle.Unbundler{
			Store:        store,
			Associations: association.NewRegistry(),
			Hooks: []bundle.Hook{&route.AnnouncementHook{
				Store: store,
				Table: table,
				NewRoute: func(address string) route.Route {
					return route.NewTCPRoute(address, &transport.TCPDialer{}, route.TCPConfig{})
				},
			}},
		},
		Handler: func(_ context.Context, _ *peer.Parcel, b *bundle.Bundle) error {
			received <- b
			return nil
		},
	}
	listener, err := transport.NewTCPListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		server.Serve(ctx, listener)
	}()
	defer func() {
		cancel()
		testutil.RequireClosed(t, serveDone, 5*time.Second, "Serve returning")
	}()

	output := runCLI(t, "send", "--key", keyPath, "--age-key", ageKeyPath,
		"--to", receiver.Peer().String(), "--address", listener.Address(),
		"--announce", "sender.example:7420", "--json", notePath)
	sent := decodeJSON[sendSummary](t, output)

	b := testutil.RequireReceive(t, received, 5*time.Second, "waiting for the parcel")
	if len(b.Roots) != 2 {
		t.Fatalf("bundle roots = %v, want the note and the sender", b.Roots)
	}
	if b.Roots[0].String() != sent.Note {
		t.Errorf("first root = %s, want %s", b.Roots[0], sent.Note)
	}
	if len(b.Associations) != 1 {
		t.Errorf("bundle carries %d associations, want 1", len(b.Associations))
	}

	record, err := store.ResolveRef(b.Roots[0])
	if err != nil {
		t.Fatalf("receiver cannot resolve the note: %v", err)
	}
	note := record.Value.(*htype.RecordValue)
	if got := note.StringField("title"); got != "quarterly numbers" {
		t.Errorf("title = %q, want %q", got, "quarterly numbers")
	}

	routes := table.PeerRouteList(b.Roots[1])
	if len(routes) != 1 {
		t.Fatalf("learned %d routes for the sender, want 1", len(routes))
	}
	if b.Roots[1].String() != sender.Peer {
		t.Errorf("second root = %s, want sender %s", b.Roots[1], sender.Peer)
	}
}

func TestVersionCommand(t *testing.T) {
	if output := runCLI(t, "version"); !strings.HasPrefix(output, "mosaic ") {
		t.Errorf("version output = %q, want it to start with \"mosaic \"", output)
	}
}
