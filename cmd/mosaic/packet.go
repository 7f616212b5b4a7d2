// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mosaic/cmd/mosaic/cli"
	"github.com/bureau-foundation/mosaic/lib/codec"
	"github.com/bureau-foundation/mosaic/lib/peer"
	"github.com/bureau-foundation/mosaic/lib/wire"
)

// packetSummary describes one packet of a packet file.
type packetSummary struct {
	Index          int      `json:"index"`
	Parcel         string   `json:"parcel"`
	Compression    string   `json:"compression"`
	CompressedSize int      `json:"compressed_size"`
	Size           int      `json:"size"`
	Receiver       string   `json:"receiver"`
	Sender         string   `json:"sender"`
	Verified       bool     `json:"verified"`
	VerifyError    string   `json:"verify_error,omitempty"`
	Roots          []string `json:"roots"`
	Associations   []string `json:"associations"`
	Capsules       int      `json:"capsules"`
	BundleSize     int      `json:"bundle_size"`
	Diagnostic     string   `json:"diagnostic,omitempty"`
}

func packetCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "packet",
		Summary:     "Work with framed packet files",
		Subcommands: []*cli.Command{packetInspectCommand(out)},
	}
}

func packetInspectCommand(out io.Writer) *cli.Command {
	var (
		diag   bool
		asJSON bool
	)
	return &cli.Command{
		Name:    "inspect",
		Summary: "Decode every packet in a file and summarize it",
		Usage:   "mosaic packet inspect [--diag] [--json] FILE",
		Description: `Prints one summary per packet. Exits with status 2 when any parcel
fails signature verification.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flagSet.BoolVar(&diag, "diag", false, "include CBOR diagnostic notation of each bundle")
			flagSet.BoolVar(&asJSON, "json", false, "print summaries as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one packet file")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading packet file: %w", err)
			}
			summaries, err := inspectPackets(data, diag)
			if err != nil {
				return err
			}
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(summaries); err != nil {
					return err
				}
			} else {
				for _, summary := range summaries {
					renderPacket(out, summary)
				}
			}
			for _, summary := range summaries {
				if !summary.Verified {
					return &cli.ExitError{Code: 2}
				}
			}
			return nil
		},
	}
}

// inspectPackets decodes every packet in data. A signature failure is
// reported in the summary; any other decoding failure stops the walk.
func inspectPackets(data []byte, diag bool) ([]packetSummary, error) {
	var summaries []packetSummary
	for index := 0; len(data) > 0; index++ {
		payload, rest, err := wire.DecodePacket(data)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", index, err)
		}
		data = rest

		info, err := peer.InspectEnvelope(payload)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", index, err)
		}
		parcel, err := peer.DecodeParcel(payload)
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", index, err)
		}
		b, err := parcel.OpenBundle()
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", index, err)
		}

		summary := packetSummary{
			Index:          index,
			Parcel:         parcel.ID(),
			Compression:    info.Compression.String(),
			CompressedSize: info.CompressedSize,
			Size:           info.Size,
			Receiver:       parcel.Receiver.String(),
			Verified:       true,
			Roots:          []string{},
			Associations:   []string{},
			Capsules:       len(b.Capsules),
			BundleSize:     b.Size(),
		}
		if sender, err := parcel.SenderPeer(); err == nil {
			summary.Sender = sender.String()
		}
		if err := parcel.Verify(); err != nil {
			summary.Verified = false
			summary.VerifyError = err.Error()
		}
		for _, root := range b.Roots {
			summary.Roots = append(summary.Roots, root.String())
		}
		for _, a := range b.Associations {
			summary.Associations = append(summary.Associations, a.String())
		}
		if diag {
			notation, err := codec.DiagnoseNested(parcel.Bundle)
			if err != nil {
				return nil, fmt.Errorf("packet %d: diagnosing bundle: %w", index, err)
			}
			summary.Diagnostic = notation
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func renderPacket(out io.Writer, summary packetSummary) {
	fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("packet %d  parcel %s", summary.Index, summary.Parcel)))
	row := func(label, value string) {
		fmt.Fprintf(out, "  %s%s\n", labelStyle.Render(label), value)
	}
	signature := goodStyle.Render("valid")
	if !summary.Verified {
		signature = badStyle.Render("INVALID: " + summary.VerifyError)
	}
	row("signature", signature)
	row("receiver", summary.Receiver)
	row("sender", summary.Sender)
	row("envelope", fmt.Sprintf("%s, %d → %d bytes", summary.Compression, summary.Size, summary.CompressedSize))
	row("bundle", fmt.Sprintf("%d capsules, %d bytes", summary.Capsules, summary.BundleSize))
	for _, root := range summary.Roots {
		row("root", root)
	}
	for _, a := range summary.Associations {
		row("association", a)
	}
	if summary.Diagnostic != "" {
		fmt.Fprintln(out, summary.Diagnostic)
	}
	fmt.Fprintln(out)
}
