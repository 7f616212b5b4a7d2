// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/mosaic/cmd/mosaic/cli"
	"github.com/bureau-foundation/mosaic/lib/peer"
)

type identitySummary struct {
	Peer      string `json:"peer"`
	PublicKey string `json:"public_key"`
}

func summarizeIdentity(identity *peer.Identity) (identitySummary, error) {
	p := identity.Peer()
	r, err := p.Ref()
	if err != nil {
		return identitySummary{}, err
	}
	return identitySummary{Peer: r.String(), PublicKey: p.String()}, nil
}

func printIdentity(out io.Writer, summary identitySummary, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}
	fmt.Fprintf(out, "peer        %s\npublic key  %s\n", summary.Peer, summary.PublicKey)
	return nil
}

func identityCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "identity",
		Summary: "Create and show node identities",
		Subcommands: []*cli.Command{
			identityNewCommand(out),
			identityShowCommand(out),
		},
	}
}

func identityNewCommand(out io.Writer) *cli.Command {
	var (
		path       string
		recipients []string
		ageKeyOut  string
		asJSON     bool
	)
	return &cli.Command{
		Name:    "new",
		Summary: "Generate an identity sealed to age recipients",
		Usage:   "mosaic identity new --out FILE [--recipient AGE_PUBLIC_KEY]... [--age-key-out FILE]",
		Examples: []cli.Example{
			{Description: "Create an identity and a fresh age key for it", Command: "mosaic identity new --out identity.age --age-key-out age.key"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("new", pflag.ContinueOnError)
			flagSet.StringVar(&path, "out", "", "identity file to write (required)")
			flagSet.StringArrayVar(&recipients, "recipient", nil, "age recipient to seal the identity to (repeatable)")
			flagSet.StringVar(&ageKeyOut, "age-key-out", "", "generate an age key, write it here and seal to it")
			flagSet.BoolVar(&asJSON, "json", false, "print the identity as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected arguments %v", args)
			}
			if path == "" {
				return errors.New("--out is required")
			}
			if ageKeyOut != "" {
				secretKey, recipient, err := peer.GenerateAgeKey()
				if err != nil {
					return err
				}
				if err := os.WriteFile(ageKeyOut, []byte(secretKey+"\n"), 0o600); err != nil {
					return fmt.Errorf("writing age key: %w", err)
				}
				recipients = append(recipients, recipient)
			}
			if len(recipients) == 0 {
				return errors.New("at least one --recipient or --age-key-out is required")
			}

			identity, err := peer.GenerateIdentity()
			if err != nil {
				return err
			}
			defer identity.Close()
			if err := peer.WriteIdentityFile(path, identity, recipients...); err != nil {
				return err
			}
			summary, err := summarizeIdentity(identity)
			if err != nil {
				return err
			}
			return printIdentity(out, summary, asJSON)
		},
	}
}

func identityShowCommand(out io.Writer) *cli.Command {
	var (
		path       string
		ageKeyPath string
		asJSON     bool
	)
	return &cli.Command{
		Name:    "show",
		Summary: "Print the peer ref and public key of an identity",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flagSet.StringVar(&path, "key", "", "sealed identity file (required)")
			flagSet.StringVar(&ageKeyPath, "age-key", "", "age key file that opens it (required)")
			flagSet.BoolVar(&asJSON, "json", false, "print as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			if path == "" || ageKeyPath == "" {
				return errors.New("--key and --age-key are required")
			}
			identity, err := peer.ReadIdentityFile(path, ageKeyPath)
			if err != nil {
				return err
			}
			defer identity.Close()
			summary, err := summarizeIdentity(identity)
			if err != nil {
				return err
			}
			return printIdentity(out, summary, asJSON)
		},
	}
}
