// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/mosaic/cmd/mosaic/cli"
	"github.com/bureau-foundation/mosaic/lib/process"
	"github.com/bureau-foundation/mosaic/lib/version"
)

func main() {
	if err := root(os.Stdout).Execute(os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		process.Fatal(err)
	}
}

// root builds the command tree writing results to out.
func root(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "mosaic",
		Summary: "Bundle, send and inspect content-addressed values",
		Subcommands: []*cli.Command{
			identityCommand(out),
			sendCommand(out),
			packetCommand(out),
			{
				Name:    "version",
				Summary: "Print build information",
				Run: func([]string) error {
					fmt.Fprintf(out, "mosaic %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
