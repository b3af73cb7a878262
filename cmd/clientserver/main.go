// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package main runs a DTLS test peer in either role.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pion/dtls-starter/cmd"
	"github.com/pion/dtls-starter/pkg/peer"
	"github.com/urfave/cli/v3"
)

func main() {
	flags := cmd.Flags(cmd.Defaults{Operation: peer.OperationFull})
	flags = append(flags, &cli.BoolFlag{
		Name:  cmd.ClientFlag,
		Usage: "Play the client role instead of the server",
	})

	app := &cli.Command{
		Name:  "dtls-clientserver",
		Usage: "DTLS test peer playing the client or the server role",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			role := peer.RoleServer
			if c.Bool(cmd.ClientFlag) {
				role = peer.RoleClient
			}

			return cmd.Run(ctx, c, role)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[!] Error: %s\n", err)
		os.Exit(1)
	}
}
