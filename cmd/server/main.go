// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package main runs a DTLS server test peer, optionally managed by a
// control server.
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
	app := &cli.Command{
		Name:  "dtls-server",
		Usage: "DTLS server test peer",
		Flags: cmd.Flags(cmd.Defaults{Operation: peer.OperationAck}),
		Action: func(ctx context.Context, c *cli.Command) error {
			return cmd.Run(ctx, c, peer.RoleServer)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[!] Error: %s\n", err)
		os.Exit(1)
	}
}
