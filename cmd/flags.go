// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package cmd holds the flags and the run loop shared by the DTLS test
// peer programs.
package cmd

import (
	"time"

	"github.com/pion/dtls-starter/pkg/peer"
	"github.com/urfave/cli/v3"
)

const (
	categoryPeer    = "peer"
	categorySecure  = "security"
	categoryStarter = "starter"
)

// Flag names.
const (
	PortFlag             = "port"
	AddressFlag          = "address"
	LocalFlag            = "local"
	OperationFlag        = "operation"
	MessageFlag          = "message"
	PSKIdentityFlag      = "psk-identity"
	PSKKeyFlag           = "psk-key"
	CipherSuitesFlag     = "cipher-suites"
	KeyFlag              = "key"
	CertFlag             = "cert"
	TrustFlag            = "trust"
	ClientAuthFlag       = "client-auth"
	TimeoutFlag          = "timeout"
	HandshakeTimeoutFlag = "handshake-timeout"
	MTUFlag              = "mtu"
	StarterFlag          = "starter"
	ContinuousFlag       = "continuous"
	AcceptTimeoutFlag    = "accept-timeout"
	StartDelayFlag       = "start-delay"
	ErrorLogDirFlag      = "error-log-dir"
	MetricsFlag          = "metrics"
	LogLevelFlag         = "log-level"
	ClientFlag           = "client"
)

// Defaults differ between the programs.
type Defaults struct {
	Operation peer.Operation
	Address   string
}

// Flags returns every flag understood by Run.
func Flags(d Defaults) []cli.Flag {
	flags := []cli.Flag{}

	flags = append(flags, PeerFlags(d)...)
	flags = append(flags, SecurityFlags()...)
	flags = append(flags, StarterFlags()...)

	return flags
}

// PeerFlags configure addressing and the exchange.
func PeerFlags(d Defaults) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     PortFlag,
			Aliases:  []string{"p"},
			Usage:    "DTLS port to listen on or to connect to",
			Category: categoryPeer,
			Value:    peer.DefaultPort,
		},
		&cli.StringFlag{
			Name:     AddressFlag,
			Aliases:  []string{"a"},
			Usage:    "Host to listen on or to connect to, empty for all interfaces",
			Category: categoryPeer,
			Value:    d.Address,
		},
		&cli.StringFlag{
			Name:     LocalFlag,
			Usage:    "Local address a client binds to",
			Category: categoryPeer,
		},
		&cli.StringFlag{
			Name:     OperationFlag,
			Aliases:  []string{"o"},
			Usage:    "Exchange to run: basic, ack, full, one_echo or one_message",
			Category: categoryPeer,
			Value:    string(d.Operation),
		},
		&cli.StringFlag{
			Name:     MessageFlag,
			Aliases:  []string{"m"},
			Usage:    "Message a one_message client sends",
			Category: categoryPeer,
			Value:    peer.DefaultMessage,
		},
		&cli.DurationFlag{
			Name:     TimeoutFlag,
			Aliases:  []string{"t"},
			Usage:    "Handshake retransmission timeout, 0 for the library default",
			Category: categoryPeer,
		},
		&cli.DurationFlag{
			Name:     HandshakeTimeoutFlag,
			Usage:    "Time a handshake may take",
			Category: categoryPeer,
			Value:    peer.DefaultHandshakeTimeout,
		},
		&cli.IntFlag{
			Name:     MTUFlag,
			Usage:    "Path MTU, 0 for the library default",
			Category: categoryPeer,
		},
	}
}

// SecurityFlags configure credentials and cipher suites.
func SecurityFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     PSKIdentityFlag,
			Usage:    "PSK identity",
			Category: categorySecure,
			Value:    peer.DefaultPSKIdentity,
		},
		&cli.StringFlag{
			Name:     PSKKeyFlag,
			Usage:    "PSK secret, prefix with hex: for a hex encoded secret",
			Category: categorySecure,
			Value:    peer.DefaultPSKKey,
		},
		&cli.StringSliceFlag{
			Name:     CipherSuitesFlag,
			Aliases:  []string{"c"},
			Usage:    "Cipher suites by IANA name, PSK and certificate suites can not be mixed",
			Category: categorySecure,
		},
		&cli.StringFlag{
			Name:     KeyFlag,
			Usage:    "PEM private key, a self-signed certificate is generated without it",
			Category: categorySecure,
		},
		&cli.StringFlag{
			Name:     CertFlag,
			Usage:    "PEM certificate matching --key",
			Category: categorySecure,
		},
		&cli.StringFlag{
			Name:     TrustFlag,
			Usage:    "PEM certificates peer certificates are verified against",
			Category: categorySecure,
		},
		&cli.StringFlag{
			Name:     ClientAuthFlag,
			Usage:    "Client certificate policy of a server: needed, wanted or disabled",
			Category: categorySecure,
			Value:    string(peer.ClientAuthNeeded),
		},
	}
}

// StarterFlags configure the control server and the process.
func StarterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     StarterFlag,
			Aliases:  []string{"s"},
			Usage:    "Control address, the peer is managed by a control server when set",
			Category: categoryStarter,
			Sources:  cli.EnvVars("DTLS_STARTER_ADDRESS"),
		},
		&cli.BoolFlag{
			Name:     ContinuousFlag,
			Usage:    "Accept further control connections after a disconnect",
			Category: categoryStarter,
			Sources:  cli.EnvVars("DTLS_STARTER_CONTINUOUS"),
		},
		&cli.DurationFlag{
			Name:     AcceptTimeoutFlag,
			Usage:    "Time to wait for a control connection",
			Category: categoryStarter,
			Value:    20 * time.Second,
		},
		&cli.DurationFlag{
			Name:     StartDelayFlag,
			Usage:    "Delay before a peer without control server starts",
			Category: categoryStarter,
		},
		&cli.StringFlag{
			Name:     ErrorLogDirFlag,
			Usage:    "Directory for ts.error.<port>.log files",
			Category: categoryStarter,
			Value:    ".",
		},
		&cli.StringFlag{
			Name:     MetricsFlag,
			Usage:    "Serve Prometheus metrics of the control server on this address",
			Category: categoryStarter,
		},
		&cli.StringFlag{
			Name:     LogLevelFlag,
			Aliases:  []string{"v"},
			Usage:    "Log level: disabled, error, warn, info, debug or trace",
			Category: categoryStarter,
			Value:    "info",
			Sources:  cli.EnvVars("DTLS_STARTER_LOG_LEVEL"),
		},
	}
}
