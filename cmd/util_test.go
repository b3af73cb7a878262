// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/pion/dtls-starter/pkg/peer"
	"github.com/pion/dtls/v2"
	"github.com/pion/logging"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func runWithFlags(t *testing.T, d Defaults, args []string, action cli.ActionFunc) error {
	t.Helper()

	app := &cli.Command{
		Name:   "test",
		Flags:  Flags(d),
		Action: action,
	}

	return app.Run(context.Background(), append([]string{"test"}, args...))
}

func TestPeerConfigDefaults(t *testing.T) {
	var cfg peer.Config
	err := runWithFlags(t, Defaults{Operation: peer.OperationAck}, nil, func(_ context.Context, c *cli.Command) error {
		var err error
		cfg, err = PeerConfig(c, logging.NewDefaultLoggerFactory())

		return err
	})
	require.NoError(t, err)

	require.Equal(t, ":5684", cfg.Address)
	require.Equal(t, peer.OperationAck, cfg.Operation)
	require.Equal(t, []byte(peer.DefaultMessage), cfg.Message)
	require.Equal(t, peer.DefaultPSKIdentity, cfg.PSKIdentity)
	require.Equal(t, []byte(peer.DefaultPSKKey), cfg.PSKKey)
	require.Equal(t, peer.ClientAuthNeeded, cfg.ClientAuth)
	require.Equal(t, peer.DefaultHandshakeTimeout, cfg.HandshakeTimeout)
	require.Empty(t, cfg.CipherSuites)
}

func TestPeerConfigFlags(t *testing.T) {
	args := []string{
		"--address", "127.0.0.1",
		"--port", "6000",
		"--local", "127.0.0.1:7000",
		"--operation", "ONE_ECHO",
		"--message", "PING",
		"--psk-identity", "me",
		"--psk-key", "hex:0102",
		"--cipher-suites", "TLS_PSK_WITH_AES_128_GCM_SHA256",
		"--client-auth", "wanted",
		"--timeout", "500ms",
		"--handshake-timeout", "3s",
		"--mtu", "1200",
	}

	var cfg peer.Config
	err := runWithFlags(t, Defaults{}, args, func(_ context.Context, c *cli.Command) error {
		var err error
		cfg, err = PeerConfig(c, logging.NewDefaultLoggerFactory())

		return err
	})
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:6000", cfg.Address)
	require.Equal(t, "127.0.0.1:7000", cfg.LocalAddress)
	require.Equal(t, peer.OperationOneEcho, cfg.Operation)
	require.Equal(t, []byte("PING"), cfg.Message)
	require.Equal(t, "me", cfg.PSKIdentity)
	require.Equal(t, []byte{0x01, 0x02}, cfg.PSKKey)
	require.Equal(t, []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_GCM_SHA256}, cfg.CipherSuites)
	require.Equal(t, peer.ClientAuthWanted, cfg.ClientAuth)
	require.Equal(t, 500*time.Millisecond, cfg.RetransmissionTimeout)
	require.Equal(t, 3*time.Second, cfg.HandshakeTimeout)
	require.Equal(t, 1200, cfg.MTU)
}

func TestPeerConfigErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--operation", "echo"},
		{"--client-auth", "sometimes"},
		{"--psk-key", "hex:zz"},
		{"--cipher-suites", "TLS_NOPE"},
		{"--cipher-suites", "TLS_PSK_WITH_AES_128_CCM_8,TLS_ECDHE_ECDSA_WITH_AES_128_CCM"},
		{"--log-level", "loud"},
	} {
		err := runWithFlags(t, Defaults{Operation: peer.OperationBasic}, args, func(_ context.Context, c *cli.Command) error {
			if _, err := LoggerFactory(c); err != nil {
				return err
			}
			_, err := PeerConfig(c, logging.NewDefaultLoggerFactory())

			return err
		})
		require.Error(t, err, args)
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logging.LogLevel{
		"disabled": logging.LogLevelDisabled,
		"ERROR":    logging.LogLevelError,
		"warn":     logging.LogLevelWarn,
		"info":     logging.LogLevelInfo,
		" debug ":  logging.LogLevelDebug,
		"trace":    logging.LogLevelTrace,
	} {
		level, err := parseLogLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, level, in)
	}

	_, err := parseLogLevel("loud")
	require.ErrorIs(t, err, errUnknownLogLevel)
}

func TestRunDirectClient(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	server, err := peer.NewServer(peer.Config{Address: "127.0.0.1:0", Operation: peer.OperationAck})
	require.NoError(t, err)
	require.NoError(t, server.Start())
	defer server.Stop()

	t.Setenv("DTLS_STARTER_ADDRESS", "")

	port := server.Addr().(*net.UDPAddr).Port //nolint:forcetypeassert
	args := []string{
		"--address", "127.0.0.1",
		"--port", strconv.Itoa(port),
		"--start-delay", "10ms",
		"--log-level", "disabled",
	}

	err = runWithFlags(t, Defaults{Operation: peer.OperationOneMessage}, args, func(ctx context.Context, c *cli.Command) error {
		return Run(ctx, c, peer.RoleClient)
	})
	require.NoError(t, err)
	require.True(t, server.IsRunning())
}
