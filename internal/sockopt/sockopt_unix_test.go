// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

//go:build unix

package sockopt

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestReuseAddr(t *testing.T) {
	lc := net.ListenConfig{Control: ReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() {
		_ = ln.Close()
	}()

	raw, err := ln.(*net.TCPListener).SyscallConn()
	require.NoError(t, err)

	var val int
	var optErr error
	require.NoError(t, raw.Control(func(fd uintptr) {
		val, optErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR)
	}))
	require.NoError(t, optErr)
	require.NotZero(t, val)
}
