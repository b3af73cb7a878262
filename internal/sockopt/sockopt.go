// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package sockopt sets socket options on listeners before they are bound.
package sockopt

import (
	"syscall"
)

// ReuseAddr is a net.ListenConfig Control function enabling SO_REUSEADDR,
// so a restarted harness can rebind a control port still in TIME_WAIT.
func ReuseAddr(_, _ string, c syscall.RawConn) error {
	var sockErr error
	if err := c.Control(func(fd uintptr) {
		sockErr = setReuseAddr(fd)
	}); err != nil {
		return err
	}

	return sockErr
}
