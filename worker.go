// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package starter

import (
	"net"
	"strconv"
)

// Worker is a long-running component whose lifecycle is driven by a Server.
// Start must not return before the Worker is bound, so that Addr reports
// the resolved address. Stop is idempotent.
type Worker interface {
	Start() error
	Stop()
	IsRunning() bool
	Addr() net.Addr
}

// WorkerFactory builds a fresh Worker. It is called on every start of a
// missing or stopped Worker and on every reset.
type WorkerFactory func() (Worker, error)

// portOf returns the port of addr, or 0 if it has none.
func portOf(addr net.Addr) int {
	switch a := addr.(type) {
	case nil:
		return 0
	case *net.UDPAddr:
		return a.Port
	case *net.TCPAddr:
		return a.Port
	}

	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}

	return p
}
