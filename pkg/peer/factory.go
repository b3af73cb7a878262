// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import (
	starter "github.com/pion/dtls-starter"
)

// Role selects the side of the DTLS connection a Worker plays.
type Role int

// Roles.
const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}

	return "server"
}

// Factory returns a WorkerFactory building fresh workers of role from cfg.
func Factory(cfg Config, role Role) starter.WorkerFactory {
	return func() (starter.Worker, error) {
		if role == RoleClient {
			c, err := NewClient(cfg)
			if err != nil {
				return nil, err
			}

			return c, nil
		}

		s, err := NewServer(cfg)
		if err != nil {
			return nil, err
		}

		return s, nil
	}
}

var (
	_ starter.Worker = (*Server)(nil)
	_ starter.Worker = (*Client)(nil)
)
