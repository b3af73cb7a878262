// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

//go:build !unix && !windows

package sockopt

func setReuseAddr(uintptr) error {
	return nil
}
