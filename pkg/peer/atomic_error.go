// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import "sync"

// atomicError keeps the first error reported by a worker's goroutines.
type atomicError struct {
	mu  sync.Mutex
	val error
}

func (a *atomicError) storeFirst(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.val == nil {
		a.val = err
	}
}

func (a *atomicError) load() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.val
}
