// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package starter

import (
	"errors"
	"fmt"
)

// Typed errors.
var (
	// ErrUnexpectedReply is returned by a Controller when the server answers
	// with something other than the reply its command calls for.
	ErrUnexpectedReply = errors.New("unexpected reply")
	// ErrNoReply is returned by a Controller when the connection closes
	// before a reply arrives. Callers treat it like exit.
	ErrNoReply = errors.New("connection closed without reply")

	errNilWorkerFactory     = errors.New("worker factory is nil")
	errNilWorker            = errors.New("worker factory returned a nil worker")
	errInvalidAcceptTimeout = errors.New("accept timeout must be positive")
	errNilLoggerFactory     = errors.New("logger factory is nil")
	errServerClosed         = errors.New("control server is closed")
)

// BindError is returned by New when the control address can not be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// SessionIOError indicates a read or write failure on the control
// connection. The command stream can not be trusted afterwards, so the
// server shuts down.
type SessionIOError struct {
	Op  string
	Err error
}

func (e *SessionIOError) Error() string {
	return fmt.Sprintf("control session %s: %v", e.Op, e.Err)
}

func (e *SessionIOError) Unwrap() error {
	return e.Err
}

// WorkerStartError indicates that the factory or Start of a Worker failed.
type WorkerStartError struct {
	Command Command
	Err     error
}

func (e *WorkerStartError) Error() string {
	return fmt.Sprintf("%s: worker failed to start: %v", e.Command, e.Err)
}

func (e *WorkerStartError) Unwrap() error {
	return e.Err
}
