// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package starter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Controller is the harness side of the control protocol.
type Controller struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to the control server at address.
func Dial(ctx context.Context, address string) (*Controller, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	return &Controller{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Start asks for a running Worker and returns its port.
func (c *Controller) Start(ctx context.Context) (int, error) {
	return c.started(ctx, CommandStart)
}

// Reset replaces the Worker with a new running one and returns its port.
func (c *Controller) Reset(ctx context.Context) (int, error) {
	return c.started(ctx, CommandReset)
}

// Stop stops the Worker.
func (c *Controller) Stop(ctx context.Context) error {
	line, err := c.roundTrip(ctx, CommandStop)
	if err != nil {
		return err
	}
	if line != ReplyStopped {
		return fmt.Errorf("%w: %q", ErrUnexpectedReply, line)
	}

	return nil
}

// Exit terminates the control server and waits for it to hang up.
func (c *Controller) Exit(ctx context.Context) error {
	defer c.watch(ctx)()

	if err := c.send(CommandExit); err != nil {
		return err
	}

	line, err := c.reader.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && line == "":
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedReply, strings.TrimSpace(line))
	}
}

// Send writes a raw line without waiting for a reply.
func (c *Controller) Send(line string) error {
	_, err := io.WriteString(c.conn, line+"\n")

	return err
}

// Close closes the control connection, which the server treats as a
// disconnect.
func (c *Controller) Close() error {
	return c.conn.Close()
}

func (c *Controller) started(ctx context.Context, cmd Command) (int, error) {
	line, err := c.roundTrip(ctx, cmd)
	if err != nil {
		return 0, err
	}

	return parseStartedReply(line)
}

func (c *Controller) roundTrip(ctx context.Context, cmd Command) (string, error) {
	defer c.watch(ctx)()

	if err := c.send(cmd); err != nil {
		return "", err
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%s: %w", cmd, ErrNoReply)
		}

		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (c *Controller) send(cmd Command) error {
	return c.Send(string(cmd))
}

// watch applies the deadline of ctx to the connection and interrupts
// pending I/O when ctx is canceled. The returned func undoes both.
func (c *Controller) watch(ctx context.Context) func() {
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})

	return func() {
		stop()
		_ = c.conn.SetDeadline(time.Time{})
	}
}
