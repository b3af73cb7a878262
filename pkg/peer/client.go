// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/dtls/v2"
	"github.com/pion/logging"
)

// Client is a DTLS client Worker. After Start it handshakes with its peer
// and runs its Operation in the background.
type Client struct {
	cfg    Config
	config *dtls.Config
	log    logging.LeveledLogger

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	udpConn *net.UDPConn
	conn    *dtls.Conn
	addr    net.Addr

	running   atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	done      chan struct{}
	err       atomicError
}

// NewClient validates cfg and returns a Client that has not been started.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	config, err := cfg.DTLSConfig(true)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		cfg:    cfg,
		config: config,
		log:    cfg.LoggerFactory.NewLogger("peer-client"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// Start binds the local socket and starts the handshake. Handshake failures
// are reported through Err once Done is closed.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errAlreadyStarted
	}
	c.started = true

	raddr, err := net.ResolveUDPAddr("udp", c.cfg.Address)
	if err != nil {
		c.err.storeFirst(err)

		return err
	}
	var laddr *net.UDPAddr
	if c.cfg.LocalAddress != "" {
		if laddr, err = net.ResolveUDPAddr("udp", c.cfg.LocalAddress); err != nil {
			c.err.storeFirst(err)

			return err
		}
	}

	udpConn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		c.err.storeFirst(err)

		return err
	}
	c.udpConn = udpConn
	c.addr = udpConn.LocalAddr()
	c.running.Store(true)

	c.wg.Add(1)
	go c.run(udpConn)
	c.log.Infof("Connecting %s to %s (%s)", c.addr, raddr, c.cfg.Operation)

	return nil
}

// Stop closes the connection and waits for the exchange to end. It is safe
// to call more than once.
func (c *Client) Stop() {
	c.shutdown()
	c.wg.Wait()
}

// IsRunning reports whether the client is connecting or connected.
func (c *Client) IsRunning() bool {
	return c.running.Load()
}

// Addr returns the local address, or nil before Start.
func (c *Client) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addr
}

// Done is closed once the client has stopped, either by Stop or because its
// Operation completed or failed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the client, if any.
func (c *Client) Err() error {
	return c.err.load()
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.running.Store(false)
		c.cancel()

		c.mu.Lock()
		udpConn, conn := c.udpConn, c.conn
		c.mu.Unlock()

		switch {
		case conn != nil:
			_ = conn.Close()
		case udpConn != nil:
			_ = udpConn.Close()
		}
		c.log.Info("Stopped")
		close(c.done)
	})
}

// fail records err unless the client is already stopping and shuts down.
func (c *Client) fail(err error) {
	if c.running.Load() {
		c.log.Warn(err.Error())
		c.err.storeFirst(err)
	}
	c.shutdown()
}

func (c *Client) run(udpConn *net.UDPConn) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.HandshakeTimeout)
	conn, err := dtls.ClientWithContext(ctx, udpConn, c.config)
	cancel()
	if err != nil {
		_ = udpConn.Close()
		c.fail(fmt.Errorf("handshake with %s: %w", udpConn.RemoteAddr(), err))

		return
	}

	c.mu.Lock()
	if !c.running.Load() {
		c.mu.Unlock()
		_ = conn.Close()

		return
	}
	c.conn = conn
	c.mu.Unlock()
	c.log.Infof("Connected to %s", conn.RemoteAddr())

	if c.cfg.Operation == OperationOneMessage {
		if _, err := conn.Write(c.cfg.Message); err != nil {
			c.fail(fmt.Errorf("send to %s: %w", conn.RemoteAddr(), err))

			return
		}
	}

	buf := make([]byte, receiveMTU)
	for {
		n, err := conn.Read(buf)
		if errors.Is(err, io.EOF) {
			c.log.Infof("%s closed the connection", conn.RemoteAddr())
			c.shutdown()

			return
		}
		if err != nil {
			c.fail(fmt.Errorf("read from %s: %w", conn.RemoteAddr(), err))

			return
		}
		c.log.Infof("Received %d bytes from %s", n, conn.RemoteAddr())

		reply, last := c.cfg.Operation.respond(buf[:n], true)
		if reply != nil {
			if _, err := conn.Write(reply); err != nil {
				c.fail(fmt.Errorf("write to %s: %w", conn.RemoteAddr(), err))

				return
			}
		}
		if last {
			c.log.Infof("Completed %s with %s", c.cfg.Operation, conn.RemoteAddr())
			c.shutdown()

			return
		}
	}
}
