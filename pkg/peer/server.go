// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/dtls/v2"
	"github.com/pion/dtls/v2/pkg/protocol"
	"github.com/pion/dtls/v2/pkg/protocol/recordlayer"
	"github.com/pion/logging"
	"github.com/pion/transport/v3/udp"
)

const receiveMTU = 8192

// Server is a DTLS server Worker. It answers every connection according to
// its Operation.
type Server struct {
	cfg    Config
	config *dtls.Config
	log    logging.LeveledLogger

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	listener net.Listener
	addr     net.Addr
	conns    map[net.Conn]struct{}

	running   atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
	done      chan struct{}
	err       atomicError
}

// NewServer validates cfg and returns a Server that has not been started.
func NewServer(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	config, err := cfg.DTLSConfig(false)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		config: config,
		log:    cfg.LoggerFactory.NewLogger("peer-server"),
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[net.Conn]struct{}),
		done:   make(chan struct{}),
	}, nil
}

// acceptHandshake only lets datagrams that open with a handshake record
// create a connection.
func acceptHandshake(packet []byte) bool {
	pkts, err := recordlayer.UnpackDatagram(packet)
	if err != nil || len(pkts) < 1 {
		return false
	}
	h := &recordlayer.Header{}
	if err := h.Unmarshal(pkts[0]); err != nil {
		return false
	}

	return h.ContentType == protocol.ContentTypeHandshake
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyStarted
	}
	s.started = true

	laddr, err := net.ResolveUDPAddr("udp", s.cfg.Address)
	if err != nil {
		s.err.storeFirst(err)

		return err
	}

	lc := udp.ListenConfig{AcceptFilter: acceptHandshake}
	listener, err := lc.Listen("udp", laddr)
	if err != nil {
		s.err.storeFirst(err)

		return err
	}
	s.listener = listener
	s.addr = listener.Addr()
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop(listener)
	s.log.Infof("Listening at %s (%s)", s.addr, s.cfg.Operation)

	return nil
}

// Stop closes the listener and every connection and waits for the handlers
// to return. It is safe to call more than once.
func (s *Server) Stop() {
	s.shutdown()
	s.wg.Wait()
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

// Done is closed once the server has stopped.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that stopped the server, if any.
func (s *Server) Err() error {
	return s.err.load()
}

// shutdown releases everything without waiting, so handlers can stop the
// server themselves.
func (s *Server) shutdown() {
	s.closeOnce.Do(func() {
		s.running.Store(false)
		s.cancel()

		s.mu.Lock()
		listener := s.listener
		conns := make([]net.Conn, 0, len(s.conns))
		for conn := range s.conns {
			conns = append(conns, conn)
		}
		s.conns = nil
		s.mu.Unlock()

		if listener != nil {
			if err := listener.Close(); err != nil {
				s.log.Debugf("Close listener: %v", err)
			}
		}
		for _, conn := range conns {
			_ = conn.Close()
		}
		s.log.Info("Stopped")
		close(s.done)
	})
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.log.Warnf("Accept: %v", err)
				s.err.storeFirst(err)
				s.shutdown()
			}

			return
		}

		if !s.track(conn) {
			_ = conn.Close()

			return
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}

	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns != nil {
		delete(s.conns, conn)
	}
}

// serve performs the handshake on one accepted connection and answers its
// messages until it closes.
func (s *Server) serve(raw net.Conn) {
	defer s.wg.Done()
	defer s.untrack(raw)

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.HandshakeTimeout)
	conn, err := dtls.ServerWithContext(ctx, raw, s.config)
	cancel()
	if err != nil {
		if s.running.Load() {
			s.log.Warnf("Handshake with %s failed: %v", raw.RemoteAddr(), err)
		}
		_ = raw.Close()

		return
	}
	defer func() {
		_ = conn.Close()
	}()
	s.log.Infof("Connected to %s", conn.RemoteAddr())

	buf := make([]byte, receiveMTU)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if s.running.Load() {
				s.log.Debugf("Connection to %s closed: %v", conn.RemoteAddr(), err)
			}

			return
		}
		s.log.Infof("Received %d bytes from %s", n, conn.RemoteAddr())

		reply, last := s.cfg.Operation.respond(buf[:n], false)
		if reply != nil {
			if _, err := conn.Write(reply); err != nil {
				s.log.Warnf("Write to %s: %v", conn.RemoteAddr(), err)

				return
			}
		}
		if last {
			s.log.Infof("Completed %s with %s", s.cfg.Operation, conn.RemoteAddr())
			s.shutdown()

			return
		}
	}
}
