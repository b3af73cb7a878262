// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package starter implements a line-oriented TCP control server that starts,
// stops and resets a long-running Worker on behalf of an external test
// harness, so the hosting process never has to be restarted between runs.
package starter

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/dtls-starter/internal/sockopt"
	"github.com/pion/logging"
	pkgerrors "github.com/pkg/errors"
)

// Server accepts one control connection at a time and maps its commands to
// lifecycle transitions of a single Worker.
type Server struct {
	cfg      *config
	log      logging.LeveledLogger
	factory  WorkerFactory
	listener *net.TCPListener
	port     int
	metrics  *metrics

	// mu guards conn and worker. The run loop and Close, which may be called
	// from the shutdown hook, are the only users.
	mu     sync.Mutex
	conn   net.Conn
	worker Worker

	closed atomic.Bool
	done   chan struct{}
}

// New binds the control listener on address and returns a Server that
// builds its Workers with factory. Bind failures are returned as *BindError.
func New(address string, factory WorkerFactory, opts ...Option) (*Server, error) {
	if factory == nil {
		return nil, errNilWorkerFactory
	}

	cfg, err := buildConfig(opts...)
	if err != nil {
		return nil, err
	}

	lc := net.ListenConfig{Control: sockopt.ReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", address)
	if err != nil {
		return nil, &BindError{Addr: address, Err: err}
	}

	s := &Server{
		cfg:      cfg,
		log:      cfg.loggerFactory.NewLogger("starter"),
		factory:  factory,
		listener: ln.(*net.TCPListener), //nolint:forcetypeassert
		port:     portOf(ln.Addr()),
		metrics:  newMetrics(),
		done:     make(chan struct{}),
	}

	if cfg.registerer != nil {
		if err := s.metrics.register(cfg.registerer); err != nil {
			_ = ln.Close()

			return nil, err
		}
	}

	if len(cfg.shutdownSignals) > 0 {
		s.installShutdownHook(cfg.shutdownSignals)
	}

	return s, nil
}

// Addr returns the address of the control listener.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Done is closed once the server has released all of its resources.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Run serves control sessions until exit, a fatal error, the shutdown hook
// or cancellation of ctx. It returns the error that caused a fatal shutdown,
// and nil otherwise.
func (s *Server) Run(ctx context.Context) error {
	if s.closed.Load() {
		return errServerClosed
	}

	stop := context.AfterFunc(ctx, func() {
		s.log.Info("Context canceled")
		_ = s.Close()
	})
	defer stop()

	s.log.Infof("Listening at %s", s.listener.Addr())

	for {
		conn, err := s.accept()
		switch {
		case s.closed.Load():
			if conn != nil {
				_ = conn.Close()
			}

			return nil
		case errors.Is(err, os.ErrDeadlineExceeded):
			if s.cfg.continuous {
				continue
			}
			s.log.Infof("No control connection within %s", s.cfg.acceptTimeout)

			return s.Close()
		case err != nil:
			return s.fail(&SessionIOError{Op: "accept", Err: err})
		}

		exit, err := s.serve(conn)
		switch {
		case err != nil:
			return s.fail(err)
		case exit, !s.cfg.continuous:
			return s.Close()
		}
	}
}

// Close stops the Worker and releases the listener and the control
// connection. It is safe to call more than once and concurrently with Run.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.log.Warn("Shutting down control server")

	var errs []error
	// The listener goes first so that nobody can connect once the control
	// connection has been seen to close.
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, err)
	}

	s.mu.Lock()
	conn, w := s.conn, s.worker
	s.conn, s.worker = nil, nil
	s.mu.Unlock()

	if w != nil {
		w.Stop()
		s.metrics.workerStopped()
	}
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}

	if s.cfg.registerer != nil {
		s.metrics.unregister(s.cfg.registerer)
	}
	close(s.done)

	return errors.Join(errs...)
}

func (s *Server) installShutdownHook(sigs []os.Signal) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sigs...)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			s.log.Warnf("Received %s", sig)
			_ = s.Close()
		case <-s.done:
		}
	}()
}

func (s *Server) accept() (net.Conn, error) {
	if err := s.listener.SetDeadline(time.Now().Add(s.cfg.acceptTimeout)); err != nil {
		return nil, err
	}

	return s.listener.Accept()
}

// serve runs one control session. It reports whether exit was received.
func (s *Server) serve(conn net.Conn) (bool, error) {
	id := uuid.New()

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = conn.Close()

		return true, nil
	}
	s.conn = conn
	s.mu.Unlock()

	s.metrics.sessions.Inc()
	s.log.Infof("Session %s opened by %s", id, conn.RemoteAddr())
	defer s.endSession(id)

	reader := bufio.NewReader(conn)
	for {
		// A final line without a newline is still a command.
		line, readErr := reader.ReadString('\n')
		if line != "" {
			exit, err := s.handle(conn, id, line)
			if exit || err != nil {
				return exit, err
			}
		}

		switch {
		case readErr == nil:
		case s.closed.Load():
			return true, nil
		case errors.Is(readErr, io.EOF):
			s.log.Infof("Session %s: peer disconnected", id)

			return false, nil
		default:
			return false, &SessionIOError{Op: "read", Err: readErr}
		}
	}
}

// endSession stops the session's Worker and closes its connection.
func (s *Server) endSession(id uuid.UUID) {
	s.mu.Lock()
	conn, w := s.conn, s.worker
	s.conn, s.worker = nil, nil
	s.mu.Unlock()

	if w != nil {
		w.Stop()
		s.metrics.workerStopped()
	}
	if conn != nil {
		_ = conn.Close()
	}
	s.log.Infof("Session %s closed", id)
}

// handle dispatches a single line. Panics are turned into errors so that a
// misbehaving Worker shuts the server down like any other fault.
func (s *Server) handle(conn net.Conn, id uuid.UUID, line string) (exit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			exit, err = false, pkgerrors.Errorf("panic handling %q: %v", strings.TrimSpace(line), r)
		}
	}()

	cmd, ok := ParseCommand(line)
	s.metrics.command(cmd, ok)
	if !ok {
		s.log.Debugf("Session %s: ignoring %q", id, cmd)

		return false, nil
	}
	s.log.Infof("Session %s: received %s", id, cmd)

	var reply string
	switch cmd {
	case CommandStart, CommandReset:
		var port int
		if port, err = s.startWorker(cmd); err == nil {
			reply = startedReply(port)
		}
	case CommandStop:
		if err = s.stopWorker(); err == nil {
			reply = stoppedReply()
		}
	case CommandExit:
		if err := s.Close(); err != nil {
			s.log.Warnf("Session %s: %v", id, err)
		}

		return true, nil
	}

	switch {
	case errors.Is(err, errServerClosed):
		return true, nil
	case err != nil:
		return false, err
	}

	if _, err := io.WriteString(conn, reply); err != nil {
		if s.closed.Load() {
			return true, nil
		}

		return false, &SessionIOError{Op: "write", Err: err}
	}
	s.log.Infof("Session %s: responded %s", id, strings.TrimSpace(reply))

	return false, nil
}

// startWorker handles start and reset. A running Worker survives start but
// is always replaced on reset.
func (s *Server) startWorker(cmd Command) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return 0, errServerClosed
	}

	if s.worker != nil {
		if cmd == CommandStart && s.worker.IsRunning() {
			return portOf(s.worker.Addr()), nil
		}
		s.worker.Stop()
		s.worker = nil
		s.metrics.workerStopped()
	}

	w, err := s.newWorker()
	s.metrics.workerStarted(err)
	if err != nil {
		return 0, &WorkerStartError{Command: cmd, Err: err}
	}
	s.worker = w

	return portOf(w.Addr()), nil
}

func (s *Server) newWorker() (Worker, error) {
	w, err := s.factory()
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errNilWorker
	}

	if err := w.Start(); err != nil {
		w.Stop()

		return nil, err
	}

	return w, nil
}

// stopWorker stops the current Worker. Without one it does nothing, so stop
// is always answered with stopped.
func (s *Server) stopWorker() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return errServerClosed
	}
	if s.worker == nil {
		s.log.Debug("Stop without a worker")

		return nil
	}

	s.worker.Stop()
	s.worker = nil
	s.metrics.workerStopped()

	return nil
}

// fail records a fatal error in the error log and shuts the server down.
func (s *Server) fail(err error) error {
	s.log.Errorf("Control server failed: %v", err)

	var traced interface{ StackTrace() pkgerrors.StackTrace }
	fault := err
	if !errors.As(err, &traced) {
		fault = pkgerrors.WithStack(err)
	}
	if name, logErr := writeErrorLog(s.cfg.errorLogDir, s.port, fault); logErr != nil {
		s.log.Errorf("Failed to write %s: %v", name, logErr)
	}

	if closeErr := s.Close(); closeErr != nil {
		s.log.Warnf("Close after failure: %v", closeErr)
	}

	return err
}
