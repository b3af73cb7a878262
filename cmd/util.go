// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	starter "github.com/pion/dtls-starter"
	"github.com/pion/dtls-starter/pkg/peer"
	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const hexPrefix = "hex:"

var errUnknownLogLevel = errors.New("unknown log level")

// LoggerFactory builds the pion logger factory for --log-level.
func LoggerFactory(cmd *cli.Command) (*logging.DefaultLoggerFactory, error) {
	level, err := parseLogLevel(cmd.String(LogLevelFlag))
	if err != nil {
		return nil, err
	}

	f := logging.NewDefaultLoggerFactory()
	f.Writer = os.Stderr
	f.DefaultLogLevel = level

	return f, nil
}

func parseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	}

	return logging.LogLevelDisabled, fmt.Errorf("%w: %q", errUnknownLogLevel, s)
}

func parsePSKKey(s string) ([]byte, error) {
	if strings.HasPrefix(s, hexPrefix) {
		return hex.DecodeString(strings.TrimPrefix(s, hexPrefix))
	}

	return []byte(s), nil
}

// PeerConfig builds the worker configuration from the flags.
func PeerConfig(cmd *cli.Command, loggerFactory logging.LoggerFactory) (peer.Config, error) {
	op, err := peer.ParseOperation(cmd.String(OperationFlag))
	if err != nil {
		return peer.Config{}, err
	}
	clientAuth, err := peer.ParseClientAuth(cmd.String(ClientAuthFlag))
	if err != nil {
		return peer.Config{}, err
	}
	key, err := parsePSKKey(cmd.String(PSKKeyFlag))
	if err != nil {
		return peer.Config{}, fmt.Errorf("--%s: %w", PSKKeyFlag, err)
	}

	cfg := peer.Config{
		Address:               net.JoinHostPort(cmd.String(AddressFlag), strconv.FormatInt(cmd.Int(PortFlag), 10)),
		LocalAddress:          cmd.String(LocalFlag),
		Operation:             op,
		Message:               []byte(cmd.String(MessageFlag)),
		PSKIdentity:           cmd.String(PSKIdentityFlag),
		PSKKey:                key,
		KeyFile:               cmd.String(KeyFlag),
		CertificateFile:       cmd.String(CertFlag),
		TrustFile:             cmd.String(TrustFlag),
		ClientAuth:            clientAuth,
		RetransmissionTimeout: cmd.Duration(TimeoutFlag),
		HandshakeTimeout:      cmd.Duration(HandshakeTimeoutFlag),
		MTU:                   int(cmd.Int(MTUFlag)),
		LoggerFactory:         loggerFactory,
	}

	if names := cmd.StringSlice(CipherSuitesFlag); len(names) > 0 {
		if cfg.CipherSuites, err = peer.ParseCipherSuites(names...); err != nil {
			return peer.Config{}, err
		}
	}

	// Surface credential errors before anything is started.
	if _, err := cfg.DTLSConfig(false); err != nil {
		return peer.Config{}, err
	}

	return cfg, nil
}

// Run starts a worker of role. With --starter the worker is managed by a
// control server, otherwise it runs until it completes or a signal arrives.
func Run(ctx context.Context, cmd *cli.Command, role peer.Role) error {
	loggerFactory, err := LoggerFactory(cmd)
	if err != nil {
		return err
	}
	cfg, err := PeerConfig(cmd, loggerFactory)
	if err != nil {
		return err
	}
	factory := peer.Factory(cfg, role)

	if address := cmd.String(StarterFlag); address != "" {
		return runStarter(ctx, cmd, address, factory, loggerFactory)
	}

	return runDirect(ctx, cmd, role, factory, loggerFactory)
}

// runStarter serves the control protocol, and the metrics endpoint when
// asked to, until the control server shuts down.
func runStarter(ctx context.Context, cmd *cli.Command, address string, factory starter.WorkerFactory, loggerFactory logging.LoggerFactory) error {
	opts := []starter.Option{
		starter.WithLoggerFactory(loggerFactory),
		starter.WithContinuous(cmd.Bool(ContinuousFlag)),
		starter.WithAcceptTimeout(cmd.Duration(AcceptTimeoutFlag)),
		starter.WithErrorLogDir(cmd.String(ErrorLogDirFlag)),
	}

	metricsAddr := cmd.String(MetricsFlag)
	registry := prometheus.NewRegistry()
	if metricsAddr != "" {
		opts = append(opts, starter.WithRegisterer(registry))
	}

	server, err := starter.New(address, factory, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})

	if metricsAddr != "" {
		log := loggerFactory.NewLogger("metrics")
		httpServer := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			log.Infof("Serving metrics at %s", metricsAddr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})
		g.Go(func() error {
			select {
			case <-server.Done():
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return httpServer.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

type completer interface {
	Done() <-chan struct{}
	Err() error
}

// runDirect runs a single worker without a control server.
func runDirect(ctx context.Context, cmd *cli.Command, role peer.Role, factory starter.WorkerFactory, loggerFactory logging.LoggerFactory) error {
	log := loggerFactory.NewLogger("main")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if delay := cmd.Duration(StartDelayFlag); delay > 0 {
		log.Infof("Starting %s in %s", role, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}

	worker, err := factory()
	if err != nil {
		return err
	}
	if err := worker.Start(); err != nil {
		worker.Stop()

		return err
	}
	defer worker.Stop()
	log.Infof("Started %s at %s", role, worker.Addr())

	w, ok := worker.(completer)
	if !ok {
		<-ctx.Done()

		return nil
	}

	select {
	case <-w.Done():
		return w.Err()
	case <-ctx.Done():
		return nil
	}
}
