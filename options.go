// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package starter

import (
	"os"
	"syscall"
	"time"

	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultAcceptTimeout = 20 * time.Second

// Option configures a Server.
type Option func(*config) error

type config struct {
	acceptTimeout   time.Duration
	continuous      bool
	loggerFactory   logging.LoggerFactory
	errorLogDir     string
	registerer      prometheus.Registerer
	shutdownSignals []os.Signal
}

func (c *config) applyDefaults() {
	c.acceptTimeout = defaultAcceptTimeout
	c.loggerFactory = logging.NewDefaultLoggerFactory()
	c.errorLogDir = "."
	c.shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
}

func buildConfig(opts ...Option) (*config, error) {
	cfg := &config{}
	cfg.applyDefaults()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// WithAcceptTimeout bounds how long Accept blocks before the server checks
// whether it should keep listening. Defaults to 20 seconds.
func WithAcceptTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errInvalidAcceptTimeout
		}
		c.acceptTimeout = d

		return nil
	}
}

// WithContinuous makes the server accept a new control connection after a
// session ends, instead of terminating.
func WithContinuous(continuous bool) Option {
	return func(c *config) error {
		c.continuous = continuous

		return nil
	}
}

// WithLoggerFactory sets the logger factory for creating loggers.
func WithLoggerFactory(factory logging.LoggerFactory) Option {
	return func(c *config) error {
		if factory == nil {
			return errNilLoggerFactory
		}
		c.loggerFactory = factory

		return nil
	}
}

// WithErrorLogDir sets the directory receiving ts.error.<port>.log when a
// command fails. Defaults to the working directory.
func WithErrorLogDir(dir string) Option {
	return func(c *config) error {
		c.errorLogDir = dir

		return nil
	}
}

// WithRegisterer registers the server's metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *config) error {
		c.registerer = r

		return nil
	}
}

// WithShutdownSignals sets the signals that tear the server down as if exit
// had been received. Passing no signals disables the hook.
func WithShutdownSignals(sigs ...os.Signal) Option {
	return func(c *config) error {
		c.shutdownSignals = append([]os.Signal(nil), sigs...)

		return nil
	}
}
