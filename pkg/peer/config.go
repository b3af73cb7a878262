// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/pion/dtls/v2"
	"github.com/pion/logging"
)

// Defaults for unset Config fields.
const (
	DefaultPort             = 5684
	DefaultPSKIdentity      = "Client_identity"
	DefaultPSKKey           = "secretPSK"
	DefaultMessage          = "HELLO"
	DefaultHandshakeTimeout = 30 * time.Second
)

// ClientAuth is the server side client certificate policy.
type ClientAuth string

// Client authentication modes.
const (
	ClientAuthNeeded   ClientAuth = "needed"
	ClientAuthWanted   ClientAuth = "wanted"
	ClientAuthDisabled ClientAuth = "disabled"
)

// ParseClientAuth parses a client authentication mode, ignoring case.
func ParseClientAuth(s string) (ClientAuth, error) {
	mode := ClientAuth(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case ClientAuthNeeded, ClientAuthWanted, ClientAuthDisabled:
		return mode, nil
	}

	return "", fmt.Errorf("%w: %q", errUnknownClientAuth, s)
}

// dtls maps the mode onto pion's policy. Certificates are only verified
// against a chain when trusted roots are configured.
func (c ClientAuth) dtls(verify bool) dtls.ClientAuthType {
	switch {
	case c == ClientAuthNeeded && verify:
		return dtls.RequireAndVerifyClientCert
	case c == ClientAuthNeeded:
		return dtls.RequireAnyClientCert
	case c == ClientAuthWanted && verify:
		return dtls.VerifyClientCertIfGiven
	case c == ClientAuthWanted:
		return dtls.RequestClientCert
	default:
		return dtls.NoClientCert
	}
}

// Config describes a DTLS worker.
type Config struct {
	// Address is the listen address of a server and the peer of a client.
	Address string
	// LocalAddress optionally binds a client to a local address.
	LocalAddress string

	Operation Operation
	// Message is sent by a client running OperationOneMessage.
	Message []byte

	PSKIdentity string
	PSKKey      []byte

	CipherSuites []dtls.CipherSuiteID

	// KeyFile and CertificateFile hold a PEM key pair. Without them a
	// self-signed certificate is generated.
	KeyFile         string
	CertificateFile string
	// TrustFile holds PEM certificates that peer certificates are verified
	// against.
	TrustFile  string
	ClientAuth ClientAuth

	// RetransmissionTimeout is the handshake flight interval.
	RetransmissionTimeout time.Duration
	HandshakeTimeout      time.Duration
	MTU                   int

	LoggerFactory logging.LoggerFactory
}

func (c Config) withDefaults() Config {
	if c.Operation == "" {
		c.Operation = OperationBasic
	}
	if c.Message == nil {
		c.Message = []byte(DefaultMessage)
	}
	if c.PSKIdentity == "" {
		c.PSKIdentity = DefaultPSKIdentity
	}
	if c.PSKKey == nil {
		c.PSKKey = []byte(DefaultPSKKey)
	}
	if len(c.CipherSuites) == 0 {
		c.CipherSuites = DefaultCipherSuites()
	}
	if c.ClientAuth == "" {
		c.ClientAuth = ClientAuthNeeded
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	return c
}

func (c Config) validate() error {
	if !c.Operation.valid() {
		return fmt.Errorf("%w: %q", errUnknownOperation, c.Operation)
	}
	if _, err := ParseClientAuth(string(c.ClientAuth)); err != nil {
		return err
	}

	return nil
}

// DTLSConfig builds the pion configuration for one side of a connection.
func (c Config) DTLSConfig(isClient bool) (*dtls.Config, error) {
	c = c.withDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	psk, certificate, err := classifyCipherSuites(c.CipherSuites)
	switch {
	case err != nil:
		return nil, err
	case psk && certificate:
		return nil, errMixedCipherSuites
	}

	handshakeTimeout := c.HandshakeTimeout
	config := &dtls.Config{
		CipherSuites:         c.CipherSuites,
		ExtendedMasterSecret: dtls.RequestExtendedMasterSecret,
		FlightInterval:       c.RetransmissionTimeout,
		MTU:                  c.MTU,
		LoggerFactory:        c.LoggerFactory,
		ConnectContextMaker: func() (context.Context, func()) {
			return context.WithTimeout(context.Background(), handshakeTimeout)
		},
	}

	if psk {
		if len(c.PSKKey) == 0 {
			return nil, errEmptyPSKKey
		}
		identity := []byte(c.PSKIdentity)
		key := append([]byte(nil), c.PSKKey...)

		if isClient {
			config.PSKIdentityHint = identity
			config.PSK = func([]byte) ([]byte, error) {
				return key, nil
			}
		} else {
			config.PSK = func(clientIdentity []byte) ([]byte, error) {
				if !bytes.Equal(clientIdentity, identity) {
					return nil, fmt.Errorf("%w: %q", errUnknownPSKIdentity, clientIdentity)
				}

				return key, nil
			}
		}

		return config, nil
	}

	cert, err := loadKeyAndCertificate(c.KeyFile, c.CertificateFile)
	if err != nil {
		return nil, err
	}
	config.Certificates = []tls.Certificate{cert}

	if c.TrustFile == "" {
		if isClient {
			config.InsecureSkipVerify = true
		} else {
			config.ClientAuth = c.ClientAuth.dtls(false)
		}

		return config, nil
	}

	pool, err := loadCertPool(c.TrustFile)
	if err != nil {
		return nil, err
	}
	if isClient {
		config.RootCAs = pool
	} else {
		config.ClientCAs = pool
		config.ClientAuth = c.ClientAuth.dtls(true)
	}

	return config, nil
}
