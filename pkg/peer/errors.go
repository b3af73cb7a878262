// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import "errors"

var (
	errUnknownOperation      = errors.New("unknown operation")
	errUnknownClientAuth     = errors.New("unknown client authentication mode")
	errUnknownCipherSuite    = errors.New("unknown cipher suite")
	errNoCipherSuites        = errors.New("no cipher suites configured")
	errMixedCipherSuites     = errors.New("PSK and certificate cipher suites can not be mixed")
	errEmptyPSKKey           = errors.New("PSK cipher suite selected but PSK key is empty")
	errIncompleteKeyPair     = errors.New("key and certificate must be given together")
	errUnknownPSKIdentity    = errors.New("unknown PSK identity")
	errBlockIsNotCertificate = errors.New("block is not a certificate, unable to load certificates")
	errNoCertificateFound    = errors.New("no certificate found, unable to load certificates")
	errAlreadyStarted        = errors.New("worker already started")
)
