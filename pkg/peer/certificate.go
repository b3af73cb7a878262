// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/pion/dtls/v2/pkg/crypto/selfsign"
)

// loadKeyAndCertificate reads a PEM key pair, or generates a self-signed
// one when neither file is given.
func loadKeyAndCertificate(keyPath, certificatePath string) (tls.Certificate, error) {
	switch {
	case keyPath == "" && certificatePath == "":
		return selfsign.GenerateSelfSigned()
	case keyPath == "" || certificatePath == "":
		return tls.Certificate{}, errIncompleteKeyPair
	}

	return tls.LoadX509KeyPair(certificatePath, keyPath)
}

// loadCertPool reads every certificate of a PEM file into a pool.
func loadCertPool(path string) (*x509.CertPool, error) {
	rawData, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	var found bool
	for {
		block, rest := pem.Decode(rawData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			return nil, errBlockIsNotCertificate
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		pool.AddCert(cert)
		found = true
		rawData = rest
	}

	if !found {
		return nil, errNoCertificateFound
	}

	return pool, nil
}
