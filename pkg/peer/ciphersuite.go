// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import (
	"fmt"
	"strings"

	"github.com/pion/dtls/v2"
)

type cipherSuite struct {
	id  dtls.CipherSuiteID
	psk bool
}

// cipherSuites are the suites selectable by name.
var cipherSuites = map[string]cipherSuite{ //nolint:gochecknoglobals
	"TLS_PSK_WITH_AES_128_CCM":                {dtls.TLS_PSK_WITH_AES_128_CCM, true},
	"TLS_PSK_WITH_AES_128_CCM_8":              {dtls.TLS_PSK_WITH_AES_128_CCM_8, true},
	"TLS_PSK_WITH_AES_128_GCM_SHA256":         {dtls.TLS_PSK_WITH_AES_128_GCM_SHA256, true},
	"TLS_PSK_WITH_AES_128_CBC_SHA256":         {dtls.TLS_PSK_WITH_AES_128_CBC_SHA256, true},
	"TLS_ECDHE_ECDSA_WITH_AES_128_CCM":        {dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM, false},
	"TLS_ECDHE_ECDSA_WITH_AES_128_CCM_8":      {dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM_8, false},
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": {dtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256, false},
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": {dtls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384, false},
	"TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA":    {dtls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA, false},
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   {dtls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256, false},
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   {dtls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384, false},
	"TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA":      {dtls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA, false},
}

// DefaultCipherSuites is the PSK suite tinydtls test peers speak.
func DefaultCipherSuites() []dtls.CipherSuiteID {
	return []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_CCM_8}
}

// ParseCipherSuites resolves IANA cipher suite names. Each entry may itself
// hold a comma separated list.
func ParseCipherSuites(names ...string) ([]dtls.CipherSuiteID, error) {
	var ids []dtls.CipherSuiteID
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.ToUpper(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			suite, ok := cipherSuites[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", errUnknownCipherSuite, name)
			}
			ids = append(ids, suite.id)
		}
	}
	if len(ids) == 0 {
		return nil, errNoCipherSuites
	}

	return ids, nil
}

// classifyCipherSuites reports whether ids contain PSK and certificate
// based suites.
func classifyCipherSuites(ids []dtls.CipherSuiteID) (psk, certificate bool, err error) {
	for _, id := range ids {
		var found bool
		for _, suite := range cipherSuites {
			if suite.id != id {
				continue
			}
			found = true
			if suite.psk {
				psk = true
			} else {
				certificate = true
			}
		}
		if !found {
			return false, false, fmt.Errorf("%w: %#04x", errUnknownCipherSuite, uint16(id))
		}
	}

	return psk, certificate, nil
}
