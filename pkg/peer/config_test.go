// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pion/dtls/v2"
	"github.com/pion/dtls/v2/pkg/crypto/selfsign"
	"github.com/stretchr/testify/require"
)

// writeKeyPair stores a fresh self-signed key pair as PEM files.
func writeKeyPair(t *testing.T) (keyFile, certFile string, cert tls.Certificate) {
	t.Helper()

	cert, err := selfsign.GenerateSelfSigned()
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey)
	require.NoError(t, err)

	dir := t.TempDir()
	keyFile = filepath.Join(dir, "key.pem")
	certFile = filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]}), 0o600))

	return keyFile, certFile, cert
}

func TestParseCipherSuites(t *testing.T) {
	ids, err := ParseCipherSuites("tls_psk_with_aes_128_ccm_8, TLS_PSK_WITH_AES_128_GCM_SHA256", "TLS_ECDHE_ECDSA_WITH_AES_128_CCM")
	require.NoError(t, err)
	require.Equal(t, []dtls.CipherSuiteID{
		dtls.TLS_PSK_WITH_AES_128_CCM_8,
		dtls.TLS_PSK_WITH_AES_128_GCM_SHA256,
		dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM,
	}, ids)

	_, err = ParseCipherSuites("TLS_RSA_WITH_NULL_MD5")
	require.True(t, errors.Is(err, errUnknownCipherSuite))

	_, err = ParseCipherSuites(" , ")
	require.True(t, errors.Is(err, errNoCipherSuites))
}

func TestParseClientAuth(t *testing.T) {
	mode, err := ParseClientAuth("Wanted")
	require.NoError(t, err)
	require.Equal(t, ClientAuthWanted, mode)

	_, err = ParseClientAuth("sometimes")
	require.True(t, errors.Is(err, errUnknownClientAuth))
}

func TestClientAuthMapping(t *testing.T) {
	require.Equal(t, dtls.RequireAndVerifyClientCert, ClientAuthNeeded.dtls(true))
	require.Equal(t, dtls.RequireAnyClientCert, ClientAuthNeeded.dtls(false))
	require.Equal(t, dtls.VerifyClientCertIfGiven, ClientAuthWanted.dtls(true))
	require.Equal(t, dtls.RequestClientCert, ClientAuthWanted.dtls(false))
	require.Equal(t, dtls.NoClientCert, ClientAuthDisabled.dtls(true))
}

func TestDTLSConfigPSK(t *testing.T) {
	cfg := Config{PSKIdentity: "id", PSKKey: []byte{0xAB, 0xC1}}

	client, err := cfg.DTLSConfig(true)
	require.NoError(t, err)
	require.Equal(t, []byte("id"), client.PSKIdentityHint)
	require.Equal(t, DefaultCipherSuites(), client.CipherSuites)
	require.Empty(t, client.Certificates)
	key, err := client.PSK(nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAB, 0xC1}, key)

	server, err := cfg.DTLSConfig(false)
	require.NoError(t, err)
	require.Nil(t, server.PSKIdentityHint)
	key, err = server.PSK([]byte("id"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xAB, 0xC1}, key)
	_, err = server.PSK([]byte("intruder"))
	require.True(t, errors.Is(err, errUnknownPSKIdentity))

	// The key is copied.
	cfg.PSKKey[0] = 0
	key, err = server.PSK([]byte("id"))
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), key[0])
}

func TestDTLSConfigErrors(t *testing.T) {
	for name, cfg := range map[string]Config{
		"mixed": {CipherSuites: []dtls.CipherSuiteID{
			dtls.TLS_PSK_WITH_AES_128_CCM_8, dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM,
		}},
		"empty key":       {PSKKey: []byte{}},
		"operation":       {Operation: "echo"},
		"client auth":     {ClientAuth: "sometimes"},
		"unknown suite":   {CipherSuites: []dtls.CipherSuiteID{0x0001}},
		"half a key pair": {CipherSuites: []dtls.CipherSuiteID{dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM}, KeyFile: "key.pem"},
		"missing trust":   {CipherSuites: []dtls.CipherSuiteID{dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM}, TrustFile: "missing.pem"},
	} {
		_, err := cfg.DTLSConfig(false)
		require.Error(t, err, name)
	}

	_, err := Config{CipherSuites: []dtls.CipherSuiteID{
		dtls.TLS_PSK_WITH_AES_128_CCM_8, dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM,
	}}.DTLSConfig(true)
	require.True(t, errors.Is(err, errMixedCipherSuites))
}

func TestDTLSConfigCertificate(t *testing.T) {
	suites := []dtls.CipherSuiteID{dtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256}

	t.Run("SelfSigned", func(t *testing.T) {
		cfg := Config{CipherSuites: suites}

		client, err := cfg.DTLSConfig(true)
		require.NoError(t, err)
		require.Len(t, client.Certificates, 1)
		require.Nil(t, client.PSK)
		require.True(t, client.InsecureSkipVerify)

		server, err := cfg.DTLSConfig(false)
		require.NoError(t, err)
		require.Len(t, server.Certificates, 1)
		require.Equal(t, dtls.RequireAnyClientCert, server.ClientAuth)
	})

	t.Run("Files", func(t *testing.T) {
		keyFile, certFile, cert := writeKeyPair(t)
		cfg := Config{
			CipherSuites:    suites,
			KeyFile:         keyFile,
			CertificateFile: certFile,
			TrustFile:       certFile,
			ClientAuth:      ClientAuthWanted,
		}

		client, err := cfg.DTLSConfig(true)
		require.NoError(t, err)
		require.Equal(t, cert.Certificate[0], client.Certificates[0].Certificate[0])
		require.NotNil(t, client.RootCAs)
		require.False(t, client.InsecureSkipVerify)

		server, err := cfg.DTLSConfig(false)
		require.NoError(t, err)
		require.NotNil(t, server.ClientCAs)
		require.Equal(t, dtls.VerifyClientCertIfGiven, server.ClientAuth)
	})
}

func TestLoadCertPool(t *testing.T) {
	keyFile, certFile, _ := writeKeyPair(t)

	pool, err := loadCertPool(certFile)
	require.NoError(t, err)
	require.NotNil(t, pool)

	_, err = loadCertPool(keyFile)
	require.True(t, errors.Is(err, errBlockIsNotCertificate))

	empty := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("nothing here\n"), 0o600))
	_, err = loadCertPool(empty)
	require.True(t, errors.Is(err, errNoCertificateFound))
}
