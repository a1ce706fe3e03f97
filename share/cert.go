package wcshare

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"
)

// CertSubjectName is the fixed placeholder name every ephemeral identity
// is bound to. Peers never check it.
const CertSubjectName = "localhost"

// ALPNProtocol is the single application protocol identifier advertised
// by both roles during the TLS handshake.
const ALPNProtocol = "http/1.1"

// identityValidity is how long a freshly minted certificate stays valid.
// More than enough for a single process run; identities are never reused.
const identityValidity = 24 * time.Hour

// GenerateIdentity generates a fresh ECDSA P-256 keypair and a certificate
// self-signed by it, bound to CertSubjectName. The identity exists only for
// this process run and is never persisted. Any generation failure is fatal
// to startup; there is no fallback identity.
func GenerateIdentity() (tls.Certificate, error) {
	now := time.Now()
	// backdate NotBefore to tolerate clock skew between the two peers
	return generateIdentity(now.Add(-time.Hour), now.Add(identityValidity))
}

// generateIdentity mints an identity with an explicit validity window.
func generateIdentity(notBefore, notAfter time.Time) (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("Unable to generate ECDSA key: %v", err)
	}

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("Unable to generate certificate serial: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      pkix.Name{CommonName: CertSubjectName},
		DNSNames:     []string{CertSubjectName},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("Unable to create certificate: %v", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}, nil
}

// ServerTLSConfig builds the listener-side handshake configuration carrying
// the provisioned ephemeral identity.
func ServerTLSConfig(identity tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{identity},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{ALPNProtocol},
	}
}

// InsecureClientTLSConfig builds the initiator-side handshake configuration.
//
// This is an explicit accept-any-peer policy, not an oversight: the root
// store is empty and peer certificate verification is disabled outright, so
// any certificate of any validity or subject name is accepted. The channel
// is encrypted but the remote identity is unauthenticated. Tests assert
// this policy's presence.
func InsecureClientTLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:            x509.NewCertPool(),
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
		NextProtos:         []string{ALPNProtocol},
	}
}
