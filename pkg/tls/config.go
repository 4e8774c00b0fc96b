// Package tls builds the server-side TLS configuration for the HTTP API
// from certificate files or a generated self-signed certificate.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"
)

// Config selects the server certificate. It is off unless a certificate
// pair is named or AutoGenerate is set.
type Config struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	// CAFile enables verification of client certificates when present.
	CAFile string `yaml:"ca_file"`
	// RequireClientCert rejects clients without a certificate signed by CAFile.
	RequireClientCert bool `yaml:"require_client_cert"`

	AutoGenerate bool          `yaml:"auto_generate"`
	Hosts        []string      `yaml:"hosts"`
	ValidFor     time.Duration `yaml:"valid_for"`
}

// DefaultValidFor is the lifetime of generated certificates.
const DefaultValidFor = 365 * 24 * time.Hour

// Enabled reports whether the server should speak TLS.
func (c Config) Enabled() bool {
	return c.CertFile != "" || c.KeyFile != "" || c.AutoGenerate
}

// SecureCipherSuites returns the TLS 1.2 suites offered. TLS 1.3 suites
// are not configurable.
func SecureCipherSuites() []uint16 {
	return []uint16{
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	}
}

// Load builds the server TLS configuration. It returns nil, nil when TLS
// is not enabled.
func Load(c Config) (*tls.Config, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var cert tls.Certificate
	var err error
	switch {
	case c.CertFile != "" && c.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
	case c.CertFile != "" || c.KeyFile != "":
		return nil, fmt.Errorf("cert_file and key_file must be set together")
	default:
		cert, err = GenerateSelfSigned(c.Hosts, c.ValidFor)
		if err != nil {
			return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
		}
	}

	tc := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: SecureCipherSuites(),
	}
	if c.CAFile != "" {
		pool, err := LoadCAPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		tc.ClientCAs = pool
		tc.ClientAuth = tls.VerifyClientCertIfGiven
		if c.RequireClientCert {
			tc.ClientAuth = tls.RequireAndVerifyClientCert
		}
	} else if c.RequireClientCert {
		return nil, fmt.Errorf("require_client_cert needs ca_file")
	}
	return tc, nil
}

// LoadCAPool loads a CA certificate pool from a PEM file.
func LoadCAPool(caFile string) (*x509.CertPool, error) {
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("failed to parse CA certificate %s", caFile)
	}
	return pool, nil
}
