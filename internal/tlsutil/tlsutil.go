package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

// aeadSuites are the TLS 1.2 suites offered. TLS 1.3 suites are fixed by
// crypto/tls and already AEAD only.
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// TLSOptions adjusts the client TLS configuration.
type TLSOptions struct {
	CAFile             string // PEM certificates added to the system roots
	ServerName         string // SNI override
	InsecureSkipVerify bool   // test use only
}

// ClientTLS returns a client configuration that requires TLS 1.2 or newer.
func ClientTLS(opts TLSOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		CipherSuites:       append([]uint16(nil), aeadSuites...),
		ServerName:         opts.ServerName,
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // opt-in
	}
	if opts.CAFile != "" {
		roots, err := loadRoots(opts.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = roots
	}
	return cfg, nil
}

// ClientConfig tunes the upstream HTTP client.
type ClientConfig struct {
	// Timeout bounds a whole exchange, body included. Zero means no limit.
	Timeout time.Duration

	CAFile             string
	ServerName         string
	InsecureSkipVerify bool

	// ProxyURL forces an HTTP proxy; empty falls back to HTTP_PROXY and friends.
	ProxyURL string

	MaxIdleConnsPerHost int
}

// NewHTTPClient builds an HTTP client whose transport uses ClientTLS.
func NewHTTPClient(cfg ClientConfig) (*http.Client, error) {
	tlsCfg, err := ClientTLS(TLSOptions{
		CAFile:             cfg.CAFile,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}

	proxy := http.ProxyFromEnvironment
	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", cfg.ProxyURL)
		}
		proxy = http.ProxyURL(u)
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		Proxy:                 proxy,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsCfg,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: tr}, nil
}

func loadRoots(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	roots, err := x509.SystemCertPool()
	if err != nil || roots == nil {
		roots = x509.NewCertPool()
	}
	if !roots.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("ca file %s contains no PEM certificates", path)
	}
	return roots, nil
}
