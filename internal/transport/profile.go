// Package transport builds the mutual-TLS profile shared by every upstream client.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vzahanych/forecast-client-demo/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Profile is the read-only transport material loaded once at startup: the upstream
// base URL, the client identity and the trust anchors.
type Profile struct {
	baseURL          *url.URL
	forecastPath     string
	timeout          time.Duration
	handshakeTimeout time.Duration
	identity         tls.Certificate
	roots            *x509.CertPool
}

// NewProfile loads both stores. Every failure is a *ConfigurationError.
func NewProfile(cfg config.UpstreamConfig) (*Profile, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &ConfigurationError{Store: "base_url", Err: err}
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, &ConfigurationError{Store: "base_url", Err: fmt.Errorf("%q is not an https URL", cfg.BaseURL)}
	}

	identity, err := LoadKeyStore(cfg.KeyStore)
	if err != nil {
		return nil, err
	}

	roots, err := LoadTrustStore(cfg.TrustStore)
	if err != nil {
		return nil, err
	}

	path := cfg.ForecastPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return &Profile{
		baseURL:          u,
		forecastPath:     path,
		timeout:          cfg.RequestTimeout(),
		handshakeTimeout: cfg.HandshakeTimeout(),
		identity:         identity,
		roots:            roots,
	}, nil
}

func (p *Profile) BaseURL() string {
	return strings.TrimSuffix(p.baseURL.String(), "/")
}

func (p *Profile) Host() string {
	return p.baseURL.Hostname()
}

func (p *Profile) ForecastPath() string {
	return p.forecastPath
}

// ForecastURL is the absolute URL of the upstream forecast resource.
func (p *Profile) ForecastURL() string {
	return p.BaseURL() + p.forecastPath
}

func (p *Profile) Timeout() time.Duration {
	return p.timeout
}

// ClientCertificate is the leaf of the identity presented to the upstream.
func (p *Profile) ClientCertificate() *x509.Certificate {
	return p.identity.Leaf
}

// TLSConfig returns a fresh config that presents only the configured identity
// and trusts only the configured anchors.
func (p *Profile) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{p.identity},
		RootCAs:      p.roots,
	}
}

// VerifyHostname accepts a handshake only when the presented leaf certificate
// is valid for the host of the configured base URL.
func (p *Profile) VerifyHostname(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("upstream presented no certificate")
	}
	if err := cs.PeerCertificates[0].VerifyHostname(p.Host()); err != nil {
		return fmt.Errorf("upstream certificate does not match configured host %q: %w", p.Host(), err)
	}
	return nil
}

// NewTransport returns an independent transport over tlsCfg (TLSConfig() when nil).
func (p *Profile) NewTransport(tlsCfg *tls.Config) *http.Transport {
	if tlsCfg == nil {
		tlsCfg = p.TLSConfig()
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   p.timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   p.handshakeTimeout,
		ResponseHeaderTimeout: p.timeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}
}

// NewHTTPClient wraps rt with OpenTelemetry instrumentation and the configured timeout.
// A nil rt uses NewTransport(nil).
func (p *Profile) NewHTTPClient(name string, rt http.RoundTripper) *http.Client {
	if rt == nil {
		rt = p.NewTransport(nil)
	}

	return &http.Client{
		Timeout: p.timeout,
		Transport: otelhttp.NewTransport(rt,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return name + " " + r.Method + " " + r.URL.Path
			}),
		),
	}
}
