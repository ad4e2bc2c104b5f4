package transport_test

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/forecast-client-demo/internal/config"
	"github.com/vzahanych/forecast-client-demo/internal/transport"
	"github.com/vzahanych/forecast-client-demo/internal/transport/tlstest"
	"software.sslmate.com/src/go-pkcs12"
)

func TestNewProfile_PKCS12Stores(t *testing.T) {
	pki := tlstest.NewPKI(t)
	cfg := pki.UpstreamConfig("https://127.0.0.1:7001/")

	p, err := transport.NewProfile(cfg)
	require.NoError(t, err)

	assert.Equal(t, "https://127.0.0.1:7001", p.BaseURL())
	assert.Equal(t, "https://127.0.0.1:7001/WeatherForecast", p.ForecastURL())
	assert.Equal(t, "127.0.0.1", p.Host())

	tlsCfg := p.TLSConfig()
	require.Len(t, tlsCfg.Certificates, 1)
	assert.Len(t, tlsCfg.Certificates[0].Certificate, 2, "leaf plus CA chain")
	assert.NotNil(t, tlsCfg.RootCAs)
	assert.NotSame(t, tlsCfg, p.TLSConfig())
}

func TestNewProfile_PEMStores(t *testing.T) {
	pki := tlstest.NewPKI(t)
	cfg := pki.UpstreamConfig("https://localhost:7001")
	cfg.KeyStore = pki.PEMKeyStore()
	cfg.TrustStore = pki.PEMTrustStore()

	_, err := transport.NewProfile(cfg)
	assert.NoError(t, err)
}

func TestNewProfile_ConfigurationErrors(t *testing.T) {
	pki := tlstest.NewPKI(t)

	tests := []struct {
		name   string
		mutate func(c *config.UpstreamConfig)
		store  string
	}{
		{
			name:   "wrong keystore password",
			mutate: func(c *config.UpstreamConfig) { c.KeyStore.Password = "wrong" },
			store:  "keystore",
		},
		{
			name:   "wrong truststore password",
			mutate: func(c *config.UpstreamConfig) { c.TrustStore.Password = "wrong" },
			store:  "truststore",
		},
		{
			name:   "missing keystore",
			mutate: func(c *config.UpstreamConfig) { c.KeyStore.Path = filepath.Join(t.TempDir(), "missing.p12") },
			store:  "keystore",
		},
		{
			name: "garbage truststore",
			mutate: func(c *config.UpstreamConfig) {
				path := filepath.Join(t.TempDir(), "garbage.pem")
				require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))
				c.TrustStore = config.StoreConfig{Path: path}
			},
			store: "truststore",
		},
		{
			name:   "jks keystore",
			mutate: func(c *config.UpstreamConfig) { c.KeyStore.Path = "client.jks" },
			store:  "keystore",
		},
		{
			name:   "unknown format",
			mutate: func(c *config.UpstreamConfig) { c.TrustStore.Format = "bks" },
			store:  "truststore",
		},
		{
			name:   "plain http",
			mutate: func(c *config.UpstreamConfig) { c.BaseURL = "http://localhost:7001" },
			store:  "base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pki.UpstreamConfig("https://localhost:7001")
			tt.mutate(&cfg)

			_, err := transport.NewProfile(cfg)
			require.Error(t, err)

			var cerr *transport.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.store, cerr.Store)
		})
	}
}

func TestNewProfile_WrongPasswordIsReported(t *testing.T) {
	pki := tlstest.NewPKI(t)
	cfg := pki.UpstreamConfig("https://localhost:7001")
	cfg.KeyStore.Password = "wrong"

	_, err := transport.NewProfile(cfg)
	assert.True(t, errors.Is(err, pkcs12.ErrIncorrectPassword))
}

func TestProfile_MutualTLSRoundTrip(t *testing.T) {
	pki := tlstest.NewPKI(t)
	srv := pki.StartUpstream(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "no client certificate", http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, r.TLS.PeerCertificates[0].Subject.CommonName)
	}))

	p, err := transport.NewProfile(pki.UpstreamConfig(srv.URL))
	require.NoError(t, err)

	resp, err := p.NewHTTPClient("test", nil).Get(p.BaseURL() + "/whoami")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "forecast-client", string(body))
}

func TestProfile_RejectsForeignServer(t *testing.T) {
	upstreamPKI := tlstest.NewPKI(t)
	srv := upstreamPKI.StartUpstream(http.NotFoundHandler())

	p, err := transport.NewProfile(tlstest.NewPKI(t).UpstreamConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.NewHTTPClient("test", nil).Get(p.ForecastURL())
	assert.Error(t, err)
}

func TestProfile_VerifyHostname(t *testing.T) {
	pki := tlstest.NewPKI(t)
	srv := pki.StartUpstream(http.NotFoundHandler())
	leaf := srv.TLS.Certificates[0].Leaf

	matching, err := transport.NewProfile(pki.UpstreamConfig("https://localhost:7001"))
	require.NoError(t, err)
	assert.NoError(t, matching.VerifyHostname(tls.ConnectionState{PeerCertificates: []*x509.Certificate{leaf}}))

	other, err := transport.NewProfile(pki.UpstreamConfig("https://forecast.example.com"))
	require.NoError(t, err)
	assert.Error(t, other.VerifyHostname(tls.ConnectionState{PeerCertificates: []*x509.Certificate{leaf}}))

	assert.Error(t, matching.VerifyHostname(tls.ConnectionState{}))
}
