// Package tlstest issues throwaway certificates and mutual-TLS upstream servers for tests.
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vzahanych/forecast-client-demo/internal/config"
	"software.sslmate.com/src/go-pkcs12"
)

// Password protects the PKCS#12 stores written by PKI.
const Password = "changeit"

type issued struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

// PKI is a CA with one server and one client certificate, both for localhost.
type PKI struct {
	t      testing.TB
	dir    string
	ca     issued
	server issued
	client issued
}

func NewPKI(t testing.TB) *PKI {
	t.Helper()

	p := &PKI{t: t, dir: t.TempDir()}
	p.ca = p.issue("test-ca", nil, true, 0)
	p.server = p.issue("localhost", &p.ca, false, x509.ExtKeyUsageServerAuth)
	p.client = p.issue("forecast-client", &p.ca, false, x509.ExtKeyUsageClientAuth)
	return p
}

var serial atomic.Int64

func (p *PKI) issue(cn string, parent *issued, isCA bool, usage x509.ExtKeyUsage) issued {
	p.t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		p.t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial.Add(1)),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  isCA,
	}
	if isCA {
		tmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature
	} else {
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{usage}
		if usage == x509.ExtKeyUsageServerAuth {
			tmpl.DNSNames = []string{"localhost"}
			tmpl.IPAddresses = []net.IP{net.ParseIP("127.0.0.1")}
		}
	}

	signer, signerKey := tmpl, key
	if parent != nil {
		signer, signerKey = parent.cert, parent.key
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, signer, &key.PublicKey, signerKey)
	if err != nil {
		p.t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		p.t.Fatalf("parse certificate: %v", err)
	}
	return issued{cert: cert, key: key}
}

func (p *PKI) write(name string, data []byte) string {
	p.t.Helper()
	path := filepath.Join(p.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		p.t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func certPEM(c *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})
}

// CAPool returns a pool holding only the CA certificate.
func (p *PKI) CAPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(p.ca.cert)
	return pool
}

// PEMKeyStore writes the client key and certificate into one PEM file.
func (p *PKI) PEMKeyStore() config.StoreConfig {
	p.t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(p.client.key)
	if err != nil {
		p.t.Fatalf("marshal key: %v", err)
	}
	data := append(certPEM(p.client.cert), pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})...)
	return config.StoreConfig{Path: p.write("client.pem", data)}
}

func (p *PKI) PEMTrustStore() config.StoreConfig {
	return config.StoreConfig{Path: p.write("ca.crt", certPEM(p.ca.cert))}
}

func (p *PKI) PKCS12KeyStore() config.StoreConfig {
	p.t.Helper()
	data, err := pkcs12.Modern.Encode(p.client.key, p.client.cert, []*x509.Certificate{p.ca.cert}, Password)
	if err != nil {
		p.t.Fatalf("encode keystore: %v", err)
	}
	return config.StoreConfig{Path: p.write("client.p12", data), Password: Password}
}

func (p *PKI) PKCS12TrustStore() config.StoreConfig {
	p.t.Helper()
	data, err := pkcs12.Modern.EncodeTrustStore([]*x509.Certificate{p.ca.cert}, Password)
	if err != nil {
		p.t.Fatalf("encode truststore: %v", err)
	}
	return config.StoreConfig{Path: p.write("server.truststore.p12", data), Password: Password}
}

// UpstreamConfig points at baseURL using PKCS#12 stores from this PKI.
func (p *PKI) UpstreamConfig(baseURL string) config.UpstreamConfig {
	cfg := config.NewDefaultConfig().Upstream
	cfg.BaseURL = baseURL
	cfg.Timeout = 5
	cfg.TLSHandshakeTimeout = 5
	cfg.KeyStore = p.PKCS12KeyStore()
	cfg.TrustStore = p.PKCS12TrustStore()
	return cfg
}

// StartUpstream serves handler over TLS and requires a client certificate signed by this CA.
func (p *PKI) StartUpstream(handler http.Handler) *httptest.Server {
	p.t.Helper()

	srv := httptest.NewUnstartedServer(handler)
	srv.TLS = &tls.Config{
		MinVersion: tls.VersionTLS12,
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{p.server.cert.Raw},
			PrivateKey:  p.server.key,
			Leaf:        p.server.cert,
		}},
		ClientAuth: tls.RequireAndVerifyClientCert,
		ClientCAs:  p.CAPool(),
	}
	srv.StartTLS()
	p.t.Cleanup(srv.Close)
	return srv
}
