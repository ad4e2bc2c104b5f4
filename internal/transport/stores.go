package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vzahanych/forecast-client-demo/internal/config"
	"software.sslmate.com/src/go-pkcs12"
)

const (
	FormatPKCS12 = "pkcs12"
	FormatPEM    = "pem"

	keyStoreName   = "keystore"
	trustStoreName = "truststore"
)

var errNoCertificates = errors.New("no certificates found")

func storeFormat(sc config.StoreConfig) (string, error) {
	if sc.Format != "" {
		switch f := strings.ToLower(sc.Format); f {
		case FormatPKCS12, "p12", "pfx":
			return FormatPKCS12, nil
		case FormatPEM:
			return FormatPEM, nil
		default:
			return "", fmt.Errorf("unsupported store format %q", sc.Format)
		}
	}

	switch strings.ToLower(filepath.Ext(sc.Path)) {
	case ".pem", ".crt", ".cer", ".key":
		return FormatPEM, nil
	case ".jks":
		return "", errors.New("JKS stores are not supported, convert to PKCS#12 with keytool -importkeystore -deststoretype PKCS12")
	default:
		return FormatPKCS12, nil
	}
}

// LoadKeyStore reads the client identity: one private key plus its certificate chain.
func LoadKeyStore(sc config.StoreConfig) (tls.Certificate, error) {
	fail := func(err error) (tls.Certificate, error) {
		return tls.Certificate{}, &ConfigurationError{Store: keyStoreName, Path: sc.Path, Err: err}
	}

	format, err := storeFormat(sc)
	if err != nil {
		return fail(err)
	}

	data, err := os.ReadFile(sc.Path)
	if err != nil {
		return fail(err)
	}

	if format == FormatPEM {
		cert, err := tls.X509KeyPair(data, data)
		if err != nil {
			return fail(err)
		}
		return cert, nil
	}

	key, leaf, chain, err := pkcs12.DecodeChain(data, sc.Password)
	if err != nil {
		return fail(err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{leaf.Raw},
		PrivateKey:  key,
		Leaf:        leaf,
	}
	for _, c := range chain {
		cert.Certificate = append(cert.Certificate, c.Raw)
	}
	return cert, nil
}

// LoadTrustStore reads the trust anchors used to authenticate the upstream server.
func LoadTrustStore(sc config.StoreConfig) (*x509.CertPool, error) {
	fail := func(err error) (*x509.CertPool, error) {
		return nil, &ConfigurationError{Store: trustStoreName, Path: sc.Path, Err: err}
	}

	format, err := storeFormat(sc)
	if err != nil {
		return fail(err)
	}

	data, err := os.ReadFile(sc.Path)
	if err != nil {
		return fail(err)
	}

	pool := x509.NewCertPool()

	if format == FormatPEM {
		if !pool.AppendCertsFromPEM(data) {
			return fail(errNoCertificates)
		}
		return pool, nil
	}

	certs, err := pkcs12.DecodeTrustStore(data, sc.Password)
	if err != nil {
		return fail(err)
	}
	if len(certs) == 0 {
		return fail(errNoCertificates)
	}
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool, nil
}
