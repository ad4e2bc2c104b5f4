package config

import (
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"
)

var configValue atomic.Value

func GetConfig() *Config {
	return configValue.Load().(*Config)
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Version     string          `mapstructure:"version"`
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Upstream    UpstreamConfig  `mapstructure:"upstream"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// UpstreamConfig describes the forecast service called by all three client strategies.
type UpstreamConfig struct {
	BaseURL             string      `mapstructure:"base_url"`
	ForecastPath        string      `mapstructure:"forecast_path"`
	Timeout             int         `mapstructure:"timeout"`
	TLSHandshakeTimeout int         `mapstructure:"tls_handshake_timeout"`
	KeyStore            StoreConfig `mapstructure:"keystore"`
	TrustStore          StoreConfig `mapstructure:"truststore"`
}

// StoreConfig points at a key or trust store. Format is "pkcs12" or "pem";
// empty means it is derived from the file extension.
type StoreConfig struct {
	Path     string `mapstructure:"path"`
	Password string `mapstructure:"password"`
	Format   string `mapstructure:"format"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

func (u UpstreamConfig) RequestTimeout() time.Duration {
	return time.Duration(u.Timeout) * time.Second
}

func (u UpstreamConfig) HandshakeTimeout() time.Duration {
	return time.Duration(u.TLSHandshakeTimeout) * time.Second
}

func NewDefaultConfig() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "development",
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
		},
		Upstream: UpstreamConfig{
			BaseURL:             "https://localhost:5001",
			ForecastPath:        "/WeatherForecast",
			Timeout:             10,
			TLSHandshakeTimeout: 5,
			KeyStore: StoreConfig{
				Path:   "certs/client.p12",
				Format: "",
			},
			TrustStore: StoreConfig{
				Path:   "certs/server.truststore.p12",
				Format: "",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "tempo:4317",
			ServiceName: "forecast-client-demo",
		},
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Upstream.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("upstream.base_url: %w", err))
	case u.Scheme != "https":
		errs = append(errs, fmt.Errorf("upstream.base_url must use https, got %q", c.Upstream.BaseURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("upstream.base_url has no host: %q", c.Upstream.BaseURL))
	}

	if c.Upstream.ForecastPath == "" {
		errs = append(errs, errors.New("upstream.forecast_path is empty"))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream.timeout must be positive, got %d", c.Upstream.Timeout))
	}
	if c.Upstream.TLSHandshakeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream.tls_handshake_timeout must be positive, got %d", c.Upstream.TLSHandshakeTimeout))
	}
	if c.Upstream.KeyStore.Path == "" {
		errs = append(errs, errors.New("upstream.keystore.path is empty"))
	}
	if c.Upstream.TrustStore.Path == "" {
		errs = append(errs, errors.New("upstream.truststore.path is empty"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	return errors.Join(errs...)
}
