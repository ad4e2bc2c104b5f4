package handlers

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeUpstream struct {
	cert *x509.Certificate
}

func (f fakeUpstream) ForecastURL() string { return "https://upstream.test/WeatherForecast" }

func (f fakeUpstream) ClientCertificate() *x509.Certificate { return f.cert }

func serveReadiness(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.GET("/health/ready", h.Readiness)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestReadiness(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cert := &x509.Certificate{
		Subject:   pkix.Name{CommonName: "forecast-client"},
		NotBefore: now.Add(-24 * time.Hour),
		NotAfter:  now.Add(24 * time.Hour),
	}

	tests := []struct {
		name       string
		at         time.Time
		wantCode   int
		wantStatus string
	}{
		{"valid", now, http.StatusOK, "ready"},
		{"expired", now.Add(48 * time.Hour), http.StatusServiceUnavailable, "not_ready"},
		{"not yet valid", now.Add(-48 * time.Hour), http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(zaptest.NewLogger(t), fakeUpstream{cert: cert})
			h.now = func() time.Time { return tt.at }

			code, resp := serveReadiness(t, h)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "CN=forecast-client", resp.ClientSubject)
			assert.Equal(t, "https://upstream.test/WeatherForecast", resp.Upstream)
		})
	}
}

func TestReadiness_WithoutLeaf(t *testing.T) {
	code, resp := serveReadiness(t, NewHealthHandler(zaptest.NewLogger(t), fakeUpstream{}))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", resp.Status)
	assert.Empty(t, resp.ClientSubject)
}
