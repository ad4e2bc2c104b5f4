package handlers

import (
	"crypto/x509"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UpstreamInfo is what readiness needs to know about the transport profile.
type UpstreamInfo interface {
	ForecastURL() string
	ClientCertificate() *x509.Certificate
}

type HealthHandler struct {
	logger    *zap.Logger
	startTime time.Time
	upstream  UpstreamInfo
	now       func() time.Time
}

func NewHealthHandler(logger *zap.Logger, upstream UpstreamInfo) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		startTime: time.Now(),
		upstream:  upstream,
		now:       time.Now,
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.response("alive"))
}

// Readiness never calls the upstream. It reports not_ready once the client
// certificate is outside its validity window, since every mTLS call would fail.
func (h *HealthHandler) Readiness(c *gin.Context) {
	resp := h.response("ready")
	resp.Upstream = h.upstream.ForecastURL()

	status := http.StatusOK
	if cert := h.upstream.ClientCertificate(); cert != nil {
		resp.ClientSubject = cert.Subject.String()
		resp.ClientNotAfter = cert.NotAfter.UTC().Format(time.RFC3339)

		if now := h.now(); now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			h.logger.Warn("Client certificate outside its validity window",
				zap.String("subject", resp.ClientSubject),
				zap.Time("not_before", cert.NotBefore),
				zap.Time("not_after", cert.NotAfter))
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, resp)
}

func (h *HealthHandler) Health(c *gin.Context) {
	resp := h.response("ok")
	resp.Timestamp = h.now().UTC().Format(time.RFC3339)
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) response(status string) HealthResponse {
	return HealthResponse{
		Status: status,
		Uptime: time.Since(h.startTime).String(),
	}
}
