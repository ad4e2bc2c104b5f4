package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/forecast-client-demo/internal/server/middlewares"
	"github.com/vzahanych/forecast-client-demo/internal/service"
	"go.uber.org/zap"
)

// AppMetrics holds upstream call counters per strategy and failure kind.
type AppMetrics struct {
	mutex            sync.RWMutex
	upstreamCalls    map[string]int64
	upstreamFailures map[string]int64
}

// HTTPMetricsProvider exposes the request metrics gathered by the middleware.
type HTTPMetricsProvider interface {
	Snapshot() middlewares.HTTPSnapshot
}

type MetricsHandler struct {
	logger      *zap.Logger
	httpMetrics HTTPMetricsProvider
	appMetrics  *AppMetrics
}

func NewMetricsHandler(logger *zap.Logger, httpMetrics HTTPMetricsProvider) *MetricsHandler {
	return &MetricsHandler{
		logger:      logger,
		httpMetrics: httpMetrics,
		appMetrics: &AppMetrics{
			upstreamCalls:    make(map[string]int64),
			upstreamFailures: make(map[string]int64),
		},
	}
}

// RecordUpstreamCall records one call through strategy and, on failure, its kind.
func (h *MetricsHandler) RecordUpstreamCall(strategy service.Strategy, err error) {
	h.appMetrics.mutex.Lock()
	defer h.appMetrics.mutex.Unlock()

	h.appMetrics.upstreamCalls[string(strategy)]++
	if err == nil {
		return
	}

	kind := "unknown"
	var serr *service.Error
	if errors.As(err, &serr) {
		kind = serr.Kind.String()
	}
	h.appMetrics.upstreamFailures[`strategy="`+string(strategy)+`",kind="`+kind+`"`]++
}

// ServeMetrics writes HTTP and upstream metrics in Prometheus text format
func (h *MetricsHandler) ServeMetrics(c *gin.Context) {
	var b strings.Builder

	if h.httpMetrics != nil {
		snap := h.httpMetrics.Snapshot()

		b.WriteString("# HELP http_requests_total Total number of HTTP requests\n")
		b.WriteString("# TYPE http_requests_total counter\n")
		for _, key := range sortedKeys(snap.RequestsTotal) {
			b.WriteString(`http_requests_total{route_status="` + key + `"} ` + strconv.FormatInt(snap.RequestsTotal[key], 10) + "\n")
		}

		b.WriteString("\n# HELP http_request_duration_seconds_avg Average duration of HTTP requests\n")
		b.WriteString("# TYPE http_request_duration_seconds_avg gauge\n")
		b.WriteString("http_request_duration_seconds_avg " + strconv.FormatFloat(snap.AverageDurationSecs, 'f', 6, 64) + "\n")

		b.WriteString("\n# HELP http_active_requests Number of active HTTP requests\n")
		b.WriteString("# TYPE http_active_requests gauge\n")
		b.WriteString("http_active_requests " + strconv.FormatInt(snap.ActiveRequests, 10) + "\n\n")
	}

	h.appMetrics.mutex.RLock()
	defer h.appMetrics.mutex.RUnlock()

	b.WriteString("# HELP upstream_calls_total Total forecast upstream calls\n")
	b.WriteString("# TYPE upstream_calls_total counter\n")
	for _, strategy := range sortedKeys(h.appMetrics.upstreamCalls) {
		b.WriteString(`upstream_calls_total{strategy="` + strategy + `"} ` + strconv.FormatInt(h.appMetrics.upstreamCalls[strategy], 10) + "\n")
	}

	b.WriteString("\n# HELP upstream_failures_total Total forecast upstream failures\n")
	b.WriteString("# TYPE upstream_failures_total counter\n")
	for _, labels := range sortedKeys(h.appMetrics.upstreamFailures) {
		b.WriteString("upstream_failures_total{" + labels + "} " + strconv.FormatInt(h.appMetrics.upstreamFailures[labels], 10) + "\n")
	}

	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.String(http.StatusOK, b.String())
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
