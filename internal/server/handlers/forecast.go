package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/forecast-client-demo/internal/forecast"
	"github.com/vzahanych/forecast-client-demo/internal/problem"
	"github.com/vzahanych/forecast-client-demo/internal/server/utils"
	"github.com/vzahanych/forecast-client-demo/internal/service"
	"github.com/vzahanych/forecast-client-demo/pkg/telemetry"
	"go.uber.org/zap"
)

// MetricsRecorder receives one observation per upstream call.
type MetricsRecorder interface {
	RecordUpstreamCall(strategy service.Strategy, err error)
}

// ForecastHandler exposes one endpoint per client strategy. The reactive and
// template results are validated here; the declarative client validates its own.
type ForecastHandler struct {
	reactive    service.ForecastClient
	declarative service.ForecastClient
	template    service.ForecastClient
	logger      *zap.Logger
	tele        *telemetry.Telemetry
	metrics     MetricsRecorder
}

func NewForecastHandler(
	reactive *service.ReactiveClient,
	declarative *service.DeclarativeClient,
	template *service.TemplateClient,
	logger *zap.Logger,
	tele *telemetry.Telemetry,
	metrics MetricsRecorder,
) *ForecastHandler {
	return &ForecastHandler{
		reactive:    reactive,
		declarative: declarative,
		template:    template,
		logger:      logger,
		tele:        tele,
		metrics:     metrics,
	}
}

func (h *ForecastHandler) UseWebClient(c *gin.Context) {
	h.respond(c, h.reactive, true)
}

func (h *ForecastHandler) UseFeignClient(c *gin.Context) {
	h.respond(c, h.declarative, false)
}

func (h *ForecastHandler) UseRestTemplate(c *gin.Context) {
	h.respond(c, h.template, true)
}

func (h *ForecastHandler) respond(c *gin.Context, client service.ForecastClient, validate bool) {
	ctx := utils.GetContextFromGinContext(c)
	strategy := client.Strategy()

	reqLogger := utils.RequestLogger(c, h.logger).With(zap.String("strategy", string(strategy)))

	items, err := h.fetch(ctx, client, validate)
	if h.metrics != nil {
		h.metrics.RecordUpstreamCall(strategy, err)
	}

	if err != nil {
		status, p := problem.Translate(err, c.Request.URL.Path)

		reqLogger.Warn("Problems in request",
			zap.String("error_instance", p.Instance),
			zap.String("kind", service.KindOf(err).String()),
			zap.Int("status", status),
			zap.Error(err))
		h.tele.RecordError(ctx, err, map[string]string{
			"error.instance": p.Instance,
			"error.kind":     service.KindOf(err).String(),
		})

		_ = c.Error(err)
		problem.Write(c, status, p)
		return
	}

	reqLogger.Debug("Forecast request completed", zap.Int("forecast_count", len(items)))
	c.JSON(http.StatusOK, items)
}

func (h *ForecastHandler) fetch(ctx context.Context, client service.ForecastClient, validate bool) ([]forecast.Forecast, error) {
	items, err := client.FetchForecasts(ctx)
	if err != nil {
		return nil, err
	}
	if !validate {
		return items, nil
	}
	return service.ValidateResponse(client.Strategy(), items)
}
