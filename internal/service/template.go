package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vzahanych/forecast-client-demo/internal/forecast"
	"github.com/vzahanych/forecast-client-demo/internal/transport"
	"github.com/vzahanych/forecast-client-demo/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TemplateClient is the classic blocking client: a root URL plus GetForEntity.
// Its TLS config additionally runs the profile's hostname predicate.
type TemplateClient struct {
	client  *http.Client
	rootURL string
	path    string
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

func NewTemplateClient(p *transport.Profile, logger *zap.Logger, tele *telemetry.Telemetry) *TemplateClient {
	tlsCfg := p.TLSConfig()
	tlsCfg.VerifyConnection = p.VerifyHostname

	return &TemplateClient{
		client:  p.NewHTTPClient(string(StrategyTemplate), p.NewTransport(tlsCfg)),
		rootURL: p.BaseURL(),
		path:    p.ForecastPath(),
		logger:  logger.With(zap.String("strategy", string(StrategyTemplate))),
		tele:    tele,
	}
}

func (c *TemplateClient) Strategy() Strategy {
	return StrategyTemplate
}

// FetchForecasts blocks for the full round trip. Items are not validated.
func (c *TemplateClient) FetchForecasts(ctx context.Context) ([]forecast.Forecast, error) {
	var items []forecast.Forecast
	if err := c.GetForEntity(ctx, c.path, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []forecast.Forecast{}
	}
	return items, nil
}

// GetForEntity issues a GET for rootURL+path and decodes the JSON body into out.
func (c *TemplateClient) GetForEntity(ctx context.Context, path string, out any) error {
	url := c.rootURL + path
	op := http.MethodGet + " " + url

	ctx, span := c.tele.GetTracer().Start(ctx, "template.GetForEntity")
	defer span.End()
	span.SetAttributes(attribute.String("upstream.url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return transportError(StrategyTemplate, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		c.logger.Debug("Upstream exchange failed", zap.String("url", url), zap.Error(err))
		return transportError(StrategyTemplate, op, err)
	}
	if err := checkStatus(StrategyTemplate, op, resp); err != nil {
		span.SetAttributes(
			attribute.Bool("success", false),
			attribute.Int("http.status_code", resp.StatusCode),
		)
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return transportError(StrategyTemplate, op, fmt.Errorf("decode response: %w", err))
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("http.status_code", resp.StatusCode),
	)
	return nil
}
