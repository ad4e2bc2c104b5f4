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

// Endpoint declares one upstream operation. Validate is a validator tag applied
// to the decoded result before it is returned; empty disables validation.
type Endpoint struct {
	Name     string
	Method   string
	Path     string
	Validate string
}

// Call is a bound endpoint.
type Call[T any] func(ctx context.Context) (T, error)

// ForecastAPI is the declared upstream contract: one GET returning a list whose
// items must each satisfy the forecast constraints.
type ForecastAPI struct {
	GetForecasts Call[[]forecast.Forecast]
}

// DeclarativeClient implements ForecastClient by binding ForecastAPI's
// declarations. It is the only strategy that validates its own result.
type DeclarativeClient struct {
	api ForecastAPI
}

type binder struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

func NewDeclarativeClient(p *transport.Profile, logger *zap.Logger, tele *telemetry.Telemetry) *DeclarativeClient {
	b := &binder{
		client:  p.NewHTTPClient(string(StrategyDeclarative), nil),
		baseURL: p.BaseURL(),
		logger:  logger.With(zap.String("strategy", string(StrategyDeclarative))),
		tele:    tele,
	}

	return &DeclarativeClient{
		api: ForecastAPI{
			GetForecasts: bind[[]forecast.Forecast](b, Endpoint{
				Name:     "getForecasts",
				Method:   http.MethodGet,
				Path:     p.ForecastPath(),
				Validate: "dive",
			}),
		},
	}
}

func (c *DeclarativeClient) Strategy() Strategy {
	return StrategyDeclarative
}

func (c *DeclarativeClient) FetchForecasts(ctx context.Context) ([]forecast.Forecast, error) {
	items, err := c.api.GetForecasts(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []forecast.Forecast{}
	}
	return items, nil
}

// bind turns an endpoint declaration into a callable.
func bind[T any](b *binder, e Endpoint) Call[T] {
	url := b.baseURL + e.Path
	op := e.Method + " " + url

	return func(ctx context.Context) (T, error) {
		var result T

		ctx, span := b.tele.GetTracer().Start(ctx, "declarative."+e.Name)
		defer span.End()
		span.SetAttributes(
			attribute.String("upstream.url", url),
			attribute.String("http.method", e.Method),
		)

		req, err := http.NewRequestWithContext(ctx, e.Method, url, nil)
		if err != nil {
			return result, transportError(StrategyDeclarative, op, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			span.SetAttributes(attribute.Bool("success", false))
			return result, transportError(StrategyDeclarative, op, err)
		}
		if err := checkStatus(StrategyDeclarative, op, resp); err != nil {
			span.SetAttributes(attribute.Bool("success", false))
			return result, err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			span.SetAttributes(attribute.Bool("success", false))
			return result, transportError(StrategyDeclarative, op, fmt.Errorf("decode response: %w", err))
		}

		if e.Validate != "" {
			if err := forecast.ValidateVar(result, e.Validate); err != nil {
				span.SetAttributes(attribute.Bool("success", false))
				b.logger.Debug("Declared response contract violated", zap.String("endpoint", e.Name), zap.Error(err))
				return result, validationError(StrategyDeclarative, op, err)
			}
		}

		span.SetAttributes(attribute.Bool("success", true))
		return result, nil
	}
}
