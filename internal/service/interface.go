package service

import (
	"context"

	"github.com/vzahanych/forecast-client-demo/internal/forecast"
)

// Strategy names one way of calling the upstream forecast endpoint.
type Strategy string

const (
	StrategyReactive    Strategy = "reactive"
	StrategyDeclarative Strategy = "declarative"
	StrategyTemplate    Strategy = "template"
)

// ForecastClient fetches the upstream forecast list. Failures are always *Error.
type ForecastClient interface {
	FetchForecasts(ctx context.Context) ([]forecast.Forecast, error)
	Strategy() Strategy
}
