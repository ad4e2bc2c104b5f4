package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vzahanych/forecast-client-demo/internal/forecast"
	"github.com/vzahanych/forecast-client-demo/internal/transport"
	"github.com/vzahanych/forecast-client-demo/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReactiveClient retrieves forecasts through a non-blocking pipeline: one stage
// performs the exchange, one streams array items out of the body and one collects
// them. Callers either Await the pipeline or use FetchForecasts, which blocks.
type ReactiveClient struct {
	client *http.Client
	url    string
	logger *zap.Logger
	tele   *telemetry.Telemetry
}

// Pending is an in-flight retrieval.
type Pending struct {
	done  chan struct{}
	items []forecast.Forecast
	err   error
}

func NewReactiveClient(p *transport.Profile, logger *zap.Logger, tele *telemetry.Telemetry) *ReactiveClient {
	return &ReactiveClient{
		client: p.NewHTTPClient(string(StrategyReactive), nil),
		url:    p.ForecastURL(),
		logger: logger.With(zap.String("strategy", string(StrategyReactive))),
		tele:   tele,
	}
}

func (c *ReactiveClient) Strategy() Strategy {
	return StrategyReactive
}

// FetchForecasts starts the pipeline and blocks until it completes.
func (c *ReactiveClient) FetchForecasts(ctx context.Context) ([]forecast.Forecast, error) {
	return c.Retrieve(ctx).Await(ctx)
}

// Retrieve starts the pipeline and returns immediately. Items are not validated.
func (c *ReactiveClient) Retrieve(ctx context.Context) *Pending {
	pending := &Pending{done: make(chan struct{})}
	op := http.MethodGet + " " + c.url

	ctx, span := c.tele.GetTracer().Start(ctx, "reactive.Retrieve")
	span.SetAttributes(attribute.String("upstream.url", c.url))

	g, gctx := errgroup.WithContext(ctx)
	bodies := make(chan io.ReadCloser, 1)
	items := make(chan forecast.Forecast)
	collected := make([]forecast.Forecast, 0)

	g.Go(func() error {
		defer close(bodies)

		body, err := c.exchange(gctx, op)
		if err != nil {
			return err
		}
		bodies <- body
		return nil
	})

	g.Go(func() error {
		defer close(items)

		body, ok := <-bodies
		if !ok {
			return nil
		}
		defer body.Close()

		if err := streamItems(gctx, body, items); err != nil {
			return transportError(StrategyReactive, op, fmt.Errorf("decode response: %w", err))
		}
		return nil
	})

	g.Go(func() error {
		for f := range items {
			collected = append(collected, f)
		}
		return nil
	})

	go func() {
		defer span.End()
		defer close(pending.done)

		if err := g.Wait(); err != nil {
			span.SetAttributes(attribute.Bool("success", false))
			c.logger.Debug("Reactive retrieval failed", zap.Error(err))
			pending.err = err
			return
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("forecast_count", len(collected)),
		)
		c.logger.Debug("Reactive retrieval completed", zap.Int("forecast_count", len(collected)))
		pending.items = collected
	}()

	return pending
}

func (c *ReactiveClient) exchange(ctx context.Context, op string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, transportError(StrategyReactive, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(StrategyReactive, op, err)
	}
	if err := checkStatus(StrategyReactive, op, resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// streamItems decodes a JSON array element by element. A null body yields no items.
func streamItems(ctx context.Context, body io.Reader, out chan<- forecast.Forecast) error {
	dec := json.NewDecoder(body)

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("expected a JSON array, got %v", tok)
	}

	for dec.More() {
		var f forecast.Forecast
		if err := dec.Decode(&f); err != nil {
			return err
		}
		select {
		case out <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err = dec.Token()
	return err
}

// Done is closed once the pipeline has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the pipeline finishes or ctx is done.
func (p *Pending) Await(ctx context.Context) ([]forecast.Forecast, error) {
	select {
	case <-p.done:
		return p.items, p.err
	case <-ctx.Done():
		return nil, transportError(StrategyReactive, "await", ctx.Err())
	}
}
