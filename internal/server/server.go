package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/forecast-client-demo/internal/config"
	"github.com/vzahanych/forecast-client-demo/internal/problem"
	"github.com/vzahanych/forecast-client-demo/internal/server/handlers"
	"github.com/vzahanych/forecast-client-demo/internal/server/middlewares"
	"github.com/vzahanych/forecast-client-demo/internal/service"
	"github.com/vzahanych/forecast-client-demo/internal/transport"
	"github.com/vzahanych/forecast-client-demo/pkg/telemetry"
	"go.uber.org/zap"
)

const forecastsGroup = "/demoservice/client/v1/forecasts"

type Server struct {
	engine  *gin.Engine
	server  *http.Server
	logger  *zap.Logger
	tele    *telemetry.Telemetry
	profile *transport.Profile

	httpMetrics *middlewares.MetricsMiddleware
	metrics     *handlers.MetricsHandler
	forecasts   *handlers.ForecastHandler
	health      *handlers.HealthHandler
}

// NewServer wires the three client strategies behind one gin engine. The
// profile must already be loaded; a server is never built without one.
func NewServer(cfg *config.Config, profile *transport.Profile, logger *zap.Logger, tele *telemetry.Telemetry) *Server {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	httpMetrics := middlewares.NewMetricsMiddleware(logger, tele)
	metrics := handlers.NewMetricsHandler(logger, httpMetrics)

	s := &Server{
		engine:      engine,
		logger:      logger,
		tele:        tele,
		profile:     profile,
		httpMetrics: httpMetrics,
		metrics:     metrics,
		forecasts: handlers.NewForecastHandler(
			service.NewReactiveClient(profile, logger, tele),
			service.NewDeclarativeClient(profile, logger, tele),
			service.NewTemplateClient(profile, logger, tele),
			logger, tele, metrics,
		),
		health: handlers.NewHealthHandler(logger, profile),
	}

	engine.Use(middlewares.RequestIDMiddleware())
	engine.Use(middlewares.LoggingMiddleware(logger, time.RFC3339, true))
	engine.Use(middlewares.RecoveryMiddleware(logger, true))
	engine.Use(middlewares.TelemetryMiddleware(logger, tele))
	engine.Use(httpMetrics.Handler())

	s.setupRoutes()

	sc := cfg.Server
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", sc.Host, sc.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(sc.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(sc.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(sc.IdleTimeout) * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	forecasts := s.engine.Group(forecastsGroup)
	forecasts.GET("/use-web-client", s.forecasts.UseWebClient)
	forecasts.GET("/use-feign-client", s.forecasts.UseFeignClient)
	forecasts.GET("/use-rest-template", s.forecasts.UseRestTemplate)

	// Health endpoints (Kubernetes friendly)
	s.engine.GET("/health", s.health.Health)
	s.engine.GET("/health/live", s.health.Liveness)
	s.engine.GET("/health/ready", s.health.Readiness)

	s.engine.GET("/metrics", s.metrics.ServeMetrics)

	s.engine.NoRoute(func(c *gin.Context) {
		problem.Write(c, http.StatusNotFound, problem.New(c.Request.URL.Path, http.StatusText(http.StatusNotFound)))
	})
	s.engine.NoMethod(func(c *gin.Context) {
		problem.Write(c, http.StatusMethodNotAllowed, problem.New(c.Request.URL.Path, http.StatusText(http.StatusMethodNotAllowed)))
	})
}

// Handler returns the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting server",
		zap.String("addr", s.server.Addr),
		zap.String("upstream", s.profile.ForecastURL()))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
