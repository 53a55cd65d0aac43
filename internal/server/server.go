// Package server exposes the webhook and operational endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/observability"
	"github.com/yungbote/triage-graph/internal/platform/logger"
)

const serviceName = "triage-graph"

type RouterConfig struct {
	WebhookHandler *WebhookHandler
	Ready          Pinger
	Metrics        *observability.Metrics
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig, log *logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.Nop()
	}
	r := gin.New()
	r.Use(otelgin.Middleware(serviceName))
	r.Use(attachTraceContext())
	r.Use(requestLogger(log))
	r.Use(recoverJSON(log))
	r.Use(metricsMiddleware(cfg.Metrics))
	if len(cfg.AllowOrigins) > 0 {
		r.Use(corsMiddleware(cfg.AllowOrigins))
	}

	r.GET("/healthz", healthz)
	r.GET("/readyz", readyz(cfg.Ready))
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	if cfg.WebhookHandler != nil {
		r.POST("/webhook", cfg.WebhookHandler.Handle)
		// Path the voice agent was originally configured with.
		r.POST("/vapi-webhook", cfg.WebhookHandler.Handle)
	}
	return r
}

type Server struct {
	Engine *gin.Engine

	srv             *http.Server
	shutdownTimeout time.Duration
	log             *logger.Logger
}

func New(cfg config.HTTPConfig, rc RouterConfig, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	engine := NewRouter(rc, log)
	return &Server{
		Engine: engine,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
			IdleTimeout:       cfg.IdleTimeout.Duration,
		},
		shutdownTimeout: cfg.ShutdownTimeout.Duration,
		log:             log.With("component", "HTTPServer"),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.log.Info("shutting down", "timeout", timeout.String())
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
